package enrich

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	invopop "github.com/invopop/jsonschema"
	"github.com/kaptinlin/jsonschema"
)

// TagList is the response shape of every tag transform.
type TagList struct {
	Tags []string `json:"tags" jsonschema:"description=Distinct extracted terms"`
}

var (
	tagSchemaOnce sync.Once
	tagSchema     *jsonschema.Schema
	tagSchemaErr  error
)

// TagListSchema returns the JSON schema of TagList.
func TagListSchema() ([]byte, error) {
	reflector := &invopop.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return json.Marshal(reflector.Reflect(&TagList{}))
}

func compiledTagSchema() (*jsonschema.Schema, error) {
	tagSchemaOnce.Do(func() {
		raw, err := TagListSchema()
		if err != nil {
			tagSchemaErr = fmt.Errorf("failed to generate tag schema: %w", err)
			return
		}
		tagSchema, tagSchemaErr = jsonschema.NewCompiler().Compile(raw)
		if tagSchemaErr != nil {
			tagSchemaErr = fmt.Errorf("failed to compile tag schema: %w", tagSchemaErr)
		}
	})
	return tagSchema, tagSchemaErr
}

// ParseTags decodes a tag response. The list may be under "tags" or, when the
// object has exactly one key, under that key.
func ParseTags(response string) ([]string, error) {
	body := repairJSON(stripFences(response))
	if body == "" {
		return nil, fmt.Errorf("%w: empty response", ErrInvalidTagResponse)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTagResponse, err)
	}

	list, ok := obj["tags"]
	if !ok {
		if len(obj) != 1 {
			return nil, fmt.Errorf("%w: no tag list in response", ErrInvalidTagResponse)
		}
		for _, v := range obj {
			list = v
		}
	}
	normalized := map[string]any{"tags": list}
	if list == nil {
		normalized["tags"] = []any{}
	}

	schema, err := compiledTagSchema()
	if err != nil {
		return nil, err
	}
	if result := schema.Validate(normalized); !result.Valid {
		return nil, fmt.Errorf("%w: schema validation failed: %v", ErrInvalidTagResponse, result.Errors)
	}

	items, _ := normalized["tags"].([]any)
	tags := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags, nil
}

// stripFences removes a surrounding Markdown code fence and its language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
