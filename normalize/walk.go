package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/druglabel/core"
)

// Walk applies fn to every string leaf of a decoded JSON value. Maps and
// slices are rebuilt with the same shape. Any other non-nil leaf is replaced
// by its JSON encoding so downstream stages only ever see strings, and a nil
// leaf becomes "null".
func Walk(v any, fn func(string) string) any {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return fn(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = Walk(child, fn)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = Walk(child, fn)
		}
		return out
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// NormalizeJSON normalizes every string in an arbitrary JSON document.
func NormalizeJSON(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return json.Marshal(Walk(v, Normalize))
}

// NormalizeDocument normalizes every present label section in place.
func NormalizeDocument(doc *core.Document) {
	doc.Label.MapSections(func(_, value string) string {
		return Normalize(value)
	})
	doc.EnsureSlug()
}

// NormalizeDocuments normalizes a batch in place.
func NormalizeDocuments(docs []*core.Document) {
	for _, doc := range docs {
		NormalizeDocument(doc)
	}
}
