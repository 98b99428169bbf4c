package enrich

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var htmlTag = regexp.MustCompile(`(?i)</?(p|h[1-6]|ul|ol|li|table|thead|tbody|tfoot|tr|th|td)\b[^>]*>`)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// asHTML returns a rewrite response as HTML. Responses that carry no block
// tags are treated as Markdown and rendered.
func asHTML(response string) (string, error) {
	response = stripFences(response)
	if response == "" || htmlTag.MatchString(response) {
		return response, nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(response), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
