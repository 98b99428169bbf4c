package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     []string
	}{
		{"plain", `{"tags": ["Hypertension", "Heart failure"]}`, []string{"Hypertension", "Heart failure"}},
		{"fenced", "```json\n{\"tags\": [\"Pediatric\"]}\n```", []string{"Pediatric"}},
		{"named key", `{"strengths": ["10 mg", "1 mg/mL"]}`, []string{"10 mg", "1 mg/mL"}},
		{"prose around", `Here you go: {"tags": ["Angioedema"]} Hope this helps.`, []string{"Angioedema"}},
		{"trailing comma", `{"tags": ["A", "B",],}`, []string{"A", "B"}},
		{"unquoted key", `{tags: ["A"]}`, []string{"A"}},
		{"missing opening quote", `{tags": ["A"]}`, []string{"A"}},
		{"null list", `{"tags": null}`, []string{}},
		{"empty list", `{"tags": []}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTags(tt.response)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTags_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"empty", ""},
		{"not json", "no tags here"},
		{"numbers", `{"tags": [1, 2]}`},
		{"object list", `{"tags": {"a": "b"}}`},
		{"ambiguous keys", `{"indications": ["A"], "strengths": ["B"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTags(tt.response)
			assert.ErrorIs(t, err, ErrInvalidTagResponse)
		})
	}
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"valid unchanged", `{"tags": ["a", "b"]}`, `{"tags": ["a", "b"]}`},
		{"bare key", `{tags: []}`, `{"tags": []}`},
		{"half quoted key", `{ tags": []}`, `{ "tags": []}`},
		{"bare key after comma", `{"a": 1, b: 2}`, `{"a": 1, "b": 2}`},
		{"trailing comma in array", `{"tags": ["a",]}`, `{"tags": ["a"]}`},
		{"colon inside string", `{"tags": ["ratio: 1:2"]}`, `{"tags": ["ratio: 1:2"]}`},
		{"literal values", `{"a": true, "b": null}`, `{"a": true, "b": null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"tags": []}`, stripFences("```json\n{\"tags\": []}\n```"))
	assert.Equal(t, `<p>x</p>`, stripFences("```html\n<p>x</p>\n```"))
	assert.Equal(t, `{"tags": []}`, stripFences("```{\"tags\": []}```"))
	assert.Equal(t, "plain", stripFences("  plain  "))
}

func TestTagListSchema(t *testing.T) {
	raw, err := TagListSchema()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tags"`)
	assert.Contains(t, string(raw), `"array"`)
	assert.Contains(t, string(raw), `"required"`)
}

func TestAsHTML(t *testing.T) {
	html, err := asHTML("<p>already html</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>already html</p>", html)

	html, err = asHTML("# Dosage\n\n- 10 mg daily\n- 20 mg daily")
	require.NoError(t, err)
	assert.Contains(t, html, "<h1>Dosage</h1>")
	assert.Contains(t, html, "<li>10 mg daily</li>")
}
