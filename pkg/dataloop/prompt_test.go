package dataloop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptItemSuffixLength(t *testing.T) {
	t.Parallel()
	// Row ids are recovered by dropping exactly this many characters.
	assert.Len(t, PromptItemSuffix, 5)
	assert.Equal(t, "42.json", (&PromptItem{Name: "42"}).FileName())
}

func TestPromptItemMarshal(t *testing.T) {
	t.Parallel()

	item := &PromptItem{
		Name: "42",
		Prompts: []Prompt{
			{Key: "1", Elements: []PromptElement{{MimeType: MimeText, Value: "hello"}}},
		},
	}
	data, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"shebang": "dataloop",
		"metadata": {"dltype": "prompt"},
		"prompts": {"1": [{"mimetype": "application/text", "value": "hello"}]}
	}`, string(data))
}

func TestParsePromptItemOrdersKeysNumerically(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"shebang": "dataloop",
		"metadata": {"dltype": "prompt"},
		"prompts": {
			"10": [{"mimetype": "application/text", "value": "ten"}],
			"2": [{"mimetype": "application/text", "value": "two"}],
			"1": [{"mimetype": "application/text", "value": "one"}]
		}
	}`)
	item, err := ParsePromptItem("42.json", data)
	require.NoError(t, err)
	assert.Equal(t, "42.json", item.Name)
	require.Len(t, item.Prompts, 3)
	assert.Equal(t, "1", item.Prompts[0].Key)
	assert.Equal(t, "2", item.Prompts[1].Key)
	assert.Equal(t, "10", item.Prompts[2].Key)
	assert.Equal(t, "one", item.Prompts[0].Elements[0].Value)
}

func TestParsePromptItemRejectsOtherFiles(t *testing.T) {
	t.Parallel()

	_, err := ParsePromptItem("x.json", []byte(`{"foo":"bar"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a prompt item")

	_, err = ParsePromptItem("x.json", []byte(`not json`))
	require.Error(t, err)
}

func TestLessKey(t *testing.T) {
	t.Parallel()
	assert.True(t, lessKey("2", "10"))
	assert.True(t, lessKey("9", "a"))
	assert.False(t, lessKey("a", "9"))
	assert.True(t, lessKey("a", "b"))
}

func TestAnnotationAccessors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		attrs  string
		coords string
		best   bool
		text   string
	}{
		{"bool true", `{"isBest":true}`, `"hi"`, true, "hi"},
		{"string true", `{"isBest":"TRUE"}`, `"hi"`, true, "hi"},
		{"missing", `{"other":1}`, `"hi"`, false, "hi"},
		{"legacy list", `["isBest"]`, `"hi"`, false, "hi"},
		{"number", `{"isBest":1}`, `{"x":1}`, false, `{"x":1}`},
		{"empty", ``, `null`, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := Annotation{Attributes: json.RawMessage(tt.attrs), Coordinates: json.RawMessage(tt.coords)}
			assert.Equal(t, tt.best, a.IsBest())
			assert.Equal(t, tt.text, a.CoordinatesText())
		})
	}
}
