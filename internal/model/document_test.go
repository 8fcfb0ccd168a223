package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPromptAssignsSequentialKeys(t *testing.T) {
	t.Parallel()

	doc := NewPromptDocument("42")
	first := doc.AddPrompt(RoleUser, Content{MimeType: MimeText, Value: "hello"})
	second := doc.AddPrompt(RoleUser, Content{MimeType: MimeText, Value: "again"})

	assert.Equal(t, "1", first.Key)
	assert.Equal(t, "2", second.Key)
	require.Len(t, doc.Prompts, 2)
	assert.Equal(t, "hello", doc.Prompts[0].Content[0].Value)

	key, ok := doc.FirstPromptKey()
	assert.True(t, ok)
	assert.Equal(t, "1", key)
}

func TestFirstPromptKeyEmpty(t *testing.T) {
	t.Parallel()
	_, ok := NewPromptDocument("1").FirstPromptKey()
	assert.False(t, ok)
}

func TestRowIDFromName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		docName   string
		suffixLen int
		want      int64
		wantErr   bool
	}{
		{"json suffix", "42.json", 5, 42, false},
		{"any five chars", "1001abcde", 5, 1001, false},
		{"no suffix", "7", 0, 7, false},
		{"name equals suffix", ".json", 5, 0, true},
		{"too short", "1", 5, 0, true},
		{"not numeric", "abc.json", 5, 0, true},
		{"suffix not stripped", "42.json", 0, 0, true},
		{"negative suffix", "42", -1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := RowIDFromName(tt.docName, tt.suffixLen)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectBest(t *testing.T) {
	t.Parallel()

	anns := []Annotation{
		{ID: "a", PromptID: "1", IsBest: false, Coordinates: "not best"},
		{ID: "b", PromptID: "2", IsBest: true, Coordinates: "other prompt"},
		{ID: "c", PromptID: "1", IsBest: true, Coordinates: "first best"},
		{ID: "d", PromptID: "1", IsBest: true, Coordinates: "second best"},
	}

	got, ok := SelectBest(anns, "1")
	require.True(t, ok)
	assert.Equal(t, "c", got.ID)
	assert.Equal(t, "first best", got.Coordinates)

	_, ok = SelectBest(anns[:2], "1")
	assert.False(t, ok)

	_, ok = SelectBest(nil, "1")
	assert.False(t, ok)
}
