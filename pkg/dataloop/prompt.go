package dataloop

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// PromptItemSuffix is appended by the platform to every prompt item name.
// Document names therefore carry exactly len(PromptItemSuffix) extra
// characters after the name they were uploaded with.
const PromptItemSuffix = ".json"

// MimeText is the Dataloop mimetype for text prompt elements.
const MimeText = "application/text"

// PromptElement is one typed value in a prompt.
type PromptElement struct {
	MimeType string `json:"mimetype"`
	Value    string `json:"value"`
}

// Prompt is a keyed list of elements.
type Prompt struct {
	Key      string
	Elements []PromptElement
}

// PromptItem is the JSON document Dataloop stores for prompt items.
type PromptItem struct {
	Name    string
	Prompts []Prompt
}

type promptItemJSON struct {
	Shebang  string                     `json:"shebang"`
	Metadata map[string]any             `json:"metadata"`
	Prompts  map[string][]PromptElement `json:"prompts"`
}

// FileName is the name the item is uploaded under.
func (p *PromptItem) FileName() string {
	return p.Name + PromptItemSuffix
}

// MarshalJSON encodes the prompt item in Dataloop's prompt format.
func (p *PromptItem) MarshalJSON() ([]byte, error) {
	doc := promptItemJSON{
		Shebang:  "dataloop",
		Metadata: map[string]any{"dltype": "prompt"},
		Prompts:  make(map[string][]PromptElement, len(p.Prompts)),
	}
	for _, pr := range p.Prompts {
		doc.Prompts[pr.Key] = pr.Elements
	}
	return json.Marshal(doc)
}

// ParsePromptItem decodes a downloaded prompt item stored under name. Prompts
// are ordered by numeric key, which matches the order they were added in.
func ParsePromptItem(name string, data []byte) (*PromptItem, error) {
	var doc promptItemJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "dataloop: decode prompt item %s", name)
	}
	if doc.Shebang != "dataloop" {
		return nil, eris.Errorf("dataloop: item %s is not a prompt item", name)
	}

	keys := make([]string, 0, len(doc.Prompts))
	for k := range doc.Prompts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })

	item := &PromptItem{Name: name}
	for _, k := range keys {
		item.Prompts = append(item.Prompts, Prompt{Key: k, Elements: doc.Prompts[k]})
	}
	return item, nil
}

// lessKey orders numeric keys numerically and everything else lexically after them.
func lessKey(a, b string) bool {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}
