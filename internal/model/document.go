package model

import (
	"strconv"

	"github.com/rotisserie/eris"
)

// MimeText is the mimetype of a plain text content part.
const MimeText = "application/text"

// RoleUser marks a prompt authored by a user.
const RoleUser = "user"

// Content is one typed part of a prompt message.
type Content struct {
	MimeType string `json:"mimetype" yaml:"mimetype"`
	Value    string `json:"value" yaml:"value"`
}

// Prompt is a single message inside a document, identified by a stable key.
type Prompt struct {
	Key     string    `json:"key" yaml:"key"`
	Role    string    `json:"role" yaml:"role"`
	Content []Content `json:"content" yaml:"content"`
}

// Document is a named prompt container stored on the document platform.
type Document struct {
	ID           string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string   `json:"name" yaml:"name"`
	CollectionID string   `json:"collection_id,omitempty" yaml:"collection_id,omitempty"`
	Prompts      []Prompt `json:"prompts" yaml:"prompts"`
}

// NewPromptDocument returns an empty document with the given name.
func NewPromptDocument(name string) *Document {
	return &Document{Name: name}
}

// AddPrompt appends a prompt message. Keys are assigned "1", "2", ... in
// insertion order.
func (d *Document) AddPrompt(role string, content ...Content) Prompt {
	p := Prompt{
		Key:     strconv.Itoa(len(d.Prompts) + 1),
		Role:    role,
		Content: content,
	}
	d.Prompts = append(d.Prompts, p)
	return p
}

// FirstPromptKey returns the key of the first prompt, or false when the
// document carries no prompts.
func (d *Document) FirstPromptKey() (string, bool) {
	if len(d.Prompts) == 0 {
		return "", false
	}
	return d.Prompts[0].Key, true
}

// DocumentRef identifies an uploaded document.
type DocumentRef struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	CollectionID string `json:"collection_id" yaml:"collection_id"`
}

// Collection is a destination for uploaded documents.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RowIDFromName recovers the row identifier from a platform-assigned document
// name by dropping the platform's fixed-length suffix.
func RowIDFromName(name string, suffixLen int) (int64, error) {
	if suffixLen < 0 {
		return 0, eris.Errorf("model: negative suffix length %d", suffixLen)
	}
	if len(name) <= suffixLen {
		return 0, eris.Errorf("model: document name %q is shorter than its %d-char suffix", name, suffixLen)
	}
	base := name[:len(name)-suffixLen]
	id, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "model: document name %q does not encode a row id", name)
	}
	return id, nil
}
