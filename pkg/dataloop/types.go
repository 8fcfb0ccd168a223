package dataloop

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Dataset is a Dataloop dataset.
type Dataset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"projectId,omitempty"`
}

// Item is a file stored in a dataset.
type Item struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Filename  string         `json:"filename"`
	DatasetID string         `json:"datasetId"`
	Type      string         `json:"type,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ItemPage is one page of a dataset query.
type ItemPage struct {
	Items           []Item `json:"items"`
	HasNextPage     bool   `json:"hasNextPage"`
	TotalItemsCount int    `json:"totalItemsCount"`
}

type itemQuery struct {
	Resource string         `json:"resource"`
	Filter   map[string]any `json:"filter"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// Annotation is an item annotation. Attributes and coordinates come in
// several shapes depending on annotation type and recipe version, so they are
// kept raw and read through accessors.
type Annotation struct {
	ID          string             `json:"id"`
	ItemID      string             `json:"itemId"`
	Type        string             `json:"type"`
	Label       string             `json:"label"`
	Coordinates json.RawMessage    `json:"coordinates"`
	Attributes  json.RawMessage    `json:"attributes"`
	Metadata    AnnotationMetadata `json:"metadata"`
}

// AnnotationMetadata holds the platform-managed metadata block.
type AnnotationMetadata struct {
	System AnnotationSystem `json:"system"`
}

// AnnotationSystem links an annotation to the prompt it answers.
type AnnotationSystem struct {
	PromptID string `json:"promptId"`
}

// IsBest reads the isBest attribute. Attributes that are missing, not an
// object (legacy list attributes), or not a boolean read as false.
func (a Annotation) IsBest() bool {
	if len(a.Attributes) == 0 {
		return false
	}
	var attrs map[string]json.RawMessage
	if err := json.Unmarshal(a.Attributes, &attrs); err != nil {
		return false
	}
	raw, ok := attrs["isBest"]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(s, "true")
	}
	return false
}

// CoordinatesText returns text coordinates as a plain string and any other
// shape as its JSON encoding.
func (a Annotation) CoordinatesText() string {
	raw := bytes.TrimSpace(a.Coordinates)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
