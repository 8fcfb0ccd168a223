package model

// Annotation is a reviewer response attached to a document.
type Annotation struct {
	ID string `json:"id"`
	// PromptID is the key of the prompt this annotation answers.
	PromptID string `json:"prompt_id"`
	// IsBest is false when the platform carries no flag.
	IsBest      bool   `json:"is_best"`
	Coordinates string `json:"coordinates"`
}

// SelectBest returns the first annotation in list order that is flagged best
// for promptKey. Later matches are ignored.
func SelectBest(annotations []Annotation, promptKey string) (Annotation, bool) {
	for _, a := range annotations {
		if a.IsBest && a.PromptID == promptKey {
			return a, true
		}
	}
	return Annotation{}, false
}
