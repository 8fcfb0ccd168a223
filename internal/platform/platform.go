// Package platform adapts document annotation platforms to the operations the
// table transfer needs.
package platform

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tablesync/internal/model"
)

// ErrNotFound is returned when a collection or document does not exist.
var ErrNotFound = eris.New("platform: not found")

// Platform stores prompt documents and the annotations reviewers attach to them.
type Platform interface {
	GetCollection(ctx context.Context, id string) (*model.Collection, error)
	// Upload submits all docs in one call. With overwrite, a document whose
	// name already exists is replaced instead of duplicated.
	Upload(ctx context.Context, collectionID string, docs []*model.Document, overwrite bool) ([]model.DocumentRef, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, collectionID string) ([]model.DocumentRef, error)
	// ListAnnotations returns every annotation on doc in platform order.
	ListAnnotations(ctx context.Context, doc *model.Document) ([]model.Annotation, error)
	// NameSuffixLen is the number of characters the platform appends to the
	// name a document was uploaded with.
	NameSuffixLen() int
}

// Provider names accepted by the configuration.
const (
	ProviderDataloop = "dataloop"
	ProviderNotion   = "notion"
)

// promptText joins the text parts of a prompt.
func promptText(p model.Prompt) string {
	parts := make([]string, 0, len(p.Content))
	for _, c := range p.Content {
		if c.MimeType == model.MimeText || c.MimeType == "" {
			parts = append(parts, c.Value)
		}
	}
	return strings.Join(parts, "\n")
}
