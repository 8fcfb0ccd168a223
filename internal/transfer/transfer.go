// Package transfer moves prompt rows from a relational table onto a document
// platform and writes reviewer-selected responses back.
package transfer

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/internal/platform"
	"github.com/sells-group/tablesync/internal/store"
)

var (
	// ErrNoBestResponse is returned when no annotation on the document's first
	// prompt is flagged best. The table is not touched.
	ErrNoBestResponse = eris.New("transfer: no best response")
	// ErrNoPrompts is returned when a document carries no prompts.
	ErrNoPrompts = eris.New("transfer: document has no prompts")
)

// Service runs exports and updates. It holds no per-call state and is safe
// for concurrent use.
type Service struct {
	Store    store.Dialer
	Platform platform.Platform
}

// New creates a Service.
func New(d store.Dialer, p platform.Platform) *Service {
	return &Service{Store: d, Platform: p}
}

// ExportRequest names the source table and destination collection.
type ExportRequest struct {
	Coordinates  store.Coordinates
	Table        store.Table
	CollectionID string
}

// UpdateRequest names the table that receives the response.
type UpdateRequest struct {
	Coordinates store.Coordinates
	Table       store.Table
}

// Export reads every row of the table and uploads one prompt document per
// row, named after the row id. Documents with the same name are overwritten,
// so repeated exports do not duplicate.
func (s *Service) Export(ctx context.Context, req ExportRequest) ([]model.DocumentRef, error) {
	log := zap.L().With(
		zap.String("collection", req.CollectionID),
		zap.String("host", req.Coordinates.Host),
		zap.String("database", req.Coordinates.Database),
		zap.String("table", req.Table.String()),
	)

	if req.Table.IsZero() {
		return nil, eris.New("transfer: table is required")
	}
	log.Info("export: start")

	col, err := s.Platform.GetCollection(ctx, req.CollectionID)
	if err != nil {
		log.Error("export: destination lookup failed", zap.Error(err))
		return nil, eris.Wrapf(err, "transfer: get collection %s", req.CollectionID)
	}
	log.Debug("export: destination found", zap.String("collection_name", col.Name))

	rows, err := store.SelectAll(ctx, s.Store, req.Coordinates, req.Table)
	if err != nil {
		log.Error("export: select failed", zap.Error(err))
		return nil, err
	}

	docs, err := RowsToDocuments(rows)
	if err != nil {
		log.Error("export: row conversion failed", zap.Error(err))
		return nil, err
	}

	refs, err := s.Platform.Upload(ctx, req.CollectionID, docs, true)
	if err != nil {
		log.Error("export: upload failed", zap.Int("documents", len(docs)), zap.Error(err))
		return nil, eris.Wrapf(err, "transfer: upload to %s", req.CollectionID)
	}

	log.Info("export: complete", zap.Int("rows", len(rows)), zap.Int("documents", len(refs)))
	return refs, nil
}

// RowsToDocuments converts table rows into prompt documents, one per row,
// preserving row order.
func RowsToDocuments(rows []model.Row) ([]*model.Document, error) {
	docs := make([]*model.Document, 0, len(rows))
	for i, row := range rows {
		id, err := row.ID()
		if err != nil {
			return nil, eris.Wrapf(err, "transfer: row %d", i)
		}
		prompt, err := row.Prompt()
		if err != nil {
			return nil, eris.Wrapf(err, "transfer: row %d", i)
		}
		doc := model.NewPromptDocument(strconv.FormatInt(id, 10))
		doc.AddPrompt(model.RoleUser, model.Content{MimeType: model.MimeText, Value: prompt})
		docs = append(docs, doc)
	}
	return docs, nil
}

// Update writes the best response for the document's first prompt into the
// RESPONSE column of the row the document was exported from. The document is
// returned unchanged.
func (s *Service) Update(ctx context.Context, doc *model.Document, req UpdateRequest) (*model.Document, error) {
	if doc == nil {
		return nil, eris.New("transfer: document is nil")
	}
	log := zap.L().With(
		zap.String("document", doc.ID),
		zap.String("name", doc.Name),
		zap.String("host", req.Coordinates.Host),
		zap.String("database", req.Coordinates.Database),
		zap.String("table", req.Table.String()),
	)

	if req.Table.IsZero() {
		return nil, eris.New("transfer: table is required")
	}
	log.Info("update: start")

	promptKey, ok := doc.FirstPromptKey()
	if !ok {
		return nil, eris.Wrapf(ErrNoPrompts, "transfer: document %s", doc.ID)
	}

	anns, err := s.Platform.ListAnnotations(ctx, doc)
	if err != nil {
		log.Error("update: list annotations failed", zap.Error(err))
		return nil, eris.Wrapf(err, "transfer: annotations for %s", doc.ID)
	}

	best, ok := model.SelectBest(anns, promptKey)
	if !ok {
		log.Info("update: no best response", zap.String("prompt", promptKey), zap.Int("annotations", len(anns)))
		return nil, eris.Wrapf(ErrNoBestResponse, "transfer: document %s prompt %s", doc.ID, promptKey)
	}

	id, err := model.RowIDFromName(doc.Name, s.Platform.NameSuffixLen())
	if err != nil {
		return nil, err
	}
	log = log.With(zap.Int64("row_id", id), zap.String("annotation", best.ID))

	n, err := store.SetResponse(ctx, s.Store, req.Coordinates, req.Table, id, best.Coordinates)
	if err != nil {
		log.Error("update: write failed", zap.Error(err))
		return nil, err
	}
	if n == 0 {
		log.Warn("update: no row matched")
	}

	log.Info("update: complete", zap.Int64("rows_affected", n))
	return doc, nil
}

// UpdateByID fetches a document by id and runs Update on it.
func (s *Service) UpdateByID(ctx context.Context, docID string, req UpdateRequest) (*model.Document, error) {
	doc, err := s.Platform.GetDocument(ctx, docID)
	if err != nil {
		return nil, eris.Wrapf(err, "transfer: get document %s", docID)
	}
	return s.Update(ctx, doc, req)
}
