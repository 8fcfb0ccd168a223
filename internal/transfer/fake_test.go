package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/internal/platform"
	"github.com/sells-group/tablesync/internal/store"
)

// memPlatform is an in-memory Platform. Documents are keyed by name within a
// collection so overwrite replaces instead of appending.
type memPlatform struct {
	mu          sync.Mutex
	suffix      string
	collections map[string][]*model.Document
	annotations map[string][]model.Annotation
	uploads     int
	nextID      int
	listErr     error
}

func newMemPlatform(suffix string, collections ...string) *memPlatform {
	p := &memPlatform{
		suffix:      suffix,
		collections: make(map[string][]*model.Document),
		annotations: make(map[string][]model.Annotation),
	}
	for _, c := range collections {
		p.collections[c] = nil
	}
	return p
}

func (p *memPlatform) NameSuffixLen() int { return len(p.suffix) }

func (p *memPlatform) GetCollection(_ context.Context, id string) (*model.Collection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.collections[id]; !ok {
		return nil, eris.Wrapf(platform.ErrNotFound, "collection %s", id)
	}
	return &model.Collection{ID: id, Name: "col-" + id}, nil
}

func (p *memPlatform) Upload(_ context.Context, collectionID string, docs []*model.Document, overwrite bool) ([]model.DocumentRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	existing, ok := p.collections[collectionID]
	if !ok {
		return nil, eris.Wrapf(platform.ErrNotFound, "collection %s", collectionID)
	}
	p.uploads++

	refs := make([]model.DocumentRef, 0, len(docs))
	for _, d := range docs {
		stored := &model.Document{
			Name:         d.Name + p.suffix,
			CollectionID: collectionID,
			Prompts:      d.Prompts,
		}
		replaced := false
		if overwrite {
			for i, e := range existing {
				if e.Name == stored.Name {
					stored.ID = e.ID
					existing[i] = stored
					replaced = true
					break
				}
			}
		}
		if !replaced {
			p.nextID++
			stored.ID = fmt.Sprintf("doc-%d", p.nextID)
			existing = append(existing, stored)
		}
		refs = append(refs, model.DocumentRef{ID: stored.ID, Name: stored.Name, CollectionID: collectionID})
	}
	p.collections[collectionID] = existing
	return refs, nil
}

func (p *memPlatform) GetDocument(_ context.Context, id string) (*model.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, docs := range p.collections {
		for _, d := range docs {
			if d.ID == id {
				return d, nil
			}
		}
	}
	return nil, eris.Wrapf(platform.ErrNotFound, "document %s", id)
}

func (p *memPlatform) ListDocuments(_ context.Context, collectionID string) ([]model.DocumentRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	docs, ok := p.collections[collectionID]
	if !ok {
		return nil, eris.Wrapf(platform.ErrNotFound, "collection %s", collectionID)
	}
	refs := make([]model.DocumentRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, model.DocumentRef{ID: d.ID, Name: d.Name, CollectionID: collectionID})
	}
	return refs, nil
}

func (p *memPlatform) ListAnnotations(_ context.Context, doc *model.Document) ([]model.Annotation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.annotations[doc.ID], nil
}

func (p *memPlatform) annotate(docID string, anns ...model.Annotation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.annotations[docID] = append(p.annotations[docID], anns...)
}

func (p *memPlatform) docs(collectionID string) []*model.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collections[collectionID]
}

// countingDialer records how many connections were opened.
type countingDialer struct {
	inner store.Dialer
	dials atomic.Int64
}

func (d *countingDialer) Dial(ctx context.Context, coords store.Coordinates) (store.Conn, error) {
	d.dials.Add(1)
	return d.inner.Dial(ctx, coords)
}

// newPromptsDB creates a temp SQLite prompts table seeded with rows.
func newPromptsDB(t *testing.T, rows map[int64]string) store.Coordinates {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prompts.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	_, err = db.Exec(`CREATE TABLE prompts (id INTEGER PRIMARY KEY, prompt TEXT, RESPONSE TEXT)`)
	require.NoError(t, err)
	for id, prompt := range rows {
		_, err = db.Exec(`INSERT INTO prompts (id, prompt) VALUES (?, ?)`, id, prompt)
		require.NoError(t, err)
	}
	return store.Coordinates{Database: path}
}

func readResponse(t *testing.T, coords store.Coordinates, id int64) sql.NullString {
	t.Helper()
	db, err := sql.Open("sqlite", coords.Database)
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	var resp sql.NullString
	require.NoError(t, db.QueryRow(`SELECT RESPONSE FROM prompts WHERE id = ?`, id).Scan(&resp))
	return resp
}
