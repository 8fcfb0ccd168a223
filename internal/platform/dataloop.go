package platform

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/pkg/dataloop"
)

const defaultDataloopPageSize = 1000

// Dataloop stores documents as prompt items in a Dataloop dataset.
type Dataloop struct {
	client   dataloop.Client
	pageSize int
}

// NewDataloop wraps a Dataloop API client.
func NewDataloop(c dataloop.Client) *Dataloop {
	return &Dataloop{client: c, pageSize: defaultDataloopPageSize}
}

func (d *Dataloop) NameSuffixLen() int { return len(dataloop.PromptItemSuffix) }

func (d *Dataloop) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	ds, err := d.client.GetDataset(ctx, id)
	if err != nil {
		if errors.Is(err, dataloop.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "dataloop: dataset %s", id)
		}
		return nil, eris.Wrapf(err, "dataloop: get dataset %s", id)
	}
	return &model.Collection{ID: ds.ID, Name: ds.Name}, nil
}

func (d *Dataloop) Upload(ctx context.Context, collectionID string, docs []*model.Document, overwrite bool) ([]model.DocumentRef, error) {
	files := make([]dataloop.UploadFile, 0, len(docs))
	for _, doc := range docs {
		item := toPromptItem(doc)
		content, err := json.Marshal(item)
		if err != nil {
			return nil, eris.Wrapf(err, "dataloop: encode prompt item %s", doc.Name)
		}
		files = append(files, dataloop.UploadFile{Name: item.FileName(), Content: content})
	}

	items, err := d.client.UploadItems(ctx, collectionID, files, overwrite)
	if err != nil {
		if errors.Is(err, dataloop.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "dataloop: dataset %s", collectionID)
		}
		return nil, err
	}

	refs := make([]model.DocumentRef, 0, len(items))
	for _, it := range items {
		refs = append(refs, model.DocumentRef{ID: it.ID, Name: it.Name, CollectionID: it.DatasetID})
	}
	return refs, nil
}

func (d *Dataloop) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	item, err := d.client.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, dataloop.ErrNotFound) {
			return nil, eris.Wrapf(ErrNotFound, "dataloop: item %s", id)
		}
		return nil, eris.Wrapf(err, "dataloop: get item %s", id)
	}
	data, err := d.client.DownloadItem(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "dataloop: download item %s", id)
	}
	pi, err := dataloop.ParsePromptItem(item.Name, data)
	if err != nil {
		return nil, err
	}

	doc := &model.Document{ID: item.ID, Name: item.Name, CollectionID: item.DatasetID}
	for _, p := range pi.Prompts {
		content := make([]model.Content, 0, len(p.Elements))
		for _, el := range p.Elements {
			content = append(content, model.Content{MimeType: el.MimeType, Value: el.Value})
		}
		doc.Prompts = append(doc.Prompts, model.Prompt{Key: p.Key, Role: model.RoleUser, Content: content})
	}
	return doc, nil
}

func (d *Dataloop) ListDocuments(ctx context.Context, collectionID string) ([]model.DocumentRef, error) {
	var refs []model.DocumentRef
	for page := 0; ; page++ {
		resp, err := d.client.QueryItems(ctx, collectionID, page, d.pageSize)
		if err != nil {
			if errors.Is(err, dataloop.ErrNotFound) {
				return nil, eris.Wrapf(ErrNotFound, "dataloop: dataset %s", collectionID)
			}
			return nil, eris.Wrapf(err, "dataloop: query dataset %s page %d", collectionID, page)
		}
		for _, it := range resp.Items {
			refs = append(refs, model.DocumentRef{ID: it.ID, Name: it.Name, CollectionID: collectionID})
		}
		if !resp.HasNextPage {
			return refs, nil
		}
	}
}

func (d *Dataloop) ListAnnotations(ctx context.Context, doc *model.Document) ([]model.Annotation, error) {
	anns, err := d.client.ListAnnotations(ctx, doc.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "dataloop: list annotations for item %s", doc.ID)
	}
	out := make([]model.Annotation, 0, len(anns))
	for _, a := range anns {
		out = append(out, model.Annotation{
			ID:          a.ID,
			PromptID:    a.Metadata.System.PromptID,
			IsBest:      a.IsBest(),
			Coordinates: a.CoordinatesText(),
		})
	}
	return out, nil
}

func toPromptItem(doc *model.Document) *dataloop.PromptItem {
	item := &dataloop.PromptItem{Name: doc.Name}
	for _, p := range doc.Prompts {
		els := make([]dataloop.PromptElement, 0, len(p.Content))
		for _, c := range p.Content {
			mt := c.MimeType
			if mt == "" {
				mt = dataloop.MimeText
			}
			els = append(els, dataloop.PromptElement{MimeType: mt, Value: c.Value})
		}
		item.Prompts = append(item.Prompts, dataloop.Prompt{Key: p.Key, Elements: els})
	}
	return item
}
