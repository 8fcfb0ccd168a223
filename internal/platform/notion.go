package platform

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/tablesync/internal/model"
	"github.com/sells-group/tablesync/pkg/notion"
)

// NotionSchema names the properties used on the document and response databases.
type NotionSchema struct {
	Title     string // document title (the row id)
	Prompt    string // document prompt text
	PromptKey string // document prompt key
	Document  string // response -> document relation
	PromptID  string // response prompt key
	IsBest    string // response checkbox
	Response  string // response text
}

// DefaultNotionSchema is the property layout created by the setup docs.
var DefaultNotionSchema = NotionSchema{
	Title:     "Name",
	Prompt:    "Prompt",
	PromptKey: "Prompt Key",
	Document:  "Document",
	PromptID:  "Prompt ID",
	IsBest:    "Is Best",
	Response:  "Response",
}

// Notion stores each document as a page in a Notion database. Reviewers add
// candidate responses as pages in a separate responses database that relates
// back to the document page. Page titles are stored verbatim, so there is no
// name suffix.
type Notion struct {
	client      notion.Client
	responsesDB string
	schema      NotionSchema
}

// NewNotion wraps a Notion client. responsesDB is the database holding
// reviewer responses.
func NewNotion(c notion.Client, responsesDB string) *Notion {
	return &Notion{client: c, responsesDB: responsesDB, schema: DefaultNotionSchema}
}

func (n *Notion) NameSuffixLen() int { return 0 }

func (n *Notion) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	db, err := n.client.GetDatabase(ctx, id)
	if err != nil {
		if notion.IsNotFound(err) {
			return nil, eris.Wrapf(ErrNotFound, "notion: database %s", id)
		}
		return nil, err
	}
	return &model.Collection{ID: id, Name: notion.PlainText(db.Title)}, nil
}

// Upload writes one page per document. Notion has no batch endpoint, so the
// single logical upload is a sequence of rate-limited page writes.
func (n *Notion) Upload(ctx context.Context, collectionID string, docs []*model.Document, overwrite bool) ([]model.DocumentRef, error) {
	refs := make([]model.DocumentRef, 0, len(docs))
	for _, doc := range docs {
		props := n.documentProperties(doc)

		var existing *notionapi.Page
		if overwrite {
			p, err := notion.FindByTitle(ctx, n.client, collectionID, n.schema.Title, doc.Name)
			if err != nil {
				return nil, err
			}
			existing = p
		}

		var page *notionapi.Page
		var err error
		if existing != nil {
			page, err = n.client.UpdatePage(ctx, string(existing.ID), &notionapi.PageUpdateRequest{Properties: props})
		} else {
			page, err = n.client.CreatePage(ctx, &notionapi.PageCreateRequest{
				Parent: notionapi.Parent{
					Type:       notionapi.ParentTypeDatabaseID,
					DatabaseID: notionapi.DatabaseID(collectionID),
				},
				Properties: props,
			})
		}
		if err != nil {
			if notion.IsNotFound(err) {
				return nil, eris.Wrapf(ErrNotFound, "notion: database %s", collectionID)
			}
			return nil, eris.Wrapf(err, "notion: write document %s", doc.Name)
		}
		refs = append(refs, model.DocumentRef{ID: string(page.ID), Name: doc.Name, CollectionID: collectionID})
	}
	return refs, nil
}

// documentProperties stores the first prompt only; exported documents carry
// exactly one.
func (n *Notion) documentProperties(doc *model.Document) notionapi.Properties {
	props := notionapi.Properties{
		n.schema.Title: notion.Title(doc.Name),
	}
	if len(doc.Prompts) > 0 {
		props[n.schema.Prompt] = notion.RichText(promptText(doc.Prompts[0]))
		props[n.schema.PromptKey] = notion.RichText(doc.Prompts[0].Key)
	}
	return props
}

func (n *Notion) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	page, err := n.client.GetPage(ctx, id)
	if err != nil {
		if notion.IsNotFound(err) {
			return nil, eris.Wrapf(ErrNotFound, "notion: page %s", id)
		}
		return nil, err
	}
	return n.pageToDocument(page), nil
}

func (n *Notion) pageToDocument(page *notionapi.Page) *model.Document {
	doc := &model.Document{
		ID:           string(page.ID),
		Name:         notion.PropertyText(page.Properties, n.schema.Title),
		CollectionID: string(page.Parent.DatabaseID),
	}
	text := notion.PropertyText(page.Properties, n.schema.Prompt)
	key := notion.PropertyText(page.Properties, n.schema.PromptKey)
	if key == "" && text != "" {
		key = "1"
	}
	if key != "" {
		doc.Prompts = []model.Prompt{{
			Key:     key,
			Role:    model.RoleUser,
			Content: []model.Content{{MimeType: model.MimeText, Value: text}},
		}}
	}
	return doc
}

func (n *Notion) ListDocuments(ctx context.Context, collectionID string) ([]model.DocumentRef, error) {
	pages, err := notion.QueryAll(ctx, n.client, collectionID, nil)
	if err != nil {
		if notion.IsNotFound(err) {
			return nil, eris.Wrapf(ErrNotFound, "notion: database %s", collectionID)
		}
		return nil, err
	}
	refs := make([]model.DocumentRef, 0, len(pages))
	for _, p := range pages {
		refs = append(refs, model.DocumentRef{
			ID:           string(p.ID),
			Name:         notion.PropertyText(p.Properties, n.schema.Title),
			CollectionID: collectionID,
		})
	}
	return refs, nil
}

// ListAnnotations returns response pages related to doc, oldest first.
func (n *Notion) ListAnnotations(ctx context.Context, doc *model.Document) ([]model.Annotation, error) {
	if n.responsesDB == "" {
		return nil, eris.New("notion: responses database is not configured")
	}
	pages, err := notion.QueryAll(ctx, n.client, n.responsesDB, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: n.schema.Document,
			Relation: &notionapi.RelationFilterCondition{Contains: doc.ID},
		},
		Sorts: []notionapi.SortObject{
			{Timestamp: notionapi.TimestampCreated, Direction: notionapi.SortOrderASC},
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: list responses for %s", doc.ID)
	}

	out := make([]model.Annotation, 0, len(pages))
	for _, p := range pages {
		out = append(out, model.Annotation{
			ID:          string(p.ID),
			PromptID:    notion.PropertyText(p.Properties, n.schema.PromptID),
			IsBest:      notion.PropertyChecked(p.Properties, n.schema.IsBest),
			Coordinates: notion.PropertyText(p.Properties, n.schema.Response),
		})
	}
	return out, nil
}
