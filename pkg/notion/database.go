package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches every page matching filter, following pagination cursors.
// Rate limiting is enforced by the Client.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page

	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	for {
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)
		if !resp.HasMore {
			break
		}
		req = &notionapi.DatabaseQueryRequest{
			Filter:      req.Filter,
			Sorts:       req.Sorts,
			PageSize:    req.PageSize,
			StartCursor: resp.NextCursor,
		}
	}

	return all, nil
}

// FindByTitle returns the first page whose title property equals title, or
// nil when there is none.
func FindByTitle(ctx context.Context, c Client, dbID, property, title string) (*notionapi.Page, error) {
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{Equals: title},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: find %q", title)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

// Title builds a title property value.
func Title(text string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: text}}},
	}
}

// RichText builds a rich_text property value.
func RichText(text string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: text}}},
	}
}

// PlainText concatenates the plain text of rich text segments.
func PlainText(segments []notionapi.RichText) string {
	var b strings.Builder
	for _, s := range segments {
		if s.PlainText != "" {
			b.WriteString(s.PlainText)
		} else if s.Text != nil {
			b.WriteString(s.Text.Content)
		}
	}
	return b.String()
}

// PropertyText reads a title or rich_text property as plain text. Other
// property types and missing properties read as "".
func PropertyText(props notionapi.Properties, name string) string {
	switch p := props[name].(type) {
	case *notionapi.TitleProperty:
		return PlainText(p.Title)
	case *notionapi.RichTextProperty:
		return PlainText(p.RichText)
	case notionapi.TitleProperty:
		return PlainText(p.Title)
	case notionapi.RichTextProperty:
		return PlainText(p.RichText)
	default:
		return ""
	}
}

// PropertyChecked reads a checkbox property. Anything else reads as false.
func PropertyChecked(props notionapi.Properties, name string) bool {
	switch p := props[name].(type) {
	case *notionapi.CheckboxProperty:
		return p.Checkbox
	case notionapi.CheckboxProperty:
		return p.Checkbox
	default:
		return false
	}
}
