package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/policyengine/grantkit/internal/model"
)

// grantIDProperty is the rich-text column identifying a grant across
// syncs. Page title and the other columns are display-only.
const grantIDProperty = "Grant ID"

// QueryAll walks a Notion database to the end, following cursors. A
// grant tracker is at most a few pages, so pages are fetched one at a
// time; the Client's limiter throttles the calls.
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
			return all, nil
		}
		req.StartCursor = resp.NextCursor
	}
}

// MirrorStats counts pages touched by one mirror pass.
type MirrorStats struct {
	Created int
	Updated int
}

// MirrorGrants upserts one tracker page per grant record, keyed by the
// Grant ID column. Existing pages are updated in place so manual notes
// on them survive.
func MirrorGrants(ctx context.Context, c Client, dbID string, grants []model.GrantRecord) (*MirrorStats, error) {
	pages, err := QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return nil, eris.Wrap(err, "notion: list tracker pages")
	}

	existing := make(map[string]string, len(pages))
	for _, page := range pages {
		if id := richTextValue(page.Properties[grantIDProperty]); id != "" {
			existing[id] = string(page.ID)
		}
	}

	stats := &MirrorStats{}
	for _, grant := range grants {
		props := grantProperties(grant)
		if pageID, ok := existing[grant.ID]; ok {
			_, err := c.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props})
			if err != nil {
				return stats, eris.Wrapf(err, "notion: mirror grant %s", grant.ID)
			}
			stats.Updated++
			continue
		}
		_, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
			Parent:     notionapi.Parent{Type: notionapi.ParentTypeDatabaseID, DatabaseID: notionapi.DatabaseID(dbID)},
			Properties: props,
		})
		if err != nil {
			return stats, eris.Wrapf(err, "notion: mirror grant %s", grant.ID)
		}
		stats.Created++
	}
	return stats, nil
}

func grantProperties(grant model.GrantRecord) notionapi.Properties {
	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{{Text: &notionapi.Text{Content: grant.Name}}},
		},
		grantIDProperty: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: grant.ID}}},
		},
		"Amount Requested": notionapi.NumberProperty{
			Number: float64(grant.AmountRequested),
		},
	}
	if grant.Status != "" {
		props["Status"] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: grant.Status},
		}
	}
	if grant.Foundation != "" {
		props["Foundation"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: grant.Foundation}}},
		}
	}
	if grant.Deadline != "" {
		props["Deadline"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{{Text: &notionapi.Text{Content: grant.Deadline}}},
		}
	}
	return props
}

// richTextValue extracts the plain text of a rich-text property, or "".
func richTextValue(prop notionapi.Property) string {
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok {
		if v, ok2 := prop.(notionapi.RichTextProperty); ok2 {
			rt = &v
		} else {
			return ""
		}
	}
	if len(rt.RichText) == 0 {
		return ""
	}
	return rt.RichText[0].PlainText
}
