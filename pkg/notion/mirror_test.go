package notion

import (
	"context"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/policyengine/grantkit/internal/model"
)

func trackerPage(pageID, grantID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(pageID),
		Properties: notionapi.Properties{
			grantIDProperty: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: grantID}},
			},
		},
	}
}

func TestQueryAll_SinglePage(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
			HasMore: false,
		}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
	mc.AssertExpectations(t)
}

func TestQueryAll_Paginated(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-2"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-2")
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p2"}},
		HasMore: false,
	}, nil).Once()

	pages, err := QueryAll(ctx, mc, "db-1", nil)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, notionapi.ObjectID("p1"), pages[0].ID)
	assert.Equal(t, notionapi.ObjectID("p2"), pages[1].ID)
	mc.AssertExpectations(t)
}

func TestQueryAll_Error(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-err", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(nil, assert.AnError).Once()

	pages, err := QueryAll(ctx, mc, "db-err", nil)
	assert.Error(t, err)
	assert.Nil(t, pages)
	mc.AssertExpectations(t)
}

func TestMirrorGrants_CreatesMissingPages(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{HasMore: false}, nil).Once()

	mc.On("CreatePage", ctx, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		return req.Parent.DatabaseID == notionapi.DatabaseID("db-1")
	})).Return(&notionapi.Page{ID: "new-1"}, nil).Once()

	grants := []model.GrantRecord{
		{ID: "nsf-smallsat", Name: "SmallSat Pipeline", Status: "draft", AmountRequested: 600000},
	}
	stats, err := MirrorGrants(ctx, mc, "db-1", grants)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 0, stats.Updated)
	mc.AssertExpectations(t)
}

func TestMirrorGrants_UpdatesExistingPages(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{trackerPage("page-77", "nsf-smallsat")},
			HasMore: false,
		}, nil).Once()

	mc.On("UpdatePage", ctx, "page-77", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "page-77"}, nil).Once()

	grants := []model.GrantRecord{
		{ID: "nsf-smallsat", Name: "SmallSat Pipeline", Status: "submitted"},
	}
	stats, err := MirrorGrants(ctx, mc, "db-1", grants)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	mc.AssertExpectations(t)
}

func TestMirrorGrants_MixedCreateAndUpdate(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{trackerPage("page-1", "existing")},
			HasMore: false,
		}, nil).Once()

	mc.On("UpdatePage", ctx, "page-1", mock.AnythingOfType("*notionapi.PageUpdateRequest")).
		Return(&notionapi.Page{ID: "page-1"}, nil).Once()
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(&notionapi.Page{ID: "page-2"}, nil).Once()

	grants := []model.GrantRecord{
		{ID: "existing", Name: "Old Grant"},
		{ID: "brand-new", Name: "New Grant"},
	}
	stats, err := MirrorGrants(ctx, mc, "db-1", grants)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Created)
	assert.Equal(t, 1, stats.Updated)
	mc.AssertExpectations(t)
}

func TestMirrorGrants_CreateError(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{HasMore: false}, nil).Once()
	mc.On("CreatePage", ctx, mock.AnythingOfType("*notionapi.PageCreateRequest")).
		Return(nil, assert.AnError).Once()

	_, err := MirrorGrants(ctx, mc, "db-1", []model.GrantRecord{{ID: "g1", Name: "G"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mirror grant g1")
	mc.AssertExpectations(t)
}

func TestGrantProperties(t *testing.T) {
	t.Parallel()

	grant := model.GrantRecord{
		ID:              "nsf-smallsat",
		Name:            "SmallSat Pipeline",
		Foundation:      "NSF",
		Deadline:        "2026-12-01",
		Status:          "draft",
		AmountRequested: 600000,
	}
	props := grantProperties(grant)

	title := props["Name"].(notionapi.TitleProperty)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "SmallSat Pipeline", title.Title[0].Text.Content)

	id := props[grantIDProperty].(notionapi.RichTextProperty)
	assert.Equal(t, "nsf-smallsat", id.RichText[0].Text.Content)

	amount := props["Amount Requested"].(notionapi.NumberProperty)
	assert.InDelta(t, 600000.0, amount.Number, 0.001)

	status := props["Status"].(notionapi.SelectProperty)
	assert.Equal(t, "draft", status.Select.Name)
}

func TestGrantProperties_OmitsEmptyOptionalFields(t *testing.T) {
	t.Parallel()

	props := grantProperties(model.GrantRecord{ID: "g1", Name: "Minimal"})
	_, hasStatus := props["Status"]
	_, hasFoundation := props["Foundation"]
	_, hasDeadline := props["Deadline"]
	assert.False(t, hasStatus)
	assert.False(t, hasFoundation)
	assert.False(t, hasDeadline)
}
