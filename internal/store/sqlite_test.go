package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/policyengine/grantkit/internal/model"
	"github.com/policyengine/grantkit/pkg/bls"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// --- Grants ---

func TestSQLite_UpsertGrant_InsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	grant := &model.GrantRecord{
		ID:              "nsf-smallsat",
		Name:            "SmallSat Data Pipeline",
		Foundation:      "NSF",
		Program:         "CSSI",
		Deadline:        "2026-12-01",
		Status:          "draft",
		AmountRequested: 600000,
		DurationYears:   3,
		Metadata:        map[string]any{"pi": "Dr. Chen"},
	}
	require.NoError(t, st.UpsertGrant(ctx, grant))

	got, err := st.GetGrant(ctx, "nsf-smallsat")
	require.NoError(t, err)
	assert.Equal(t, "SmallSat Data Pipeline", got.Name)
	assert.Equal(t, "NSF", got.Foundation)
	assert.Equal(t, 600000, got.AmountRequested)
	assert.Equal(t, "Dr. Chen", got.Metadata["pi"])
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestSQLite_UpsertGrant_GeneratesID(t *testing.T) {
	st := newTestSQLiteStore(t)

	grant := &model.GrantRecord{Name: "Unnamed"}
	require.NoError(t, st.UpsertGrant(context.Background(), grant))
	assert.NotEmpty(t, grant.ID)
}

func TestSQLite_UpsertGrant_UpdatesExisting(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	grant := &model.GrantRecord{ID: "g1", Name: "Original", Status: "draft"}
	require.NoError(t, st.UpsertGrant(ctx, grant))

	grant.Name = "Revised"
	grant.Status = "submitted"
	grant.AmountRequested = 250000
	require.NoError(t, st.UpsertGrant(ctx, grant))

	got, err := st.GetGrant(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Revised", got.Name)
	assert.Equal(t, "submitted", got.Status)
	assert.Equal(t, 250000, got.AmountRequested)

	grants, err := st.ListGrants(ctx, GrantFilter{})
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestSQLite_GetGrant_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetGrant(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSQLite_ListGrants_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seed := []*model.GrantRecord{
		{ID: "a", Name: "A", Foundation: "NSF", Status: "draft"},
		{ID: "b", Name: "B", Foundation: "NSF", Status: "submitted"},
		{ID: "c", Name: "C", Foundation: "Sloan", Status: "draft"},
	}
	for _, g := range seed {
		require.NoError(t, st.UpsertGrant(ctx, g))
	}

	all, err := st.ListGrants(ctx, GrantFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	nsf, err := st.ListGrants(ctx, GrantFilter{Foundation: "NSF"})
	require.NoError(t, err)
	assert.Len(t, nsf, 2)

	drafts, err := st.ListGrants(ctx, GrantFilter{Status: "draft"})
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	nsfDrafts, err := st.ListGrants(ctx, GrantFilter{Foundation: "NSF", Status: "draft"})
	require.NoError(t, err)
	require.Len(t, nsfDrafts, 1)
	assert.Equal(t, "a", nsfDrafts[0].ID)
}

func TestSQLite_ListGrants_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, st.UpsertGrant(ctx, &model.GrantRecord{ID: id, Name: id}))
	}

	limited, err := st.ListGrants(ctx, GrantFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

// --- Responses ---

func TestSQLite_UpsertResponse_InsertAndList(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertGrant(ctx, &model.GrantRecord{ID: "g1", Name: "G"}))

	wordLimit := 500
	resp := &model.ResponseRecord{
		GrantID:   "g1",
		Key:       "project_summary",
		Title:     "Project Summary",
		Content:   "We propose...",
		Status:    "draft",
		WordLimit: &wordLimit,
	}
	require.NoError(t, st.UpsertResponse(ctx, resp))
	assert.NotEmpty(t, resp.ID)

	responses, err := st.ListResponses(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "project_summary", responses[0].Key)
	assert.Equal(t, "We propose...", responses[0].Content)
	require.NotNil(t, responses[0].WordLimit)
	assert.Equal(t, 500, *responses[0].WordLimit)
}

func TestSQLite_UpsertResponse_OverwritesByGrantAndKey(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertGrant(ctx, &model.GrantRecord{ID: "g1", Name: "G"}))

	first := &model.ResponseRecord{GrantID: "g1", Key: "summary", Content: "draft one"}
	require.NoError(t, st.UpsertResponse(ctx, first))

	second := &model.ResponseRecord{GrantID: "g1", Key: "summary", Content: "draft two", Status: "final"}
	require.NoError(t, st.UpsertResponse(ctx, second))

	responses, err := st.ListResponses(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "draft two", responses[0].Content)
	assert.Equal(t, "final", responses[0].Status)
}

func TestSQLite_ListResponses_SortedByKey(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.UpsertGrant(ctx, &model.GrantRecord{ID: "g1", Name: "G"}))
	for _, key := range []string{"zebra", "alpha", "middle"} {
		require.NoError(t, st.UpsertResponse(ctx, &model.ResponseRecord{GrantID: "g1", Key: key}))
	}

	responses, err := st.ListResponses(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, responses, 3)
	assert.Equal(t, "alpha", responses[0].Key)
	assert.Equal(t, "middle", responses[1].Key)
	assert.Equal(t, "zebra", responses[2].Key)
}

// --- Wage cache ---

func TestSQLite_WageCache_SetAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	median := 120000.0
	pct90 := 180000.0
	data := &bls.WageData{
		OccupationCode: "15-1221",
		AreaCode:       "0000000",
		Year:           2023,
		Median:         &median,
		Pct90:          &pct90,
	}
	require.NoError(t, st.SetCachedWages(ctx, data))

	got, err := st.GetCachedWages(ctx, "15-1221", "0000000", 2023)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Median)
	assert.InDelta(t, 120000.0, *got.Median, 0.001)
	require.NotNil(t, got.Pct90)
	assert.InDelta(t, 180000.0, *got.Pct90, 0.001)
	assert.Nil(t, got.Pct10)
}

func TestSQLite_WageCache_MissReturnsNil(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetCachedWages(context.Background(), "15-1221", "0000000", 2023)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_WageCache_Overwrite(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	stale := 100000.0
	fresh := 110000.0
	require.NoError(t, st.SetCachedWages(ctx, &bls.WageData{
		OccupationCode: "19-1099", AreaCode: "0000000", Year: 2023, Median: &stale,
	}))
	require.NoError(t, st.SetCachedWages(ctx, &bls.WageData{
		OccupationCode: "19-1099", AreaCode: "0000000", Year: 2023, Median: &fresh,
	}))

	got, err := st.GetCachedWages(ctx, "19-1099", "0000000", 2023)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Median)
	assert.InDelta(t, 110000.0, *got.Median, 0.001)
}
