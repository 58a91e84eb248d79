package content

import (
	"context"
	"log/slog"
	"testing"

	"hexmap-server/internal/shared/database/dbtest"
	"hexmap-server/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, batchSize int) *Repository {
	t.Helper()
	return NewRepository(dbtest.New(t), slog.Default(), batchSize)
}

func strPtr(s string) *string { return &s }

func TestCreate_WritesFirstVersion(t *testing.T) {
	repo := newTestRepository(t, 10)
	ctx := context.Background()

	item, err := repo.Create(ctx, Attributes{Title: "Plan", Content: "body", Link: strPtr("https://example.com")}, strPtr("alice"), nil)
	require.NoError(t, err)
	assert.NotZero(t, item.ID)

	loaded, err := repo.GetByID(ctx, item.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Plan", loaded.Title)
	assert.Nil(t, loaded.Preview)
	require.NotNil(t, loaded.Link)
	assert.Equal(t, "https://example.com", *loaded.Link)

	versions, err := repo.ListVersions(ctx, item.ID, nil)
	require.NoError(t, err)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, "Plan", versions[0].Title)
	require.NotNil(t, versions[0].UpdatedBy)
	assert.Equal(t, "alice", *versions[0].UpdatedBy)
}

// TestCreateBatch_ChunksPreserveOrder creates more rows than one chunk holds.
func TestCreateBatch_ChunksPreserveOrder(t *testing.T) {
	repo := newTestRepository(t, 2)
	ctx := context.Background()

	origin, err := repo.Create(ctx, Attributes{Title: "source"}, nil, nil)
	require.NoError(t, err)

	attrs := []Attributes{
		{Title: "a"}, {Title: "b"}, CopyOf(*origin), {Title: "d"}, {Title: "e"},
	}
	created, err := repo.CreateBatch(ctx, attrs, nil, nil)
	require.NoError(t, err)
	require.Len(t, created, 5)

	stored := make([]BaseItem, len(created))
	titles := make([]string, len(created))
	for i, item := range created {
		got, err := repo.GetByID(ctx, item.ID, nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		stored[i] = *got
		titles[i] = got.Title
	}
	assert.Equal(t, []string{"a", "b", "source", "d", "e"}, titles)
	require.NotNil(t, stored[2].OriginID)
	assert.Equal(t, origin.ID, *stored[2].OriginID)

	for _, item := range created {
		versions, err := repo.ListVersions(ctx, item.ID, nil)
		require.NoError(t, err)
		assert.Len(t, versions, 1)
	}
}

func TestUpdate_SnapshotsPreviousValues(t *testing.T) {
	repo := newTestRepository(t, 10)
	ctx := context.Background()

	item, err := repo.Create(ctx, Attributes{Title: "v1", Content: "first"}, nil, nil)
	require.NoError(t, err)

	_, err = repo.Update(ctx, item.ID, Patch{Title: strPtr("v2")}, strPtr("bob"), nil)
	require.NoError(t, err)
	updated, err := repo.Update(ctx, item.ID, Patch{Content: strPtr("third"), Preview: strPtr("short")}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Title)
	assert.Equal(t, "third", updated.Content)

	versions, err := repo.ListVersions(ctx, item.ID, nil)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	assert.Equal(t, []int{3, 2, 1}, []int{versions[0].VersionNumber, versions[1].VersionNumber, versions[2].VersionNumber})
	assert.Equal(t, "v2", versions[0].Title)
	assert.Equal(t, "first", versions[0].Content)
	assert.Equal(t, "v1", versions[1].Title)
	require.NotNil(t, versions[1].UpdatedBy)
	assert.Equal(t, "bob", *versions[1].UpdatedBy)

	loaded, err := repo.GetByID(ctx, item.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, loaded.Preview)
	assert.Equal(t, "short", *loaded.Preview)
}

func TestUpdate_EmptyPatchWritesNoVersion(t *testing.T) {
	repo := newTestRepository(t, 10)
	ctx := context.Background()

	item, err := repo.Create(ctx, Attributes{Title: "same"}, nil, nil)
	require.NoError(t, err)

	_, err = repo.Update(ctx, item.ID, Patch{}, nil, nil)
	require.NoError(t, err)

	versions, err := repo.ListVersions(ctx, item.ID, nil)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestGetByID_Missing(t *testing.T) {
	repo := newTestRepository(t, 10)
	item, err := repo.GetByID(context.Background(), 999, nil)
	require.NoError(t, err)
	assert.Nil(t, item)

}

func TestUpdate_MissingContentIsNotFound(t *testing.T) {
	repo := newTestRepository(t, 10)

	updated, err := repo.Update(context.Background(), 999, Patch{Title: strPtr("x")}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))
	assert.Nil(t, updated)
}
