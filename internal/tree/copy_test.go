package tree

import (
	"sort"
	"testing"

	"hexmap-server/internal/access"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/events"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relativePaths(t *testing.T, base []coords.Direction, items []mapitem.MapItem) []string {
	t.Helper()
	out := make([]string, 0, len(items))
	for _, item := range items {
		rel, ok := coords.RelativePath(base, item.Coords.Path)
		require.True(t, ok, item.CoordID)
		out = append(out, coords.FormatPath(rel))
	}
	sort.Strings(out)
	return out
}

func TestCopyItem_PreservesShapeAndOrigin(t *testing.T) {
	h := newHarness(t, smallBatches())
	h.root("alice", access.VisibilityPrivate)
	source := h.add("alice", access.VisibilityPrivate, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.NorthWest)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.NorthWest, coords.SouthEast)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.ComposedWest)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.Center)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.Center, coords.West)
	parent := h.add("alice", access.VisibilityPrivate, coords.West)

	sourceTree, err := h.service.GetDescendants(h.ctx, access.System(), source.ID, true)
	require.NoError(t, err)
	sourceTree = append([]mapitem.MapItem{source}, sourceTree...)

	result, err := h.service.CopyItem(h.ctx, access.User("alice"), source.Coords, at(coords.West, coords.NorthEast), parent.ID)
	require.NoError(t, err)
	require.Len(t, result.Items, len(sourceTree))
	require.Len(t, result.IDMap, len(sourceTree))

	assert.Equal(t,
		relativePaths(t, source.Coords.Path, sourceTree),
		relativePaths(t, []coords.Direction{coords.West, coords.NorthEast}, result.Items),
	)

	copies := make(map[int]mapitem.MapItem, len(result.Items))
	for _, item := range result.Items {
		copies[item.ID] = item
	}

	for _, original := range sourceTree {
		newID, ok := result.IDMap[original.ID]
		require.True(t, ok)
		copied, ok := copies[newID]
		require.True(t, ok)

		assert.NotEqual(t, original.ContentRefID, copied.ContentRefID)
		ref, err := h.contents.GetByID(h.ctx, copied.ContentRefID, nil)
		require.NoError(t, err)
		require.NotNil(t, ref.OriginID)
		assert.Equal(t, original.ContentRefID, *ref.OriginID)
		assert.Equal(t, original.Ref.Title, ref.Title)

		require.NotNil(t, copied.ParentID)
		if original.ID == source.ID {
			assert.Equal(t, parent.ID, *copied.ParentID)
		} else {
			assert.Equal(t, result.IDMap[*original.ParentID], *copied.ParentID)
		}
	}

	// the copy is stored, not just returned
	stored, err := h.service.GetDescendants(h.ctx, access.User("alice"), parent.ID, true)
	require.NoError(t, err)
	assert.Len(t, stored, len(sourceTree))

	event := h.events.last()
	assert.Equal(t, events.TypeSubtreeCopied, event.Type)
	assert.Equal(t, len(sourceTree), event.AffectedCount)
	assert.Len(t, event.IDMap, len(sourceTree))
}

func TestCopyItem_AcrossMapsSkipsHiddenBranches(t *testing.T) {
	h := newHarness(t, config.DefaultTreeConfig())
	h.root("alice", access.VisibilityPublic)
	source := h.add("alice", access.VisibilityPublic, coords.East)
	open := h.add("alice", access.VisibilityPublic, coords.East, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.West)
	h.add("alice", access.VisibilityPublic, coords.East, coords.West, coords.West)

	bobRoot := h.root("bob", access.VisibilityPrivate)

	result, err := h.service.CopyItem(h.ctx, access.User("bob"), source.Coords, coords.New("bob", 0, coords.SouthEast), bobRoot.ID)
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
	assert.Contains(t, result.IDMap, source.ID)
	assert.Contains(t, result.IDMap, open.ID)

	for _, item := range result.Items {
		assert.Equal(t, "bob", item.Coords.OwnerID)
	}
	assert.Equal(t, []string{"4", "4,3"}, pathsOf(result.Items))
}

func TestCopyItem_Rejections(t *testing.T) {
	limits := config.DefaultTreeConfig()
	limits.MaxDescendantsForOperation = 3
	limits.MaxHierarchyDepth = 4
	h := newHarness(t, limits)
	root := h.root("alice", access.VisibilityPrivate)
	source := h.add("alice", access.VisibilityPrivate, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.East, coords.East)
	big := h.add("alice", access.VisibilityPrivate, coords.West)
	h.add("alice", access.VisibilityPrivate, coords.West, coords.West)
	h.add("alice", access.VisibilityPrivate, coords.West, coords.NorthWest)
	h.add("alice", access.VisibilityPrivate, coords.West, coords.SouthWest)
	h.add("alice", access.VisibilityPrivate, coords.NorthWest)
	deepParent := h.add("alice", access.VisibilityPrivate, coords.NorthWest, coords.NorthWest)
	bobRoot := h.root("bob", access.VisibilityPublic)

	tests := []struct {
		name     string
		source   coords.Coord
		dest     coords.Coord
		parentID int
		errType  errors.ErrorType
	}{
		{"into own subtree", source.Coords, at(coords.East, coords.West), source.ID, errors.ErrorTypeInvalidMove},
		{"onto itself", source.Coords, source.Coords, root.ID, errors.ErrorTypeInvalidMove},
		{"map root", at(), coords.New("bob", 0, coords.East), bobRoot.ID, errors.ErrorTypeInvalidMove},
		{"occupied", source.Coords, at(coords.West), root.ID, errors.ErrorTypeInvalidMove},
		{"parent mismatch", source.Coords, at(coords.SouthEast), big.ID, errors.ErrorTypeInvalidCoordinates},
		{"missing parent", source.Coords, at(coords.SouthEast), 99999, errors.ErrorTypeNotFound},
		{"foreign parent", source.Coords, coords.New("bob", 0, coords.East), bobRoot.ID, errors.ErrorTypeForbidden},
		{"too large", big.Coords, at(coords.SouthEast), root.ID, errors.ErrorTypeOperationTooLarge},
		{"too deep", source.Coords, at(coords.NorthWest, coords.NorthWest, coords.East), deepParent.ID, errors.ErrorTypeInvalidCoordinates},
		{"root destination", source.Coords, at(), root.ID, errors.ErrorTypeInvalidMove},
	}

	before := h.snapshot("alice")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.service.CopyItem(h.ctx, access.User("alice"), tt.source, tt.dest, tt.parentID)
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.GetType(err), err.Error())
		})
	}
	assert.Len(t, h.snapshot("alice"), len(before))
}
