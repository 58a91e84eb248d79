package tree

import (
	"testing"

	"hexmap-server/internal/access"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/events"
	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveSubtree_IncludesCompositionKeepsContent(t *testing.T) {
	h := newHarness(t, config.DefaultTreeConfig())
	h.root("alice", access.VisibilityPrivate)
	a := h.add("alice", access.VisibilityPrivate, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.ComposedEast)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.Center)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.Center, coords.NorthWest)
	sibling := h.add("alice", access.VisibilityPrivate, coords.NorthEast)

	result, err := h.service.RemoveSubtree(h.ctx, access.User("alice"), a.Coords)
	require.NoError(t, err)
	assert.Equal(t, 5, result.DeletedCount)

	after := h.snapshot("alice")
	assert.Len(t, after, 2)
	assert.Equal(t, sibling.ID, after["2"].ID)

	ref, err := h.contents.GetByID(h.ctx, a.ContentRefID, nil)
	require.NoError(t, err)
	assert.NotNil(t, ref)

	_, err = h.service.RemoveSubtree(h.ctx, access.User("alice"), a.Coords)
	assert.True(t, errors.Is(err, errors.ErrorTypeNotFound))

	assert.Equal(t, events.TypeSubtreeRemoved, h.events.last().Type)
}

func TestRemoveSubtree_SizeCeiling(t *testing.T) {
	limits := config.DefaultTreeConfig()
	limits.MaxDescendantsForOperation = 2
	h := newHarness(t, limits)
	h.root("alice", access.VisibilityPrivate)
	a := h.add("alice", access.VisibilityPrivate, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.East)
	h.add("alice", access.VisibilityPrivate, coords.East, coords.West)

	before := h.snapshot("alice")
	_, err := h.service.RemoveSubtree(h.ctx, access.User("alice"), a.Coords)
	assert.True(t, errors.Is(err, errors.ErrorTypeOperationTooLarge))
	assert.Equal(t, before, h.snapshot("alice"))
}

func TestRemoveChildrenByType(t *testing.T) {
	setup := func(t *testing.T) (*harness, coords.Coord) {
		h := newHarness(t, config.DefaultTreeConfig())
		h.root("alice", access.VisibilityPrivate)
		a := h.add("alice", access.VisibilityPrivate, coords.East)
		h.add("alice", access.VisibilityPrivate, coords.East, coords.NorthWest)
		h.add("alice", access.VisibilityPrivate, coords.East, coords.NorthWest, coords.ComposedWest)
		h.add("alice", access.VisibilityPrivate, coords.East, coords.West)
		h.add("alice", access.VisibilityPrivate, coords.East, coords.ComposedNorthEast)
		h.add("alice", access.VisibilityPrivate, coords.East, coords.ComposedNorthEast, coords.East)
		h.add("alice", access.VisibilityPrivate, coords.East, coords.Center)
		return h, a.Coords
	}

	tests := []struct {
		kind      ChildKind
		deleted   int
		remaining []string
	}{
		{ChildKindStructural, 3, []string{"", "3", "3,-2", "3,-2,3", "3,0"}},
		{ChildKindComposed, 2, []string{"", "3", "3,0", "3,1", "3,1,-6", "3,6"}},
		{ChildKindCompositionAnchor, 1, []string{"", "3", "3,-2", "3,-2,3", "3,1", "3,1,-6", "3,6"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			h, c := setup(t)
			result, err := h.service.RemoveChildrenByType(h.ctx, access.User("alice"), c, tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.deleted, result.DeletedCount)

			var remaining []string
			for path := range h.snapshot("alice") {
				remaining = append(remaining, path)
			}
			assert.ElementsMatch(t, tt.remaining, remaining)
		})
	}
}

func TestRemoveChildrenByType_OnMapRoot(t *testing.T) {
	h := newHarness(t, config.DefaultTreeConfig())
	var root coords.Coord
	for _, owner := range []string{"alice", "bob"} {
		r := h.root(owner, access.VisibilityPrivate)
		if owner == "alice" {
			root = r.Coords
		}
		h.add(owner, access.VisibilityPrivate, coords.NorthEast)
		h.add(owner, access.VisibilityPrivate, coords.ComposedNorthWest)
		h.add(owner, access.VisibilityPrivate, coords.ComposedNorthWest, coords.East)
	}

	result, err := h.service.RemoveChildrenByType(h.ctx, access.User("alice"), root, ChildKindComposed)
	require.NoError(t, err)
	assert.Equal(t, 2, result.DeletedCount)

	after := h.snapshot("alice")
	assert.Len(t, after, 2)
	assert.Contains(t, after, "")
	assert.Contains(t, after, "2")
	assert.Len(t, h.snapshot("bob"), 4)
}

func TestRemoveChildrenByType_Rejections(t *testing.T) {
	h := newHarness(t, config.DefaultTreeConfig())
	h.root("alice", access.VisibilityPublic)
	a := h.add("alice", access.VisibilityPublic, coords.East)

	_, err := h.service.RemoveChildrenByType(h.ctx, access.User("alice"), a.Coords, "sideways")
	assert.True(t, errors.Is(err, errors.ErrorTypeValidation))

	_, err = h.service.RemoveChildrenByType(h.ctx, access.User("bob"), a.Coords, ChildKindStructural)
	assert.True(t, errors.Is(err, errors.ErrorTypeForbidden))

	result, err := h.service.RemoveChildrenByType(h.ctx, access.User("alice"), a.Coords, ChildKindStructural)
	require.NoError(t, err)
	assert.Zero(t, result.DeletedCount)
}
