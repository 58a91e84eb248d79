package coords

import (
	"testing"

	"hexmap-server/internal/shared/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	assert.Equal(t, "alice,0:", Encode(Root("alice", 0)))
	assert.Equal(t, "alice,3:1,-2,0", Encode(New("alice", 3, NorthWest, ComposedNorthEast, Center)))
}

// TestDecode_RoundTrip checks decode(encode(c)) == c over every direction at several depths.
func TestDecode_RoundTrip(t *testing.T) {
	cases := []Coord{Root("u1", 0), Root("u1", 42)}
	for d := ComposedWest; d <= West; d++ {
		cases = append(cases, New("u1", 7, d))
		cases = append(cases, New("user-2", 1, West, d, NorthWest))
	}

	for _, c := range cases {
		decoded, err := Decode(Encode(c))
		require.NoError(t, err, Encode(c))
		assert.True(t, c.Equal(decoded), "round trip changed %s into %s", Encode(c), Encode(decoded))
	}
}

func TestDecode_EmptyPath(t *testing.T) {
	c, err := Decode("owner,5:")
	require.NoError(t, err)
	assert.Equal(t, "owner", c.OwnerID)
	assert.Equal(t, 5, c.GroupID)
	assert.NotNil(t, c.Path)
	assert.Empty(t, c.Path)
	assert.True(t, c.IsRoot())
}

func TestDecode_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"owner,0",
		"owner:1,2",
		",0:1",
		"owner,x:1",
		"owner,0:1,,2",
		"owner,0:7",
		"owner,0:-7",
		"owner,0:1,a",
	}
	for _, in := range inputs {
		_, err := Decode(in)
		require.Error(t, err, in)
		assert.Equal(t, errors.ErrorTypeInvalidCoordinates, errors.GetType(err), in)
	}
}

func TestParent(t *testing.T) {
	c := New("o", 0, East, SouthWest)
	parent, ok := c.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(New("o", 0, East)))

	grand, ok := parent.Parent()
	require.True(t, ok)
	assert.True(t, grand.IsRoot())

	_, ok = grand.Parent()
	assert.False(t, ok)
}

func TestParent_DoesNotAlias(t *testing.T) {
	c := New("o", 0, East, SouthWest)
	parent, _ := c.Parent()
	child := parent.Child(West)
	assert.Equal(t, []Direction{East, SouthWest}, c.Path)
	assert.Equal(t, []Direction{East, West}, child.Path)
}

func TestNeighbors(t *testing.T) {
	c := New("o", 1, NorthEast)

	structural := c.StructuralNeighbors()
	for i, n := range structural {
		assert.Equal(t, []Direction{NorthEast, Direction(i + 1)}, n.Path)
		assert.True(t, n.SameMap(c))
	}

	composition := c.CompositionNeighbors()
	for i, n := range composition {
		assert.Equal(t, []Direction{NorthEast, Direction(-(i + 1))}, n.Path)
	}

	assert.Equal(t, []Direction{NorthEast, Center}, c.CompositionAnchor().Path)
}

func TestIsDescendantPrefix(t *testing.T) {
	assert.True(t, IsDescendantPrefix([]Direction{}, []Direction{1}))
	assert.True(t, IsDescendantPrefix([]Direction{1, 2}, []Direction{1, 2, -3}))
	assert.False(t, IsDescendantPrefix([]Direction{1, 2}, []Direction{1, 2}))
	assert.False(t, IsDescendantPrefix([]Direction{1, 2}, []Direction{1}))
	assert.False(t, IsDescendantPrefix([]Direction{1, 2}, []Direction{1, 3, 2}))
}

func TestRebase(t *testing.T) {
	c := New("o", 0, NorthWest, East, ComposedWest)
	moved, err := c.Rebase([]Direction{NorthWest}, []Direction{SouthEast, SouthEast})
	require.NoError(t, err)
	assert.Equal(t, []Direction{SouthEast, SouthEast, East, ComposedWest}, moved.Path)

	_, err = c.Rebase([]Direction{West}, []Direction{East})
	assert.True(t, errors.Is(err, errors.ErrorTypeInvalidCoordinates))
}

func TestRelativePath(t *testing.T) {
	rel, ok := RelativePath([]Direction{2}, []Direction{2, -1, 3})
	require.True(t, ok)
	assert.Equal(t, []Direction{-1, 3}, rel)

	_, ok = RelativePath([]Direction{3}, []Direction{2, -1})
	assert.False(t, ok)
}

func TestHasCompositionSegment(t *testing.T) {
	assert.False(t, HasCompositionSegment([]Direction{1, 2, 6}))
	assert.True(t, HasCompositionSegment([]Direction{1, -2}))
	assert.True(t, HasCompositionSegment([]Direction{0}))
	assert.True(t, HasCompositionSegment([]Direction{-1, 3}))
	assert.Equal(t, 2, StructuralSteps([]Direction{1, -2, 3, 0}))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(New("o", 0, 1, 2, 3), 3))

	err := Validate(New("o", 0, 1, 2, 3, 4), 3)
	assert.True(t, errors.Is(err, errors.ErrorTypeInvalidCoordinates))

	err = Validate(Coord{OwnerID: "o", Path: []Direction{9}}, 3)
	assert.True(t, errors.Is(err, errors.ErrorTypeInvalidCoordinates))

	err = Validate(New("a:b", 0), 3)
	assert.True(t, errors.Is(err, errors.ErrorTypeInvalidCoordinates))
}
