// Package coords implements the hexagonal coordinate algebra of the tile map.
//
// A tile is addressed by its owner, a group and a path of directions from the
// owner's root tile. Positive directions are the six structural neighbors,
// negative directions are the mirrored composition slots and zero is the
// composition anchor of a tile.
package coords

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"hexmap-server/internal/shared/errors"
)

// Direction is one path segment
type Direction int8

const (
	Center    Direction = 0
	NorthWest Direction = 1
	NorthEast Direction = 2
	East      Direction = 3
	SouthEast Direction = 4
	SouthWest Direction = 5
	West      Direction = 6

	ComposedNorthWest Direction = -1
	ComposedNorthEast Direction = -2
	ComposedEast      Direction = -3
	ComposedSouthEast Direction = -4
	ComposedSouthWest Direction = -5
	ComposedWest      Direction = -6
)

// StructuralDirections lists the six structural directions in cyclic order
var StructuralDirections = [6]Direction{NorthWest, NorthEast, East, SouthEast, SouthWest, West}

// CompositionDirections mirrors StructuralDirections
var CompositionDirections = [6]Direction{ComposedNorthWest, ComposedNorthEast, ComposedEast, ComposedSouthEast, ComposedSouthWest, ComposedWest}

func (d Direction) IsValid() bool {
	return d >= ComposedWest && d <= West
}

func (d Direction) IsStructural() bool {
	return d > 0 && d <= West
}

func (d Direction) IsComposition() bool {
	return d < 0 && d >= ComposedWest
}

func (d Direction) IsAnchor() bool {
	return d == Center
}

func (d Direction) String() string {
	return strconv.Itoa(int(d))
}

// Coord identifies a tile position
type Coord struct {
	OwnerID string      `json:"owner_id"`
	GroupID int         `json:"group_id"`
	Path    []Direction `json:"path"`
}

// New builds a coordinate, copying the path
func New(ownerID string, groupID int, path ...Direction) Coord {
	return Coord{OwnerID: ownerID, GroupID: groupID, Path: clonePath(path)}
}

// Root returns the root coordinate of a map
func Root(ownerID string, groupID int) Coord {
	return Coord{OwnerID: ownerID, GroupID: groupID, Path: []Direction{}}
}

func (c Coord) Depth() int {
	return len(c.Path)
}

func (c Coord) IsRoot() bool {
	return len(c.Path) == 0
}

// SameMap reports whether both coordinates share owner and group
func (c Coord) SameMap(other Coord) bool {
	return c.OwnerID == other.OwnerID && c.GroupID == other.GroupID
}

func (c Coord) Equal(other Coord) bool {
	return c.SameMap(other) && slices.Equal(c.Path, other.Path)
}

// Child appends one direction
func (c Coord) Child(d Direction) Coord {
	path := make([]Direction, len(c.Path), len(c.Path)+1)
	copy(path, c.Path)
	return Coord{OwnerID: c.OwnerID, GroupID: c.GroupID, Path: append(path, d)}
}

// Parent drops the last direction. The boolean is false for root coordinates.
func (c Coord) Parent() (Coord, bool) {
	if len(c.Path) == 0 {
		return Coord{}, false
	}
	return Coord{OwnerID: c.OwnerID, GroupID: c.GroupID, Path: clonePath(c.Path[:len(c.Path)-1])}, true
}

func (c Coord) StructuralNeighbors() [6]Coord {
	var out [6]Coord
	for i, d := range StructuralDirections {
		out[i] = c.Child(d)
	}
	return out
}

func (c Coord) CompositionNeighbors() [6]Coord {
	var out [6]Coord
	for i, d := range CompositionDirections {
		out[i] = c.Child(d)
	}
	return out
}

func (c Coord) CompositionAnchor() Coord {
	return c.Child(Center)
}

// LastDirection returns the final path segment; false for roots
func (c Coord) LastDirection() (Direction, bool) {
	if len(c.Path) == 0 {
		return 0, false
	}
	return c.Path[len(c.Path)-1], true
}

// Rebase replaces oldPrefix with newPrefix at the head of the path
func (c Coord) Rebase(oldPrefix, newPrefix []Direction) (Coord, error) {
	if !HasPrefix(c.Path, oldPrefix) {
		return Coord{}, errors.InvalidCoordinatesf("path %s does not start with %s", FormatPath(c.Path), FormatPath(oldPrefix))
	}
	path := make([]Direction, 0, len(newPrefix)+len(c.Path)-len(oldPrefix))
	path = append(path, newPrefix...)
	path = append(path, c.Path[len(oldPrefix):]...)
	return Coord{OwnerID: c.OwnerID, GroupID: c.GroupID, Path: path}, nil
}

func (c Coord) String() string {
	return Encode(c)
}

// HasPrefix reports whether path starts with prefix (equality included)
func HasPrefix(path, prefix []Direction) bool {
	return len(path) >= len(prefix) && slices.Equal(path[:len(prefix)], prefix)
}

// IsDescendantPrefix reports whether candidate lies strictly below ancestor
func IsDescendantPrefix(ancestor, candidate []Direction) bool {
	return len(candidate) > len(ancestor) && HasPrefix(candidate, ancestor)
}

// RelativePath returns the part of path below prefix
func RelativePath(prefix, path []Direction) ([]Direction, bool) {
	if !HasPrefix(path, prefix) {
		return nil, false
	}
	return clonePath(path[len(prefix):]), true
}

// HasCompositionSegment reports whether any segment is an anchor or composition direction
func HasCompositionSegment(path []Direction) bool {
	for _, d := range path {
		if d <= 0 {
			return true
		}
	}
	return false
}

// StructuralSteps counts the positive segments of a path
func StructuralSteps(path []Direction) int {
	n := 0
	for _, d := range path {
		if d > 0 {
			n++
		}
	}
	return n
}

// Encode renders "<ownerId>,<groupId>:<d1,d2,...>"
func Encode(c Coord) string {
	return c.OwnerID + "," + strconv.Itoa(c.GroupID) + ":" + FormatPath(c.Path)
}

// Decode parses the canonical coordinate string
func Decode(s string) (Coord, error) {
	head, pathPart, ok := strings.Cut(s, ":")
	if !ok {
		return Coord{}, errors.InvalidCoordinatesf("coordinate %q is missing ':'", s)
	}

	ownerID, groupPart, ok := strings.Cut(head, ",")
	if !ok {
		return Coord{}, errors.InvalidCoordinatesf("coordinate %q is missing the group id", s)
	}
	if err := validateOwnerID(ownerID); err != nil {
		return Coord{}, err
	}

	groupID, err := strconv.Atoi(groupPart)
	if err != nil {
		return Coord{}, errors.WrapInvalidCoordinates(fmt.Sprintf("coordinate %q has an invalid group id", s), err)
	}

	path, err := ParsePath(pathPart)
	if err != nil {
		return Coord{}, err
	}

	return Coord{OwnerID: ownerID, GroupID: groupID, Path: path}, nil
}

// FormatPath renders the stored comma-joined form; roots render as ""
func FormatPath(path []Direction) string {
	if len(path) == 0 {
		return ""
	}
	parts := make([]string, len(path))
	for i, d := range path {
		parts[i] = strconv.Itoa(int(d))
	}
	return strings.Join(parts, ",")
}

// ParsePath parses the stored comma-joined form
func ParsePath(s string) ([]Direction, error) {
	if s == "" {
		return []Direction{}, nil
	}

	parts := strings.Split(s, ",")
	path := make([]Direction, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.WrapInvalidCoordinates(fmt.Sprintf("invalid path segment %q", part), err)
		}
		d := Direction(n)
		if n < int(ComposedWest) || n > int(West) || !d.IsValid() {
			return nil, errors.InvalidCoordinatesf("path segment %d is outside -6..6", n)
		}
		path[i] = d
	}
	return path, nil
}

// Validate checks the owner id, the depth limit and every direction
func Validate(c Coord, maxDepth int) error {
	if err := validateOwnerID(c.OwnerID); err != nil {
		return err
	}
	if len(c.Path) > maxDepth {
		return errors.InvalidCoordinatesf("path depth %d exceeds the maximum of %d", len(c.Path), maxDepth)
	}
	for _, d := range c.Path {
		if !d.IsValid() {
			return errors.InvalidCoordinatesf("path segment %d is outside -6..6", d)
		}
	}
	return nil
}

func validateOwnerID(ownerID string) error {
	if ownerID == "" {
		return errors.InvalidCoordinatesf("owner id is required")
	}
	if strings.ContainsAny(ownerID, ",:") {
		return errors.InvalidCoordinatesf("owner id %q must not contain ',' or ':'", ownerID)
	}
	return nil
}

func clonePath(path []Direction) []Direction {
	out := make([]Direction, len(path))
	copy(out, path)
	return out
}
