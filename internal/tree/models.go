package tree

import (
	"hexmap-server/internal/access"
	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/errors"
)

// CreateRootInput describes a new map
type CreateRootInput struct {
	OwnerID      string
	GroupID      int
	Visibility   access.Visibility
	Content      content.Attributes
	TemplateName *string
}

// CreateItemInput describes a new non-root tile. ParentID is optional; when
// set it must be the tile at Coords.Parent().
type CreateItemInput struct {
	Coords       coords.Coord
	ParentID     *int
	ItemType     mapitem.ItemType
	Visibility   access.Visibility
	Content      content.Attributes
	TemplateName *string
}

// UpdateItemInput changes content and attributes, never the position
type UpdateItemInput struct {
	Content    content.Patch
	Attributes mapitem.AttributePatch
}

func (u UpdateItemInput) IsEmpty() bool {
	return u.Content.IsEmpty() && u.Attributes.IsEmpty()
}

type MoveResult struct {
	MovedItemID   int  `json:"moved_item_id"`
	AffectedCount int  `json:"affected_count"`
	Swapped       bool `json:"swapped"`
}

type CopyResult struct {
	Items []mapitem.MapItem `json:"items"`
	// IDMap maps every copied source item id to the id of its copy
	IDMap map[int]int `json:"id_map"`
}

type RemoveResult struct {
	DeletedCount int `json:"deleted_count"`
}

// ChildKind selects children by the sign of their last direction
type ChildKind string

const (
	ChildKindStructural        ChildKind = "structural"
	ChildKindComposed          ChildKind = "composed"
	ChildKindCompositionAnchor ChildKind = "compositionAnchor"
)

func ParseChildKind(s string) (ChildKind, error) {
	switch ChildKind(s) {
	case ChildKindStructural, ChildKindComposed, ChildKindCompositionAnchor:
		return ChildKind(s), nil
	}
	return "", errors.Validationf("kind must be one of structural, composed, compositionAnchor, got %q", s)
}

func (k ChildKind) matches(d coords.Direction) bool {
	switch k {
	case ChildKindStructural:
		return d.IsStructural()
	case ChildKindComposed:
		return d.IsComposition()
	case ChildKindCompositionAnchor:
		return d.IsAnchor()
	}
	return false
}

// ItemWithGenerations is a center tile and the tiles within a number of
// structural generations below it
type ItemWithGenerations struct {
	Item        mapitem.MapItem   `json:"item"`
	Descendants []mapitem.MapItem `json:"descendants"`
}
