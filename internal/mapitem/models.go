package mapitem

import (
	"strings"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/shared/errors"
)

// ItemType is an open tag. "user" is reserved for map roots, a few tags are
// built in and anything else is a custom tag owned by higher layers.
type ItemType string

const (
	ItemTypeUser           ItemType = "user"
	ItemTypeOrganizational ItemType = "organizational"
	ItemTypeContext        ItemType = "context"
	ItemTypeSystem         ItemType = "system"
)

const maxItemTypeLength = 64

func ParseItemType(s string) (ItemType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.Validation("item type is required")
	}
	if len(s) > maxItemTypeLength {
		return "", errors.Validationf("item type must be at most %d characters", maxItemTypeLength)
	}
	return ItemType(s), nil
}

func (t ItemType) IsReserved() bool {
	return t == ItemTypeUser
}

// MapItem is one tile together with the content it references
type MapItem struct {
	ID           int               `json:"id"`
	ParentID     *int              `json:"parent_id"`
	Coords       coords.Coord      `json:"coords"`
	CoordID      string            `json:"coord_id"`
	ItemType     ItemType          `json:"item_type"`
	Visibility   access.Visibility `json:"visibility"`
	ContentRefID int               `json:"content_ref_id"`
	TemplateName *string           `json:"template_name"`
	Ref          content.BaseItem  `json:"ref"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

func (m MapItem) Owner() string {
	return m.Coords.OwnerID
}

func (m MapItem) Access() access.Visibility {
	return m.Visibility
}

// NewMapItem describes a row to insert
type NewMapItem struct {
	Coords       coords.Coord
	ParentID     *int
	ItemType     ItemType
	Visibility   access.Visibility
	ContentRefID int
	TemplateName *string
}

// Relocation assigns a new path to an existing row
type Relocation struct {
	ID   int
	Path []coords.Direction
}

// AttributePatch changes tile attributes that do not affect the tree shape
type AttributePatch struct {
	ItemType     *ItemType
	Visibility   *access.Visibility
	TemplateName *string
}

func (p AttributePatch) IsEmpty() bool {
	return p.ItemType == nil && p.Visibility == nil && p.TemplateName == nil
}

// DescendantOptions bounds a path-prefix scan. Depths are absolute path lengths.
type DescendantOptions struct {
	IncludeSelf bool
	MinDepth    int
	MaxDepth    int
}
