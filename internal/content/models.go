package content

import (
	"time"
)

// BaseItem is the mutable payload a tile points at
type BaseItem struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Preview   *string   `json:"preview"`
	Link      *string   `json:"link"`
	OriginID  *int      `json:"origin_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Version is an immutable snapshot of a BaseItem
type Version struct {
	ID            int       `json:"id"`
	BaseItemID    int       `json:"base_item_id"`
	VersionNumber int       `json:"version_number"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Preview       *string   `json:"preview"`
	Link          *string   `json:"link"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedBy     *string   `json:"updated_by"`
}

// Attributes are the fields needed to create a BaseItem
type Attributes struct {
	Title    string
	Content  string
	Preview  *string
	Link     *string
	OriginID *int
}

// Patch lists the fields to change; nil fields are left untouched
type Patch struct {
	Title   *string
	Content *string
	Preview *string
	Link    *string
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Content == nil && p.Preview == nil && p.Link == nil
}

// CopyOf prepares attributes for a provenance-tracked copy of item
func CopyOf(item BaseItem) Attributes {
	originID := item.ID
	return Attributes{
		Title:    item.Title,
		Content:  item.Content,
		Preview:  item.Preview,
		Link:     item.Link,
		OriginID: &originID,
	}
}

func (b BaseItem) apply(p Patch) BaseItem {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Content != nil {
		b.Content = *p.Content
	}
	if p.Preview != nil {
		b.Preview = p.Preview
	}
	if p.Link != nil {
		b.Link = p.Link
	}
	return b
}
