package tree

import (
	"context"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/errors"
)

func (s *Service) GetItemByID(ctx context.Context, requester access.Requester, id int) (*mapitem.MapItem, error) {
	return s.requireItem(ctx, requester, id, nil)
}

func (s *Service) GetItemByCoords(ctx context.Context, requester access.Requester, c coords.Coord) (*mapitem.MapItem, error) {
	if err := s.validate(c); err != nil {
		return nil, err
	}
	return s.requireItemAt(ctx, requester, c, nil)
}

// GetItemsByIDs returns the readable tiles among ids ordered by depth then
// path. Unknown and hidden ids are left out rather than reported.
func (s *Service) GetItemsByIDs(ctx context.Context, requester access.Requester, ids []int) ([]mapitem.MapItem, error) {
	if err := s.checkSize(len(ids)); err != nil {
		return nil, err
	}

	items, err := s.items.GetByIDs(ctx, requester, ids, nil)
	if err != nil {
		return nil, errors.WrapInternal("failed to load tiles", err)
	}
	return items, nil
}

// GetRootItems lists the maps of an owner visible to the requester
func (s *Service) GetRootItems(ctx context.Context, requester access.Requester, ownerID string) ([]mapitem.MapItem, error) {
	if ownerID == "" {
		return nil, errors.Validation("owner id is required")
	}

	roots, err := s.items.GetRoots(ctx, requester, ownerID, nil)
	if err != nil {
		return nil, errors.WrapInternal("failed to list maps", err)
	}
	return roots, nil
}

// GetDescendants returns everything below a tile ordered by depth then path.
// Without composition, any tile whose path below the queried tile contains
// an anchor or composition segment is left out, however deep it sits.
func (s *Service) GetDescendants(ctx context.Context, requester access.Requester, id int, includeComposition bool) ([]mapitem.MapItem, error) {
	start := time.Now()
	logger := s.logger.With("component", "tree_service", "operation", "get_descendants", "item_id", id, "include_composition", includeComposition)

	item, err := s.requireItem(ctx, requester, id, nil)
	if err != nil {
		return nil, err
	}

	descendants, err := s.items.GetDescendants(ctx, requester, item.Coords, mapitem.DescendantOptions{}, nil)
	if err != nil {
		observe("get_descendants", start, err)
		return nil, errors.WrapInternal("failed to load descendants", err)
	}

	if !includeComposition {
		descendants = withoutComposition(item.Coords.Path, descendants)
	}

	logger.Debug("Descendants loaded", "count", len(descendants))
	observe("get_descendants", start, nil)
	return descendants, nil
}

func withoutComposition(base []coords.Direction, items []mapitem.MapItem) []mapitem.MapItem {
	kept := make([]mapitem.MapItem, 0, len(items))
	for _, item := range items {
		rel, ok := coords.RelativePath(base, item.Coords.Path)
		if ok && !coords.HasCompositionSegment(rel) {
			kept = append(kept, item)
		}
	}
	return kept
}

// GetAncestors returns the chain from the map root down to the tile's parent
func (s *Service) GetAncestors(ctx context.Context, requester access.Requester, id int) ([]mapitem.MapItem, error) {
	item, err := s.requireItem(ctx, requester, id, nil)
	if err != nil {
		return nil, err
	}

	ancestors, err := s.items.GetAncestors(ctx, requester, *item, s.limits.MaxHierarchyDepth, nil)
	if err != nil {
		return nil, errors.WrapInternal("failed to load ancestors", err)
	}
	return ancestors, nil
}

// GetItemWithGenerations loads the tile at c with everything up to the given
// number of structural generations below it. Composition segments take a
// path slot without counting as a generation, so the scan reaches twice as
// deep and the result is trimmed afterwards.
func (s *Service) GetItemWithGenerations(ctx context.Context, requester access.Requester, c coords.Coord, generations int, includeComposition bool) (*ItemWithGenerations, error) {
	start := time.Now()

	if generations < 0 {
		return nil, errors.Validation("generations must not be negative")
	}
	if generations > s.limits.MaxHierarchyDepth {
		generations = s.limits.MaxHierarchyDepth
	}
	if err := s.validate(c); err != nil {
		return nil, err
	}

	item, err := s.requireItemAt(ctx, requester, c, nil)
	if err != nil {
		return nil, err
	}

	result := &ItemWithGenerations{Item: *item, Descendants: []mapitem.MapItem{}}
	if generations == 0 {
		return result, nil
	}

	own := len(c.Path)
	descendants, err := s.items.GetDescendants(ctx, requester, c, mapitem.DescendantOptions{
		MinDepth: own + 1,
		MaxDepth: own + 2*generations,
	}, nil)
	if err != nil {
		observe("get_item_with_generations", start, err)
		return nil, errors.WrapInternal("failed to load descendants", err)
	}

	for _, d := range descendants {
		rel, _ := coords.RelativePath(c.Path, d.Coords.Path)
		if coords.StructuralSteps(rel) > generations {
			continue
		}
		if !includeComposition && coords.HasCompositionSegment(rel) {
			continue
		}
		result.Descendants = append(result.Descendants, d)
	}

	observe("get_item_with_generations", start, nil)
	return result, nil
}

// GetComposedChildren returns the direct children at the anchor and the six composition slots
func (s *Service) GetComposedChildren(ctx context.Context, requester access.Requester, id int) ([]mapitem.MapItem, error) {
	item, err := s.requireItem(ctx, requester, id, nil)
	if err != nil {
		return nil, err
	}

	children, err := s.items.GetChildren(ctx, requester, item.Coords, nil)
	if err != nil {
		return nil, errors.WrapInternal("failed to load children", err)
	}

	composed := make([]mapitem.MapItem, 0, len(children))
	for _, child := range children {
		if d, ok := child.Coords.LastDirection(); ok && !d.IsStructural() {
			composed = append(composed, child)
		}
	}
	return composed, nil
}

// GetItemVersions returns the content history of a tile, newest first
func (s *Service) GetItemVersions(ctx context.Context, requester access.Requester, id int) ([]content.Version, error) {
	item, err := s.requireItem(ctx, requester, id, nil)
	if err != nil {
		return nil, err
	}

	versions, err := s.contents.ListVersions(ctx, item.ContentRefID, nil)
	if err != nil {
		return nil, errors.WrapInternal("failed to load content versions", err)
	}
	if versions == nil {
		versions = []content.Version{}
	}
	return versions, nil
}
