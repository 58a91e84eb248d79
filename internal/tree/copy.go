package tree

import (
	"context"
	"strconv"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/events"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/errors"
)

// CopyItem duplicates the subtree at source under destinationParentID at the
// position destination. Content rows are duplicated with their origin set to
// the source content. The source may live on any map the requester can read;
// tiles whose parent the requester cannot see are left out with their subtree.
func (s *Service) CopyItem(ctx context.Context, requester access.Requester, source, destination coords.Coord, destinationParentID int) (result *CopyResult, err error) {
	start := time.Now()
	defer func() { observe("copy_item", start, err) }()

	logger := s.logger.With(
		"component", "tree_service",
		"operation", "copy_item",
		"source", coords.Encode(source),
		"destination", coords.Encode(destination),
		"destination_parent_id", destinationParentID,
	)
	logger.Debug("Copying subtree")

	if err := s.validate(source); err != nil {
		return nil, err
	}
	if err := s.validate(destination); err != nil {
		return nil, err
	}
	if destination.IsRoot() {
		return nil, errors.InvalidMovef("cannot copy onto a map root")
	}
	if source.SameMap(destination) && coords.HasPrefix(destination.Path, source.Path) {
		return nil, errors.InvalidMovef("cannot copy %s into its own subtree", coords.Encode(source))
	}

	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		root, err := s.requireItemAt(ctx, requester, source, tx)
		if err != nil {
			return err
		}
		if root.Coords.IsRoot() || root.ItemType.IsReserved() {
			return errors.InvalidMovef("map roots cannot be copied")
		}

		parent, err := s.items.GetByID(ctx, requester, destinationParentID, tx)
		if err != nil {
			return errors.WrapInternal("failed to load destination parent", err)
		}
		if parent == nil {
			return errors.NotFoundf("destination parent %d not found", destinationParentID)
		}
		if expected, _ := destination.Parent(); !parent.Coords.Equal(expected) {
			return errors.InvalidCoordinatesf("destination parent %d is at %s, not at %s", parent.ID, parent.CoordID, coords.Encode(expected))
		}
		if err := access.AuthorizeMutation(requester, parent, "destination parent"); err != nil {
			return err
		}

		occupant, err := s.items.GetByCoords(ctx, access.System(), destination, tx)
		if err != nil {
			return errors.WrapInternal("failed to check destination", err)
		}
		if occupant != nil {
			return errors.InvalidMovef("destination %s is occupied", coords.Encode(destination))
		}

		count, err := s.items.CountDescendants(ctx, source, true, tx)
		if err != nil {
			return errors.WrapInternal("failed to count subtree", err)
		}
		if err := s.checkSize(count); err != nil {
			return err
		}

		subtree, err := s.items.GetDescendants(ctx, requester, source, mapitem.DescendantOptions{IncludeSelf: true}, tx)
		if err != nil {
			return errors.WrapInternal("failed to load subtree", err)
		}
		subtree = reachable(*root, subtree)
		if err := s.checkDepth(subtree, source.Path, destination.Path); err != nil {
			return err
		}

		result, err = s.insertCopies(ctx, requester, subtree, destination, parent.ID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Subtree copied", "created", len(result.Items))
	observeAffected("copy_item", len(result.Items))

	idMap := make(map[string]int, len(result.IDMap))
	for from, to := range result.IDMap {
		idMap[strconv.Itoa(from)] = to
	}
	s.publish(ctx, events.Event{
		Type:          events.TypeSubtreeCopied,
		OwnerID:       destination.OwnerID,
		GroupID:       destination.GroupID,
		ItemIDs:       itemIDs(result.Items),
		Coords:        []string{coords.Encode(source), coords.Encode(destination)},
		IDMap:         idMap,
		AffectedCount: len(result.Items),
	})
	return result, nil
}

// reachable keeps the tiles whose whole parent chain up to root survived the
// visibility filter. subtree is ordered by depth so parents come first.
func reachable(root mapitem.MapItem, subtree []mapitem.MapItem) []mapitem.MapItem {
	kept := map[int]bool{root.ID: true}
	out := make([]mapitem.MapItem, 0, len(subtree))
	for _, item := range subtree {
		if item.ID == root.ID {
			out = append(out, item)
			continue
		}
		if item.ParentID != nil && kept[*item.ParentID] {
			kept[item.ID] = true
			out = append(out, item)
		}
	}
	return out
}

// insertCopies writes content first, then tiles one depth level at a time so
// every child can look up the id its parent was just given.
func (s *Service) insertCopies(ctx context.Context, requester access.Requester, subtree []mapitem.MapItem, destination coords.Coord, destinationParentID int, tx *database.Tx) (*CopyResult, error) {
	attrs := make([]content.Attributes, len(subtree))
	for i, item := range subtree {
		attrs[i] = content.CopyOf(item.Ref)
	}
	refs, err := s.contents.CreateBatch(ctx, attrs, editor(requester), tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to copy content", err)
	}
	newContent := make(map[int]content.BaseItem, len(refs))
	for i, item := range subtree {
		newContent[item.ID] = refs[i]
	}

	rootID := subtree[0].ID
	idMap := make(map[int]int, len(subtree))
	created := make([]mapitem.MapItem, 0, len(subtree))

	for _, level := range byDepth(subtree) {
		rows := make([]mapitem.NewMapItem, len(level))
		for i, item := range level {
			parentID := destinationParentID
			if item.ID != rootID {
				parentID = idMap[*item.ParentID]
			}
			rel, _ := coords.RelativePath(subtree[0].Coords.Path, item.Coords.Path)
			target := coords.New(destination.OwnerID, destination.GroupID, append(append([]coords.Direction{}, destination.Path...), rel...)...)

			rows[i] = mapitem.NewMapItem{
				Coords:       target,
				ParentID:     &parentID,
				ItemType:     item.ItemType,
				Visibility:   item.Visibility,
				ContentRefID: newContent[item.ID].ID,
				TemplateName: item.TemplateName,
			}
		}

		inserted, err := s.items.CreateBatch(ctx, rows, tx)
		if err != nil {
			return nil, writeError("failed to insert copied tiles", err)
		}
		for i, item := range level {
			inserted[i].Ref = newContent[item.ID]
			idMap[item.ID] = inserted[i].ID
		}
		created = append(created, inserted...)
	}

	return &CopyResult{Items: created, IDMap: idMap}, nil
}

// byDepth groups tiles already sorted by depth into consecutive levels
func byDepth(items []mapitem.MapItem) [][]mapitem.MapItem {
	var levels [][]mapitem.MapItem
	for i := 0; i < len(items); {
		j := i
		for j < len(items) && items[j].Coords.Depth() == items[i].Coords.Depth() {
			j++
		}
		levels = append(levels, items[i:j])
		i = j
	}
	return levels
}
