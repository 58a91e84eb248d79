package tree

import (
	"context"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/events"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/errors"
)

// validateMove applies the checks that need no storage access
func (s *Service) validateMove(from, to coords.Coord) error {
	if err := s.validate(from); err != nil {
		return err
	}
	if err := s.validate(to); err != nil {
		return err
	}
	if !from.SameMap(to) {
		return errors.InvalidCoordinatesf("%s and %s are on different maps", coords.Encode(from), coords.Encode(to))
	}
	if from.IsRoot() || to.IsRoot() {
		return errors.InvalidMovef("map roots cannot be moved or replaced")
	}
	if from.Equal(to) {
		return errors.InvalidMovef("tile is already at %s", coords.Encode(to))
	}
	if coords.IsDescendantPrefix(from.Path, to.Path) {
		return errors.InvalidMovef("cannot move %s into its own subtree", coords.Encode(from))
	}
	if coords.IsDescendantPrefix(to.Path, from.Path) {
		return errors.InvalidMovef("cannot move %s onto its ancestor %s", coords.Encode(from), coords.Encode(to))
	}
	return nil
}

// MoveItem relocates the subtree at from to the position to. When to is
// occupied the two subtrees trade places.
func (s *Service) MoveItem(ctx context.Context, requester access.Requester, from, to coords.Coord) (result *MoveResult, err error) {
	start := time.Now()
	defer func() { observe("move_item", start, err) }()

	logger := s.logger.With(
		"component", "tree_service",
		"operation", "move_item",
		"from", coords.Encode(from),
		"to", coords.Encode(to),
	)
	logger.Debug("Moving tile")

	if err := s.validateMove(from, to); err != nil {
		return nil, err
	}

	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		source, err := s.requireItemAt(ctx, requester, from, tx)
		if err != nil {
			return err
		}
		if err := access.AuthorizeMutation(requester, source, "tile"); err != nil {
			return err
		}

		target, err := s.items.GetByCoords(ctx, access.System(), to, tx)
		if err != nil {
			return errors.WrapInternal("failed to load target position", err)
		}

		if target == nil {
			result, err = s.relocate(ctx, *source, to, tx)
		} else {
			result, err = s.swap(ctx, *source, *target, tx)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	eventType := events.TypeItemMoved
	if result.Swapped {
		eventType = events.TypeItemsSwapped
	}
	logger.Info("Tile moved", "item_id", result.MovedItemID, "affected", result.AffectedCount, "swapped", result.Swapped)
	observeAffected("move_item", result.AffectedCount)
	s.publish(ctx, events.Event{
		Type:          eventType,
		OwnerID:       from.OwnerID,
		GroupID:       from.GroupID,
		ItemIDs:       []int{result.MovedItemID},
		Coords:        []string{coords.Encode(from), coords.Encode(to)},
		AffectedCount: result.AffectedCount,
	})
	return result, nil
}

// loadSubtree counts before fetching so an oversized subtree is never read
func (s *Service) loadSubtree(ctx context.Context, root coords.Coord, extra int, tx *database.Tx) ([]mapitem.MapItem, error) {
	count, err := s.items.CountDescendants(ctx, root, true, tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to count subtree", err)
	}
	if err := s.checkSize(count + extra); err != nil {
		return nil, err
	}

	subtree, err := s.items.GetDescendants(ctx, access.System(), root, mapitem.DescendantOptions{IncludeSelf: true}, tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to load subtree", err)
	}
	return subtree, nil
}

func rebaseAll(subtree []mapitem.MapItem, oldPrefix, newPrefix []coords.Direction) ([]mapitem.Relocation, error) {
	relocations := make([]mapitem.Relocation, len(subtree))
	for i, item := range subtree {
		moved, err := item.Coords.Rebase(oldPrefix, newPrefix)
		if err != nil {
			return nil, err
		}
		relocations[i] = mapitem.Relocation{ID: item.ID, Path: moved.Path}
	}
	return relocations, nil
}

// relocate moves a subtree to an empty position. Descendants keep their
// parent ids; only the subtree root is re-parented.
func (s *Service) relocate(ctx context.Context, source mapitem.MapItem, to coords.Coord, tx *database.Tx) (*MoveResult, error) {
	subtree, err := s.loadSubtree(ctx, source.Coords, 0, tx)
	if err != nil {
		return nil, err
	}
	if err := s.checkDepth(subtree, source.Coords.Path, to.Path); err != nil {
		return nil, err
	}

	parentCoords, _ := to.Parent()
	newParent, err := s.items.GetByCoords(ctx, access.System(), parentCoords, tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to load new parent", err)
	}
	if newParent == nil {
		return nil, errors.InvalidCoordinatesf("target parent %s does not exist", coords.Encode(parentCoords))
	}

	relocations, err := rebaseAll(subtree, source.Coords.Path, to.Path)
	if err != nil {
		return nil, err
	}
	if _, err := s.items.RelocateItems(ctx, relocations, tx); err != nil {
		return nil, writeError("failed to relocate subtree", err)
	}
	if err := s.items.UpdateParent(ctx, source.ID, &newParent.ID, tx); err != nil {
		return nil, writeError("failed to re-parent tile", err)
	}

	return &MoveResult{MovedItemID: source.ID, AffectedCount: len(subtree)}, nil
}

// swap exchanges two disjoint subtrees of one map. Both are parked on
// placeholder paths first so no intermediate row collides with another.
func (s *Service) swap(ctx context.Context, a, b mapitem.MapItem, tx *database.Tx) (*MoveResult, error) {
	countB, err := s.items.CountDescendants(ctx, b.Coords, true, tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to count subtree", err)
	}
	subtreeA, err := s.loadSubtree(ctx, a.Coords, countB, tx)
	if err != nil {
		return nil, err
	}
	subtreeB, err := s.loadSubtree(ctx, b.Coords, len(subtreeA), tx)
	if err != nil {
		return nil, err
	}

	if err := s.checkDepth(subtreeA, a.Coords.Path, b.Coords.Path); err != nil {
		return nil, err
	}
	if err := s.checkDepth(subtreeB, b.Coords.Path, a.Coords.Path); err != nil {
		return nil, err
	}

	relocationsA, err := rebaseAll(subtreeA, a.Coords.Path, b.Coords.Path)
	if err != nil {
		return nil, err
	}
	relocationsB, err := rebaseAll(subtreeB, b.Coords.Path, a.Coords.Path)
	if err != nil {
		return nil, err
	}
	relocations := append(relocationsA, relocationsB...)

	ids := make([]int, len(relocations))
	for i, rel := range relocations {
		ids[i] = rel.ID
	}
	if err := s.items.StageItems(ctx, ids, tx); err != nil {
		return nil, writeError("failed to stage subtrees", err)
	}
	if _, err := s.items.RelocateItems(ctx, relocations, tx); err != nil {
		return nil, writeError("failed to swap subtrees", err)
	}

	if err := s.items.UpdateParent(ctx, a.ID, b.ParentID, tx); err != nil {
		return nil, writeError("failed to re-parent tile", err)
	}
	if err := s.items.UpdateParent(ctx, b.ID, a.ParentID, tx); err != nil {
		return nil, writeError("failed to re-parent tile", err)
	}

	return &MoveResult{
		MovedItemID:   a.ID,
		AffectedCount: len(subtreeA) + len(subtreeB),
		Swapped:       true,
	}, nil
}
