package tree

import (
	"context"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/events"
	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/errors"
)

// RemoveSubtree deletes the tile at c with all its descendants, composition
// included. Content rows stay behind for their version history.
func (s *Service) RemoveSubtree(ctx context.Context, requester access.Requester, c coords.Coord) (result *RemoveResult, err error) {
	start := time.Now()
	defer func() { observe("remove_subtree", start, err) }()

	logger := s.logger.With("component", "tree_service", "operation", "remove_subtree", "coords", coords.Encode(c))

	if err := s.validate(c); err != nil {
		return nil, err
	}

	var removedID int
	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		item, err := s.requireItemAt(ctx, requester, c, tx)
		if err != nil {
			return err
		}
		if err := access.AuthorizeMutation(requester, item, "tile"); err != nil {
			return err
		}
		removedID = item.ID

		count, err := s.items.CountDescendants(ctx, c, true, tx)
		if err != nil {
			return errors.WrapInternal("failed to count subtree", err)
		}
		if err := s.checkSize(count); err != nil {
			return err
		}

		deleted, err := s.items.DeleteSubtree(ctx, c, tx)
		if err != nil {
			return errors.WrapInternal("failed to delete subtree", err)
		}
		result = &RemoveResult{DeletedCount: deleted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Subtree removed", "deleted", result.DeletedCount)
	observeAffected("remove_subtree", result.DeletedCount)
	s.publish(ctx, events.Event{
		Type:          events.TypeSubtreeRemoved,
		OwnerID:       c.OwnerID,
		GroupID:       c.GroupID,
		ItemIDs:       []int{removedID},
		Coords:        []string{coords.Encode(c)},
		AffectedCount: result.DeletedCount,
	})
	return result, nil
}

// RemoveChildrenByType deletes the child subtrees of c whose direction is of
// the given kind and leaves the other children alone.
func (s *Service) RemoveChildrenByType(ctx context.Context, requester access.Requester, c coords.Coord, kind ChildKind) (result *RemoveResult, err error) {
	start := time.Now()
	defer func() { observe("remove_children", start, err) }()

	logger := s.logger.With("component", "tree_service", "operation", "remove_children", "coords", coords.Encode(c), "kind", kind)

	if _, err := ParseChildKind(string(kind)); err != nil {
		return nil, err
	}
	if err := s.validate(c); err != nil {
		return nil, err
	}

	var removed []string
	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		item, err := s.requireItemAt(ctx, requester, c, tx)
		if err != nil {
			return err
		}
		if err := access.AuthorizeMutation(requester, item, "tile"); err != nil {
			return err
		}

		children, err := s.items.GetChildren(ctx, access.System(), c, tx)
		if err != nil {
			return errors.WrapInternal("failed to load children", err)
		}

		var roots [][]coords.Direction
		total := 0
		for _, child := range children {
			d, _ := child.Coords.LastDirection()
			if !kind.matches(d) {
				continue
			}
			count, err := s.items.CountDescendants(ctx, child.Coords, true, tx)
			if err != nil {
				return errors.WrapInternal("failed to count subtree", err)
			}
			total += count
			roots = append(roots, child.Coords.Path)
			removed = append(removed, child.CoordID)
		}
		if err := s.checkSize(total); err != nil {
			return err
		}

		deleted, err := s.items.DeleteSubtrees(ctx, c.OwnerID, c.GroupID, roots, tx)
		if err != nil {
			return errors.WrapInternal("failed to delete children", err)
		}
		result = &RemoveResult{DeletedCount: deleted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Children removed", "deleted", result.DeletedCount)
	if result.DeletedCount > 0 {
		observeAffected("remove_children", result.DeletedCount)
		s.publish(ctx, events.Event{
			Type:          events.TypeChildrenRemoved,
			OwnerID:       c.OwnerID,
			GroupID:       c.GroupID,
			Coords:        removed,
			AffectedCount: result.DeletedCount,
		})
	}
	return result, nil
}
