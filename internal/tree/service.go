// Package tree is the mutation engine and query layer over the tile hierarchy.
//
// Every mutation runs in one transaction. Reads and writes go through the
// map item and content repositories; visibility is decided by the requester
// passed into each call.
package tree

import (
	"context"
	"log/slog"
	"time"

	"hexmap-server/internal/access"
	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/events"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/config"
	"hexmap-server/internal/shared/database"
	"hexmap-server/internal/shared/errors"
)

type Service struct {
	db        *database.DB
	items     *mapitem.Repository
	contents  *content.Repository
	publisher events.Publisher
	limits    config.TreeConfig
	logger    *slog.Logger
}

func NewService(
	db *database.DB,
	items *mapitem.Repository,
	contents *content.Repository,
	publisher events.Publisher,
	limits config.TreeConfig,
	logger *slog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:        db,
		items:     items,
		contents:  contents,
		publisher: publisher,
		limits:    limits,
		logger:    logger,
	}
}

// inTx runs fn in a transaction and commits when it returns nil
func (s *Service) inTx(ctx context.Context, logger *slog.Logger, fn func(tx *database.Tx) error) error {
	tx, err := s.db.BeginTxContext(ctx)
	if err != nil {
		logger.Error("Failed to begin transaction", "error", err)
		return errors.WrapInternal("failed to begin transaction", err)
	}
	defer tx.RollbackUnlessCommitted(logger)

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return writeError("failed to commit transaction", err)
	}
	return nil
}

// writeError surfaces a lost race on a tile position as InvalidMove so the
// caller can retry; typed errors pass through untouched.
func writeError(message string, err error) error {
	if database.IsUniqueViolation(err) {
		return errors.WrapInvalidMove("tile position was taken by a concurrent change", err)
	}
	return errors.Passthrough(message, err)
}

func (s *Service) validate(c coords.Coord) error {
	return coords.Validate(c, s.limits.MaxHierarchyDepth)
}

// checkDepth rejects a rebase that would push any path past the depth limit
func (s *Service) checkDepth(subtree []mapitem.MapItem, oldPrefix, newPrefix []coords.Direction) error {
	for _, item := range subtree {
		depth := len(newPrefix) + len(item.Coords.Path) - len(oldPrefix)
		if depth > s.limits.MaxHierarchyDepth {
			return errors.InvalidCoordinatesf("tile %d would reach depth %d, the maximum is %d", item.ID, depth, s.limits.MaxHierarchyDepth)
		}
	}
	return nil
}

func (s *Service) checkSize(n int) error {
	if n > s.limits.MaxDescendantsForOperation {
		return errors.OperationTooLargef("operation touches %d tiles, the maximum is %d", n, s.limits.MaxDescendantsForOperation)
	}
	return nil
}

// requireItem loads a tile readable by the requester
func (s *Service) requireItem(ctx context.Context, requester access.Requester, id int, tx *database.Tx) (*mapitem.MapItem, error) {
	item, err := s.items.GetByID(ctx, requester, id, tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to load tile", err)
	}
	if item == nil {
		return nil, errors.NotFoundf("tile %d not found", id)
	}
	return item, nil
}

// requireItemAt loads the tile at c readable by the requester
func (s *Service) requireItemAt(ctx context.Context, requester access.Requester, c coords.Coord, tx *database.Tx) (*mapitem.MapItem, error) {
	item, err := s.items.GetByCoords(ctx, requester, c, tx)
	if err != nil {
		return nil, errors.WrapInternal("failed to load tile", err)
	}
	if item == nil {
		return nil, errors.NotFoundf("tile %s not found", coords.Encode(c))
	}
	return item, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	event.At = time.Now().UTC()
	s.publisher.Publish(ctx, event)
}

// authorizeOwner is the mutation check for maps that do not exist yet
func authorizeOwner(requester access.Requester, ownerID string) error {
	if access.CanMutate(requester, ownerID) {
		return nil
	}
	if requester.IsAnonymous() {
		return errors.Unauthorized("authentication required")
	}
	return errors.Forbidden("maps can only be changed by their owner")
}

// editor is recorded on content versions
func editor(requester access.Requester) *string {
	if requester.IsSystem() || requester.IsAnonymous() {
		return nil
	}
	id := requester.UserID()
	return &id
}

func itemIDs(items []mapitem.MapItem) []int {
	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}
