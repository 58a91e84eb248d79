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

func normalizeVisibility(v access.Visibility) (access.Visibility, error) {
	if v == "" {
		return access.VisibilityPrivate, nil
	}
	return access.ParseVisibility(string(v))
}

// CreateRoot creates the user tile of a new map
func (s *Service) CreateRoot(ctx context.Context, requester access.Requester, input CreateRootInput) (item *mapitem.MapItem, err error) {
	start := time.Now()
	defer func() { observe("create_root", start, err) }()

	logger := s.logger.With("component", "tree_service", "operation", "create_root", "owner_id", input.OwnerID, "group_id", input.GroupID)

	root := coords.Root(input.OwnerID, input.GroupID)
	if err := s.validate(root); err != nil {
		return nil, err
	}
	if err := authorizeOwner(requester, input.OwnerID); err != nil {
		return nil, err
	}
	visibility, err := normalizeVisibility(input.Visibility)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		existing, err := s.items.GetByCoords(ctx, access.System(), root, tx)
		if err != nil {
			return errors.WrapInternal("failed to check for an existing map", err)
		}
		if existing != nil {
			return errors.Conflictf("map %s already exists", coords.Encode(root))
		}

		ref, err := s.contents.Create(ctx, input.Content, editor(requester), tx)
		if err != nil {
			return errors.WrapInternal("failed to create content", err)
		}

		item, err = s.items.Create(ctx, mapitem.NewMapItem{
			Coords:       root,
			ItemType:     mapitem.ItemTypeUser,
			Visibility:   visibility,
			ContentRefID: ref.ID,
			TemplateName: input.TemplateName,
		}, tx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errors.Conflictf("map %s already exists", coords.Encode(root))
			}
			return errors.WrapInternal("failed to create root tile", err)
		}
		item.Ref = *ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Map created", "item_id", item.ID)
	s.publish(ctx, events.Event{
		Type:          events.TypeMapCreated,
		OwnerID:       input.OwnerID,
		GroupID:       input.GroupID,
		ItemIDs:       []int{item.ID},
		Coords:        []string{item.CoordID},
		AffectedCount: 1,
	})
	return item, nil
}

// CreateItem inserts one non-root tile under an existing parent
func (s *Service) CreateItem(ctx context.Context, requester access.Requester, input CreateItemInput) (item *mapitem.MapItem, err error) {
	start := time.Now()
	defer func() { observe("create_item", start, err) }()

	logger := s.logger.With("component", "tree_service", "operation", "create_item", "coords", coords.Encode(input.Coords))

	itemType, err := mapitem.ParseItemType(string(input.ItemType))
	if err != nil {
		return nil, err
	}
	if itemType.IsReserved() {
		return nil, errors.Validationf("item type %q is reserved for map roots", itemType)
	}
	if err := s.validate(input.Coords); err != nil {
		return nil, err
	}
	parentCoords, ok := input.Coords.Parent()
	if !ok {
		return nil, errors.InvalidCoordinatesf("a tile needs a non-empty path; create maps with their own operation")
	}
	visibility, err := normalizeVisibility(input.Visibility)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		parent, err := s.items.GetByCoords(ctx, requester, parentCoords, tx)
		if err != nil {
			return errors.WrapInternal("failed to load parent tile", err)
		}
		if parent == nil {
			return errors.InvalidCoordinatesf("parent tile %s does not exist", coords.Encode(parentCoords))
		}
		if input.ParentID != nil && *input.ParentID != parent.ID {
			return errors.InvalidCoordinatesf("parent id %d is not the tile at %s", *input.ParentID, coords.Encode(parentCoords))
		}
		if err := access.AuthorizeMutation(requester, parent, "parent tile"); err != nil {
			return err
		}

		occupant, err := s.items.GetByCoords(ctx, access.System(), input.Coords, tx)
		if err != nil {
			return errors.WrapInternal("failed to check target position", err)
		}
		if occupant != nil {
			return errors.Conflictf("position %s is already occupied", coords.Encode(input.Coords))
		}

		ref, err := s.contents.Create(ctx, input.Content, editor(requester), tx)
		if err != nil {
			return errors.WrapInternal("failed to create content", err)
		}

		item, err = s.items.Create(ctx, mapitem.NewMapItem{
			Coords:       input.Coords,
			ParentID:     &parent.ID,
			ItemType:     itemType,
			Visibility:   visibility,
			ContentRefID: ref.ID,
			TemplateName: input.TemplateName,
		}, tx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errors.Conflictf("position %s is already occupied", coords.Encode(input.Coords))
			}
			return errors.WrapInternal("failed to create tile", err)
		}
		item.Ref = *ref
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Tile created", "item_id", item.ID, "item_type", item.ItemType)
	s.publish(ctx, events.Event{
		Type:          events.TypeItemCreated,
		OwnerID:       item.Coords.OwnerID,
		GroupID:       item.Coords.GroupID,
		ItemIDs:       []int{item.ID},
		Coords:        []string{item.CoordID},
		AffectedCount: 1,
	})
	return item, nil
}

// UpdateItem edits content (writing a version snapshot) and tile attributes.
// The position of a tile never changes here.
func (s *Service) UpdateItem(ctx context.Context, requester access.Requester, id int, input UpdateItemInput) (item *mapitem.MapItem, err error) {
	start := time.Now()
	defer func() { observe("update_item", start, err) }()

	logger := s.logger.With("component", "tree_service", "operation", "update_item", "item_id", id)

	if input.Attributes.ItemType != nil {
		itemType, err := mapitem.ParseItemType(string(*input.Attributes.ItemType))
		if err != nil {
			return nil, err
		}
		input.Attributes.ItemType = &itemType
	}
	if input.Attributes.Visibility != nil {
		if _, err := access.ParseVisibility(string(*input.Attributes.Visibility)); err != nil {
			return nil, err
		}
	}

	err = s.inTx(ctx, logger, func(tx *database.Tx) error {
		current, err := s.requireItem(ctx, requester, id, tx)
		if err != nil {
			return err
		}
		if err := access.AuthorizeMutation(requester, current, "tile"); err != nil {
			return err
		}

		if t := input.Attributes.ItemType; t != nil && *t != current.ItemType {
			if current.Coords.IsRoot() {
				return errors.Validation("the item type of a map root cannot change")
			}
			if t.IsReserved() {
				return errors.Validationf("item type %q is reserved for map roots", *t)
			}
		}

		if !input.Content.IsEmpty() {
			if _, err := s.contents.Update(ctx, current.ContentRefID, input.Content, editor(requester), tx); err != nil {
				return errors.Passthrough("failed to update content", err)
			}
		}
		if err := s.items.UpdateAttributes(ctx, id, input.Attributes, tx); err != nil {
			return errors.WrapInternal("failed to update tile", err)
		}

		item, err = s.requireItem(ctx, access.System(), id, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if !input.IsEmpty() {
		logger.Debug("Tile updated")
		s.publish(ctx, events.Event{
			Type:          events.TypeItemUpdated,
			OwnerID:       item.Coords.OwnerID,
			GroupID:       item.Coords.GroupID,
			ItemIDs:       []int{item.ID},
			Coords:        []string{item.CoordID},
			AffectedCount: 1,
		})
	}
	return item, nil
}
