package handlers

import (
	"log/slog"
	"net/http"

	"hexmap-server/internal/coords"
	"hexmap-server/internal/middleware"
	"hexmap-server/internal/shared/errors"
	"hexmap-server/internal/shared/response"
	"hexmap-server/internal/tree"
)

func (h *TreeHandler) CreateMap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_map")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req CreateMapRequest
	if err := decodeRequest(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	requester := middleware.RequesterFromContext(ctx)
	root, err := h.service.CreateRoot(ctx, requester, req.toInput(requester))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, root)
}

func (h *TreeHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "create_item")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req CreateItemRequest
	if err := decodeRequest(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	item, err := h.service.CreateItem(ctx, middleware.RequesterFromContext(ctx), input)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusCreated, item)
}

func (h *TreeHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "update_item")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	var req UpdateItemRequest
	if err := decodeRequest(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}

	item, err := h.service.UpdateItem(ctx, middleware.RequesterFromContext(ctx), id, req.toInput())
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, item)
}

func (h *TreeHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "move_item")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req MoveRequest
	if err := decodeRequest(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	from, err := coords.Decode(req.From)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	to, err := coords.Decode(req.To)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.MoveItem(ctx, middleware.RequesterFromContext(ctx), from, to)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *TreeHandler) CopyItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "copy_item")

	if r.Method != http.MethodPost {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	var req CopyRequest
	if err := decodeRequest(w, r, &req); err != nil {
		response.Error(w, r, logger, err)
		return
	}
	source, err := coords.Decode(req.Source)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	destination, err := coords.Decode(req.Destination)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.CopyItem(ctx, middleware.RequesterFromContext(ctx), source, destination, req.DestinationParentID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result.Items = nonNil(result.Items)
	response.Success(w, http.StatusCreated, result)
}

// RemoveItem deletes a tile with its whole subtree, composition included
func (h *TreeHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "remove_item")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	requester := middleware.RequesterFromContext(ctx)
	item, err := h.service.GetItemByID(ctx, requester, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.RemoveSubtree(ctx, requester, item.Coords)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}

func (h *TreeHandler) RemoveChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "remove_children")

	if r.Method != http.MethodDelete {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	kind, err := tree.ParseChildKind(r.URL.Query().Get("kind"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	requester := middleware.RequesterFromContext(ctx)
	item, err := h.service.GetItemByID(ctx, requester, id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.RemoveChildrenByType(ctx, requester, item.Coords, kind)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, result)
}
