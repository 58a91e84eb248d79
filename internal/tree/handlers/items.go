package handlers

import (
	"log/slog"
	"net/http"

	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/middleware"
	"hexmap-server/internal/shared/errors"
	"hexmap-server/internal/shared/response"
	"hexmap-server/internal/tree"
)

const defaultGenerations = 1

type TreeHandler struct {
	service *tree.Service
}

func NewTreeHandler(service *tree.Service) *TreeHandler {
	return &TreeHandler{service: service}
}

// Register mounts the tile endpoints on mux
func (h *TreeHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/maps", h.CreateMap)
	mux.HandleFunc("/api/items", h.Items)
	mux.HandleFunc("/api/items/move", h.MoveItem)
	mux.HandleFunc("/api/items/copy", h.CopyItem)
	mux.HandleFunc("/api/items/{id}", h.Item)
	mux.HandleFunc("/api/items/{id}/descendants", h.GetDescendants)
	mux.HandleFunc("/api/items/{id}/ancestors", h.GetAncestors)
	mux.HandleFunc("/api/items/{id}/composed", h.GetComposedChildren)
	mux.HandleFunc("/api/items/{id}/versions", h.GetVersions)
	mux.HandleFunc("/api/items/{id}/children", h.RemoveChildren)
	mux.HandleFunc("/api/coords/{coords}", h.GetByCoords)
	mux.HandleFunc("/api/users/{ownerId}/roots", h.GetRoots)
}

// Items serves the batch lookup on GET and tile creation on POST
func (h *TreeHandler) Items(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetItems(w, r)
	case http.MethodPost:
		h.CreateItem(w, r)
	default:
		response.Error(w, r, slog.With("handler", "items"), errors.MethodNotAllowed(r.Method))
	}
}

// Item serves GET, PATCH and DELETE on a single tile
func (h *TreeHandler) Item(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetItem(w, r)
	case http.MethodPatch:
		h.UpdateItem(w, r)
	case http.MethodDelete:
		h.RemoveItem(w, r)
	default:
		response.Error(w, r, slog.With("handler", "item"), errors.MethodNotAllowed(r.Method))
	}
}

func (h *TreeHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_item")

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	item, err := h.service.GetItemByID(ctx, middleware.RequesterFromContext(ctx), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, item)
}

func (h *TreeHandler) GetDescendants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_descendants")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	includeComposition, err := queryBool(r, "include_composition")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	items, err := h.service.GetDescendants(ctx, middleware.RequesterFromContext(ctx), id, includeComposition)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nonNil(items))
}

func (h *TreeHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_ancestors")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	items, err := h.service.GetAncestors(ctx, middleware.RequesterFromContext(ctx), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nonNil(items))
}

func (h *TreeHandler) GetComposedChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_composed_children")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	items, err := h.service.GetComposedChildren(ctx, middleware.RequesterFromContext(ctx), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nonNil(items))
}

func (h *TreeHandler) GetVersions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_versions")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	id, err := pathID(r)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	versions, err := h.service.GetItemVersions(ctx, middleware.RequesterFromContext(ctx), id)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	if versions == nil {
		versions = []content.Version{}
	}

	response.Success(w, http.StatusOK, versions)
}

// GetByCoords returns the tile at an encoded coordinate with the requested
// number of generations below it.
func (h *TreeHandler) GetByCoords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_by_coords")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	c, err := coords.Decode(r.PathValue("coords"))
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	generations, err := queryInt(r, "generations", defaultGenerations)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}
	includeComposition, err := queryBool(r, "include_composition")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result, err := h.service.GetItemWithGenerations(ctx, middleware.RequesterFromContext(ctx), c, generations, includeComposition)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	result.Descendants = nonNil(result.Descendants)
	response.Success(w, http.StatusOK, result)
}

func (h *TreeHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_items")

	ids, err := queryIDs(r, "ids")
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	items, err := h.service.GetItemsByIDs(ctx, middleware.RequesterFromContext(ctx), ids)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nonNil(items))
}

func (h *TreeHandler) GetRoots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := slog.With("handler", "get_roots")

	if r.Method != http.MethodGet {
		response.Error(w, r, logger, errors.MethodNotAllowed(r.Method))
		return
	}

	ownerID := r.PathValue("ownerId")
	if ownerID == "" {
		response.Error(w, r, logger, errors.Validation("owner ID is required"))
		return
	}

	items, err := h.service.GetRootItems(ctx, middleware.RequesterFromContext(ctx), ownerID)
	if err != nil {
		response.Error(w, r, logger, err)
		return
	}

	response.Success(w, http.StatusOK, nonNil(items))
}

func nonNil(items []mapitem.MapItem) []mapitem.MapItem {
	if items == nil {
		return []mapitem.MapItem{}
	}
	return items
}
