package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"hexmap-server/internal/access"
	"hexmap-server/internal/content"
	"hexmap-server/internal/coords"
	"hexmap-server/internal/mapitem"
	"hexmap-server/internal/shared/errors"
	"hexmap-server/internal/tree"

	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 1 << 20 // 1 MB

var validate *validator.Validate

func init() {
	validate = validator.New()
	err := validate.RegisterValidation("coord", func(fl validator.FieldLevel) bool {
		_, err := coords.Decode(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(err)
	}
}

type CreateMapRequest struct {
	OwnerID      string  `json:"owner_id" validate:"omitempty,max=255"`
	GroupID      int     `json:"group_id" validate:"gte=0"`
	Visibility   string  `json:"visibility" validate:"omitempty,oneof=public private"`
	Title        string  `json:"title" validate:"required,max=500"`
	Content      string  `json:"content"`
	Preview      *string `json:"preview"`
	Link         *string `json:"link" validate:"omitempty,url"`
	TemplateName *string `json:"template_name" validate:"omitempty,max=100"`
}

type CreateItemRequest struct {
	Coords       string  `json:"coords" validate:"required,coord"`
	ParentID     *int    `json:"parent_id" validate:"omitempty,gt=0"`
	ItemType     string  `json:"item_type" validate:"required,max=64"`
	Visibility   string  `json:"visibility" validate:"omitempty,oneof=public private"`
	Title        string  `json:"title" validate:"required,max=500"`
	Content      string  `json:"content"`
	Preview      *string `json:"preview"`
	Link         *string `json:"link" validate:"omitempty,url"`
	TemplateName *string `json:"template_name" validate:"omitempty,max=100"`
}

// UpdateItemRequest carries only the fields to change
type UpdateItemRequest struct {
	Title        *string `json:"title" validate:"omitempty,max=500"`
	Content      *string `json:"content"`
	Preview      *string `json:"preview"`
	Link         *string `json:"link" validate:"omitempty,url"`
	ItemType     *string `json:"item_type" validate:"omitempty,max=64"`
	Visibility   *string `json:"visibility" validate:"omitempty,oneof=public private"`
	TemplateName *string `json:"template_name" validate:"omitempty,max=100"`
}

type MoveRequest struct {
	From string `json:"from" validate:"required,coord"`
	To   string `json:"to" validate:"required,coord"`
}

type CopyRequest struct {
	Source              string `json:"source" validate:"required,coord"`
	Destination         string `json:"destination" validate:"required,coord"`
	DestinationParentID int    `json:"destination_parent_id" validate:"required,gt=0"`
}

func decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.WrapValidation("invalid JSON in request body", err)
	}

	if err := validate.Struct(dst); err != nil {
		return errors.WrapValidation("invalid request", err)
	}
	return nil
}

func (req CreateMapRequest) toInput(requester access.Requester) tree.CreateRootInput {
	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = requester.UserID()
	}

	return tree.CreateRootInput{
		OwnerID:    ownerID,
		GroupID:    req.GroupID,
		Visibility: access.Visibility(req.Visibility),
		Content: content.Attributes{
			Title:   req.Title,
			Content: req.Content,
			Preview: req.Preview,
			Link:    req.Link,
		},
		TemplateName: req.TemplateName,
	}
}

func (req CreateItemRequest) toInput() (tree.CreateItemInput, error) {
	c, err := coords.Decode(req.Coords)
	if err != nil {
		return tree.CreateItemInput{}, err
	}

	return tree.CreateItemInput{
		Coords:     c,
		ParentID:   req.ParentID,
		ItemType:   mapitem.ItemType(req.ItemType),
		Visibility: access.Visibility(req.Visibility),
		Content: content.Attributes{
			Title:   req.Title,
			Content: req.Content,
			Preview: req.Preview,
			Link:    req.Link,
		},
		TemplateName: req.TemplateName,
	}, nil
}

func (req UpdateItemRequest) toInput() tree.UpdateItemInput {
	input := tree.UpdateItemInput{
		Content: content.Patch{
			Title:   req.Title,
			Content: req.Content,
			Preview: req.Preview,
			Link:    req.Link,
		},
		Attributes: mapitem.AttributePatch{
			TemplateName: req.TemplateName,
		},
	}
	if req.ItemType != nil {
		itemType := mapitem.ItemType(*req.ItemType)
		input.Attributes.ItemType = &itemType
	}
	if req.Visibility != nil {
		visibility := access.Visibility(*req.Visibility)
		input.Attributes.Visibility = &visibility
	}
	return input
}

func pathID(r *http.Request) (int, error) {
	idStr := r.PathValue("id")
	if idStr == "" {
		return 0, errors.Validation("item ID is required")
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.WrapValidation("invalid item ID format", err)
	}
	return id, nil
}

func queryBool(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.WrapValidation("invalid "+name+" parameter", err)
	}
	return v, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.WrapValidation("invalid "+name+" parameter", err)
	}
	return v, nil
}

// queryIDs parses a comma separated id list such as ?ids=3,7,12
func queryIDs(r *http.Request, name string) ([]int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, errors.Validationf("%s parameter is required", name)
	}

	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.WrapValidation("invalid "+name+" parameter", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
