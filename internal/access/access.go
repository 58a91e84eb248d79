// Package access decides which tiles a requester may read or change.
package access

import (
	"fmt"

	"hexmap-server/internal/shared/errors"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

func ParseVisibility(s string) (Visibility, error) {
	switch Visibility(s) {
	case VisibilityPublic, VisibilityPrivate:
		return Visibility(s), nil
	default:
		return "", errors.Validationf("visibility must be public or private, got %q", s)
	}
}

// Requester is the identity a call is made on behalf of. It is passed
// explicitly into every read and mutation; the zero value is an anonymous
// user who can only read public tiles.
type Requester struct {
	system bool
	userID string
}

// System is the internal requester used by engine-initiated work
func System() Requester {
	return Requester{system: true}
}

// User is a requester acting as the given identity; an empty id is anonymous
func User(id string) Requester {
	return Requester{userID: id}
}

func Anonymous() Requester {
	return Requester{}
}

func (r Requester) IsSystem() bool {
	return r.system
}

func (r Requester) IsAnonymous() bool {
	return !r.system && r.userID == ""
}

func (r Requester) UserID() string {
	return r.userID
}

// Owns reports whether the requester is the given owner
func (r Requester) Owns(ownerID string) bool {
	return r.userID != "" && r.userID == ownerID
}

func (r Requester) String() string {
	switch {
	case r.system:
		return "system"
	case r.userID == "":
		return "anonymous"
	default:
		return fmt.Sprintf("user:%s", r.userID)
	}
}

// CanRead applies the visibility rule: system and owner always pass, everyone else only on public tiles
func CanRead(r Requester, ownerID string, visibility Visibility) bool {
	if r.system || r.Owns(ownerID) {
		return true
	}
	return visibility == VisibilityPublic
}

// CanMutate reports whether the requester may change tiles of the owner's maps
func CanMutate(r Requester, ownerID string) bool {
	return r.system || r.Owns(ownerID)
}

// Resource is anything carrying an owner and a visibility
type Resource interface {
	Owner() string
	Access() Visibility
}

// Filter keeps the resources the requester may read, preserving order
func Filter[T Resource](r Requester, items []T) []T {
	if r.system {
		return items
	}
	visible := make([]T, 0, len(items))
	for _, item := range items {
		if CanRead(r, item.Owner(), item.Access()) {
			visible = append(visible, item)
		}
	}
	return visible
}

// AuthorizeMutation turns the read/mutate rules into the error a caller sees.
// Unreadable resources report not found so their existence does not leak.
func AuthorizeMutation(r Requester, res Resource, what string) error {
	if CanMutate(r, res.Owner()) {
		return nil
	}
	if !CanRead(r, res.Owner(), res.Access()) {
		return errors.NotFoundf("%s not found", what)
	}
	if r.IsAnonymous() {
		return errors.Unauthorized("authentication required")
	}
	return errors.Forbidden(fmt.Sprintf("%s belongs to another owner", what))
}
