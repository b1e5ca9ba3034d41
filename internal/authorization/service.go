// Package authorization implements row-level access decisions keyed on
// membership role within an organization.
package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks whether the actor may perform action on object within
	// the organization. Actors are "user:<id>" or "system".
	Authorize(ctx context.Context, actor string, orgID string, object string, action string) error
}

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidObject       = errors.New("invalid_object")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrForbidden           = errors.New("forbidden")
)
