package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner   = "owner"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleStaff   = "staff"
	RoleViewer  = "viewer"
)

// ValidRole reports whether the role is one of the known membership roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleManager, RoleStaff, RoleViewer:
		return true
	default:
		return false
	}
}

type Service interface {
	GetByID(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) (*OrganizationResponse, error)
	Rename(ctx context.Context, orgID snowflake.ID, req RenameOrganizationRequest) (*OrganizationResponse, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListResponseItem, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]MemberResponse, error)
	AddMember(ctx context.Context, orgID snowflake.ID, req AddMemberRequest) (*MemberResponse, error)
}

type RenameOrganizationRequest struct {
	Name string
}

type AddMemberRequest struct {
	UserID string
	Role   string
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type OrganizationListResponseItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type MemberResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRole         = errors.New("invalid_role")
	ErrMemberExists        = errors.New("member_exists")
	ErrNotFound            = errors.New("organization_not_found")
)
