package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateMenuItemRequest) (*MenuItemResponse, error)
	List(ctx context.Context, orgID snowflake.ID, req ListMenuItemsRequest) (*ListMenuItemsResponse, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*MenuItemResponse, error)
	Update(ctx context.Context, orgID, id snowflake.ID, req UpdateMenuItemRequest) (*MenuItemResponse, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}

type CreateMenuItemRequest struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type UpdateMenuItemRequest struct {
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

type ListMenuItemsRequest struct {
	pagination.Pagination
	OnlyLive bool `form:"only_live"`
}

type ListMenuItemsResponse struct {
	pagination.PageInfo
	Items []MenuItemResponse `json:"items"`
}

type MenuItemResponse struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidPageToken    = errors.New("invalid_page_token")
	ErrNotFound            = errors.New("menu_item_not_found")
)
