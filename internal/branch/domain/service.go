package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, orgID snowflake.ID, req CreateBranchRequest) (*BranchResponse, error)
	List(ctx context.Context, orgID snowflake.ID) ([]BranchResponse, error)
	Get(ctx context.Context, orgID, id snowflake.ID) (*BranchResponse, error)
	Rename(ctx context.Context, orgID, id snowflake.ID, req RenameBranchRequest) (*BranchResponse, error)
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}

type CreateBranchRequest struct {
	Name string `json:"name"`
}

type RenameBranchRequest struct {
	Name string `json:"name"`
}

type BranchResponse struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrNotFound            = errors.New("branch_not_found")
)
