package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	AfterID  snowflake.ID
	Limit    int
	OnlyLive bool
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, item MenuItem) error
	ListByOrg(ctx context.Context, orgID snowflake.ID, filter ListFilter) ([]MenuItem, error)
	GetByOrg(ctx context.Context, orgID, id snowflake.ID) (*MenuItem, error)
	Update(ctx context.Context, item MenuItem) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}
