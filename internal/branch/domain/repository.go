package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, branch Branch) error
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Branch, error)
	GetByOrg(ctx context.Context, orgID, id snowflake.ID) (*Branch, error)
	CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error)
	UpdateName(ctx context.Context, orgID, id snowflake.ID, name string) error
	Delete(ctx context.Context, orgID, id snowflake.ID) error
}
