package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Insert(ctx context.Context, subscription Subscription) error
	ActiveByOrg(ctx context.Context, orgID snowflake.ID) (*Subscription, error)
	ListByOrg(ctx context.Context, orgID snowflake.ID) ([]Subscription, error)
	UpdateStatus(ctx context.Context, orgID, id snowflake.ID, status SubscriptionStatus) error
}
