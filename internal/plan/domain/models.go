// Package domain contains persistence models for billing plans.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan is a global catalog entry shared by all tenants.
type Plan struct {
	ID                string            `gorm:"primaryKey;type:text" json:"id"`
	Name              string            `gorm:"type:text;not null" json:"name"`
	MonthlyPriceCents int64             `gorm:"column:monthly_price_cents;not null;default:0" json:"monthly_price_cents"`
	Features          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"features"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]Plan, error)
	Get(ctx context.Context, id string) (*Plan, error)
}

var ErrNotFound = errors.New("plan_not_found")
