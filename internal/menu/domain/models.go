// Package domain contains persistence models for menu items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// MenuItem is a sellable item belonging to an organization.
type MenuItem struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	PriceCents int64        `gorm:"column:price_cents;not null;default:0" json:"price_cents"`
	IsActive   bool         `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (MenuItem) TableName() string { return "menu_items" }
