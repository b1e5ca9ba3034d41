// Package domain contains persistence models for store branches.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Branch is a physical location belonging to an organization.
type Branch struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"org_id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Branch) TableName() string { return "branches" }
