// Package domain contains persistence models for tenant subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SubscriptionStatus represents lifecycle states for a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
)

// Subscription links an organization to a plan. At most one subscription per
// organization may be active at a time.
type Subscription struct {
	ID        snowflake.ID       `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID       `gorm:"not null;index" json:"org_id"`
	PlanID    string             `gorm:"column:plan_id;type:text;not null" json:"plan_id"`
	Status    SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	PeriodEnd *time.Time         `gorm:"column:period_end" json:"period_end,omitempty"`
	CreatedAt time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }
