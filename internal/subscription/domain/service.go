package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetActive(ctx context.Context, orgID snowflake.ID) (*SubscriptionResponse, error)
	List(ctx context.Context, orgID snowflake.ID) ([]SubscriptionResponse, error)
	ChangePlan(ctx context.Context, orgID snowflake.ID, req ChangePlanRequest) (*SubscriptionResponse, error)
	Cancel(ctx context.Context, orgID snowflake.ID) (*SubscriptionResponse, error)
}

type ChangePlanRequest struct {
	PlanID string `json:"plan_id"`
}

type SubscriptionResponse struct {
	ID        string     `json:"id"`
	OrgID     string     `json:"org_id"`
	PlanID    string     `json:"plan_id"`
	Status    string     `json:"status"`
	PeriodEnd *time.Time `json:"period_end,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

var (
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrInvalidPlan          = errors.New("invalid_plan")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrAlreadyActive        = errors.New("subscription_already_active")
)
