package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	"github.com/smallbiznis/warung/internal/subscription/domain"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	plans plandomain.Repository
	genID *snowflake.Node
}

func NewService(dbConn *gorm.DB, repo domain.Repository, plans plandomain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		db:    dbConn,
		repo:  repo,
		plans: plans,
		genID: genID,
	}
}

func (s *service) GetActive(ctx context.Context, orgID snowflake.ID) (*domain.SubscriptionResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	subscription, err := s.repo.ActiveByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if subscription == nil {
		return nil, domain.ErrSubscriptionNotFound
	}

	return toResponse(subscription), nil
}

func (s *service) List(ctx context.Context, orgID snowflake.ID) ([]domain.SubscriptionResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	subscriptions, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.SubscriptionResponse, 0, len(subscriptions))
	for i := range subscriptions {
		resp = append(resp, *toResponse(&subscriptions[i]))
	}
	return resp, nil
}

// ChangePlan cancels the current active subscription and activates a new one
// on the requested plan in a single transaction.
func (s *service) ChangePlan(ctx context.Context, orgID snowflake.ID, req domain.ChangePlanRequest) (*domain.SubscriptionResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		return nil, domain.ErrInvalidPlan
	}
	if _, err := s.plans.Get(ctx, planID); err != nil {
		if errors.Is(err, plandomain.ErrNotFound) {
			return nil, domain.ErrInvalidPlan
		}
		return nil, err
	}

	var created domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.ActiveByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		if current != nil {
			if current.PlanID == planID {
				return domain.ErrAlreadyActive
			}
			if err := repo.UpdateStatus(ctx, orgID, current.ID, domain.SubscriptionStatusCanceled); err != nil {
				return err
			}
		}

		created = domain.Subscription{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			PlanID:    planID,
			Status:    domain.SubscriptionStatusActive,
			CreatedAt: time.Now().UTC(),
		}
		return repo.Insert(ctx, created)
	})
	if err != nil {
		return nil, err
	}

	return toResponse(&created), nil
}

func (s *service) Cancel(ctx context.Context, orgID snowflake.ID) (*domain.SubscriptionResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	var canceled *domain.Subscription
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.ActiveByOrg(ctx, orgID)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.ErrSubscriptionNotFound
		}

		if err := repo.UpdateStatus(ctx, orgID, current.ID, domain.SubscriptionStatusCanceled); err != nil {
			return err
		}
		current.Status = domain.SubscriptionStatusCanceled
		canceled = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toResponse(canceled), nil
}

func toResponse(subscription *domain.Subscription) *domain.SubscriptionResponse {
	return &domain.SubscriptionResponse{
		ID:        subscription.ID.String(),
		OrgID:     subscription.OrgID.String(),
		PlanID:    subscription.PlanID,
		Status:    string(subscription.Status),
		PeriodEnd: subscription.PeriodEnd,
		CreatedAt: subscription.CreatedAt,
	}
}
