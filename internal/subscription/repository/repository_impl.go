package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/subscription/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Insert(ctx context.Context, subscription domain.Subscription) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (id, org_id, plan_id, status, period_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subscription.ID,
		subscription.OrgID,
		subscription.PlanID,
		subscription.Status,
		subscription.PeriodEnd,
		subscription.CreatedAt,
	).Error
}

func (r *repository) ActiveByOrg(ctx context.Context, orgID snowflake.ID) (*domain.Subscription, error) {
	var subscription domain.Subscription
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND status = ?", orgID, domain.SubscriptionStatusActive).
		First(&subscription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Subscription, error) {
	var subscriptions []domain.Subscription
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, err
	}
	return subscriptions, nil
}

func (r *repository) UpdateStatus(ctx context.Context, orgID, id snowflake.ID, status domain.SubscriptionStatus) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET status = ? WHERE org_id = ? AND id = ?`,
		status,
		orgID,
		id,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}
