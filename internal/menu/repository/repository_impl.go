package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/menu/domain"
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

func (r *repository) Insert(ctx context.Context, item domain.MenuItem) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO menu_items (id, org_id, name, price_cents, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.OrgID,
		item.Name,
		item.PriceCents,
		item.IsActive,
		item.CreatedAt,
	).Error
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID, filter domain.ListFilter) ([]domain.MenuItem, error) {
	query := r.db.WithContext(ctx).Where("org_id = ?", orgID)
	if filter.AfterID != 0 {
		query = query.Where("id > ?", filter.AfterID)
	}
	if filter.OnlyLive {
		query = query.Where("is_active")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var items []domain.MenuItem
	err := query.Order("id ASC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetByOrg(ctx context.Context, orgID, id snowflake.ID) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) Update(ctx context.Context, item domain.MenuItem) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE menu_items SET name = ?, price_cents = ?, is_active = ? WHERE org_id = ? AND id = ?`,
		item.Name,
		item.PriceCents,
		item.IsActive,
		item.OrgID,
		item.ID,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Exec(
		`DELETE FROM menu_items WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
