package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/branch/domain"
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

func (r *repository) Insert(ctx context.Context, branch domain.Branch) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO branches (id, org_id, name, created_at)
		 VALUES (?, ?, ?, ?)`,
		branch.ID,
		branch.OrgID,
		branch.Name,
		branch.CreatedAt,
	).Error
}

func (r *repository) ListByOrg(ctx context.Context, orgID snowflake.ID) ([]domain.Branch, error) {
	var branches []domain.Branch
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&branches).Error
	if err != nil {
		return nil, err
	}
	return branches, nil
}

func (r *repository) GetByOrg(ctx context.Context, orgID, id snowflake.ID) (*domain.Branch, error) {
	var branch domain.Branch
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		First(&branch).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &branch, nil
}

func (r *repository) CountByOrg(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Branch{}).
		Where("org_id = ?", orgID).
		Count(&count).Error
	return count, err
}

func (r *repository) UpdateName(ctx context.Context, orgID, id snowflake.ID, name string) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE branches SET name = ? WHERE org_id = ? AND id = ?`,
		name,
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

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	tx := r.db.WithContext(ctx).Exec(
		`DELETE FROM branches WHERE org_id = ? AND id = ?`,
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
