package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/organization/domain"
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

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, slug, created_at)
		 VALUES (?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.CreatedAt,
	).Error
}

func (r *repository) GetOrganization(ctx context.Context, orgID snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).First(&org, "id = ?", orgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) UpdateOrganizationName(ctx context.Context, orgID snowflake.ID, name string) error {
	tx := r.db.WithContext(ctx).Exec(
		`UPDATE organizations SET name = ? WHERE id = ?`,
		name,
		orgID,
	)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) AddMembership(ctx context.Context, member domain.Membership) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO memberships (id, org_id, user_id, role, is_primary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		member.ID,
		member.OrgID,
		member.UserID,
		member.Role,
		member.IsPrimary,
		member.CreatedAt,
	).Error
}

// FirstMembershipByUser returns the user's earliest membership across all
// organizations, primary or not. The partial unique index on is_primary
// stays as the guard against same-user provisioning races.
func (r *repository) FirstMembershipByUser(ctx context.Context, userID snowflake.ID) (*domain.Membership, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, org_id ASC").
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repository) MembershipRole(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var member domain.Membership
	err := r.db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}

func (r *repository) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListItem, error) {
	var items []domain.OrganizationListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT o.id, o.name, m.role, o.created_at
		 FROM organizations o
		 JOIN memberships m ON m.org_id = o.id
		 WHERE m.user_id = ?
		 ORDER BY o.created_at ASC, o.id ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

func (r *repository) ListMemberships(ctx context.Context, orgID snowflake.ID) ([]domain.Membership, error) {
	var members []domain.Membership
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at ASC, id ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) IsMember(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Membership{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
