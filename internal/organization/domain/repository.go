package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type OrganizationListItem struct {
	ID        snowflake.ID
	Name      string
	Role      string
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	GetOrganization(ctx context.Context, orgID snowflake.ID) (*Organization, error)
	UpdateOrganizationName(ctx context.Context, orgID snowflake.ID, name string) error
	AddMembership(ctx context.Context, member Membership) error
	FirstMembershipByUser(ctx context.Context, userID snowflake.ID) (*Membership, error)
	MembershipRole(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error)
	ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]OrganizationListItem, error)
	ListMemberships(ctx context.Context, orgID snowflake.ID) ([]Membership, error)
	IsMember(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (bool, error)
}
