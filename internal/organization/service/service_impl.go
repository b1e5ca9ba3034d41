package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/organization/domain"
	"github.com/smallbiznis/warung/pkg/db"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(dbConn *gorm.DB, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		db:    dbConn,
		repo:  repo,
		genID: genID,
	}
}

func (s *service) GetByID(ctx context.Context, userID snowflake.ID, orgID snowflake.ID) (*domain.OrganizationResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	// Reads are membership scoped: a non-member sees not found, never forbidden.
	member, err := s.repo.IsMember(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, domain.ErrNotFound
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return toOrganizationResponse(org), nil
}

func (s *service) Rename(ctx context.Context, orgID snowflake.ID, req domain.RenameOrganizationRequest) (*domain.OrganizationResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	if err := s.repo.UpdateOrganizationName(ctx, orgID, name); err != nil {
		return nil, err
	}

	org, err := s.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}

	return toOrganizationResponse(org), nil
}

func (s *service) ListOrganizationsByUser(ctx context.Context, userID snowflake.ID) ([]domain.OrganizationListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListOrganizationsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.OrganizationListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.OrganizationListResponseItem{
			ID:        item.ID.String(),
			Name:      item.Name,
			Role:      item.Role,
			CreatedAt: item.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.MemberResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	members, err := s.repo.ListMemberships(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponse, 0, len(members))
	for _, member := range members {
		resp = append(resp, domain.MemberResponse{
			ID:        member.ID.String(),
			UserID:    member.UserID.String(),
			Role:      member.Role,
			IsPrimary: member.IsPrimary,
			CreatedAt: member.CreatedAt,
		})
	}

	return resp, nil
}

func (s *service) AddMember(ctx context.Context, orgID snowflake.ID, req domain.AddMemberRequest) (*domain.MemberResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	member := domain.Membership{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		IsPrimary: false,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.AddMembership(ctx, member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrMemberExists
		}
		return nil, err
	}

	return &domain.MemberResponse{
		ID:        member.ID.String(),
		UserID:    member.UserID.String(),
		Role:      member.Role,
		IsPrimary: member.IsPrimary,
		CreatedAt: member.CreatedAt,
	}, nil
}

func toOrganizationResponse(org *domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		CreatedAt: org.CreatedAt,
	}
}
