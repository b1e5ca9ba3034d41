package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/branch/domain"
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

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateBranchRequest) (*domain.BranchResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	branch := domain.Branch{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, branch); err != nil {
		return nil, err
	}

	return toResponse(&branch), nil
}

func (s *service) List(ctx context.Context, orgID snowflake.ID) ([]domain.BranchResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	branches, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.BranchResponse, 0, len(branches))
	for i := range branches {
		resp = append(resp, *toResponse(&branches[i]))
	}
	return resp, nil
}

func (s *service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.BranchResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	branch, err := s.repo.GetByOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(branch), nil
}

func (s *service) Rename(ctx context.Context, orgID, id snowflake.ID, req domain.RenameBranchRequest) (*domain.BranchResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	if err := s.repo.UpdateName(ctx, orgID, id, name); err != nil {
		return nil, err
	}

	branch, err := s.repo.GetByOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(branch), nil
}

func (s *service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	return s.repo.Delete(ctx, orgID, id)
}

func toResponse(branch *domain.Branch) *domain.BranchResponse {
	return &domain.BranchResponse{
		ID:        branch.ID.String(),
		OrgID:     branch.OrgID.String(),
		Name:      branch.Name,
		CreatedAt: branch.CreatedAt,
	}
}
