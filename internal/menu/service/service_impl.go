package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/menu/domain"
	"github.com/smallbiznis/warung/pkg/db/pagination"
	"gorm.io/gorm"
)

const defaultPageSize = 10

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

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateMenuItemRequest) (*domain.MenuItemResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.PriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}

	item := domain.MenuItem{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		Name:       name,
		PriceCents: req.PriceCents,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, err
	}

	return toResponse(&item), nil
}

func (s *service) List(ctx context.Context, orgID snowflake.ID, req domain.ListMenuItemsRequest) (*domain.ListMenuItemsResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	var afterID snowflake.ID
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
		afterID, err = snowflake.ParseString(cursor.ID)
		if err != nil {
			return nil, domain.ErrInvalidPageToken
		}
	}

	// Fetch one extra row to detect whether more pages exist.
	items, err := s.repo.ListByOrg(ctx, orgID, domain.ListFilter{
		AfterID:  afterID,
		Limit:    pageSize + 1,
		OnlyLive: req.OnlyLive,
	})
	if err != nil {
		return nil, err
	}

	page := make([]*domain.MenuItem, 0, len(items))
	for i := range items {
		page = append(page, &items[i])
	}
	pageInfo := pagination.BuildCursorPageInfo(page, int32(pageSize), func(item *domain.MenuItem) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	if len(items) > pageSize {
		items = items[:pageSize]
	}
	resp := make([]domain.MenuItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}

	return &domain.ListMenuItemsResponse{
		PageInfo: *pageInfo,
		Items:    resp,
	}, nil
}

func (s *service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.MenuItemResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	item, err := s.repo.GetByOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

func (s *service) Update(ctx context.Context, orgID, id snowflake.ID, req domain.UpdateMenuItemRequest) (*domain.MenuItemResponse, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	item, err := s.repo.GetByOrg(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return nil, domain.ErrInvalidPrice
		}
		item.PriceCents = *req.PriceCents
	}
	if req.IsActive != nil {
		item.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, *item); err != nil {
		return nil, err
	}
	return toResponse(item), nil
}

func (s *service) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	return s.repo.Delete(ctx, orgID, id)
}

func toResponse(item *domain.MenuItem) *domain.MenuItemResponse {
	return &domain.MenuItemResponse{
		ID:         item.ID.String(),
		OrgID:      item.OrgID.String(),
		Name:       item.Name,
		PriceCents: item.PriceCents,
		IsActive:   item.IsActive,
		CreatedAt:  item.CreatedAt,
	}
}
