package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	menudomain "github.com/smallbiznis/warung/internal/menu/domain"
)

type CreateMenuItemRequest struct {
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
}

type UpdateMenuItemRequest struct {
	Name       *string `json:"name,omitempty"`
	PriceCents *int64  `json:"price_cents,omitempty"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

func (s *Server) ListMenuItems(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req menudomain.ListMenuItemsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	items, err := s.menuSvc.List(c.Request.Context(), orgID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

func (s *Server) CreateMenuItem(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.menuSvc.Create(c.Request.Context(), orgID, menudomain.CreateMenuItemRequest{
		Name:       strings.TrimSpace(req.Name),
		PriceCents: req.PriceCents,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) GetMenuItem(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	item, err := s.menuSvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) UpdateMenuItem(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req UpdateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.menuSvc.Update(c.Request.Context(), orgID, id, menudomain.UpdateMenuItemRequest{
		Name:       req.Name,
		PriceCents: req.PriceCents,
		IsActive:   req.IsActive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) DeleteMenuItem(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.menuSvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
