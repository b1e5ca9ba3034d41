package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	orgdomain "github.com/smallbiznis/warung/internal/organization/domain"
)

type RenameOrganizationRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) GetOrganization(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.GetByID(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (s *Server) RenameOrganization(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req RenameOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	org, err := s.organizationSvc.Rename(c.Request.Context(), orgID, orgdomain.RenameOrganizationRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, org)
}

func (s *Server) ListUserOrgs(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	orgs, err := s.organizationSvc.ListOrganizationsByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orgs": orgs})
}

func (s *Server) ListMembers(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	members, err := s.organizationSvc.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (s *Server) AddMember(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.organizationSvc.AddMember(c.Request.Context(), orgID, orgdomain.AddMemberRequest{
		UserID: strings.TrimSpace(req.UserID),
		Role:   strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}
