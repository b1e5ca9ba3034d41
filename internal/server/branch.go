package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	branchdomain "github.com/smallbiznis/warung/internal/branch/domain"
)

type CreateBranchRequest struct {
	Name string `json:"name"`
}

type RenameBranchRequest struct {
	Name string `json:"name"`
}

func (s *Server) ListBranches(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	branches, err := s.branchSvc.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"branches": branches})
}

func (s *Server) CreateBranch(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req CreateBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	branch, err := s.branchSvc.Create(c.Request.Context(), orgID, branchdomain.CreateBranchRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, branch)
}

func (s *Server) GetBranch(c *gin.Context) {
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

	branch, err := s.branchSvc.Get(c.Request.Context(), orgID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, branch)
}

func (s *Server) RenameBranch(c *gin.Context) {
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

	var req RenameBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	branch, err := s.branchSvc.Rename(c.Request.Context(), orgID, id, branchdomain.RenameBranchRequest{
		Name: strings.TrimSpace(req.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, branch)
}

func (s *Server) DeleteBranch(c *gin.Context) {
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

	if err := s.branchSvc.Delete(c.Request.Context(), orgID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, error) {
	raw := strings.TrimSpace(c.Param(name))
	if raw == "" {
		return 0, newValidationError(name, "required", name+" is required")
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, newValidationError(name, "invalid_id", "invalid "+name)
	}
	return id, nil
}
