package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type ProvisionRequest struct {
	OrgName string `json:"org_name"`
}

type ProvisionResponse struct {
	OrgID    string `json:"org_id"`
	BranchID string `json:"branch_id"`
	Created  bool   `json:"created"`
}

func (s *Server) Provision(c *gin.Context) {
	userID, ok := s.userIDFromSession(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	// Body is optional: an empty request provisions with defaults.
	var req ProvisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	result, err := s.provisionSvc.ProvisionFirstOrg(c.Request.Context(), userID, req.OrgName)
	if err != nil {
		s.obsMetrics.RecordProvisionRun(c.Request.Context(), "error")
		AbortWithError(c, err)
		return
	}

	outcome := "existing"
	status := http.StatusOK
	if result.Created {
		outcome = "created"
		status = http.StatusCreated
	}
	s.obsMetrics.RecordProvisionRun(c.Request.Context(), outcome)

	c.JSON(status, ProvisionResponse{
		OrgID:    result.OrgID.String(),
		BranchID: result.BranchID.String(),
		Created:  result.Created,
	})
}
