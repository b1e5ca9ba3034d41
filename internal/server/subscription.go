package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	subscriptiondomain "github.com/smallbiznis/warung/internal/subscription/domain"
)

type ChangePlanRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) ListSubscriptions(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	subs, err := s.subscriptionSvc.List(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": subs})
}

func (s *Server) GetActiveSubscription(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	sub, err := s.subscriptionSvc.GetActive(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}

func (s *Server) ChangePlan(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	var req ChangePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sub, err := s.subscriptionSvc.ChangePlan(c.Request.Context(), orgID, subscriptiondomain.ChangePlanRequest{
		PlanID: strings.TrimSpace(req.PlanID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
}

func (s *Server) CancelSubscription(c *gin.Context) {
	orgID, ok := s.orgIDFromRequest(c)
	if !ok {
		AbortWithError(c, invalidRequestError())
		return
	}

	sub, err := s.subscriptionSvc.Cancel(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, sub)
}
