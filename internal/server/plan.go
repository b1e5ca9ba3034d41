package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
)

type PlanResponse struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	MonthlyPriceCents int64          `json:"monthly_price_cents"`
	Features          map[string]any `json:"features"`
	CreatedAt         time.Time      `json:"created_at"`
}

func toPlanResponse(plan plandomain.Plan) PlanResponse {
	return PlanResponse{
		ID:                plan.ID,
		Name:              plan.Name,
		MonthlyPriceCents: plan.MonthlyPriceCents,
		Features:          plan.Features,
		CreatedAt:         plan.CreatedAt,
	}
}

func (s *Server) ListPlans(c *gin.Context) {
	plans, err := s.planRepo.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	out := make([]PlanResponse, 0, len(plans))
	for _, plan := range plans {
		out = append(out, toPlanResponse(plan))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

func (s *Server) GetPlan(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		AbortWithError(c, newValidationError("id", "required", "plan id is required"))
		return
	}

	plan, err := s.planRepo.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPlanResponse(*plan))
}
