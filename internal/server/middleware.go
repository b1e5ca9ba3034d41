package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/warung/internal/authorization"
	obscontext "github.com/smallbiznis/warung/internal/observability/context"
	"github.com/smallbiznis/warung/internal/orgcontext"
)

const (
	HeaderOrg        = "X-Org-ID"
	contextUserIDKey = "user_id"
	contextOrgIDKey  = "org_id"
)

func (s *Server) WebAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), "user", session.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, session.UserID)
		c.Next()
	}
}

// OrgContext resolves the active organization from the org_id path param
// when present, falling back to the X-Org-ID header.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param("org_id"))
		if raw == "" {
			raw = strings.TrimSpace(c.GetHeader(HeaderOrg))
		}
		if raw == "" {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "organization id is required"))
			return
		}

		orgID, err := snowflake.ParseString(raw)
		if err != nil || orgID == 0 {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid organization id"))
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = obscontext.WithOrgID(ctx, orgID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextOrgIDKey, orgID)
		c.Next()
	}
}

// Authorize gates the route on the policy engine. A denied read surfaces
// as not found so non-members cannot probe which organizations exist.
func (s *Server) Authorize(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.userIDFromSession(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		orgID, ok := s.orgIDFromRequest(c)
		if !ok {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "organization id is required"))
			return
		}

		err := s.authzSvc.Authorize(c.Request.Context(), "user:"+userID.String(), orgID.String(), object, action)
		if errors.Is(err, authorization.ErrForbidden) && action == authorization.ActionRead {
			AbortWithError(c, ErrNotFound)
			return
		}
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func (s *Server) RateLimit(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		if token, ok := s.sessions.ReadToken(c); ok {
			key = scope + ":" + token
		}

		orgID := ""
		if id, ok := s.orgIDFromRequest(c); ok {
			orgID = id.String()
		}

		result, err := s.limiter.Allow(c.Request.Context(), key, orgID, c.FullPath())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			AbortWithError(c, ErrRateLimited)
			return
		}
		c.Next()
	}
}

func (s *Server) userIDFromSession(c *gin.Context) (snowflake.ID, bool) {
	value, exists := c.Get(contextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(snowflake.ID)
	return userID, ok && userID != 0
}

func (s *Server) orgIDFromRequest(c *gin.Context) (snowflake.ID, bool) {
	value, exists := c.Get(contextOrgIDKey)
	if !exists {
		return 0, false
	}
	orgID, ok := value.(snowflake.ID)
	return orgID, ok && orgID != 0
}
