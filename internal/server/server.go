package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/warung/internal/auth"
	authdomain "github.com/smallbiznis/warung/internal/auth/domain"
	"github.com/smallbiznis/warung/internal/auth/session"
	"github.com/smallbiznis/warung/internal/authorization"
	"github.com/smallbiznis/warung/internal/branch"
	branchdomain "github.com/smallbiznis/warung/internal/branch/domain"
	"github.com/smallbiznis/warung/internal/config"
	"github.com/smallbiznis/warung/internal/menu"
	menudomain "github.com/smallbiznis/warung/internal/menu/domain"
	"github.com/smallbiznis/warung/internal/observability"
	obsmiddleware "github.com/smallbiznis/warung/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/warung/internal/observability/metrics"
	obstracing "github.com/smallbiznis/warung/internal/observability/tracing"
	"github.com/smallbiznis/warung/internal/organization"
	orgdomain "github.com/smallbiznis/warung/internal/organization/domain"
	"github.com/smallbiznis/warung/internal/plan"
	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	"github.com/smallbiznis/warung/internal/provision"
	"github.com/smallbiznis/warung/internal/ratelimit"
	"github.com/smallbiznis/warung/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/warung/internal/subscription/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	session.Module,
	organization.Module,
	plan.Module,
	subscription.Module,
	branch.Module,
	menu.Module,
	provision.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	authzSvc        authorization.Service
	organizationSvc orgdomain.Service
	planRepo        plandomain.Repository
	subscriptionSvc subscriptiondomain.Service
	branchSvc       branchdomain.Service
	menuSvc         menudomain.Service
	provisionSvc    provision.Service
	limiter         *ratelimit.TokenBucket
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	OrganizationSvc orgdomain.Service
	PlanRepo        plandomain.Repository
	SubscriptionSvc subscriptiondomain.Service
	BranchSvc       branchdomain.Service
	MenuSvc         menudomain.Service
	ProvisionSvc    provision.Service
	Limiter         *ratelimit.TokenBucket `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		organizationSvc: p.OrganizationSvc,
		planRepo:        p.PlanRepo,
		subscriptionSvc: p.SubscriptionSvc,
		branchSvc:       p.BranchSvc,
		menuSvc:         p.MenuSvc,
		provisionSvc:    p.ProvisionSvc,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/signup", s.RateLimit("auth"), s.Signup)
	auth.POST("/login", s.RateLimit("auth"), s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/change-password", s.WebAuthRequired(), s.ChangePassword)
	auth.GET("/me", s.Me)

	user := auth.Group("/user", s.WebAuthRequired())
	{
		user.GET("/orgs", s.ListUserOrgs)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Plans (public catalog) --------
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id", s.GetPlan)

	// -------- Provisioning --------
	api.POST("/provision", s.WebAuthRequired(), s.RateLimit("provision"), s.Provision)

	// -------- Organizations --------
	orgs := api.Group("/orgs", s.WebAuthRequired())
	{
		orgs.GET("/:org_id", s.OrgContext(), s.Authorize(authorization.ObjectOrganization, authorization.ActionRead), s.GetOrganization)
		orgs.PATCH("/:org_id", s.OrgContext(), s.Authorize(authorization.ObjectOrganization, authorization.ActionWrite), s.RenameOrganization)
		orgs.GET("/:org_id/members", s.OrgContext(), s.Authorize(authorization.ObjectMembership, authorization.ActionRead), s.ListMembers)
		orgs.POST("/:org_id/members", s.OrgContext(), s.Authorize(authorization.ObjectMembership, authorization.ActionWrite), s.AddMember)
	}

	// Org-scoped resources resolve the tenant from the X-Org-ID header.
	scoped := api.Group("", s.WebAuthRequired(), s.OrgContext())
	{
		scoped.GET("/subscriptions", s.Authorize(authorization.ObjectSubscription, authorization.ActionRead), s.ListSubscriptions)
		scoped.GET("/subscriptions/active", s.Authorize(authorization.ObjectSubscription, authorization.ActionRead), s.GetActiveSubscription)
		scoped.POST("/subscriptions", s.Authorize(authorization.ObjectSubscription, authorization.ActionWrite), s.ChangePlan)
		scoped.POST("/subscriptions/cancel", s.Authorize(authorization.ObjectSubscription, authorization.ActionWrite), s.CancelSubscription)

		scoped.GET("/branches", s.Authorize(authorization.ObjectBranch, authorization.ActionRead), s.ListBranches)
		scoped.POST("/branches", s.Authorize(authorization.ObjectBranch, authorization.ActionWrite), s.CreateBranch)
		scoped.GET("/branches/:id", s.Authorize(authorization.ObjectBranch, authorization.ActionRead), s.GetBranch)
		scoped.PATCH("/branches/:id", s.Authorize(authorization.ObjectBranch, authorization.ActionWrite), s.RenameBranch)
		scoped.DELETE("/branches/:id", s.Authorize(authorization.ObjectBranch, authorization.ActionWrite), s.DeleteBranch)

		scoped.GET("/menu-items", s.Authorize(authorization.ObjectMenuItem, authorization.ActionRead), s.ListMenuItems)
		scoped.POST("/menu-items", s.Authorize(authorization.ObjectMenuItem, authorization.ActionWrite), s.CreateMenuItem)
		scoped.GET("/menu-items/:id", s.Authorize(authorization.ObjectMenuItem, authorization.ActionRead), s.GetMenuItem)
		scoped.PATCH("/menu-items/:id", s.Authorize(authorization.ObjectMenuItem, authorization.ActionWrite), s.UpdateMenuItem)
		scoped.DELETE("/menu-items/:id", s.Authorize(authorization.ObjectMenuItem, authorization.ActionWrite), s.DeleteMenuItem)
	}

	if s.cfg.Environment != "production" {
		api.POST("/test/cleanup", s.TestCleanup)
	}
}
