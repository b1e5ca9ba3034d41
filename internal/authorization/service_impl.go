package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obsmetrics "github.com/smallbiznis/warung/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization = "organization"
	ObjectMembership   = "membership"
	ObjectPlan         = "plan"
	ObjectSubscription = "subscription"
	ObjectBranch       = "branch"
	ObjectMenuItem     = "menu_item"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	metrics  *obsmetrics.Metrics
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		metrics:  p.Metrics,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, orgID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidOrganization
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, orgID)
	if err != nil {
		s.record(ctx, object, action, "denied")
		return err
	}

	domain := fmt.Sprintf("org:%s", orgID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.record(ctx, object, action, "denied")
		return ErrForbidden
	}

	s.record(ctx, object, action, "allowed")
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, orgID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedOrgID, err := snowflake.ParseString(orgID)
		if err != nil || parsedOrgID == 0 {
			return "", "", ErrInvalidOrganization
		}
		role, err := s.roleForUser(ctx, parsedOrgID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

// roleForUser resolves the membership role with a fresh query on every call.
// Role changes take effect on the next request.
func (s *ServiceImpl) roleForUser(ctx context.Context, orgID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM memberships
		 WHERE org_id = ? AND user_id = ?
		 LIMIT 1`,
		orgID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) record(ctx context.Context, object, action, decision string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordAuthzDecision(ctx, object, action, decision)
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	orgScoped := []string{
		ObjectOrganization,
		ObjectMembership,
		ObjectSubscription,
		ObjectBranch,
		ObjectMenuItem,
	}
	memberRoles := []string{"role:owner", "role:admin", "role:manager", "role:staff", "role:viewer"}

	policies := make([][]string, 0, 64)

	// Every member role can read every org-scoped object; the plan catalog
	// is readable by any member as well.
	for _, role := range memberRoles {
		for _, object := range orgScoped {
			policies = append(policies, []string{role, object, ActionRead})
		}
		policies = append(policies, []string{role, ObjectPlan, ActionRead})
	}

	// Tenancy objects are writable by owner and admin only.
	for _, role := range []string{"role:owner", "role:admin"} {
		policies = append(policies,
			[]string{role, ObjectOrganization, ActionWrite},
			[]string{role, ObjectMembership, ActionWrite},
			[]string{role, ObjectSubscription, ActionWrite},
		)
	}

	// Operational objects additionally writable by managers.
	for _, role := range []string{"role:owner", "role:admin", "role:manager"} {
		policies = append(policies,
			[]string{role, ObjectBranch, ActionWrite},
			[]string{role, ObjectMenuItem, ActionWrite},
		)
	}

	// The system role backs provisioning and may touch everything. No
	// member role may write the plan catalog.
	for _, object := range append(orgScoped, ObjectPlan) {
		policies = append(policies,
			[]string{"role:system", object, ActionRead},
			[]string{"role:system", object, ActionWrite},
		)
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
