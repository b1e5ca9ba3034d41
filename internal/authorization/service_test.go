package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/warung/internal/organization/domain"
	"github.com/smallbiznis/warung/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthz(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&orgdomain.Membership{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	enforcer, err := NewEnforcer(dbConn)
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	svc := NewService(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return svc, dbConn, node
}

func addMembership(t *testing.T, dbConn *gorm.DB, node *snowflake.Node, orgID, userID snowflake.ID, role string) {
	t.Helper()
	if err := dbConn.Create(&orgdomain.Membership{
		ID:        node.Generate(),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("failed to insert membership: %v", err)
	}
}

func TestRoleTiers(t *testing.T) {
	svc, dbConn, node := newTestAuthz(t)

	orgID := node.Generate()
	viewer := node.Generate()
	manager := node.Generate()
	owner := node.Generate()
	addMembership(t, dbConn, node, orgID, viewer, orgdomain.RoleViewer)
	addMembership(t, dbConn, node, orgID, manager, orgdomain.RoleManager)
	addMembership(t, dbConn, node, orgID, owner, orgdomain.RoleOwner)

	ctx := context.Background()
	org := orgID.String()

	// Every member may read.
	for _, userID := range []snowflake.ID{viewer, manager, owner} {
		if err := svc.Authorize(ctx, "user:"+userID.String(), org, ObjectMenuItem, ActionRead); err != nil {
			t.Fatalf("expected read allowed for %s: %v", userID, err)
		}
	}

	// Viewers may not write.
	if err := svc.Authorize(ctx, "user:"+viewer.String(), org, ObjectMenuItem, ActionWrite); err != ErrForbidden {
		t.Fatalf("expected viewer write denied, got %v", err)
	}

	// Managers write operational objects but not tenancy objects.
	if err := svc.Authorize(ctx, "user:"+manager.String(), org, ObjectMenuItem, ActionWrite); err != nil {
		t.Fatalf("expected manager menu write allowed: %v", err)
	}
	if err := svc.Authorize(ctx, "user:"+manager.String(), org, ObjectSubscription, ActionWrite); err != ErrForbidden {
		t.Fatalf("expected manager subscription write denied, got %v", err)
	}

	// Owners write everything org-scoped, but never the plan catalog.
	if err := svc.Authorize(ctx, "user:"+owner.String(), org, ObjectSubscription, ActionWrite); err != nil {
		t.Fatalf("expected owner subscription write allowed: %v", err)
	}
	if err := svc.Authorize(ctx, "user:"+owner.String(), org, ObjectPlan, ActionWrite); err != ErrForbidden {
		t.Fatalf("expected owner plan write denied, got %v", err)
	}
}

func TestNoMembershipDefaultDeny(t *testing.T) {
	svc, _, node := newTestAuthz(t)

	err := svc.Authorize(context.Background(), "user:"+node.Generate().String(), node.Generate().String(), ObjectBranch, ActionRead)
	if err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSystemActorAllowed(t *testing.T) {
	svc, _, node := newTestAuthz(t)

	if err := svc.Authorize(context.Background(), "system", node.Generate().String(), ObjectOrganization, ActionWrite); err != nil {
		t.Fatalf("expected system write allowed: %v", err)
	}
}

func TestRoleChangeTakesEffectNextCall(t *testing.T) {
	svc, dbConn, node := newTestAuthz(t)

	orgID := node.Generate()
	userID := node.Generate()
	addMembership(t, dbConn, node, orgID, userID, orgdomain.RoleViewer)

	ctx := context.Background()
	if err := svc.Authorize(ctx, "user:"+userID.String(), orgID.String(), ObjectBranch, ActionWrite); err != ErrForbidden {
		t.Fatalf("expected viewer write denied, got %v", err)
	}

	if err := dbConn.Exec(
		`UPDATE memberships SET role = ? WHERE org_id = ? AND user_id = ?`,
		orgdomain.RoleManager, orgID, userID,
	).Error; err != nil {
		t.Fatalf("failed to update role: %v", err)
	}

	if err := svc.Authorize(ctx, "user:"+userID.String(), orgID.String(), ObjectBranch, ActionWrite); err != nil {
		t.Fatalf("expected manager write allowed after role change: %v", err)
	}
}

func TestInvalidActor(t *testing.T) {
	svc, _, node := newTestAuthz(t)

	if err := svc.Authorize(context.Background(), "api_key:123", node.Generate().String(), ObjectBranch, ActionRead); err != ErrInvalidActor {
		t.Fatalf("expected ErrInvalidActor, got %v", err)
	}
}
