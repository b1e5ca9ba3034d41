package provision

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	branchdomain "github.com/smallbiznis/warung/internal/branch/domain"
	branchrepository "github.com/smallbiznis/warung/internal/branch/repository"
	orgdomain "github.com/smallbiznis/warung/internal/organization/domain"
	orgrepository "github.com/smallbiznis/warung/internal/organization/repository"
	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	planrepository "github.com/smallbiznis/warung/internal/plan/repository"
	subscriptiondomain "github.com/smallbiznis/warung/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/warung/internal/subscription/repository"
	"github.com/smallbiznis/warung/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fixture struct {
	svc    Service
	db     *gorm.DB
	node   *snowflake.Node
	orgs   orgdomain.Repository
	branch branchdomain.Repository
}

func newFixture(t *testing.T, seedPlan bool) *fixture {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.Membership{},
		&plandomain.Plan{},
		&subscriptiondomain.Subscription{},
		&branchdomain.Branch{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX ux_memberships_primary ON memberships (user_id) WHERE is_primary`,
		`CREATE UNIQUE INDEX ux_subscriptions_org_active ON subscriptions (org_id) WHERE status = 'active'`,
	} {
		if err := dbConn.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create index: %v", err)
		}
	}

	if seedPlan {
		if err := dbConn.Create(&plandomain.Plan{
			ID:        "free",
			Name:      "Free",
			Features:  datatypes.JSONMap{},
			CreatedAt: time.Now().UTC(),
		}).Error; err != nil {
			t.Fatalf("failed to seed plan: %v", err)
		}
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	orgs := orgrepository.NewRepository(dbConn)
	branches := branchrepository.NewRepository(dbConn)
	svc := NewService(
		dbConn,
		orgs,
		subscriptionrepository.NewRepository(dbConn),
		branches,
		planrepository.NewRepository(dbConn),
		node,
		nil,
		zap.NewNop(),
	)

	return &fixture{svc: svc, db: dbConn, node: node, orgs: orgs, branch: branches}
}

func TestProvisionFreshUser(t *testing.T) {
	f := newFixture(t, true)
	userID := f.node.Generate()

	result, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "Warung Sinar")
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}
	if !result.Created {
		t.Fatal("expected new organization")
	}
	if result.OrgID == 0 || result.BranchID == 0 {
		t.Fatalf("expected ids, got %+v", result)
	}

	member, err := f.orgs.FirstMembershipByUser(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to read membership: %v", err)
	}
	if member == nil || member.Role != orgdomain.RoleOwner || !member.IsPrimary {
		t.Fatalf("expected primary owner membership, got %+v", member)
	}

	var subscription subscriptiondomain.Subscription
	if err := f.db.Where("org_id = ?", result.OrgID).First(&subscription).Error; err != nil {
		t.Fatalf("failed to read subscription: %v", err)
	}
	if subscription.PlanID != "free" || subscription.Status != subscriptiondomain.SubscriptionStatusActive {
		t.Fatalf("expected active free subscription, got %+v", subscription)
	}

	branches, err := f.branch.ListByOrg(context.Background(), result.OrgID)
	if err != nil {
		t.Fatalf("failed to list branches: %v", err)
	}
	if len(branches) != 1 || branches[0].Name != DefaultBranchName {
		t.Fatalf("expected default branch, got %+v", branches)
	}
}

func TestProvisionIdempotent(t *testing.T) {
	f := newFixture(t, true)
	userID := f.node.Generate()

	first, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	second, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "Another Name")
	if err != nil {
		t.Fatalf("failed to provision again: %v", err)
	}
	if second.Created {
		t.Fatal("expected existing organization on second call")
	}
	if second.OrgID != first.OrgID {
		t.Fatalf("expected same org, got %s and %s", first.OrgID, second.OrgID)
	}

	var count int64
	if err := f.db.Model(&orgdomain.Organization{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count organizations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 organization, got %d", count)
	}
}

func TestProvisionInvitedUserAdoptsExistingOrg(t *testing.T) {
	f := newFixture(t, true)
	owner := f.node.Generate()
	invitee := f.node.Generate()

	first, err := f.svc.ProvisionFirstOrg(context.Background(), owner, "Warung Induk")
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	// Invites never carry the primary flag; the membership alone makes
	// the org the invitee's first org.
	if err := f.orgs.AddMembership(context.Background(), orgdomain.Membership{
		ID:        f.node.Generate(),
		OrgID:     first.OrgID,
		UserID:    invitee,
		Role:      orgdomain.RoleStaff,
		IsPrimary: false,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		t.Fatalf("failed to add membership: %v", err)
	}

	result, err := f.svc.ProvisionFirstOrg(context.Background(), invitee, "Warung Baru")
	if err != nil {
		t.Fatalf("failed to provision invitee: %v", err)
	}
	if result.Created {
		t.Fatal("expected invitee to adopt existing organization")
	}
	if result.OrgID != first.OrgID {
		t.Fatalf("expected org %s, got %s", first.OrgID, result.OrgID)
	}

	var count int64
	if err := f.db.Model(&orgdomain.Organization{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count organizations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 organization, got %d", count)
	}
}

func TestProvisionDefaultName(t *testing.T) {
	f := newFixture(t, true)

	result, err := f.svc.ProvisionFirstOrg(context.Background(), f.node.Generate(), "   ")
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	var org orgdomain.Organization
	if err := f.db.First(&org, "id = ?", result.OrgID).Error; err != nil {
		t.Fatalf("failed to read organization: %v", err)
	}
	if org.Name != DefaultOrgName {
		t.Fatalf("expected default name, got %q", org.Name)
	}
}

func TestProvisionBackfillsBranch(t *testing.T) {
	f := newFixture(t, true)
	userID := f.node.Generate()

	result, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "Warung Kita")
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	if err := f.db.Exec(`DELETE FROM branches WHERE org_id = ?`, result.OrgID).Error; err != nil {
		t.Fatalf("failed to delete branches: %v", err)
	}

	again, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "")
	if err != nil {
		t.Fatalf("failed to provision again: %v", err)
	}
	if again.Created {
		t.Fatal("expected existing organization")
	}
	if again.BranchID == 0 {
		t.Fatal("expected backfilled branch")
	}

	branches, err := f.branch.ListByOrg(context.Background(), result.OrgID)
	if err != nil {
		t.Fatalf("failed to list branches: %v", err)
	}
	if len(branches) != 1 {
		t.Fatalf("expected 1 branch, got %d", len(branches))
	}
}

func TestProvisionUnauthenticated(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.ProvisionFirstOrg(context.Background(), 0, "Warung")
	if err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestProvisionMissingPlan(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.ProvisionFirstOrg(context.Background(), f.node.Generate(), "Warung")
	if err != ErrMissingPlan {
		t.Fatalf("expected ErrMissingPlan, got %v", err)
	}
}

func TestProvisionConcurrentSameUser(t *testing.T) {
	f := newFixture(t, true)
	userID := f.node.Generate()

	const workers = 5
	results := make(chan *Result, workers)
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "Warung")
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("failed to provision concurrently: %v", err)
	}

	var orgID snowflake.ID
	for result := range results {
		if orgID == 0 {
			orgID = result.OrgID
		}
		if result.OrgID != orgID {
			t.Fatalf("expected all callers to converge on one org, got %s and %s", orgID, result.OrgID)
		}
	}

	var count int64
	if err := f.db.Model(&orgdomain.Organization{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count organizations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 organization, got %d", count)
	}
}

func TestActiveSubscriptionIndexBlocksSecond(t *testing.T) {
	f := newFixture(t, true)

	result, err := f.svc.ProvisionFirstOrg(context.Background(), f.node.Generate(), "Warung")
	if err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	err = f.db.Exec(
		`INSERT INTO subscriptions (id, org_id, plan_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		f.node.Generate(), result.OrgID, "free", subscriptiondomain.SubscriptionStatusActive, time.Now().UTC(),
	).Error
	if err == nil {
		t.Fatal("expected second active subscription to violate unique index")
	}
	if !db.IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}

func TestPrimaryMembershipIndexBlocksSecond(t *testing.T) {
	f := newFixture(t, true)
	userID := f.node.Generate()

	if _, err := f.svc.ProvisionFirstOrg(context.Background(), userID, "Warung"); err != nil {
		t.Fatalf("failed to provision: %v", err)
	}

	err := f.db.Exec(
		`INSERT INTO memberships (id, org_id, user_id, role, is_primary, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		f.node.Generate(), f.node.Generate(), userID, orgdomain.RoleOwner, true, time.Now().UTC(),
	).Error
	if err == nil {
		t.Fatal("expected second primary membership to violate unique index")
	}
	if !db.IsDuplicateKeyErr(err) {
		t.Fatalf("expected duplicate key error, got %v", err)
	}
}
