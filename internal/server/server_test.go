package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/warung/internal/auth/domain"
	authrepository "github.com/smallbiznis/warung/internal/auth/repository"
	authservice "github.com/smallbiznis/warung/internal/auth/service"
	"github.com/smallbiznis/warung/internal/auth/session"
	"github.com/smallbiznis/warung/internal/authorization"
	branchdomain "github.com/smallbiznis/warung/internal/branch/domain"
	branchrepository "github.com/smallbiznis/warung/internal/branch/repository"
	branchservice "github.com/smallbiznis/warung/internal/branch/service"
	"github.com/smallbiznis/warung/internal/config"
	menudomain "github.com/smallbiznis/warung/internal/menu/domain"
	menurepository "github.com/smallbiznis/warung/internal/menu/repository"
	menuservice "github.com/smallbiznis/warung/internal/menu/service"
	"github.com/smallbiznis/warung/internal/observability"
	orgdomain "github.com/smallbiznis/warung/internal/organization/domain"
	"github.com/smallbiznis/warung/internal/organization/event"
	orgrepository "github.com/smallbiznis/warung/internal/organization/repository"
	orgservice "github.com/smallbiznis/warung/internal/organization/service"
	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	planrepository "github.com/smallbiznis/warung/internal/plan/repository"
	"github.com/smallbiznis/warung/internal/provision"
	"github.com/smallbiznis/warung/internal/ratelimit"
	"github.com/smallbiznis/warung/internal/seed"
	subscriptiondomain "github.com/smallbiznis/warung/internal/subscription/domain"
	subscriptionrepository "github.com/smallbiznis/warung/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/warung/internal/subscription/service"
	"github.com/smallbiznis/warung/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	t   *testing.T
	srv *Server
	db  *gorm.DB
}

func newTestServer(t *testing.T, limiter *ratelimit.TokenBucket) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&orgdomain.Organization{},
		&orgdomain.Membership{},
		&plandomain.Plan{},
		&subscriptiondomain.Subscription{},
		&branchdomain.Branch{},
		&menudomain.MenuItem{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	for _, stmt := range []string{
		`CREATE UNIQUE INDEX ux_memberships_primary ON memberships (user_id) WHERE is_primary`,
		`CREATE UNIQUE INDEX ux_subscriptions_org_active ON subscriptions (org_id) WHERE status = 'active'`,
		`CREATE TABLE events (
			id INTEGER PRIMARY KEY,
			org_id INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT NOT NULL,
			published BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL
		)`,
	} {
		if err := dbConn.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to prepare schema: %v", err)
		}
	}
	if err := seed.EnsureFreePlan(dbConn); err != nil {
		t.Fatalf("failed to seed free plan: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	log := zap.NewNop()

	enforcer, err := authorization.NewEnforcer(dbConn)
	if err != nil {
		t.Fatalf("failed to create enforcer: %v", err)
	}
	authzSvc := authorization.NewService(authorization.Params{
		DB:       dbConn,
		Log:      log,
		Enforcer: enforcer,
	})

	userRepo, sessionRepo := authrepository.New(dbConn)
	authsvc := authservice.New(log, userRepo, sessionRepo, node)

	orgRepo := orgrepository.NewRepository(dbConn)
	planRepo := planrepository.NewRepository(dbConn)
	subRepo := subscriptionrepository.NewRepository(dbConn)
	branchRepo := branchrepository.NewRepository(dbConn)
	menuRepo := menurepository.NewRepository(dbConn)
	publisher := event.NewOutboxPublisher(dbConn, node)

	engine := NewEngine(observability.Config{
		ServiceName: "warung",
		Environment: "test",
		LogLevel:    "error",
	}, nil)

	srv := NewServer(ServerParams{
		Gin:             engine,
		Cfg:             config.Config{Environment: "test"},
		DB:              dbConn,
		Authsvc:         authsvc,
		Sessions:        session.NewManager(config.Config{}),
		GenID:           node,
		AuthzSvc:        authzSvc,
		OrganizationSvc: orgservice.NewService(dbConn, orgRepo, node),
		PlanRepo:        planRepo,
		SubscriptionSvc: subscriptionservice.NewService(dbConn, subRepo, planRepo, node),
		BranchSvc:       branchservice.NewService(dbConn, branchRepo, node),
		MenuSvc:         menuservice.NewService(dbConn, menuRepo, node),
		ProvisionSvc:    provision.NewService(dbConn, orgRepo, subRepo, branchRepo, planRepo, node, publisher, log),
		Limiter:         limiter,
	})

	return &testServer{t: t, srv: srv, db: dbConn}
}

func (ts *testServer) do(method, path string, body any, cookie string, headers map[string]string) *httptest.ResponseRecorder {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			ts.t.Fatalf("failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: cookie})
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	res := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(res, req)
	return res
}

func (ts *testServer) decode(res *httptest.ResponseRecorder, out any) {
	ts.t.Helper()
	if err := json.Unmarshal(res.Body.Bytes(), out); err != nil {
		ts.t.Fatalf("failed to decode response %q: %v", res.Body.String(), err)
	}
}

func (ts *testServer) signup(email string) (string, string) {
	ts.t.Helper()

	res := ts.do(http.MethodPost, "/auth/signup", gin.H{
		"email":    email,
		"password": "correct horse battery",
	}, "", nil)
	if res.Code != http.StatusCreated {
		ts.t.Fatalf("signup failed with status %d: %s", res.Code, res.Body.String())
	}

	var user UserResponse
	ts.decode(res, &user)

	for _, c := range res.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c.Value, user.ID
		}
	}
	ts.t.Fatal("expected session cookie on signup")
	return "", ""
}

func (ts *testServer) provision(cookie string) ProvisionResponse {
	ts.t.Helper()

	res := ts.do(http.MethodPost, "/api/provision", nil, cookie, nil)
	if res.Code != http.StatusCreated && res.Code != http.StatusOK {
		ts.t.Fatalf("provision failed with status %d: %s", res.Code, res.Body.String())
	}

	var out ProvisionResponse
	ts.decode(res, &out)
	return out
}

func orgHeader(orgID string) map[string]string {
	return map[string]string{HeaderOrg: orgID}
}

func TestSignupProvisionFlow(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie, _ := ts.signup("owner@example.com")

	first := ts.provision(cookie)
	if !first.Created || first.OrgID == "" || first.BranchID == "" {
		t.Fatalf("expected fresh provision, got %+v", first)
	}

	second := ts.provision(cookie)
	if second.Created {
		t.Fatal("expected second provision to reuse the organization")
	}
	if second.OrgID != first.OrgID {
		t.Fatalf("expected same org, got %s and %s", first.OrgID, second.OrgID)
	}

	res := ts.do(http.MethodGet, "/auth/user/orgs", nil, cookie, nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var orgsBody struct {
		Orgs []orgdomain.OrganizationListResponseItem `json:"orgs"`
	}
	ts.decode(res, &orgsBody)
	if len(orgsBody.Orgs) != 1 || orgsBody.Orgs[0].Role != orgdomain.RoleOwner {
		t.Fatalf("expected one owner org, got %+v", orgsBody.Orgs)
	}

	res = ts.do(http.MethodGet, "/api/branches", nil, cookie, orgHeader(first.OrgID))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var branchesBody struct {
		Branches []branchdomain.BranchResponse `json:"branches"`
	}
	ts.decode(res, &branchesBody)
	if len(branchesBody.Branches) != 1 || branchesBody.Branches[0].Name != provision.DefaultBranchName {
		t.Fatalf("expected one default branch, got %+v", branchesBody.Branches)
	}

	res = ts.do(http.MethodGet, "/api/subscriptions/active", nil, cookie, orgHeader(first.OrgID))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var sub subscriptiondomain.SubscriptionResponse
	ts.decode(res, &sub)
	if sub.PlanID != "free" || sub.Status != string(subscriptiondomain.SubscriptionStatusActive) {
		t.Fatalf("expected active free subscription, got %+v", sub)
	}
}

func TestProvisionRequiresAuth(t *testing.T) {
	ts := newTestServer(t, nil)

	res := ts.do(http.MethodPost, "/api/provision", nil, "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.Code, res.Body.String())
	}
}

func TestPlansArePublic(t *testing.T) {
	ts := newTestServer(t, nil)

	res := ts.do(http.MethodGet, "/api/plans", nil, "", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Plans []PlanResponse `json:"plans"`
	}
	ts.decode(res, &body)
	if len(body.Plans) != 1 || body.Plans[0].ID != "free" {
		t.Fatalf("expected free plan, got %+v", body.Plans)
	}
}

func TestTenantIsolation(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie1, _ := ts.signup("first@example.com")
	cookie2, _ := ts.signup("second@example.com")
	org1 := ts.provision(cookie1)
	org2 := ts.provision(cookie2)

	res := ts.do(http.MethodPost, "/api/menu-items", gin.H{
		"name":        "Nasi Goreng",
		"price_cents": 2500,
	}, cookie1, orgHeader(org1.OrgID))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	// A non-member probing another tenant's data sees not found, not
	// forbidden.
	res = ts.do(http.MethodGet, "/api/menu-items", nil, cookie2, orgHeader(org1.OrgID))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for cross-tenant read, got %d: %s", res.Code, res.Body.String())
	}

	res = ts.do(http.MethodGet, "/api/menu-items", nil, cookie2, orgHeader(org2.OrgID))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body menudomain.ListMenuItemsResponse
	ts.decode(res, &body)
	if len(body.Items) != 0 {
		t.Fatalf("expected empty menu for second tenant, got %+v", body.Items)
	}
}

func TestViewerCannotWrite(t *testing.T) {
	ts := newTestServer(t, nil)
	ownerCookie, _ := ts.signup("boss@example.com")
	viewerCookie, viewerID := ts.signup("viewer@example.com")
	org := ts.provision(ownerCookie)

	res := ts.do(http.MethodPost, "/api/orgs/"+org.OrgID+"/members", gin.H{
		"user_id": viewerID,
		"role":    orgdomain.RoleViewer,
	}, ownerCookie, nil)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	res = ts.do(http.MethodGet, "/api/menu-items", nil, viewerCookie, orgHeader(org.OrgID))
	if res.Code != http.StatusOK {
		t.Fatalf("expected viewer read allowed, got %d: %s", res.Code, res.Body.String())
	}

	res = ts.do(http.MethodPost, "/api/menu-items", gin.H{
		"name":        "Es Teh",
		"price_cents": 500,
	}, viewerCookie, orgHeader(org.OrgID))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer write, got %d: %s", res.Code, res.Body.String())
	}
}

func TestChangePlanOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie, _ := ts.signup("upgrade@example.com")
	org := ts.provision(cookie)

	if err := ts.db.Create(&plandomain.Plan{
		ID:                "pro",
		Name:              "Pro",
		MonthlyPriceCents: 9900,
		Features:          map[string]any{"max_branches": 10},
		CreatedAt:         time.Now().UTC(),
	}).Error; err != nil {
		t.Fatalf("failed to seed pro plan: %v", err)
	}

	res := ts.do(http.MethodPost, "/api/subscriptions", gin.H{"plan_id": "pro"}, cookie, orgHeader(org.OrgID))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}

	res = ts.do(http.MethodPost, "/api/subscriptions", gin.H{"plan_id": "pro"}, cookie, orgHeader(org.OrgID))
	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409 for same plan, got %d: %s", res.Code, res.Body.String())
	}

	res = ts.do(http.MethodGet, "/api/subscriptions", nil, cookie, orgHeader(org.OrgID))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body struct {
		Subscriptions []subscriptiondomain.SubscriptionResponse `json:"subscriptions"`
	}
	ts.decode(res, &body)
	if len(body.Subscriptions) != 2 {
		t.Fatalf("expected canceled free + active pro, got %+v", body.Subscriptions)
	}
}

func TestLoginRateLimited(t *testing.T) {
	limiter, err := ratelimit.NewTokenBucket(0.1, 2, nil)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	ts := newTestServer(t, limiter)

	body := gin.H{"email": "nobody@example.com", "password": "wrong"}
	for i := 0; i < 2; i++ {
		res := ts.do(http.MethodPost, "/auth/login", body, "", nil)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d: %s", res.Code, res.Body.String())
		}
	}

	res := ts.do(http.MethodPost, "/auth/login", body, "", nil)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t, nil)
	cookie, _ := ts.signup("bye@example.com")

	res := ts.do(http.MethodPost, "/auth/logout", nil, cookie, nil)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", res.Code, res.Body.String())
	}

	res = ts.do(http.MethodGet, "/auth/me", nil, cookie, nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d: %s", res.Code, res.Body.String())
	}
}
