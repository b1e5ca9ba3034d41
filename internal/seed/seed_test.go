package seed

import (
	"testing"

	plandomain "github.com/smallbiznis/warung/internal/plan/domain"
	"github.com/smallbiznis/warung/pkg/db"
)

func TestEnsureFreePlanIdempotent(t *testing.T) {
	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&plandomain.Plan{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := EnsureFreePlan(dbConn); err != nil {
			t.Fatalf("failed to seed on attempt %d: %v", i, err)
		}
	}

	var count int64
	if err := dbConn.Model(&plandomain.Plan{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count plans: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 plan, got %d", count)
	}

	var plan plandomain.Plan
	if err := dbConn.First(&plan, "id = ?", "free").Error; err != nil {
		t.Fatalf("failed to read free plan: %v", err)
	}
	if plan.MonthlyPriceCents != 0 {
		t.Fatalf("expected free plan price 0, got %d", plan.MonthlyPriceCents)
	}
}

func TestEnsureFreePlanRequiresDB(t *testing.T) {
	if err := EnsureFreePlan(nil); err == nil {
		t.Fatal("expected error for nil db")
	}
}
