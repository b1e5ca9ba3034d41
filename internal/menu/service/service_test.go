package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/warung/internal/menu/domain"
	"github.com/smallbiznis/warung/internal/menu/repository"
	"github.com/smallbiznis/warung/pkg/db"
	"github.com/smallbiznis/warung/pkg/db/pagination"
)

func newTestService(t *testing.T) (domain.Service, *snowflake.Node) {
	t.Helper()

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.MenuItem{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	return NewService(dbConn, repository.NewRepository(dbConn), node), node
}

func TestListScopedToOrganization(t *testing.T) {
	svc, node := newTestService(t)

	orgA := node.Generate()
	orgB := node.Generate()

	if _, err := svc.Create(context.Background(), orgA, domain.CreateMenuItemRequest{Name: "Nasi Goreng", PriceCents: 2500}); err != nil {
		t.Fatalf("failed to create menu item: %v", err)
	}

	items, err := svc.List(context.Background(), orgB, domain.ListMenuItemsRequest{})
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(items.Items) != 0 {
		t.Fatalf("expected empty list for other org, got %d", len(items.Items))
	}
}

func TestListCursorPagination(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	for i := 0; i < 5; i++ {
		if _, err := svc.Create(context.Background(), orgID, domain.CreateMenuItemRequest{
			Name:       fmt.Sprintf("Item %d", i),
			PriceCents: int64(1000 + i),
		}); err != nil {
			t.Fatalf("failed to create menu item: %v", err)
		}
	}

	first, err := svc.List(context.Background(), orgID, domain.ListMenuItemsRequest{
		Pagination: pagination.Pagination{PageSize: 2},
	})
	if err != nil {
		t.Fatalf("failed to list first page: %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(first.Items))
	}
	if !first.HasMore {
		t.Fatal("expected more pages")
	}
	if first.NextPageToken == "" {
		t.Fatal("expected next page token")
	}

	second, err := svc.List(context.Background(), orgID, domain.ListMenuItemsRequest{
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	if err != nil {
		t.Fatalf("failed to list second page: %v", err)
	}
	if len(second.Items) != 2 {
		t.Fatalf("expected 2 items on second page, got %d", len(second.Items))
	}
	if second.Items[0].ID == first.Items[0].ID {
		t.Fatal("expected pages not to overlap")
	}
}

func TestListOnlyLiveFilters(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	created, err := svc.Create(context.Background(), orgID, domain.CreateMenuItemRequest{Name: "Es Teh", PriceCents: 500})
	if err != nil {
		t.Fatalf("failed to create menu item: %v", err)
	}
	if _, err := svc.Create(context.Background(), orgID, domain.CreateMenuItemRequest{Name: "Kopi", PriceCents: 800}); err != nil {
		t.Fatalf("failed to create menu item: %v", err)
	}

	itemID, _ := snowflake.ParseString(created.ID)
	inactive := false
	if _, err := svc.Update(context.Background(), orgID, itemID, domain.UpdateMenuItemRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("failed to deactivate item: %v", err)
	}

	live, err := svc.List(context.Background(), orgID, domain.ListMenuItemsRequest{OnlyLive: true})
	if err != nil {
		t.Fatalf("failed to list live items: %v", err)
	}
	if len(live.Items) != 1 {
		t.Fatalf("expected 1 live item, got %d", len(live.Items))
	}
	if live.Items[0].Name != "Kopi" {
		t.Fatalf("unexpected live item %s", live.Items[0].Name)
	}
}

func TestUpdateRejectsNegativePrice(t *testing.T) {
	svc, node := newTestService(t)
	orgID := node.Generate()

	created, err := svc.Create(context.Background(), orgID, domain.CreateMenuItemRequest{Name: "Sate", PriceCents: 3000})
	if err != nil {
		t.Fatalf("failed to create menu item: %v", err)
	}
	itemID, _ := snowflake.ParseString(created.ID)

	negative := int64(-1)
	if _, err := svc.Update(context.Background(), orgID, itemID, domain.UpdateMenuItemRequest{PriceCents: &negative}); err != domain.ErrInvalidPrice {
		t.Fatalf("expected ErrInvalidPrice, got %v", err)
	}
}
