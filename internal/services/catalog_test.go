package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/models"
)

func newCatalogFixture(t *testing.T) (*CatalogService, *mockProduct, *inventory.Store, *[]uuid.UUID) {
	t.Helper()
	store, err := inventory.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	products := newMockProduct()
	var enqueued []uuid.UUID
	enqueue := func(_ context.Context, _ pgx.Tx, id uuid.UUID) error {
		enqueued = append(enqueued, id)
		return nil
	}
	return NewCatalogService(&mockPool{}, products, store, enqueue, nil), products, store, &enqueued
}

func TestCatalog_UploadInventoryResetsCounters(t *testing.T) {
	svc, products, store, enqueued := newCatalogFixture(t)
	ctx := context.Background()

	p := &models.Product{Name: "Spotify", Price: 30}
	if err := svc.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	products.products[p.ID].SoldCount = 7

	got, err := svc.UploadInventory(ctx, p.ID, strings.NewReader("a:1\n\nb:2\n  c:3  \n"))
	if err != nil {
		t.Fatalf("UploadInventory: %v", err)
	}
	if got.Stock != 3 || got.SoldCount != 0 {
		t.Errorf("returned counters: stock %d sold %d", got.Stock, got.SoldCount)
	}
	stored := products.get(p.ID)
	if stored.Stock != 3 || stored.SoldCount != 0 || !stored.HasInventory() || *stored.InventoryFile != inventory.FileName(p.ID) {
		t.Errorf("stored product: %+v", stored)
	}
	if n, _ := store.Count(*stored.InventoryFile); n != 3 {
		t.Errorf("file count: %d", n)
	}
	if len(*enqueued) != 1 || (*enqueued)[0] != p.ID {
		t.Errorf("reconciliation not enqueued: %v", *enqueued)
	}

	raw, err := svc.Inventory(ctx, p.ID)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if string(raw) != "a:1\nb:2\nc:3\n" {
		t.Errorf("download: %q", raw)
	}
}

func TestCatalog_DeleteRemovesFile(t *testing.T) {
	svc, products, store, _ := newCatalogFixture(t)
	ctx := context.Background()

	p := &models.Product{Name: "Canva", Price: 10}
	_ = svc.Create(ctx, p)
	if _, err := svc.UploadInventory(ctx, p.ID, strings.NewReader("x\n")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := products.products[p.ID]; ok {
		t.Error("product row not deleted")
	}
	if _, err := store.Read(inventory.FileName(p.ID)); !errors.Is(err, inventory.ErrNotExist) {
		t.Errorf("inventory file still present: %v", err)
	}
}

func TestCatalog_Validation(t *testing.T) {
	svc, _, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	if err := svc.Create(ctx, &models.Product{Name: "x", Price: -1}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative price: %v", err)
	}
	if _, err := svc.UploadInventory(ctx, uuid.New(), strings.NewReader("a")); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown product: %v", err)
	}

	p := &models.Product{Name: "Empty", Price: 5}
	_ = svc.Create(ctx, p)
	if _, err := svc.Inventory(ctx, p.ID); !errors.Is(err, ErrNoInventory) {
		t.Errorf("download without file: %v", err)
	}
}

func TestCatalog_Update(t *testing.T) {
	svc, _, _, _ := newCatalogFixture(t)
	ctx := context.Background()

	p := &models.Product{Name: "Old", Price: 5}
	_ = svc.Create(ctx, p)
	got, err := svc.Update(ctx, &models.Product{ID: p.ID, Name: "New", Price: 9})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Name != "New" || got.Price != 9 {
		t.Errorf("updated: %+v", got)
	}
}

func TestCatalog_UploadInventoryCommitFailureKeepsFile(t *testing.T) {
	store, err := inventory.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pool := &mockPool{}
	products := newMockProduct()
	svc := NewCatalogService(pool, products, store, nil, nil)
	ctx := context.Background()

	fresh := &models.Product{Name: "Disney+", Price: 20}
	_ = svc.Create(ctx, fresh)
	stocked := &models.Product{Name: "Hulu", Price: 20}
	_ = svc.Create(ctx, stocked)
	if _, err := svc.UploadInventory(ctx, stocked.ID, strings.NewReader("old\n")); err != nil {
		t.Fatal(err)
	}

	pool.commitErr = errCommit
	if _, err := svc.UploadInventory(ctx, stocked.ID, strings.NewReader("new1\nnew2\n")); !errors.Is(err, errCommit) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if raw, _ := store.Read(inventory.FileName(stocked.ID)); string(raw) != "old\n" {
		t.Errorf("live file replaced by uncommitted upload: %q", raw)
	}

	if _, err := svc.UploadInventory(ctx, fresh.ID, strings.NewReader("x\n")); !errors.Is(err, errCommit) {
		t.Fatalf("expected commit error, got %v", err)
	}
	if _, err := store.Read(inventory.FileName(fresh.ID)); !errors.Is(err, inventory.ErrNotExist) {
		t.Errorf("uncommitted first upload left a file: %v", err)
	}

	// Both file locks and row locks are released.
	pool.commitErr = nil
	if _, err := svc.UploadInventory(ctx, fresh.ID, strings.NewReader("y\n")); err != nil {
		t.Fatalf("upload after failure: %v", err)
	}
}
