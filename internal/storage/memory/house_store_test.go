package memory

import (
	"context"
	"errors"
	"testing"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

func TestHouseStore_UpsertGetDelete(t *testing.T) {
	store := NewHouseStore()
	ctx := context.Background()

	for _, id := range []string{"h2", "h1"} {
		if err := store.Upsert(ctx, &domain.House{ID: id, Name: "house " + id}); err != nil {
			t.Fatalf("Upsert %s failed: %v", id, err)
		}
	}
	if err := store.Upsert(ctx, &domain.House{ID: "h1", Name: "renamed"}); err != nil {
		t.Fatalf("Upsert replace failed: %v", err)
	}

	got, err := store.GetByID(ctx, "h1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "renamed" {
		t.Errorf("Name = %q, want renamed", got.Name)
	}

	got.Name = "mutated"
	again, _ := store.GetByID(ctx, "h1")
	if again.Name != "renamed" {
		t.Error("GetByID returned shared state")
	}

	all, _ := store.GetAll(ctx)
	if len(all) != 2 || all[0].ID != "h1" || all[1].ID != "h2" {
		t.Errorf("GetAll order wrong: %v", all)
	}

	if err := store.Delete(ctx, "h2"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, "h2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "h2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

func TestHouseStore_InvalidInput(t *testing.T) {
	store := NewHouseStore()
	if err := store.Upsert(context.Background(), &domain.House{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if err := store.Upsert(context.Background(), nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
}
