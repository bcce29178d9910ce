package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/balajivenky06/dandi/internal/domain"
	"github.com/balajivenky06/dandi/internal/storage/memory"
)

const (
	secretA = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	secretB = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
)

func TestStore_InsertAndList(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first, err := store.InsertKey(ctx, &domain.NewKey{Name: "first", Type: domain.KeyTypeDev, Secret: secretA})
	if err != nil {
		t.Fatalf("InsertKey failed: %v", err)
	}
	if first.ID == "" || first.Usage != 0 || first.CreatedAt.IsZero() {
		t.Errorf("store did not assign server fields: %+v", first)
	}

	second, err := store.InsertKey(ctx, &domain.NewKey{Name: "second", Type: domain.KeyTypeProd, Secret: secretB})
	if err != nil {
		t.Fatalf("InsertKey failed: %v", err)
	}

	keys, err := store.ListKeys(ctx)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %d", len(keys))
	}
	if keys[0].ID != second.ID || keys[1].ID != first.ID {
		t.Errorf("Expected newest first, got %s then %s", keys[0].Name, keys[1].Name)
	}

	// Returned records are copies.
	keys[0].Name = "mutated"
	again, _ := store.ListKeys(ctx)
	if again[0].Name != "second" {
		t.Errorf("store state leaked through returned record")
	}
}

func TestStore_DuplicateSecret(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	if _, err := store.InsertKey(ctx, &domain.NewKey{Name: "a", Type: domain.KeyTypeDev, Secret: secretA}); err != nil {
		t.Fatalf("InsertKey failed: %v", err)
	}
	_, err := store.InsertKey(ctx, &domain.NewKey{Name: "b", Type: domain.KeyTypeDev, Secret: secretA})
	if !errors.Is(err, domain.ErrValidationRejected) || !errors.Is(err, domain.ErrDuplicateSecret) {
		t.Fatalf("Expected duplicate secret rejection, got %v", err)
	}
}

func TestStore_InvalidType(t *testing.T) {
	store := memory.New()
	_, err := store.InsertKey(context.Background(), &domain.NewKey{Name: "a", Type: "qa", Secret: secretA})
	if !errors.Is(err, domain.ErrValidationRejected) {
		t.Fatalf("Expected ErrValidationRejected, got %v", err)
	}
}

func TestStore_UpdateDeleteFind(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	rec, _ := store.InsertKey(ctx, &domain.NewKey{Name: "a", Type: domain.KeyTypeDev, Secret: secretA})

	name := "renamed"
	updated, err := store.UpdateKey(ctx, rec.ID, domain.KeyUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateKey failed: %v", err)
	}
	if updated.Name != "renamed" || updated.Type != domain.KeyTypeDev {
		t.Errorf("Unexpected update result: %+v", updated)
	}
	if updated.UpdatedAt.Before(rec.UpdatedAt) {
		t.Errorf("updated_at went backwards")
	}

	if _, err := store.UpdateKey(ctx, "missing", domain.KeyUpdate{Name: &name}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	found, err := store.FindKeyBySecret(ctx, secretA)
	if err != nil || found == nil || found.ID != rec.ID {
		t.Fatalf("FindKeyBySecret = %v, %v", found, err)
	}

	missing, err := store.FindKeyBySecret(ctx, secretB)
	if err != nil || missing != nil {
		t.Fatalf("Expected miss without error, got %v, %v", missing, err)
	}

	used, err := store.IncrementUsage(ctx, rec.ID)
	if err != nil || used.Usage != 1 {
		t.Fatalf("IncrementUsage = %v, %v", used, err)
	}

	if err := store.DeleteKey(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if err := store.DeleteKey(ctx, rec.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
	if found, _ := store.FindKeyBySecret(ctx, secretA); found != nil {
		t.Errorf("deleted key still resolvable by secret")
	}
	if n, _ := store.CountKeys(ctx); n != 0 {
		t.Errorf("Expected 0 keys, got %d", n)
	}
}
