//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sharma-sugurthi/HealthAI/internal/domain/medical"
)

func TestEntryRepoPG(t *testing.T) {
	pool := schemaPool(t, "medical")
	repo := medical.NewEntryRepoPG(pool)
	ctx := context.Background()
	alice := createTestUser(t, pool, "alice")
	bob := createTestUser(t, pool, "bob")

	entries := []*medical.Entry{
		{UserID: alice.ID, Category: medical.CategoryCondition, Name: "asthma", Severity: "mild", Active: true},
		{UserID: alice.ID, Category: medical.CategoryMedication, Name: "albuterol", Detail: "as needed", Active: true},
		{UserID: alice.ID, Category: medical.CategoryAllergy, Name: "penicillin", Detail: "hives", Severity: "severe", Active: true},
	}
	for _, e := range entries {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := repo.SetActive(ctx, alice.ID, entries[1].ID, false, time.Now()); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	active := true
	items, total, err := repo.List(ctx, alice.ID, medical.Filter{Active: &active}, 20, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || items[0].Name != "asthma" || items[1].Name != "penicillin" {
		t.Errorf("unexpected active entries: total=%d %+v", total, items)
	}

	items, total, err = repo.List(ctx, alice.ID, medical.Filter{Category: medical.CategoryMedication}, 20, 0)
	if err != nil {
		t.Fatalf("List by category: %v", err)
	}
	if total != 1 || items[0].Active {
		t.Errorf("expected the discontinued medication, got total=%d %+v", total, items)
	}

	if _, err := repo.GetByID(ctx, bob.ID, entries[0].ID); !errors.Is(err, medical.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound for another user, got %v", err)
	}
	if err := repo.SetActive(ctx, bob.ID, entries[0].ID, false, time.Now()); !errors.Is(err, medical.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound updating another user's entry, got %v", err)
	}
	if err := repo.Delete(ctx, alice.ID, entries[0].ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, alice.ID, entries[0].ID); !errors.Is(err, medical.ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound on second delete, got %v", err)
	}
}
