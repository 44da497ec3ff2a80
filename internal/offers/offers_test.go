package offers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"berater-api/internal/auth"
	"berater-api/internal/kv"
	"berater-api/internal/model"
)

func testService() (*Service, *kv.MemoryStore) {
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger), store
}

func TestCreateNormalisesCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	offer, err := svc.Create(ctx, &auth.Identity{UserID: "u-1"}, CreateInput{
		Category: "  Versicherung ",
		Title:    "Erstberatung",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if offer.Category != "versicherung" {
		t.Fatalf("expected lowercased category, got %s", offer.Category)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, store := testService()
	identity := &auth.Identity{UserID: "u-1"}

	if _, err := svc.Create(ctx, nil, CreateInput{Category: "c", Title: "t"}); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Create(ctx, identity, CreateInput{Title: "t"}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing category, got %v", err)
	}
	if _, err := svc.Create(ctx, identity, CreateInput{Category: "c"}); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload for missing title, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no writes, store has %d keys", store.Len())
	}
}

func TestListScopedToCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()
	identity := &auth.Identity{UserID: "u-1"}

	for _, category := range []string{"kredit", "kredit", "anlage"} {
		if _, err := svc.Create(ctx, identity, CreateInput{Category: category, Title: "Angebot"}); err != nil {
			t.Fatalf("create %s: %v", category, err)
		}
	}

	kredite, err := svc.ListByCategory(ctx, "kredit")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(kredite) != 2 {
		t.Fatalf("expected 2 offers, got %d", len(kredite))
	}
}

func TestListDropsForeignCategoryRecords(t *testing.T) {
	ctx := context.Background()
	svc, store := testService()
	identity := &auth.Identity{UserID: "u-1"}

	if _, err := svc.Create(ctx, identity, CreateInput{Category: "kredit", Title: "Ratenkredit"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	// An over-matching prefix scan could surface offers from another
	// category; the listing must reject them by the record's own category.
	foreign := model.Offer{
		ID:       model.NewID(),
		Category: "anlage",
		Title:    "Fonds",
	}
	if err := kv.SetJSON(ctx, store, model.OfferKey("kredit", foreign.ID), foreign); err != nil {
		t.Fatalf("set: %v", err)
	}

	kredite, err := svc.ListByCategory(ctx, "kredit")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(kredite) != 1 || kredite[0].Title != "Ratenkredit" {
		t.Fatalf("expected foreign record dropped, got %+v", kredite)
	}
}
