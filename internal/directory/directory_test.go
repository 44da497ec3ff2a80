package directory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"berater-api/internal/auth"
	"berater-api/internal/kv"
	"berater-api/internal/model"
)

func testService() (*Service, *kv.MemoryStore) {
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, logger), store
}

func testIdentity() *auth.Identity {
	return &auth.Identity{UserID: "user-1", Email: "u@example.com", Name: "U", Role: "user"}
}

func TestCreateZeroesAggregates(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	created, err := svc.Create(ctx, testIdentity(), CreateInput{
		Name:        "Thomas Weber",
		Location:    "Berlin",
		Phone:       "+49 151 23456789",
		Specialties: []string{"Altersvorsorge"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Rating != 0 || created.ReviewCount != 0 {
		t.Fatalf("expected zero aggregates, got rating=%v count=%d", created.Rating, created.ReviewCount)
	}
	if created.UserID != "user-1" {
		t.Fatalf("expected owner user-1, got %s", created.UserID)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatal("expected id and timestamps to be stamped")
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc, store := testService()

	_, err := svc.Create(context.Background(), nil, CreateInput{Name: "X"})
	if !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no writes, store has %d keys", store.Len())
	}
}

func TestGetNotFound(t *testing.T) {
	svc, _ := testService()

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetInlinesReviews(t *testing.T) {
	ctx := context.Background()
	svc, store := testService()

	created, err := svc.Create(ctx, testIdentity(), CreateInput{Name: "Thomas Weber"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	review := model.Review{
		ID:        "r-1",
		BeraterID: created.ID,
		UserID:    "user-2",
		Rating:    5,
		Text:      "sehr gut",
		CreatedAt: time.Now().UTC(),
	}
	if err := kv.SetJSON(ctx, store, model.ReviewKey(created.ID, review.ID), review); err != nil {
		t.Fatalf("store review: %v", err)
	}

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Reviews) != 1 || got.Reviews[0].ID != "r-1" {
		t.Fatalf("expected inlined review r-1, got %+v", got.Reviews)
	}
}

func TestListReturnsAllProfiles(t *testing.T) {
	ctx := context.Background()
	svc, _ := testService()

	for _, name := range []string{"A", "B", "C"} {
		if _, err := svc.Create(ctx, testIdentity(), CreateInput{Name: name}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	profiles, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(profiles) != 3 {
		t.Fatalf("expected 3 profiles, got %d", len(profiles))
	}
}

func TestRecomputeRatingMissingProfileIsNoop(t *testing.T) {
	svc, _ := testService()

	if err := svc.RecomputeRating(context.Background(), "missing"); err != nil {
		t.Fatalf("expected nil error for missing profile, got %v", err)
	}
}
