package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"berater-api/internal/auth"
	"berater-api/internal/directory"
	"berater-api/internal/kv"
	"berater-api/internal/model"
)

func testService() (*Service, *directory.Service, *kv.MemoryStore) {
	store := kv.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := directory.New(store, logger)
	svc := New(store, dir, kv.NewKeyMutex(), nil, logger)
	return svc, dir, store
}

func testIdentity() *auth.Identity {
	return &auth.Identity{UserID: "user-1"}
}

func createBerater(t *testing.T, dir *directory.Service) *model.Berater {
	t.Helper()
	b, err := dir.Create(context.Background(), testIdentity(), directory.CreateInput{Name: "Thomas Weber"})
	if err != nil {
		t.Fatalf("create berater: %v", err)
	}
	return b
}

func TestSequentialReviewsAggregate(t *testing.T) {
	ctx := context.Background()
	svc, dir, _ := testService()
	b := createBerater(t, dir)

	ratings := []int{5, 4, 4}
	for _, r := range ratings {
		if _, err := svc.Create(ctx, testIdentity(), b.ID, r, "gut"); err != nil {
			t.Fatalf("create review %d: %v", r, err)
		}
	}

	got, err := dir.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get berater: %v", err)
	}
	if got.ReviewCount != 3 {
		t.Fatalf("expected reviewCount 3, got %d", got.ReviewCount)
	}
	// mean(5,4,4) = 4.333..., rounded to one decimal.
	if got.Rating != 4.3 {
		t.Fatalf("expected rating 4.3, got %v", got.Rating)
	}
	if !got.UpdatedAt.After(b.UpdatedAt) && !got.UpdatedAt.Equal(b.UpdatedAt) {
		t.Fatalf("expected updatedAt refreshed, got %v <= %v", got.UpdatedAt, b.UpdatedAt)
	}
}

func TestHalfwayRounding(t *testing.T) {
	ctx := context.Background()
	svc, dir, _ := testService()
	b := createBerater(t, dir)

	for _, r := range []int{5, 4} {
		if _, err := svc.Create(ctx, testIdentity(), b.ID, r, ""); err != nil {
			t.Fatalf("create review: %v", err)
		}
	}

	got, err := dir.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get berater: %v", err)
	}
	if got.Rating != 4.5 {
		t.Fatalf("expected rating 4.5, got %v", got.Rating)
	}
}

func TestReviewForMissingBeraterStillPersists(t *testing.T) {
	ctx := context.Background()
	svc, _, store := testService()

	created, err := svc.Create(ctx, testIdentity(), "ghost", 5, "noch da?")
	if err != nil {
		t.Fatalf("create review: %v", err)
	}

	var stored model.Review
	if err := kv.GetJSON(ctx, store, model.ReviewKey("ghost", created.ID), &stored); err != nil {
		t.Fatalf("review not persisted: %v", err)
	}
	if stored.Rating != 5 {
		t.Fatalf("expected rating 5, got %d", stored.Rating)
	}
}

func TestRatingRangeValidation(t *testing.T) {
	ctx := context.Background()
	svc, dir, store := testService()
	b := createBerater(t, dir)
	before := store.Len()

	for _, r := range []int{0, 6, -1} {
		if _, err := svc.Create(ctx, testIdentity(), b.ID, r, ""); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: expected ErrInvalidRating, got %v", r, err)
		}
	}
	if store.Len() != before {
		t.Fatalf("expected no writes for invalid ratings")
	}
}

func TestCreateRequiresIdentity(t *testing.T) {
	svc, dir, store := testService()
	b := createBerater(t, dir)
	before := store.Len()

	if _, err := svc.Create(context.Background(), nil, b.ID, 5, ""); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if store.Len() != before {
		t.Fatal("expected no writes for unauthenticated create")
	}
}
