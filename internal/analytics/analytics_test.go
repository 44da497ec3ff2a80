package analytics

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

func TestOverviewRequiresIdentity(t *testing.T) {
	svc, _ := testService()

	if _, err := svc.GetOverview(context.Background(), nil); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestOverviewCounts(t *testing.T) {
	ctx := context.Background()
	svc, store := testService()
	now := time.Now().UTC()

	for _, id := range []string{"b-1", "b-2"} {
		b := model.Berater{ID: id, Name: id, CreatedAt: now}
		if err := kv.SetJSON(ctx, store, model.BeraterKey(id), b); err != nil {
			t.Fatalf("store berater: %v", err)
		}
	}
	for i, id := range []string{"r-1", "r-2", "r-3"} {
		r := model.Review{ID: id, BeraterID: "b-1", Rating: i + 3, CreatedAt: now}
		if err := kv.SetJSON(ctx, store, model.ReviewKey("b-1", id), r); err != nil {
			t.Fatalf("store review: %v", err)
		}
	}
	artifact := model.QRArtifact{ID: "q-1", BeraterID: "b-1", Type: model.QRTypeProfile, Scans: 5, CreatedAt: now}
	if err := kv.SetJSON(ctx, store, model.QRKey(artifact.ID), artifact); err != nil {
		t.Fatalf("store artifact: %v", err)
	}

	overview, err := svc.GetOverview(ctx, &auth.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}

	if overview.TotalBerater != 2 {
		t.Fatalf("expected 2 berater, got %d", overview.TotalBerater)
	}
	if overview.TotalReviews != 3 {
		t.Fatalf("expected 3 reviews, got %d", overview.TotalReviews)
	}
	if overview.TotalQRCodes != 1 {
		t.Fatalf("expected 1 qr code, got %d", overview.TotalQRCodes)
	}
	if overview.TotalQRScans != 5 {
		t.Fatalf("expected 5 scans, got %d", overview.TotalQRScans)
	}
}

func TestOverviewEmptyStore(t *testing.T) {
	svc, _ := testService()

	overview, err := svc.GetOverview(context.Background(), &auth.Identity{UserID: "user-1"})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if overview.TotalBerater != 0 || overview.TotalReviews != 0 || overview.TotalQRCodes != 0 || overview.TotalQRScans != 0 {
		t.Fatalf("expected all-zero overview, got %+v", overview)
	}
}
