// Package seed performs the one-time idempotent population of sample
// directory data.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"berater-api/internal/kv"
	"berater-api/internal/metrics"
	"berater-api/internal/model"
)

// Result reports the outcome of an Initialize call.
type Result struct {
	Message string `json:"message"`
}

// Service seeds the store with sample consultants exactly once.
type Service struct {
	store   kv.Store
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates the seeding service.
func New(store kv.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		metrics: m,
		logger:  logger.With("component", "seed"),
	}
}

// Initialize writes the sample consultants unless the init marker already
// exists. The guard is check-then-act on a single key; two racing first
// calls could both seed, which is accepted since seeding runs once in
// practice.
func (s *Service) Initialize(ctx context.Context) (*Result, error) {
	var marker model.InitMarker
	err := kv.GetJSON(ctx, s.store, model.KeyInitMarker, &marker)
	switch {
	case err == nil:
		if s.metrics != nil {
			s.metrics.SeedRuns.WithLabelValues("noop").Inc()
		}
		return &Result{Message: "already initialized"}, nil
	case !errors.Is(err, kv.ErrNotFound):
		return nil, fmt.Errorf("check init marker: %w", err)
	}

	now := time.Now().UTC()
	for _, b := range sampleBerater(now) {
		if err := kv.SetJSON(ctx, s.store, model.BeraterKey(b.ID), b); err != nil {
			return nil, fmt.Errorf("seed berater %s: %w", b.ID, err)
		}
	}

	if err := kv.SetJSON(ctx, s.store, model.KeyInitMarker, model.InitMarker{SeededAt: now}); err != nil {
		return nil, fmt.Errorf("store init marker: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SeedRuns.WithLabelValues("seeded").Inc()
	}
	s.logger.Info("sample data seeded")
	return &Result{Message: "initialized"}, nil
}

// sampleBerater returns the fixed seed profiles. Content is deterministic
// apart from the creation timestamps.
func sampleBerater(now time.Time) []model.Berater {
	return []model.Berater{
		{
			ID:          "seed-berater-1",
			UserID:      "seed-user-1",
			Name:        "Thomas Weber",
			Location:    "Berlin",
			Phone:       "+49 151 23456789",
			Specialties: []string{"Altersvorsorge", "Baufinanzierung"},
			Bio:         "Unabhängiger Finanzberater mit Schwerpunkt auf langfristiger Vermögensplanung.",
			Stats: model.Stats{
				Customers:    "250+",
				Experience:   "12 Jahre",
				ResponseTime: "< 2 Std",
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "seed-berater-2",
			UserID:      "seed-user-2",
			Name:        "Sandra Köhler",
			Location:    "München",
			Phone:       "+49 160 98765432",
			Specialties: []string{"Versicherungen", "Geldanlage"},
			Bio:         "Beraterin für private Absicherung und nachhaltige Geldanlage.",
			Stats: model.Stats{
				Customers:    "180+",
				Experience:   "8 Jahre",
				ResponseTime: "< 4 Std",
			},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}
