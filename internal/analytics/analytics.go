// Package analytics computes read-only aggregate counts over the stored
// collections. Every call is a full recomputation; nothing incremental is
// maintained, which is fine while total record counts stay small.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"berater-api/internal/auth"
	"berater-api/internal/kv"
	"berater-api/internal/model"
)

// Overview is the aggregate snapshot returned to authenticated callers.
type Overview struct {
	TotalBerater int `json:"totalBerater"`
	TotalReviews int `json:"totalReviews"`
	TotalQRCodes int `json:"totalQRCodes"`
	TotalQRScans int `json:"totalQRScans"`
}

// Service aggregates across the key-value namespace.
type Service struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates the analytics service.
func New(store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "analytics"),
	}
}

// GetOverview counts consultants, reviews and QR artifacts and sums the
// artifacts' scan counters.
func (s *Service) GetOverview(ctx context.Context, identity *auth.Identity) (*Overview, error) {
	if identity == nil {
		return nil, auth.ErrUnauthorized
	}

	berater, err := s.store.GetByPrefix(ctx, model.PrefixBerater)
	if err != nil {
		return nil, fmt.Errorf("count berater: %w", err)
	}
	reviews, err := s.store.GetByPrefix(ctx, model.PrefixReview)
	if err != nil {
		return nil, fmt.Errorf("count reviews: %w", err)
	}
	artifacts, err := s.store.GetByPrefix(ctx, model.PrefixQR)
	if err != nil {
		return nil, fmt.Errorf("count qr artifacts: %w", err)
	}

	totalScans := 0
	for _, entry := range artifacts {
		var artifact model.QRArtifact
		if err := json.Unmarshal(entry.Value, &artifact); err != nil {
			s.logger.Warn("skipping undecodable qr record", "key", entry.Key, "error", err)
			continue
		}
		totalScans += artifact.Scans
	}

	return &Overview{
		TotalBerater: len(berater),
		TotalReviews: len(reviews),
		TotalQRCodes: len(artifacts),
		TotalQRScans: totalScans,
	}, nil
}
