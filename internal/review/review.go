// Package review appends consultant reviews and triggers the rating
// recompute on the parent profile.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"berater-api/internal/auth"
	"berater-api/internal/directory"
	"berater-api/internal/kv"
	"berater-api/internal/metrics"
	"berater-api/internal/model"
)

// ErrInvalidRating rejects ratings outside the 1..5 range.
var ErrInvalidRating = errors.New("review: rating must be between 1 and 5")

// ErrInvalidPayload rejects malformed create requests.
var ErrInvalidPayload = errors.New("review: invalid payload")

// Service creates reviews and keeps profile aggregates consistent.
type Service struct {
	store     kv.Store
	directory *directory.Service
	locks     *kv.KeyMutex
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New creates the review service. The KeyMutex must be shared with every
// other writer that updates consultant profiles.
func New(store kv.Store, dir *directory.Service, locks *kv.KeyMutex, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		directory: dir,
		locks:     locks,
		metrics:   m,
		logger:    logger.With("component", "review"),
	}
}

// Create persists a review and then recomputes the parent profile's rating.
// The review is durable even when the recompute step fails or the profile no
// longer exists; that inconsistency is accepted and surfaced only in logs.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, beraterID string, rating int, text string) (*model.Review, error) {
	if identity == nil {
		return nil, auth.ErrUnauthorized
	}
	if strings.TrimSpace(beraterID) == "" {
		return nil, fmt.Errorf("%w: beraterId is required", ErrInvalidPayload)
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	r := model.Review{
		ID:        model.NewID(),
		BeraterID: beraterID,
		UserID:    identity.UserID,
		Rating:    rating,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	if err := kv.SetJSON(ctx, s.store, model.ReviewKey(beraterID, r.ID), r); err != nil {
		return nil, fmt.Errorf("store review: %w", err)
	}
	if s.metrics != nil {
		s.metrics.ReviewsCreated.Inc()
	}

	unlock := s.locks.Lock(model.BeraterKey(beraterID))
	err := s.directory.RecomputeRating(ctx, beraterID)
	unlock()
	if err != nil {
		// The review stays; the cached aggregate catches up on the next write.
		s.logger.Error("rating recompute failed", "berater_id", beraterID, "error", err)
	}

	return &r, nil
}
