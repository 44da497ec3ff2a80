// Package directory manages consultant profiles and owns their derived
// rating aggregates.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"berater-api/internal/auth"
	"berater-api/internal/kv"
	"berater-api/internal/model"
)

// ErrNotFound is returned when a consultant id has no stored profile.
var ErrNotFound = errors.New("directory: berater not found")

// ErrInvalidPayload rejects malformed create requests.
var ErrInvalidPayload = errors.New("directory: invalid payload")

// CreateInput carries the client-supplied profile fields. Aggregates are
// intentionally absent; they are always derived.
type CreateInput struct {
	Name        string      `json:"name"`
	Location    string      `json:"location"`
	Phone       string      `json:"phone"`
	Specialties []string    `json:"specialties"`
	Bio         string      `json:"bio"`
	Stats       model.Stats `json:"stats"`
}

// Service provides consultant directory operations.
type Service struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates the directory service.
func New(store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "directory"),
	}
}

// List returns all consultant profiles. Order is not guaranteed.
func (s *Service) List(ctx context.Context) ([]model.Berater, error) {
	entries, err := s.store.GetByPrefix(ctx, model.PrefixBerater)
	if err != nil {
		return nil, fmt.Errorf("list berater: %w", err)
	}

	profiles := make([]model.Berater, 0, len(entries))
	for _, entry := range entries {
		var b model.Berater
		if err := unmarshalEntry(entry, &b); err != nil {
			s.logger.Warn("skipping undecodable berater record", "key", entry.Key, "error", err)
			continue
		}
		profiles = append(profiles, b)
	}
	return profiles, nil
}

// Get returns one profile with its reviews inlined.
func (s *Service) Get(ctx context.Context, id string) (*model.Berater, error) {
	var b model.Berater
	if err := kv.GetJSON(ctx, s.store, model.BeraterKey(id), &b); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get berater %s: %w", id, err)
	}

	reviews, err := s.ListReviews(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Reviews = reviews
	return &b, nil
}

// ListReviews returns all reviews scoped to the given consultant.
func (s *Service) ListReviews(ctx context.Context, beraterID string) ([]model.Review, error) {
	entries, err := s.store.GetByPrefix(ctx, model.ReviewPrefix(beraterID))
	if err != nil {
		return nil, fmt.Errorf("list reviews for %s: %w", beraterID, err)
	}

	reviews := make([]model.Review, 0, len(entries))
	for _, entry := range entries {
		var r model.Review
		if err := unmarshalEntry(entry, &r); err != nil {
			s.logger.Warn("skipping undecodable review record", "key", entry.Key, "error", err)
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews, nil
}

// Create persists a new profile owned by the verified identity. Any
// client-supplied rating fields are discarded; aggregates start at zero.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, input CreateInput) (*model.Berater, error) {
	if identity == nil {
		return nil, auth.ErrUnauthorized
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPayload)
	}

	now := time.Now().UTC()
	b := model.Berater{
		ID:          model.NewID(),
		UserID:      identity.UserID,
		Name:        strings.TrimSpace(input.Name),
		Location:    strings.TrimSpace(input.Location),
		Phone:       strings.TrimSpace(input.Phone),
		Specialties: input.Specialties,
		Bio:         input.Bio,
		Stats:       input.Stats,
		Rating:      0,
		ReviewCount: 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := kv.SetJSON(ctx, s.store, model.BeraterKey(b.ID), b); err != nil {
		return nil, fmt.Errorf("store berater: %w", err)
	}

	s.logger.Info("berater created", "berater_id", b.ID, "owner", identity.UserID)
	return &b, nil
}

// RecomputeRating re-reads every review of the consultant and overwrites the
// profile's aggregate fields. Callers must hold the consultant's key lock.
// A missing profile is not an error: the caller's review stays durable and
// the aggregate step is skipped.
func (s *Service) RecomputeRating(ctx context.Context, beraterID string) error {
	var b model.Berater
	if err := kv.GetJSON(ctx, s.store, model.BeraterKey(beraterID), &b); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn("rating recompute skipped, berater missing", "berater_id", beraterID)
			return nil
		}
		return fmt.Errorf("load berater %s: %w", beraterID, err)
	}

	reviews, err := s.ListReviews(ctx, beraterID)
	if err != nil {
		return err
	}

	b.ReviewCount = len(reviews)
	if len(reviews) == 0 {
		b.Rating = 0
	} else {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		b.Rating = round1(float64(sum) / float64(len(reviews)))
	}
	b.UpdatedAt = time.Now().UTC()

	if err := kv.SetJSON(ctx, s.store, model.BeraterKey(beraterID), b); err != nil {
		return fmt.Errorf("store berater %s: %w", beraterID, err)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func unmarshalEntry(entry kv.Entry, dest any) error {
	return json.Unmarshal(entry.Value, dest)
}
