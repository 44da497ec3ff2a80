// Package offers stores category-scoped promotional records.
package offers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"berater-api/internal/auth"
	"berater-api/internal/kv"
	"berater-api/internal/model"
)

// ErrInvalidPayload rejects malformed create requests.
var ErrInvalidPayload = errors.New("offers: invalid payload")

// CreateInput carries the client-supplied offer fields.
type CreateInput struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	BeraterID   string `json:"beraterId"`
}

// Service provides offer listing and creation.
type Service struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates the offers service.
func New(store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "offers"),
	}
}

// ListByCategory returns all offers stored under the category prefix.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]model.Offer, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	entries, err := s.store.GetByPrefix(ctx, model.OfferPrefix(category))
	if err != nil {
		return nil, fmt.Errorf("list offers %s: %w", category, err)
	}

	offers := make([]model.Offer, 0, len(entries))
	for _, entry := range entries {
		var o model.Offer
		if err := json.Unmarshal(entry.Value, &o); err != nil {
			s.logger.Warn("skipping undecodable offer record", "key", entry.Key, "error", err)
			continue
		}
		// The record's own category wins over its key placement.
		if o.Category != category {
			s.logger.Warn("skipping offer record from foreign category", "key", entry.Key, "category", o.Category)
			continue
		}
		offers = append(offers, o)
	}
	return offers, nil
}

// Create persists a new offer under its category.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, input CreateInput) (*model.Offer, error) {
	if identity == nil {
		return nil, auth.ErrUnauthorized
	}
	category := strings.ToLower(strings.TrimSpace(input.Category))
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidPayload)
	}

	offer := model.Offer{
		ID:          model.NewID(),
		Category:    category,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
		BeraterID:   input.BeraterID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := kv.SetJSON(ctx, s.store, model.OfferKey(category, offer.ID), offer); err != nil {
		return nil, fmt.Errorf("store offer: %w", err)
	}
	return &offer, nil
}
