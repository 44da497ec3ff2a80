// Package qr manages QR redirect artifacts and their scan counters.
package qr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"berater-api/internal/auth"
	"berater-api/internal/kv"
	"berater-api/internal/metrics"
	"berater-api/internal/model"
)

// Errors surfaced to the HTTP boundary.
var (
	ErrNotFound       = errors.New("qr: artifact not found")
	ErrInvalidPayload = errors.New("qr: invalid payload")
)

// Service creates artifacts and resolves scan redirects.
type Service struct {
	store         kv.Store
	locks         *kv.KeyMutex
	metrics       *metrics.Metrics
	logger        *slog.Logger
	publicBaseURL string
}

// New creates the QR artifact service. publicBaseURL is used to build the
// self-referential resolver URLs and profile fallback targets.
func New(store kv.Store, locks *kv.KeyMutex, m *metrics.Metrics, logger *slog.Logger, publicBaseURL string) *Service {
	return &Service{
		store:         store,
		locks:         locks,
		metrics:       m,
		logger:        logger.With("component", "qr"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Create persists a new artifact of the given type for the consultant.
// An empty type defaults to profile.
func (s *Service) Create(ctx context.Context, identity *auth.Identity, beraterID, qrType string) (*model.QRArtifact, error) {
	if identity == nil {
		return nil, auth.ErrUnauthorized
	}
	if strings.TrimSpace(beraterID) == "" {
		return nil, fmt.Errorf("%w: beraterId is required", ErrInvalidPayload)
	}
	switch qrType {
	case "":
		qrType = model.QRTypeProfile
	case model.QRTypeProfile, model.QRTypeWhatsApp:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidPayload, qrType)
	}

	artifact := model.QRArtifact{
		ID:        model.NewID(),
		BeraterID: beraterID,
		Type:      qrType,
		Scans:     0,
		CreatedAt: time.Now().UTC(),
	}
	artifact.URL = fmt.Sprintf("%s/qr/%s", s.publicBaseURL, artifact.ID)

	if err := kv.SetJSON(ctx, s.store, model.QRKey(artifact.ID), artifact); err != nil {
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	s.logger.Info("qr artifact created", "qr_id", artifact.ID, "berater_id", beraterID, "type", qrType)
	return &artifact, nil
}

// Resolve counts a scan on the artifact and returns the redirect target.
// Every resolve increments the counter; rapid repeated scans are not
// deduplicated.
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	key := model.QRKey(id)

	unlock := s.locks.Lock(key)
	artifact, err := s.countScan(ctx, key)
	unlock()
	if err != nil {
		return "", err
	}

	if s.metrics != nil {
		s.metrics.QRScans.Inc()
	}

	if artifact.Type == model.QRTypeWhatsApp {
		var berater model.Berater
		err := kv.GetJSON(ctx, s.store, model.BeraterKey(artifact.BeraterID), &berater)
		switch {
		case err == nil && strings.TrimSpace(berater.Phone) != "":
			return whatsappLink(berater.Phone), nil
		case err != nil && !errors.Is(err, kv.ErrNotFound):
			return "", fmt.Errorf("load berater %s: %w", artifact.BeraterID, err)
		}
		// Missing profile or empty phone falls back to the profile view.
	}

	return fmt.Sprintf("%s/berater/%s", s.publicBaseURL, artifact.BeraterID), nil
}

func (s *Service) countScan(ctx context.Context, key string) (*model.QRArtifact, error) {
	var artifact model.QRArtifact
	if err := kv.GetJSON(ctx, s.store, key, &artifact); err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load artifact %s: %w", key, err)
	}

	now := time.Now().UTC()
	artifact.Scans++
	artifact.LastScanned = &now

	if err := kv.SetJSON(ctx, s.store, key, artifact); err != nil {
		return nil, fmt.Errorf("store artifact %s: %w", key, err)
	}
	return &artifact, nil
}

// whatsappLink builds a wa.me deep link from a phone-like contact string.
// The leading plus and any spaces are stripped per the wa.me format.
func whatsappLink(phone string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(phone), "+")
	normalized = strings.ReplaceAll(normalized, " ", "")
	return "https://wa.me/" + normalized
}
