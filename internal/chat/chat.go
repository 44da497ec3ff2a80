// Package chat persists append-only session transcripts.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"berater-api/internal/kv"
	"berater-api/internal/model"
)

// ErrInvalidPayload rejects malformed append requests.
var ErrInvalidPayload = errors.New("chat: invalid payload")

// Service logs chat messages per session. Sessions are anonymous; no
// identity check is performed.
type Service struct {
	store  kv.Store
	logger *slog.Logger
}

// New creates the chat transcript service.
func New(store kv.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("component", "chat"),
	}
}

// Append stores one message under the session-scoped prefix.
func (s *Service) Append(ctx context.Context, sessionID, message, sender string) (*model.ChatMessage, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrInvalidPayload)
	}
	if sender == "" {
		sender = "user"
	}

	msg := model.ChatMessage{
		ID:        model.NewID(),
		SessionID: sessionID,
		Message:   message,
		Sender:    sender,
		CreatedAt: time.Now().UTC(),
	}

	if err := kv.SetJSON(ctx, s.store, model.ChatKey(sessionID, msg.ID), msg); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}
	return &msg, nil
}

// Transcript returns the session's messages in ascending creation order.
// Prefix-scan order is not chronological, so the result is sorted here;
// ties on the timestamp fall back to id order to keep the sort stable.
func (s *Service) Transcript(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	entries, err := s.store.GetByPrefix(ctx, model.ChatPrefix(sessionID))
	if err != nil {
		return nil, fmt.Errorf("scan transcript %s: %w", sessionID, err)
	}

	messages := make([]model.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		var msg model.ChatMessage
		if err := json.Unmarshal(entry.Value, &msg); err != nil {
			s.logger.Warn("skipping undecodable chat record", "key", entry.Key, "error", err)
			continue
		}
		// Trust the record, not the key: drop anything filed under this
		// session's prefix that claims to belong to another session.
		if msg.SessionID != sessionID {
			s.logger.Warn("skipping chat record from foreign session", "key", entry.Key, "sessionId", msg.SessionID)
			continue
		}
		messages = append(messages, msg)
	}

	sort.Slice(messages, func(i, j int) bool {
		if messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].ID < messages[j].ID
		}
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
	return messages, nil
}
