package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Key prefixes. These are a naming discipline only; nothing at the storage
// layer enforces them, so every writer must build keys through the helpers
// below.
const (
	PrefixBerater = "berater:"
	PrefixReview  = "review:berater:"
	PrefixChat    = "chat:"
	PrefixQR      = "qr:"
	PrefixOffer   = "offer:"
	PrefixUser    = "user:"
	PrefixSession = "session:"

	KeyInitMarker = "system:initialized"
)

func BeraterKey(id string) string { return PrefixBerater + id }

func ReviewKey(beraterID, reviewID string) string {
	return PrefixReview + beraterID + ":" + reviewID
}

// ReviewPrefix scopes a scan to the reviews of one consultant.
func ReviewPrefix(beraterID string) string { return PrefixReview + beraterID + ":" }

func ChatKey(sessionID, messageID string) string {
	return PrefixChat + sessionID + ":" + messageID
}

func ChatPrefix(sessionID string) string { return PrefixChat + sessionID + ":" }

func QRKey(id string) string { return PrefixQR + id }

func OfferKey(category, id string) string { return PrefixOffer + category + ":" + id }

func OfferPrefix(category string) string { return PrefixOffer + category + ":" }

func UserKey(id string) string { return PrefixUser + id }

// UserEmailKey is the uniqueness index for signup emails.
func UserEmailKey(email string) string {
	return PrefixUser + "email:" + strings.ToLower(strings.TrimSpace(email))
}

func SessionKey(token string) string { return PrefixSession + token }

// NewID returns an identifier with a millisecond timestamp component and a
// random suffix, so ids created in the same session sort roughly by time.
func NewID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}

// NewToken returns an opaque bearer token for session records.
func NewToken() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return uuid.NewString() + hex.EncodeToString(buf)
}
