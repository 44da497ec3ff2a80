// Package model defines the records stored in the key-value namespace and
// the key-building conventions shared by all services.
package model

import (
	"time"
)

// QR artifact types.
const (
	QRTypeProfile  = "profile"
	QRTypeWhatsApp = "whatsapp"
)

// Stats carries the display labels shown on a consultant profile.
type Stats struct {
	Customers    string `json:"customers"`
	Experience   string `json:"experience"`
	ResponseTime string `json:"responseTime"`
}

// Berater is a consultant directory entry. Rating and ReviewCount are
// derived from the stored reviews and never accepted from clients.
type Berater struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Name        string    `json:"name"`
	Location    string    `json:"location"`
	Phone       string    `json:"phone"`
	Specialties []string  `json:"specialties"`
	Bio         string    `json:"bio"`
	Stats       Stats     `json:"stats"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviewCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Reviews is populated only on single-profile reads.
	Reviews []Review `json:"reviews,omitempty"`
}

// Review is an immutable rating left for a consultant.
type Review struct {
	ID        string    `json:"id"`
	BeraterID string    `json:"beraterId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatMessage is one entry of an append-only session transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Message   string    `json:"message"`
	Sender    string    `json:"sender"`
	CreatedAt time.Time `json:"createdAt"`
}

// QRArtifact is a persisted scannable code with redirect and scan tracking.
type QRArtifact struct {
	ID          string     `json:"id"`
	BeraterID   string     `json:"beraterId"`
	Type        string     `json:"type"`
	URL         string     `json:"url"`
	Scans       int        `json:"scans"`
	LastScanned *time.Time `json:"lastScanned,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Offer is a category-scoped promotional record.
type Offer struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	BeraterID   string    `json:"beraterId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// User is an account record. The hash is part of the stored value; use
// Public before serialising a user into a response.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public returns a copy safe for API responses.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// InitMarker is the singleton record guarding the bootstrap seeding.
type InitMarker struct {
	SeededAt time.Time `json:"seededAt"`
}
