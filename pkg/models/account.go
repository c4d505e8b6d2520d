package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a customer. Every other entity belongs to an account.
type Account struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	PlanTier  PlanTier  `db:"plan_tier"  json:"plan_tier"`
	Website   string    `db:"website"    json:"website"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// APIKey represents an authentication key for API access.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	AccountID  uuid.UUID  `db:"account_id"   json:"account_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}

// SocialConnection records a social account the customer has linked for
// their own side. Handles are stored normalized.
type SocialConnection struct {
	ID          uuid.UUID `db:"id"           json:"id"`
	AccountID   uuid.UUID `db:"account_id"   json:"account_id"`
	Platform    string    `db:"platform"     json:"platform"`
	Handle      string    `db:"handle"       json:"handle"`
	Connected   bool      `db:"connected"    json:"connected"`
	ConnectedAt time.Time `db:"connected_at" json:"connected_at"`
}

// Competitor is a saved competitor profile entry, used to resolve the
// competitor's social handles when they are not supplied inline.
type Competitor struct {
	ID              uuid.UUID `db:"id"               json:"id"`
	AccountID       uuid.UUID `db:"account_id"       json:"account_id"`
	Domain          string    `db:"domain"           json:"domain"`
	FacebookHandle  string    `db:"facebook_handle"  json:"facebook_handle,omitempty"`
	InstagramHandle string    `db:"instagram_handle" json:"instagram_handle,omitempty"`
	LinkedInHandle  string    `db:"linkedin_handle"  json:"linkedin_handle,omitempty"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"       json:"updated_at"`
}
