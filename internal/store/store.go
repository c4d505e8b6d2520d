package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sitespar/sitespar/pkg/models"
)

var ErrNotFound = errors.New("resource not found")

// Store is the data access interface. All database operations go through
// here. Report lookups and writes serve the cache engine; the account, API
// key, social connection, and competitor reads are the collaborator
// contracts the engine and auth middleware consume.
type Store interface {
	Ping(ctx context.Context) error

	// Reports. One row per analysis key, enforced by a uniqueness
	// constraint; a write replaces any prior entry under the same key
	// regardless of social identity.
	LookupReport(ctx context.Context, fp models.Fingerprint, ignoreExpiration bool) (*models.CompositeResult, error)
	LatestReport(ctx context.Context, analysisKey string) (*models.CompositeResult, models.Fingerprint, error)
	WriteReport(ctx context.Context, fp models.Fingerprint, result *models.CompositeResult) error

	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error

	ListSocialConnections(ctx context.Context, accountID uuid.UUID) ([]*models.SocialConnection, error)
	GetCompetitorByDomain(ctx context.Context, accountID uuid.UUID, domain string) (*models.Competitor, error)
}
