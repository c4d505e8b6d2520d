package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitespar/sitespar/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Reports ---

// reportRow scans the persisted layout: analysis key, both social identity
// sets, the full composite payload, and the TTL bounds.
func (s *PostgresStore) reportRow(ctx context.Context, analysisKey string) (*models.CompositeResult, models.Fingerprint, error) {
	var (
		fp         models.Fingerprint
		ownJSON    []byte
		compJSON   []byte
		payload    []byte
		createdAt  time.Time
		expiresAt  time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT analysis_key, own_social, competitor_social, payload, created_at, expires_at
		 FROM reports WHERE analysis_key = $1`, analysisKey,
	).Scan(&fp.AnalysisKey, &ownJSON, &compJSON, &payload, &createdAt, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.Fingerprint{}, ErrNotFound
	}
	if err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("get report: %w", err)
	}

	if err := json.Unmarshal(ownJSON, &fp.Own); err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("decode own social identity: %w", err)
	}
	if err := json.Unmarshal(compJSON, &fp.Competitor); err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("decode competitor social identity: %w", err)
	}

	var result models.CompositeResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, models.Fingerprint{}, fmt.Errorf("decode report payload: %w", err)
	}
	result.CreatedAt = createdAt
	result.ExpiresAt = expiresAt
	return &result, fp, nil
}

// LookupReport returns the cached result iff the stored fingerprint matches
// exactly (analysis key plus both social identity sets); unless
// ignoreExpiration is set, the entry must also be unexpired.
func (s *PostgresStore) LookupReport(ctx context.Context, fp models.Fingerprint, ignoreExpiration bool) (*models.CompositeResult, error) {
	result, stored, err := s.reportRow(ctx, fp.AnalysisKey)
	if err != nil {
		return nil, err
	}
	if !fp.Matches(stored) {
		return nil, ErrNotFound
	}
	if !ignoreExpiration && result.Expired(time.Now().UTC()) {
		return nil, ErrNotFound
	}
	return result, nil
}

// LatestReport returns the most recent entry for the analysis key regardless
// of social identity match or expiration. Section refresh intentionally
// reuses stale companion sections through this path.
func (s *PostgresStore) LatestReport(ctx context.Context, analysisKey string) (*models.CompositeResult, models.Fingerprint, error) {
	return s.reportRow(ctx, analysisKey)
}

// WriteReport upserts the result under its fingerprint. The new write
// becomes authoritative for the analysis key: last writer wins.
func (s *PostgresStore) WriteReport(ctx context.Context, fp models.Fingerprint, result *models.CompositeResult) error {
	ownJSON, err := json.Marshal(fp.Own)
	if err != nil {
		return fmt.Errorf("encode own social identity: %w", err)
	}
	compJSON, err := json.Marshal(fp.Competitor)
	if err != nil {
		return fmt.Errorf("encode competitor social identity: %w", err)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode report payload: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, analysis_key, own_social, competitor_social, payload, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (analysis_key) DO UPDATE SET
		   own_social = EXCLUDED.own_social,
		   competitor_social = EXCLUDED.competitor_social,
		   payload = EXCLUDED.payload,
		   created_at = EXCLUDED.created_at,
		   expires_at = EXCLUDED.expires_at`,
		uuid.New(), fp.AnalysisKey, ownJSON, compJSON, payload, result.CreatedAt, result.ExpiresAt)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// --- Accounts ---

func (s *PostgresStore) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, plan_tier, website, created_at, updated_at FROM accounts WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.PlanTier, &a.Website, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.AccountID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

// --- Social Connections ---

func (s *PostgresStore) ListSocialConnections(ctx context.Context, accountID uuid.UUID) ([]*models.SocialConnection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, account_id, platform, handle, connected, connected_at
		 FROM social_connections WHERE account_id = $1 AND connected = TRUE`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list social connections: %w", err)
	}
	defer rows.Close()

	var conns []*models.SocialConnection
	for rows.Next() {
		var c models.SocialConnection
		if err := rows.Scan(&c.ID, &c.AccountID, &c.Platform, &c.Handle, &c.Connected, &c.ConnectedAt); err != nil {
			return nil, fmt.Errorf("scan social connection: %w", err)
		}
		conns = append(conns, &c)
	}
	return conns, rows.Err()
}

// --- Competitors ---

func (s *PostgresStore) GetCompetitorByDomain(ctx context.Context, accountID uuid.UUID, domain string) (*models.Competitor, error) {
	var c models.Competitor
	err := s.pool.QueryRow(ctx,
		`SELECT id, account_id, domain, facebook_handle, instagram_handle, linkedin_handle, created_at, updated_at
		 FROM competitors WHERE account_id = $1 AND domain = $2`,
		accountID, models.NormalizeDomain(domain),
	).Scan(&c.ID, &c.AccountID, &c.Domain, &c.FacebookHandle, &c.InstagramHandle, &c.LinkedInHandle,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get competitor: %w", err)
	}
	return &c, nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
