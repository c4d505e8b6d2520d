package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sitespar/sitespar/internal/store"
	"github.com/sitespar/sitespar/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool + cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("sitespar_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr)
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

// defaultAccountID returns the UUID of the seeded default account.
func defaultAccountID(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	var id uuid.UUID
	err := pool.QueryRow(context.Background(),
		`SELECT id FROM accounts WHERE name = 'default'`).Scan(&id)
	require.NoError(t, err)
	return id
}

func sampleResult(created time.Time, ttl time.Duration) *models.CompositeResult {
	perf, _ := json.Marshal(models.PerformancePayload{Score: 88})
	return &models.CompositeResult{
		OwnSide: models.Side{
			models.SectionPerformance: {Status: models.SectionOK, Payload: perf},
		},
		CompetitorSide: models.Side{
			models.SectionPerformance: models.Unavailable("provider timeout"),
		},
		CreatedAt: created,
		ExpiresAt: created.Add(ttl),
	}
}

func TestReport_WriteAndLookup(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	fp := models.Fingerprint{
		AnalysisKey: models.NewAnalysisKey(accountID, "a.com", "b.com"),
		Own:         models.SocialIdentity{Instagram: "acme"},
	}
	created := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, s.WriteReport(ctx, fp, sampleResult(created, 7*24*time.Hour)))

	got, err := s.LookupReport(ctx, fp, false)
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, models.SectionOK, got.OwnSide[models.SectionPerformance].Status)
	assert.Equal(t, models.SectionUnavailable, got.CompetitorSide[models.SectionPerformance].Status)
}

func TestReport_SocialIdentityMismatchMisses(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	key := models.NewAnalysisKey(accountID, "a.com", "b.com")
	stored := models.Fingerprint{AnalysisKey: key, Own: models.SocialIdentity{Instagram: "acme"}}
	require.NoError(t, s.WriteReport(ctx, stored, sampleResult(time.Now().UTC(), time.Hour)))

	// Same key, reconnected to a different instagram account: must miss.
	other := models.Fingerprint{AnalysisKey: key, Own: models.SocialIdentity{Instagram: "acme-eu"}}
	_, err := s.LookupReport(ctx, other, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// And a missing handle on one side is also a mismatch.
	bare := models.Fingerprint{AnalysisKey: key}
	_, err = s.LookupReport(ctx, bare, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReport_ExpirationEnforcedUnlessIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	fp := models.Fingerprint{AnalysisKey: models.NewAnalysisKey(accountID, "a.com", "b.com")}
	expired := sampleResult(time.Now().UTC().Add(-2*time.Hour), time.Hour)
	require.NoError(t, s.WriteReport(ctx, fp, expired))

	_, err := s.LookupReport(ctx, fp, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.LookupReport(ctx, fp, true)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestReport_WriteReplacesPriorEntry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	key := models.NewAnalysisKey(accountID, "a.com", "b.com")
	first := models.Fingerprint{AnalysisKey: key, Own: models.SocialIdentity{Facebook: "acme"}}
	require.NoError(t, s.WriteReport(ctx, first, sampleResult(time.Now().UTC(), time.Hour)))

	// A write under the same key with different social identity supersedes
	// the prior entry entirely.
	second := models.Fingerprint{AnalysisKey: key, Own: models.SocialIdentity{Facebook: "acme-global"}}
	require.NoError(t, s.WriteReport(ctx, second, sampleResult(time.Now().UTC(), time.Hour)))

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM reports WHERE analysis_key = $1`, key).Scan(&count))
	assert.Equal(t, 1, count, "one row per analysis key")

	_, err := s.LookupReport(ctx, first, false)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, stored, err := s.LatestReport(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "acme-global", stored.Own.Facebook)
}

func TestLatestReport_IgnoresSocialMatchAndExpiry(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	key := models.NewAnalysisKey(accountID, "a.com", "b.com")
	fp := models.Fingerprint{AnalysisKey: key, Own: models.SocialIdentity{LinkedIn: "acme"}}
	require.NoError(t, s.WriteReport(ctx, fp, sampleResult(time.Now().UTC().Add(-48*time.Hour), time.Hour)))

	got, stored, err := s.LatestReport(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.Expired(time.Now().UTC()))
	assert.Equal(t, "acme", stored.Own.LinkedIn)
}

func TestSocialConnections_OnlyConnected(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	_, err := pool.Exec(ctx,
		`INSERT INTO social_connections (account_id, platform, handle, connected)
		 VALUES ($1, 'instagram', 'acme', TRUE), ($1, 'facebook', 'acme', FALSE)`, accountID)
	require.NoError(t, err)

	conns, err := s.ListSocialConnections(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, "instagram", conns[0].Platform)
}

func TestGetCompetitorByDomain_NormalizesInput(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	pool := setupTestDB(t)
	s := store.NewPostgresStore(pool)
	ctx := context.Background()
	accountID := defaultAccountID(t, pool)

	_, err := pool.Exec(ctx,
		`INSERT INTO competitors (account_id, domain, instagram_handle)
		 VALUES ($1, 'b.com', 'rival')`, accountID)
	require.NoError(t, err)

	c, err := s.GetCompetitorByDomain(ctx, accountID, "https://www.b.com/pricing")
	require.NoError(t, err)
	assert.Equal(t, "rival", c.InstagramHandle)

	_, err = s.GetCompetitorByDomain(ctx, accountID, "unknown.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
