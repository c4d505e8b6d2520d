package pagespeed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitespar/sitespar/internal/config"
	"github.com/sitespar/sitespar/internal/provider"
	"github.com/sitespar/sitespar/internal/provider/pagespeed"
	"github.com/sitespar/sitespar/pkg/models"
)

func testConfig(baseURL string) config.PageSpeedConfig {
	return config.PageSpeedConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 2 * time.Second,
	}
}

func target() provider.Target {
	return provider.Target{Side: models.SideOwn, Domain: "acme.com"}
}

func TestFetchPerformance(t *testing.T) {
	var gotURL string
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		gotKey = r.Header.Get("X-API-Key")
		json.NewEncoder(w).Encode(map[string]any{
			"performance": models.PerformancePayload{Score: 87, FirstPaintMs: 1200},
		})
	}))
	defer srv.Close()

	p := pagespeed.NewProvider(testConfig(srv.URL), pagespeed.CategoryPerformance)
	out := p.Fetch(context.Background(), target())

	require.Equal(t, models.OutcomeSuccess, out.Status)
	assert.Equal(t, models.SectionPerformance, out.Section)
	assert.Equal(t, "test-key", gotKey)
	assert.Contains(t, gotURL, "category=performance")
	assert.Contains(t, gotURL, "url=https%3A%2F%2Facme.com")

	payload, ok := out.Payload.(models.PerformancePayload)
	require.True(t, ok)
	assert.InDelta(t, 87.0, payload.Score, 1e-9)
	assert.Equal(t, 1200, payload.FirstPaintMs)
}

func TestFetchTechnical(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"technical": models.TechnicalPayload{Score: 72, HTTPS: true, HasSitemap: true},
		})
	}))
	defer srv.Close()

	p := pagespeed.NewProvider(testConfig(srv.URL), pagespeed.CategoryTechnical)
	require.Equal(t, models.SectionTechnical, p.Name())

	out := p.Fetch(context.Background(), target())
	require.Equal(t, models.OutcomeSuccess, out.Status)

	payload, ok := out.Payload.(models.TechnicalPayload)
	require.True(t, ok)
	assert.True(t, payload.HTTPS)
	assert.True(t, payload.HasSitemap)
}

func TestFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := pagespeed.NewProvider(testConfig(srv.URL), pagespeed.CategoryPerformance)
	out := p.Fetch(context.Background(), target())

	assert.Equal(t, models.OutcomeFailure, out.Status)
	assert.Contains(t, out.Err, "502")
}

func TestFetchMissingSection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := pagespeed.NewProvider(testConfig(srv.URL), pagespeed.CategoryPerformance)
	out := p.Fetch(context.Background(), target())

	assert.Equal(t, models.OutcomeFailure, out.Status)
	assert.Contains(t, out.Err, "missing performance section")
}

func TestFetchTimeoutClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Timeout = 50 * time.Millisecond
	p := pagespeed.NewProvider(cfg, pagespeed.CategoryPerformance)

	out := p.Fetch(context.Background(), target())
	assert.Equal(t, models.OutcomeTimeout, out.Status)
}

func TestFetchBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"performance": "not-an-object"`))
	}))
	defer srv.Close()

	p := pagespeed.NewProvider(testConfig(srv.URL), pagespeed.CategoryPerformance)
	out := p.Fetch(context.Background(), target())

	assert.Equal(t, models.OutcomeFailure, out.Status)
}
