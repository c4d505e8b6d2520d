// Package backlinks adapts the backlink index service.
package backlinks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sitespar/sitespar/internal/config"
	"github.com/sitespar/sitespar/internal/provider"
	"github.com/sitespar/sitespar/pkg/models"
)

// Provider implements provider.Provider for the backlinks section.
type Provider struct {
	cfg    config.BacklinksConfig
	client *http.Client
}

func NewProvider(cfg config.BacklinksConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string           { return models.SectionBacklinks }
func (p *Provider) Timeout() time.Duration { return p.cfg.Timeout }

func (p *Provider) Fetch(ctx context.Context, target provider.Target) models.ProviderOutcome {
	start := time.Now()

	params := url.Values{"domain": {target.Domain}}
	u := fmt.Sprintf("%s/v1/backlinks?%s", p.cfg.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return provider.Failure(p.Name(), target.Side, fmt.Sprintf("building request: %v", err), time.Since(start))
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return provider.Errored(p.Name(), target.Side, err, time.Since(start))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("backlink index returned status %d", resp.StatusCode), time.Since(start))
	}

	var payload models.BacklinksPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("decoding backlink response: %v", err), time.Since(start))
	}

	return provider.Success(p.Name(), target.Side, payload, time.Since(start))
}

var _ provider.Provider = (*Provider)(nil)
