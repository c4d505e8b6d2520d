// Package social adapts the social scraper API. One Provider instance
// serves one platform; the scrapers are slow and each platform carries its
// own timeout. A missing handle is a plain failure, not a timeout: there is
// nothing to retry until the caller connects an account.
package social

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

// Provider implements provider.Provider for one social platform.
type Provider struct {
	cfg      config.SocialConfig
	platform string
	timeout  time.Duration
	client   *http.Client
}

// NewProvider creates a scraper adapter for the given platform.
func NewProvider(cfg config.SocialConfig, platform string) *Provider {
	timeout := cfg.FacebookTimeout
	switch platform {
	case models.PlatformInstagram:
		timeout = cfg.InstagramTimeout
	case models.PlatformLinkedIn:
		timeout = cfg.LinkedInTimeout
	}
	return &Provider{
		cfg:      cfg,
		platform: platform,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string           { return models.SocialSection(p.platform) }
func (p *Provider) Timeout() time.Duration { return p.timeout }

func (p *Provider) Fetch(ctx context.Context, target provider.Target) models.ProviderOutcome {
	start := time.Now()

	if target.Handle == "" {
		return provider.Failure(p.Name(), target.Side, "no "+p.platform+" handle connected", time.Since(start))
	}

	params := url.Values{"handle": {target.Handle}}
	u := fmt.Sprintf("%s/v1/%s/profile?%s", p.cfg.BaseURL, p.platform, params.Encode())

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

	if resp.StatusCode == http.StatusNotFound {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("%s profile %q not found", p.platform, target.Handle), time.Since(start))
	}
	if resp.StatusCode != http.StatusOK {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("scraper returned status %d", resp.StatusCode), time.Since(start))
	}

	var payload models.SocialPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("decoding profile response: %v", err), time.Since(start))
	}
	payload.Platform = p.platform
	payload.Handle = target.Handle

	return provider.Success(p.Name(), target.Side, payload, time.Since(start))
}

var _ provider.Provider = (*Provider)(nil)
