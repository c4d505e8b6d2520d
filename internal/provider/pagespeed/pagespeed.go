// Package pagespeed adapts the page-speed auditing service. The same API
// backs two report sections: performance metrics and technical hygiene
// audits, selected by category.
package pagespeed

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

// Audit categories recognized by the upstream service.
const (
	CategoryPerformance = "performance"
	CategoryTechnical   = "technical"
)

// Provider implements provider.Provider for one audit category.
type Provider struct {
	cfg      config.PageSpeedConfig
	category string
	client   *http.Client
}

// NewProvider creates a pagespeed adapter for the given category.
func NewProvider(cfg config.PageSpeedConfig, category string) *Provider {
	return &Provider{
		cfg:      cfg,
		category: category,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string {
	if p.category == CategoryTechnical {
		return models.SectionTechnical
	}
	return models.SectionPerformance
}

func (p *Provider) Timeout() time.Duration { return p.cfg.Timeout }

type auditResponse struct {
	Performance *models.PerformancePayload `json:"performance"`
	Technical   *models.TechnicalPayload   `json:"technical"`
}

func (p *Provider) Fetch(ctx context.Context, target provider.Target) models.ProviderOutcome {
	start := time.Now()

	params := url.Values{
		"url":      {"https://" + target.Domain},
		"category": {p.category},
	}
	u := fmt.Sprintf("%s/v1/audit?%s", p.cfg.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return provider.Failure(p.Name(), target.Side, fmt.Sprintf("building request: %v", err), time.Since(start))
	}
	if p.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", p.cfg.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return provider.Errored(p.Name(), target.Side, err, time.Since(start))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("audit service returned status %d", resp.StatusCode), time.Since(start))
	}

	var body auditResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("decoding audit response: %v", err), time.Since(start))
	}

	switch p.category {
	case CategoryTechnical:
		if body.Technical == nil {
			return provider.Failure(p.Name(), target.Side, "audit response missing technical section", time.Since(start))
		}
		return provider.Success(p.Name(), target.Side, *body.Technical, time.Since(start))
	default:
		if body.Performance == nil {
			return provider.Failure(p.Name(), target.Side, "audit response missing performance section", time.Since(start))
		}
		return provider.Success(p.Name(), target.Side, *body.Performance, time.Since(start))
	}
}

var _ provider.Provider = (*Provider)(nil)
