// Package content analyzes a site's landing page directly: it fetches the
// HTML and derives the content section with goquery.
package content

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sitespar/sitespar/internal/config"
	"github.com/sitespar/sitespar/internal/provider"
	"github.com/sitespar/sitespar/pkg/models"
)

const maxTopKeywords = 10

// Provider implements provider.Provider for the content section.
type Provider struct {
	cfg    config.ContentConfig
	client *http.Client
}

func NewProvider(cfg config.ContentConfig) *Provider {
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *Provider) Name() string           { return models.SectionContent }
func (p *Provider) Timeout() time.Duration { return p.cfg.Timeout }

func (p *Provider) Fetch(ctx context.Context, target provider.Target) models.ProviderOutcome {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+target.Domain+"/", nil)
	if err != nil {
		return provider.Failure(p.Name(), target.Side, fmt.Sprintf("building request: %v", err), time.Since(start))
	}
	req.Header.Set("User-Agent", p.cfg.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return provider.Errored(p.Name(), target.Side, err, time.Since(start))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("site returned status %d", resp.StatusCode), time.Since(start))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return provider.Failure(p.Name(), target.Side,
			fmt.Sprintf("parsing page: %v", err), time.Since(start))
	}

	payload := Analyze(doc, target.Domain)
	return provider.Success(p.Name(), target.Side, payload, time.Since(start))
}

// Analyze derives the content payload from a parsed document.
func Analyze(doc *goquery.Document, domain string) models.ContentPayload {
	payload := models.ContentPayload{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		payload.MetaDescription = strings.TrimSpace(desc)
	}

	payload.H1Count = doc.Find("h1").Length()
	payload.H2Count = doc.Find("h2").Length()

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		payload.ImageCount++
		if alt, ok := s.Attr("alt"); ok && strings.TrimSpace(alt) != "" {
			payload.ImagesWithAlt++
		}
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isInternalLink(href, domain) {
			payload.InternalLinks++
		} else {
			payload.ExternalLinks++
		}
	})

	body := doc.Find("body")
	body.Find("script, style, noscript").Remove()
	words := strings.Fields(body.Text())
	payload.WordCount = len(words)
	payload.TopKeywords = keywordDensity(words)

	return payload
}

func isInternalLink(href, domain string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	if strings.HasPrefix(h, "http://") || strings.HasPrefix(h, "https://") {
		return strings.Contains(h, domain)
	}
	return !strings.HasPrefix(h, "mailto:") && !strings.HasPrefix(h, "tel:")
}

// stopwords excluded from keyword density.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "with": true, "this": true,
	"that": true, "from": true, "your": true, "our": true, "was": true,
	"have": true, "has": true, "can": true, "will": true, "more": true,
}

// keywordDensity returns the share of total words for the most frequent
// terms, lower-cased, stopwords and short tokens excluded.
func keywordDensity(words []string) map[string]float64 {
	if len(words) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, w := range words {
		t := strings.ToLower(strings.Trim(w, ".,:;!?()[]\"'"))
		if len(t) < 3 || stopwords[t] {
			continue
		}
		counts[t]++
	}
	if len(counts) == 0 {
		return nil
	}

	type wc struct {
		word  string
		count int
	}
	ranked := make([]wc, 0, len(counts))
	for w, c := range counts {
		ranked = append(ranked, wc{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	if len(ranked) > maxTopKeywords {
		ranked = ranked[:maxTopKeywords]
	}
	density := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		density[r.word] = float64(r.count) / float64(len(words))
	}
	return density
}

var _ provider.Provider = (*Provider)(nil)
