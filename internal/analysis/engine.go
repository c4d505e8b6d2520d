// Package analysis is the competitive-analysis orchestration engine: it
// gates admission, fans out to the data providers, composes the two-sided
// report, and keeps the fingerprinted cache coherent.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitespar/sitespar/internal/admission"
	"github.com/sitespar/sitespar/internal/cache"
	"github.com/sitespar/sitespar/internal/plan"
	"github.com/sitespar/sitespar/internal/provider"
	"github.com/sitespar/sitespar/internal/store"
	"github.com/sitespar/sitespar/pkg/models"
)

// Section group aliases accepted by the refresh entrypoint.
const (
	sectionGroupSEO    = "seo"
	sectionGroupSocial = "social"
)

// Request holds one analysis request for its lifecycle.
type Request struct {
	AccountID        uuid.UUID
	Tier             models.PlanTier
	OwnSite          string
	CompetitorSite   string
	OwnSocial        models.SocialIdentity
	CompetitorSocial models.SocialIdentity
	ForceRefresh     bool
}

// Config wires the engine's collaborators and tuning.
type Config struct {
	Limiter        admission.Limiter
	SectionLimiter admission.Limiter
	Lock           admission.Locker
	Store          store.Store
	Cache          cache.Cache
	Core           []provider.Provider
	Social         map[string]provider.Provider
	Ads            provider.Provider
	ReportTTL      time.Duration
	SocialCacheTTL time.Duration
	LockStaleAfter time.Duration
	Refresher      *Refresher
}

// Engine runs analyses. Safe for concurrent use.
type Engine struct {
	limiter        admission.Limiter
	sectionLimiter admission.Limiter
	lock           admission.Locker
	store          store.Store
	cache          cache.Cache
	core           []provider.Provider
	social         map[string]provider.Provider
	ads            provider.Provider
	byName         map[string]provider.Provider
	reportTTL      time.Duration
	socialCacheTTL time.Duration
	lockStaleAfter time.Duration
	refresher      *Refresher

	now func() time.Time
}

// NewEngine creates an Engine from its collaborators.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		limiter:        cfg.Limiter,
		sectionLimiter: cfg.SectionLimiter,
		lock:           cfg.Lock,
		store:          cfg.Store,
		cache:          cfg.Cache,
		core:           cfg.Core,
		social:         cfg.Social,
		ads:            cfg.Ads,
		byName:         make(map[string]provider.Provider),
		reportTTL:      cfg.ReportTTL,
		socialCacheTTL: cfg.SocialCacheTTL,
		lockStaleAfter: cfg.LockStaleAfter,
		refresher:      cfg.Refresher,
		now:            time.Now,
	}
	for _, p := range cfg.Core {
		e.byName[p.Name()] = p
	}
	for _, p := range cfg.Social {
		e.byName[p.Name()] = p
	}
	if cfg.Ads != nil {
		e.byName[cfg.Ads.Name()] = cfg.Ads
	}
	return e
}

// invocation pairs a provider with the target it should fetch. platform is
// set for social providers so the sub-cache can short-circuit the fetch.
type invocation struct {
	prov     provider.Provider
	target   provider.Target
	platform string
}

// Analyze runs the full pipeline: admission gates, cache lookup, provider
// fan-out, composition, write-through, plan filter.
func (e *Engine) Analyze(ctx context.Context, req Request) (*models.CompositeResult, error) {
	identity := req.AccountID.String()
	if ok, retryAfter := e.limiter.Allow(identity); !ok {
		return nil, &AdmissionError{Err: ErrRateLimited, RetryAfter: retryAfter}
	}

	key := models.NewAnalysisKey(req.AccountID, req.OwnSite, req.CompetitorSite)
	ok, token, age := e.lock.TryAcquire(key)
	if !ok {
		return nil, &AdmissionError{Err: ErrInProgress, RetryAfter: e.lockStaleAfter - age}
	}
	defer e.lock.Release(key, token)

	own, competitor := e.resolveIdentities(ctx, req)
	fp := models.Fingerprint{AnalysisKey: key, Own: own, Competitor: competitor}

	if !req.ForceRefresh {
		if cached, err := e.store.LookupReport(ctx, fp, false); err == nil {
			e.maybeWarmSocial(key, fp, cached, own, competitor)
			return plan.Filter(cached, req.Tier), nil
		} else if !errors.Is(err, store.ErrNotFound) {
			// A cache outage degrades to live fetches.
			slog.Warn("report lookup failed, falling through to providers", "key", key, "error", err)
		}
	}

	// An expired entry under the exact same fingerprint still serves as
	// fallback for sections whose provider fails this round.
	prior, err := e.store.LookupReport(ctx, fp, true)
	if err != nil {
		prior = nil
	}

	outcomes := e.runProviders(ctx, e.resolveInvocations(req, own, competitor))

	allFailed := true
	for _, out := range outcomes {
		if !out.Failed() {
			allFailed = false
			break
		}
	}
	if allFailed && prior == nil {
		return nil, totalFailure(outcomes)
	}

	result := Compose(outcomes, prior, e.now().UTC(), e.reportTTL)

	// The unfiltered result is what gets cached; a write failure only
	// affects freshness, never the response.
	if err := e.store.WriteReport(ctx, fp, result); err != nil {
		slog.Warn("report write-through failed", "key", key, "error", err)
	}

	return plan.Filter(result, req.Tier), nil
}

// RefreshSection recomputes exactly one section (or section group) of an
// existing cached report without touching the rest.
func (e *Engine) RefreshSection(ctx context.Context, req Request, section string) (*models.CompositeResult, error) {
	identity := req.AccountID.String()
	if ok, retryAfter := e.sectionLimiter.Allow(identity); !ok {
		return nil, &AdmissionError{Err: ErrRateLimited, RetryAfter: retryAfter}
	}

	key := models.NewAnalysisKey(req.AccountID, req.OwnSite, req.CompetitorSite)
	ok, token, age := e.lock.TryAcquire(key)
	if !ok {
		return nil, &AdmissionError{Err: ErrInProgress, RetryAfter: e.lockStaleAfter - age}
	}
	defer e.lock.Release(key, token)

	providers, err := e.providersForSection(section)
	if err != nil {
		return nil, err
	}

	// A section refresh intentionally reuses stale companion sections:
	// the latest entry for the key is loaded regardless of social
	// identity match or expiration.
	prior, storedFp, err := e.store.LatestReport(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoPriorReport
		}
		return nil, fmt.Errorf("loading prior report: %w", err)
	}

	own, competitor := e.resolveIdentities(ctx, req)

	var invocations []invocation
	for _, p := range providers {
		invocations = append(invocations, e.invocationsFor(p, req, own, competitor)...)
	}
	if len(invocations) == 0 {
		return nil, &TotalFailureError{
			Providers: []string{section},
			Reasons:   []string{"no provider applicable: no connected handle for section"},
		}
	}

	outcomes := e.runProviders(ctx, invocations)

	patched := PatchSections(prior, outcomes, e.now().UTC(), e.reportTTL)

	// Refreshed social handles become part of the stored fingerprint so
	// subsequent full lookups match the data actually in the row. A failed
	// fetch keeps the prior section payload, so its fingerprint entry must
	// keep the prior handle too.
	for i, inv := range invocations {
		if inv.platform == "" || outcomes[i].Status != models.OutcomeSuccess {
			continue
		}
		if inv.target.Side == models.SideOwn {
			storedFp.Own.SetHandle(inv.platform, inv.target.Handle)
		} else {
			storedFp.Competitor.SetHandle(inv.platform, inv.target.Handle)
		}
	}

	if err := e.store.WriteReport(ctx, storedFp, patched); err != nil {
		slog.Warn("section refresh write failed", "key", key, "section", section, "error", err)
	}

	return plan.Filter(patched, req.Tier), nil
}

// resolveIdentities normalizes inline handles and fills gaps from the
// social-connection registry (own side) and the saved competitor profile
// (competitor side). Collaborator outages leave the platform unconnected
// rather than failing the request.
func (e *Engine) resolveIdentities(ctx context.Context, req Request) (own, competitor models.SocialIdentity) {
	own = req.OwnSocial.Normalize()
	competitor = req.CompetitorSocial.Normalize()

	if conns, err := e.store.ListSocialConnections(ctx, req.AccountID); err == nil {
		for _, c := range conns {
			if own.Handle(c.Platform) == "" {
				own.SetHandle(c.Platform, c.Handle)
			}
		}
	} else {
		slog.Warn("social connection lookup failed", "account_id", req.AccountID, "error", err)
	}

	if competitor.IsEmpty() {
		if c, err := e.store.GetCompetitorByDomain(ctx, req.AccountID, req.CompetitorSite); err == nil {
			competitor.SetHandle(models.PlatformFacebook, c.FacebookHandle)
			competitor.SetHandle(models.PlatformInstagram, c.InstagramHandle)
			competitor.SetHandle(models.PlatformLinkedIn, c.LinkedInHandle)
		} else if !errors.Is(err, store.ErrNotFound) {
			slog.Warn("competitor profile lookup failed", "account_id", req.AccountID, "error", err)
		}
	}
	return own, competitor
}

// resolveInvocations builds the full fan-out set: the core providers for
// both sides, each social platform only for sides with a connected handle,
// and ads opportunistically.
func (e *Engine) resolveInvocations(req Request, own, competitor models.SocialIdentity) []invocation {
	var invocations []invocation
	for _, p := range e.core {
		invocations = append(invocations, e.invocationsFor(p, req, own, competitor)...)
	}
	for _, platform := range models.Platforms {
		p, ok := e.social[platform]
		if !ok {
			continue
		}
		invocations = append(invocations, e.invocationsFor(p, req, own, competitor)...)
	}
	if e.ads != nil {
		invocations = append(invocations, e.invocationsFor(e.ads, req, own, competitor)...)
	}
	return invocations
}

// invocationsFor expands one provider into per-side invocations. Social
// providers are skipped for a side without a handle.
func (e *Engine) invocationsFor(p provider.Provider, req Request, own, competitor models.SocialIdentity) []invocation {
	platform := socialPlatform(p.Name())
	var out []invocation

	if platform == "" {
		out = append(out,
			invocation{prov: p, target: provider.Target{Side: models.SideOwn, Domain: models.NormalizeDomain(req.OwnSite)}},
			invocation{prov: p, target: provider.Target{Side: models.SideCompetitor, Domain: models.NormalizeDomain(req.CompetitorSite)}},
		)
		return out
	}

	if h := own.Handle(platform); h != "" {
		out = append(out, invocation{
			prov:     p,
			platform: platform,
			target:   provider.Target{Side: models.SideOwn, Domain: models.NormalizeDomain(req.OwnSite), Handle: h},
		})
	}
	if h := competitor.Handle(platform); h != "" {
		out = append(out, invocation{
			prov:     p,
			platform: platform,
			target:   provider.Target{Side: models.SideCompetitor, Domain: models.NormalizeDomain(req.CompetitorSite), Handle: h},
		})
	}
	return out
}

// runProviders is the settle-all fan-out: every invocation runs in its own
// goroutine time-boxed by its adapter's timeout, and the join waits for all
// of them. One provider's failure or timeout never cancels a sibling.
func (e *Engine) runProviders(ctx context.Context, invocations []invocation) []models.ProviderOutcome {
	// The caller carries no cancellation signal downward; a released
	// lock is the only way a stuck computation becomes retryable.
	base := context.WithoutCancel(ctx)

	outcomes := make([]models.ProviderOutcome, len(invocations))
	var wg sync.WaitGroup
	for i, inv := range invocations {
		wg.Add(1)
		go func(i int, inv invocation) {
			defer wg.Done()
			outcomes[i] = e.fetchOne(base, inv)
		}(i, inv)
	}
	wg.Wait()
	return outcomes
}

// fetchOne runs a single provider call behind its timeout and the social
// sub-cache, converting panics into failure outcomes.
func (e *Engine) fetchOne(ctx context.Context, inv invocation) (out models.ProviderOutcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in provider fetch", "provider", inv.prov.Name(), "error", r)
			out = provider.Failure(inv.prov.Name(), inv.target.Side, fmt.Sprintf("panic: %v", r), 0)
		}
	}()

	if inv.platform != "" {
		if payload, ok := e.cachedSocial(ctx, inv.platform, inv.target.Handle); ok {
			return provider.Success(inv.prov.Name(), inv.target.Side, payload, 0)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, inv.prov.Timeout())
	defer cancel()

	out = inv.prov.Fetch(fetchCtx, inv.target)

	if inv.platform != "" && out.Status == models.OutcomeSuccess {
		e.storeSocial(ctx, inv.platform, inv.target.Handle, out.Payload)
	}
	return out
}

// cachedSocial serves a platform profile from the short-lived redis
// sub-cache. Errors are misses.
func (e *Engine) cachedSocial(ctx context.Context, platform, handle string) (models.SocialPayload, bool) {
	var payload models.SocialPayload
	raw, found, err := e.cache.Get(ctx, cache.SocialSectionKey(platform, handle))
	if err != nil || !found {
		return payload, false
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, false
	}
	return payload, true
}

func (e *Engine) storeSocial(ctx context.Context, platform, handle string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, cache.SocialSectionKey(platform, handle), raw, e.socialCacheTTL); err != nil {
		slog.Warn("social sub-cache write failed", "platform", platform, "error", err)
	}
}

// maybeWarmSocial submits a best-effort background refresh of the social
// sections when a cache hit is older than the social sub-cache TTL. The
// foreground response never waits on it.
func (e *Engine) maybeWarmSocial(key string, fp models.Fingerprint, cached *models.CompositeResult, own, competitor models.SocialIdentity) {
	if e.refresher == nil {
		return
	}
	if own.IsEmpty() && competitor.IsEmpty() {
		return
	}
	if e.now().UTC().Sub(cached.CreatedAt) < e.socialCacheTTL {
		return
	}

	e.refresher.Submit("warm-social:"+key, func(ctx context.Context) error {
		// Skip quietly when a foreground run holds the key.
		ok, token, _ := e.lock.TryAcquire(key)
		if !ok {
			return nil
		}
		defer e.lock.Release(key, token)

		var invocations []invocation
		for _, platform := range models.Platforms {
			p, present := e.social[platform]
			if !present {
				continue
			}
			if h := own.Handle(platform); h != "" {
				invocations = append(invocations, invocation{
					prov: p, platform: platform,
					target: provider.Target{Side: models.SideOwn, Handle: h},
				})
			}
			if h := competitor.Handle(platform); h != "" {
				invocations = append(invocations, invocation{
					prov: p, platform: platform,
					target: provider.Target{Side: models.SideCompetitor, Handle: h},
				})
			}
		}
		if len(invocations) == 0 {
			return nil
		}

		outcomes := e.runProviders(ctx, invocations)

		latest, storedFp, err := e.store.LatestReport(ctx, key)
		if err != nil {
			return fmt.Errorf("loading report for social warm: %w", err)
		}
		patched := PatchSections(latest, outcomes, e.now().UTC(), e.reportTTL)
		return e.store.WriteReport(ctx, storedFp, patched)
	})
}

// providersForSection maps a section name (or group alias) to the adapters
// that back it.
func (e *Engine) providersForSection(section string) ([]provider.Provider, error) {
	switch section {
	case sectionGroupSEO:
		return e.named(models.SectionPerformance, models.SectionTechnical, models.SectionBacklinks), nil
	case sectionGroupSocial:
		var out []provider.Provider
		for _, platform := range models.Platforms {
			if p, ok := e.social[platform]; ok {
				out = append(out, p)
			}
		}
		return out, nil
	}

	if p, ok := e.byName[section]; ok {
		return []provider.Provider{p}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
}

func (e *Engine) named(names ...string) []provider.Provider {
	var out []provider.Provider
	for _, n := range names {
		if p, ok := e.byName[n]; ok {
			out = append(out, p)
		}
	}
	return out
}

// socialPlatform extracts the platform from a social section name, or ""
// for non-social providers.
func socialPlatform(name string) string {
	if strings.HasPrefix(name, "social.") {
		return strings.TrimPrefix(name, "social.")
	}
	return ""
}

// totalFailure builds the error for a run where every provider failed and
// no cached fallback existed.
func totalFailure(outcomes []models.ProviderOutcome) error {
	seen := map[string]bool{}
	failure := &TotalFailureError{}
	for _, out := range outcomes {
		if seen[out.Provider] {
			continue
		}
		seen[out.Provider] = true
		failure.Providers = append(failure.Providers, out.Provider)
		failure.Reasons = append(failure.Reasons, out.Err)
	}
	return failure
}
