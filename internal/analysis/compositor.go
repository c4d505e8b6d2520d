package analysis

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/sitespar/sitespar/pkg/models"
)

// Compose merges settled provider outcomes into the canonical two-sided
// report. Sections with no successful outcome fall back to the prior cached
// report's section when one exists; otherwise they carry an explicit
// unavailable marker, never a silent zero-fill.
func Compose(outcomes []models.ProviderOutcome, prior *models.CompositeResult, now time.Time, ttl time.Duration) *models.CompositeResult {
	result := &models.CompositeResult{
		OwnSide:        models.Side{},
		CompetitorSide: models.Side{},
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}

	failed := map[string]bool{}
	for _, out := range outcomes {
		side := result.OwnSide
		if out.Side == models.SideCompetitor {
			side = result.CompetitorSide
		}

		if out.Status == models.OutcomeSuccess {
			payload, err := json.Marshal(out.Payload)
			if err != nil {
				failed[out.Provider] = true
				side[out.Section] = fallbackSection(prior, out.Side, out.Section, "invalid provider payload")
				continue
			}
			side[out.Section] = models.Section{Status: models.SectionOK, Payload: payload}
			continue
		}

		failed[out.Provider] = true
		side[out.Section] = fallbackSection(prior, out.Side, out.Section, out.Err)
	}

	if len(failed) > 0 {
		result.PartialFailure = true
		result.FailedProviders = make([]string, 0, len(failed))
		for name := range failed {
			result.FailedProviders = append(result.FailedProviders, name)
		}
		sort.Strings(result.FailedProviders)
	}

	result.Comparison = DeriveComparison(result.OwnSide, result.CompetitorSide)
	return result
}

// fallbackSection reuses the prior cached section for a failed provider, or
// an explicit unavailable marker when no prior value exists.
func fallbackSection(prior *models.CompositeResult, side models.ReportSide, section, reason string) models.Section {
	if prior != nil {
		priorSide := prior.OwnSide
		if side == models.SideCompetitor {
			priorSide = prior.CompetitorSide
		}
		if sec, ok := priorSide[section]; ok && sec.Status == models.SectionOK {
			return sec
		}
	}
	return models.Unavailable(reason)
}

// PatchSections overlays successful outcomes onto a clone of the prior
// report, leaving every untouched section byte-for-byte identical. Failed
// outcomes change nothing except the failure flags. The comparison is
// recomputed and the expiry window restarts from now.
func PatchSections(prior *models.CompositeResult, outcomes []models.ProviderOutcome, now time.Time, ttl time.Duration) *models.CompositeResult {
	result := prior.Clone()

	failed := map[string]bool{}
	for _, name := range result.FailedProviders {
		failed[name] = true
	}

	for _, out := range outcomes {
		if out.Status != models.OutcomeSuccess {
			failed[out.Provider] = true
			continue
		}
		payload, err := json.Marshal(out.Payload)
		if err != nil {
			failed[out.Provider] = true
			continue
		}
		side := result.OwnSide
		if out.Side == models.SideCompetitor {
			side = result.CompetitorSide
		}
		side[out.Section] = models.Section{Status: models.SectionOK, Payload: payload}
		delete(failed, out.Provider)
	}

	result.FailedProviders = nil
	result.PartialFailure = len(failed) > 0
	if result.PartialFailure {
		result.FailedProviders = make([]string, 0, len(failed))
		for name := range failed {
			result.FailedProviders = append(result.FailedProviders, name)
		}
		sort.Strings(result.FailedProviders)
	}

	result.ExpiresAt = now.Add(ttl)
	result.Comparison = DeriveComparison(result.OwnSide, result.CompetitorSide)
	return result
}

// DeriveComparison computes the cross-side metrics as a pure function of the
// two sides. It must be re-run any time either side's sections change,
// including after a section-only refresh. Metrics whose backing section is
// missing on either side stay nil.
func DeriveComparison(own, competitor models.Side) models.Comparison {
	var cmp models.Comparison

	if a, b, ok := sectionPair[models.PerformancePayload](own, competitor, models.SectionPerformance); ok {
		delta := a.Score - b.Score
		cmp.PerformanceScoreDelta = &delta
	}
	if a, b, ok := sectionPair[models.TechnicalPayload](own, competitor, models.SectionTechnical); ok {
		delta := a.Score - b.Score
		cmp.TechnicalScoreDelta = &delta
	}
	if a, b, ok := sectionPair[models.ContentPayload](own, competitor, models.SectionContent); ok {
		delta := a.WordCount - b.WordCount
		cmp.WordCountDelta = &delta
	}
	if a, b, ok := sectionPair[models.BacklinksPayload](own, competitor, models.SectionBacklinks); ok {
		delta := a.TotalBacklinks - b.TotalBacklinks
		cmp.BacklinkDelta = &delta
		daDelta := a.DomainAuthority - b.DomainAuthority
		cmp.DomainAuthorityDelta = &daDelta
		if b.ReferringDomains > 0 {
			ratio := float64(a.ReferringDomains) / float64(b.ReferringDomains)
			cmp.ReferringDomainRatio = &ratio
		}
	}

	for _, platform := range models.Platforms {
		section := models.SocialSection(platform)
		a, b, ok := sectionPair[models.SocialPayload](own, competitor, section)
		if !ok {
			continue
		}
		sc := models.SocialComparison{
			FollowerDelta: a.Followers - b.Followers,
		}
		if a.EngagementRate != nil && b.EngagementRate != nil {
			delta := *a.EngagementRate - *b.EngagementRate
			sc.EngagementRateDelta = &delta
		}
		if b.Followers > 0 {
			ratio := float64(a.Followers) / float64(b.Followers)
			sc.FollowerRatio = &ratio
		}
		if cmp.Social == nil {
			cmp.Social = map[string]models.SocialComparison{}
		}
		cmp.Social[platform] = sc
	}

	return cmp
}

// sectionPair decodes the same section from both sides; ok only when both
// are present with status ok and decode cleanly.
func sectionPair[T any](own, competitor models.Side, section string) (T, T, bool) {
	var a, b T
	sa, okA := own[section]
	sb, okB := competitor[section]
	if !okA || !okB || sa.Status != models.SectionOK || sb.Status != models.SectionOK {
		return a, b, false
	}
	if json.Unmarshal(sa.Payload, &a) != nil || json.Unmarshal(sb.Payload, &b) != nil {
		return a, b, false
	}
	return a, b, true
}
