// Package plan prunes a composite result to what the caller's subscription
// tier includes. Filtering is purely a view transform over a deep copy; the
// cached value is always the unfiltered result, so a tier upgrade needs no
// recomputation, only re-filtering.
package plan

import (
	"encoding/json"

	"github.com/sitespar/sitespar/pkg/models"
)

// Unlimited disables a list cap.
const Unlimited = -1

// SectionRule controls one section for one tier.
type SectionRule struct {
	Visible bool
	// ListCap bounds the section's list payloads (top backlinks, top
	// posts). Unlimited leaves them untouched.
	ListCap int
	// HideSubMetrics redacts premium sub-metrics (engagement rate,
	// domain authority).
	HideSubMetrics bool
	// UpgradeTo names the cheapest tier that unlocks a hidden section.
	UpgradeTo models.PlanTier
}

// Matrix maps section name to rule for one tier.
type Matrix map[string]SectionRule

// features is the declarative per-tier matrix. Sections absent from a
// tier's map are visible and uncapped.
var features = map[models.PlanTier]Matrix{
	models.TierStarter: {
		models.SectionBacklinks: {Visible: false, UpgradeTo: models.TierGrowth},
		models.SectionAds:       {Visible: false, UpgradeTo: models.TierPro},
		models.SectionFacebook:  {Visible: true, ListCap: 3, HideSubMetrics: true},
		models.SectionInstagram: {Visible: true, ListCap: 3, HideSubMetrics: true},
		models.SectionLinkedIn:  {Visible: true, ListCap: 3, HideSubMetrics: true},
	},
	models.TierGrowth: {
		models.SectionAds:       {Visible: false, UpgradeTo: models.TierPro},
		models.SectionBacklinks: {Visible: true, ListCap: 10},
		models.SectionFacebook:  {Visible: true, ListCap: 10},
		models.SectionInstagram: {Visible: true, ListCap: 10},
		models.SectionLinkedIn:  {Visible: true, ListCap: 10},
	},
	models.TierPro: {},
}

// Filter returns a tier-pruned copy of result. The input is never mutated.
// Blocked sections are replaced with an explicit marker carrying the tier
// that unlocks them, never omitted, so callers can render an upsell.
func Filter(result *models.CompositeResult, tier models.PlanTier) *models.CompositeResult {
	out := result.Clone()
	matrix := features[tier]

	filterSide(out.OwnSide, matrix)
	filterSide(out.CompetitorSide, matrix)
	filterComparison(&out.Comparison, matrix)
	return out
}

func filterSide(side models.Side, matrix Matrix) {
	for name, sec := range side {
		rule, ok := matrix[name]
		if !ok {
			continue
		}
		if !rule.Visible {
			side[name] = models.Section{Status: models.SectionBlocked, UpgradeRequired: rule.UpgradeTo}
			continue
		}
		if sec.Status != models.SectionOK {
			continue
		}
		side[name] = applyRule(name, sec, rule)
	}
}

// applyRule rewrites a visible section's payload per its cap and sub-metric
// rules. Unknown payload shapes pass through unchanged.
func applyRule(name string, sec models.Section, rule SectionRule) models.Section {
	if rule.ListCap == 0 && !rule.HideSubMetrics {
		return sec
	}

	switch name {
	case models.SectionBacklinks:
		var p models.BacklinksPayload
		if err := json.Unmarshal(sec.Payload, &p); err != nil {
			return sec
		}
		if rule.ListCap > 0 && len(p.TopBacklinks) > rule.ListCap {
			p.TopBacklinks = p.TopBacklinks[:rule.ListCap]
		}
		if rule.HideSubMetrics {
			p.DomainAuthority = 0
		}
		return remarshal(sec, p)
	case models.SectionFacebook, models.SectionInstagram, models.SectionLinkedIn:
		var p models.SocialPayload
		if err := json.Unmarshal(sec.Payload, &p); err != nil {
			return sec
		}
		if rule.ListCap > 0 && len(p.TopPosts) > rule.ListCap {
			p.TopPosts = p.TopPosts[:rule.ListCap]
		}
		if rule.HideSubMetrics {
			p.EngagementRate = nil
		}
		return remarshal(sec, p)
	}
	return sec
}

func remarshal(sec models.Section, payload any) models.Section {
	b, err := json.Marshal(payload)
	if err != nil {
		return sec
	}
	sec.Payload = b
	return sec
}

// filterComparison drops derived metrics whose backing sections are hidden
// from the tier.
func filterComparison(cmp *models.Comparison, matrix Matrix) {
	if rule, ok := matrix[models.SectionBacklinks]; ok {
		if !rule.Visible {
			cmp.BacklinkDelta = nil
			cmp.ReferringDomainRatio = nil
			cmp.DomainAuthorityDelta = nil
		} else if rule.HideSubMetrics {
			cmp.DomainAuthorityDelta = nil
		}
	}
	for _, platform := range models.Platforms {
		rule, ok := matrix[models.SocialSection(platform)]
		if !ok {
			continue
		}
		sc, present := cmp.Social[platform]
		if !present {
			continue
		}
		if !rule.Visible {
			delete(cmp.Social, platform)
			continue
		}
		if rule.HideSubMetrics {
			sc.EngagementRateDelta = nil
			cmp.Social[platform] = sc
		}
	}
}
