package models

import (
	"encoding/json"
	"time"
)

// Report sections. Providers are named after the section they populate;
// social sections are namespaced per platform.
const (
	SectionPerformance = "performance"
	SectionTechnical   = "technical"
	SectionContent     = "content"
	SectionBacklinks   = "backlinks"
	SectionAds         = "ads"
	SectionFacebook    = "social.facebook"
	SectionInstagram   = "social.instagram"
	SectionLinkedIn    = "social.linkedin"
)

// SocialSection returns the section name for a platform.
func SocialSection(platform string) string {
	return "social." + platform
}

// SectionStatus marks how a section slot was resolved.
type SectionStatus string

const (
	// SectionOK means the section carries a provider payload.
	SectionOK SectionStatus = "ok"
	// SectionUnavailable means no provider data and no cached fallback
	// exists. Explicit, never silently zero-filled.
	SectionUnavailable SectionStatus = "unavailable"
	// SectionBlocked means the caller's plan tier does not include the
	// section. Set only by the plan filter, never cached.
	SectionBlocked SectionStatus = "blocked"
)

// Section is one named slice of a composite report: a tagged payload keyed
// by section name, or an explicit unavailable/blocked marker.
type Section struct {
	Status          SectionStatus   `json:"status"`
	Payload         json.RawMessage `json:"payload,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	UpgradeRequired PlanTier        `json:"upgrade_required,omitempty"`
}

// Unavailable builds an explicit unavailable marker.
func Unavailable(reason string) Section {
	return Section{Status: SectionUnavailable, Reason: reason}
}

// Side maps section names to their resolved sections for one side of the
// comparison.
type Side map[string]Section

// Clone deep-copies a side, including payload bytes.
func (s Side) Clone() Side {
	out := make(Side, len(s))
	for name, sec := range s {
		if sec.Payload != nil {
			sec.Payload = append(json.RawMessage(nil), sec.Payload...)
		}
		out[name] = sec
	}
	return out
}

// SocialComparison holds derived cross-side metrics for one platform.
// EngagementRateDelta is nil when either side's rate is unknown or the
// caller's plan hides it, so a redacted value never reads as a genuine zero.
type SocialComparison struct {
	FollowerDelta       int64    `json:"follower_delta"`
	FollowerRatio       *float64 `json:"follower_ratio,omitempty"`
	EngagementRateDelta *float64 `json:"engagement_rate_delta,omitempty"`
}

// Comparison is derived purely from the two sides. Metrics whose backing
// sections are unavailable on either side are nil and omitted.
type Comparison struct {
	PerformanceScoreDelta *float64                    `json:"performance_score_delta,omitempty"`
	TechnicalScoreDelta   *float64                    `json:"technical_score_delta,omitempty"`
	WordCountDelta        *int                        `json:"word_count_delta,omitempty"`
	BacklinkDelta         *int64                      `json:"backlink_delta,omitempty"`
	ReferringDomainRatio  *float64                    `json:"referring_domain_ratio,omitempty"`
	DomainAuthorityDelta  *float64                    `json:"domain_authority_delta,omitempty"`
	Social                map[string]SocialComparison `json:"social,omitempty"`
}

// CompositeResult is the canonical two-sided report. The unfiltered result is
// what gets cached; plan filtering happens on a copy at the response boundary.
type CompositeResult struct {
	OwnSide         Side       `json:"own_side"`
	CompetitorSide  Side       `json:"competitor_side"`
	Comparison      Comparison `json:"comparison"`
	CreatedAt       time.Time  `json:"created_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
	PartialFailure  bool       `json:"partial_failure"`
	FailedProviders []string   `json:"failed_providers,omitempty"`
}

// Clone deep-copies the result so filtering never mutates the cached value.
func (r *CompositeResult) Clone() *CompositeResult {
	out := *r
	out.OwnSide = r.OwnSide.Clone()
	out.CompetitorSide = r.CompetitorSide.Clone()
	out.FailedProviders = append([]string(nil), r.FailedProviders...)
	if r.Comparison.Social != nil {
		out.Comparison.Social = make(map[string]SocialComparison, len(r.Comparison.Social))
		for k, v := range r.Comparison.Social {
			out.Comparison.Social[k] = v
		}
	}
	return &out
}

// Expired reports whether the result's TTL has elapsed at the given instant.
func (r *CompositeResult) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
