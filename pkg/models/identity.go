// Package models contains shared data models used across the SiteSpar codebase.
package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Supported social platforms.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
)

// Platforms lists every supported social platform in a stable order.
var Platforms = []string{PlatformFacebook, PlatformInstagram, PlatformLinkedIn}

// SocialIdentity holds the normalized handle per platform for one side of a
// comparison. An empty string means the platform is not connected.
type SocialIdentity struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// Handle returns the normalized handle for the given platform.
func (s SocialIdentity) Handle(platform string) string {
	switch platform {
	case PlatformFacebook:
		return s.Facebook
	case PlatformInstagram:
		return s.Instagram
	case PlatformLinkedIn:
		return s.LinkedIn
	}
	return ""
}

// SetHandle sets the handle for the given platform, normalizing it first.
func (s *SocialIdentity) SetHandle(platform, raw string) {
	h := NormalizeHandle(platform, raw)
	switch platform {
	case PlatformFacebook:
		s.Facebook = h
	case PlatformInstagram:
		s.Instagram = h
	case PlatformLinkedIn:
		s.LinkedIn = h
	}
}

// Equal reports whether two identities match on every platform, including
// both being absent.
func (s SocialIdentity) Equal(o SocialIdentity) bool {
	return s.Facebook == o.Facebook &&
		s.Instagram == o.Instagram &&
		s.LinkedIn == o.LinkedIn
}

// IsEmpty reports whether no platform is connected.
func (s SocialIdentity) IsEmpty() bool {
	return s.Facebook == "" && s.Instagram == "" && s.LinkedIn == ""
}

// Normalize returns a copy with every handle run through NormalizeHandle.
func (s SocialIdentity) Normalize() SocialIdentity {
	return SocialIdentity{
		Facebook:  NormalizeHandle(PlatformFacebook, s.Facebook),
		Instagram: NormalizeHandle(PlatformInstagram, s.Instagram),
		LinkedIn:  NormalizeHandle(PlatformLinkedIn, s.LinkedIn),
	}
}

// platform URL prefixes stripped during handle normalization.
var handlePrefixes = map[string][]string{
	PlatformFacebook:  {"facebook.com/", "fb.com/"},
	PlatformInstagram: {"instagram.com/"},
	PlatformLinkedIn:  {"linkedin.com/company/", "linkedin.com/in/", "linkedin.com/"},
}

// NormalizeHandle lower-cases a raw handle and strips @, URL schemes, and
// platform URL prefixes so that "@Acme", "acme", and
// "https://www.instagram.com/Acme/" all compare equal.
func NormalizeHandle(platform, raw string) string {
	h := strings.ToLower(strings.TrimSpace(raw))
	h = strings.TrimPrefix(h, "https://")
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimPrefix(h, "www.")
	for _, p := range handlePrefixes[platform] {
		h = strings.TrimPrefix(h, p)
	}
	h = strings.TrimPrefix(h, "@")
	h = strings.TrimSuffix(h, "/")
	if i := strings.IndexAny(h, "/?"); i >= 0 {
		h = h[:i]
	}
	return h
}

// NormalizeDomain reduces a site URL or bare domain to its lower-cased host.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	return d
}

// NewAnalysisKey derives the deterministic key identifying one comparison:
// caller identity plus both normalized domains. At most one computation may
// be in flight per key at any time.
func NewAnalysisKey(accountID uuid.UUID, ownSite, competitorSite string) string {
	return fmt.Sprintf("%s|%s|%s", accountID, NormalizeDomain(ownSite), NormalizeDomain(competitorSite))
}

// Fingerprint is the unit of cache validity: a cached report is valid for a
// new request iff the analysis key matches and both social identity sets
// match exactly. This prevents serving a stale comparison after a user
// reconnects a different social account.
type Fingerprint struct {
	AnalysisKey string
	Own         SocialIdentity
	Competitor  SocialIdentity
}

// Matches reports whether a cached entry under o satisfies a request under f.
func (f Fingerprint) Matches(o Fingerprint) bool {
	return f.AnalysisKey == o.AnalysisKey &&
		f.Own.Equal(o.Own) &&
		f.Competitor.Equal(o.Competitor)
}
