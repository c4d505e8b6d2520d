package cache

import "fmt"

// SocialSectionKey caches one platform's scraped profile for a handle. Social
// data moves fast, so these sub-caches carry a short TTL independent of the
// full report.
func SocialSectionKey(platform, handle string) string {
	return fmt.Sprintf("social:%s:%s", platform, handle)
}

// RateLimitKey tracks the coarse per-API-key request counter.
func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
