package models

import "time"

// Per-section payload schemas. Each section's Payload field holds one of
// these, keyed by the section tag. The compositor and comparison derivation
// match exhaustively over known tags; anything else stays an explicit
// unavailable marker.

// PerformancePayload is produced by the page-speed auditor.
type PerformancePayload struct {
	Score          float64 `json:"score"`
	FirstPaintMs   int     `json:"first_paint_ms"`
	LargestPaintMs int     `json:"largest_paint_ms"`
	BlockingTimeMs int     `json:"blocking_time_ms"`
	LayoutShift    float64 `json:"layout_shift"`
	SpeedIndexMs   int     `json:"speed_index_ms"`
}

// TechnicalAudit is a single pass/fail check from the technical auditor.
type TechnicalAudit struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Passed bool   `json:"passed"`
}

// TechnicalPayload covers crawlability and hygiene checks.
type TechnicalPayload struct {
	Score          float64          `json:"score"`
	HTTPS          bool             `json:"https"`
	MobileFriendly bool             `json:"mobile_friendly"`
	HasSitemap     bool             `json:"has_sitemap"`
	HasRobotsTxt   bool             `json:"has_robots_txt"`
	Audits         []TechnicalAudit `json:"audits,omitempty"`
}

// ContentPayload is derived from the page itself.
type ContentPayload struct {
	Title            string             `json:"title"`
	MetaDescription  string             `json:"meta_description"`
	WordCount        int                `json:"word_count"`
	H1Count          int                `json:"h1_count"`
	H2Count          int                `json:"h2_count"`
	ImageCount       int                `json:"image_count"`
	ImagesWithAlt    int                `json:"images_with_alt"`
	InternalLinks    int                `json:"internal_links"`
	ExternalLinks    int                `json:"external_links"`
	TopKeywords      map[string]float64 `json:"top_keywords,omitempty"`
}

// Backlink is one inbound link from the backlink index.
type Backlink struct {
	SourceURL       string    `json:"source_url"`
	TargetURL       string    `json:"target_url"`
	AnchorText      string    `json:"anchor_text"`
	DomainAuthority float64   `json:"domain_authority"`
	FirstSeenAt     time.Time `json:"first_seen_at"`
}

// BacklinksPayload summarizes the backlink index response.
type BacklinksPayload struct {
	TotalBacklinks   int64      `json:"total_backlinks"`
	ReferringDomains int64      `json:"referring_domains"`
	DomainAuthority  float64    `json:"domain_authority"`
	TopBacklinks     []Backlink `json:"top_backlinks,omitempty"`
}

// SocialPost is one recent post returned by a social scraper.
type SocialPost struct {
	URL      string    `json:"url"`
	Text     string    `json:"text"`
	Likes    int64     `json:"likes"`
	Comments int64     `json:"comments"`
	Shares   int64     `json:"shares"`
	PostedAt time.Time `json:"posted_at"`
}

// SocialPayload is one platform's profile metrics for one side.
// EngagementRate is a pointer so "hidden from this plan" and "scraper did
// not report it" stay distinguishable from a measured rate of zero.
type SocialPayload struct {
	Platform       string       `json:"platform"`
	Handle         string       `json:"handle"`
	Followers      int64        `json:"followers"`
	Following      int64        `json:"following"`
	PostCount      int64        `json:"post_count"`
	EngagementRate *float64     `json:"engagement_rate,omitempty"`
	TopPosts       []SocialPost `json:"top_posts,omitempty"`
}

// AdCreative is a sample running ad from the transparency lookup.
type AdCreative struct {
	Headline  string    `json:"headline"`
	Network   string    `json:"network"`
	FirstSeen time.Time `json:"first_seen"`
}

// AdsPayload summarizes a side's active advertising footprint.
type AdsPayload struct {
	RunningAds int          `json:"running_ads"`
	Networks   []string     `json:"networks,omitempty"`
	SampleAds  []AdCreative `json:"sample_ads,omitempty"`
}
