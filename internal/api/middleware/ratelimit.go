package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sitespar/sitespar/internal/api/response"
	"github.com/sitespar/sitespar/internal/cache"
	"github.com/sitespar/sitespar/pkg/models"
)

const (
	defaultRequestsPerMinute = 60
	rateWindow               = time.Minute
)

// Per-plan multipliers over the configured base budget. Higher tiers run
// more comparisons, so their coarse request budget scales with the plan
// rather than needing a separate config knob per tier.
var tierBudget = map[models.PlanTier]int{
	models.TierStarter: 1,
	models.TierGrowth:  2,
	models.TierPro:     4,
}

// RateLimit is the coarse per-API-key request counter in redis. It caps raw
// request volume per minute; the expensive analysis admission (3 per 5
// minutes, per-key locks) is gated separately inside the engine.
type RateLimit struct {
	cache          cache.Cache
	requestsPerMin int
}

// NewRateLimit creates the middleware with the base per-minute budget.
func NewRateLimit(c cache.Cache, requestsPerMin int) *RateLimit {
	if requestsPerMin <= 0 {
		requestsPerMin = defaultRequestsPerMinute
	}
	return &RateLimit{cache: c, requestsPerMin: requestsPerMin}
}

// budget resolves the caller's per-window request budget from the plan tier
// the auth middleware put on the context.
func (rl *RateLimit) budget(r *http.Request) int {
	tier, ok := GetPlanTier(r)
	if !ok {
		return rl.requestsPerMin
	}
	mult := tierBudget[tier]
	if mult == 0 {
		mult = 1
	}
	return rl.requestsPerMin * mult
}

// Limit counts the request against the key prefix set by the auth
// middleware and rejects once the plan's budget is spent.
func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix, ok := getKeyPrefix(r)
		if !ok {
			// Unauthenticated routes carry no budget.
			next.ServeHTTP(w, r)
			return
		}

		count, err := rl.cache.IncrWithExpiry(r.Context(), cache.RateLimitKey(prefix), rateWindow)
		if err != nil {
			// The counter is advisory; a redis outage fails open.
			next.ServeHTTP(w, r)
			return
		}

		budget := rl.budget(r)
		remaining := budget - int(count)
		if remaining < 0 {
			remaining = 0
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(budget))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(rateWindow).Unix(), 10))

		if count > int64(budget) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			response.Error(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Request budget exhausted for this window", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
