package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/sitespar/sitespar/pkg/models"
)

type contextKey string

const (
	accountIDKey    contextKey = "account_id"
	planTierKey     contextKey = "plan_tier"
	keyPrefixKey    contextKey = "key_prefix"
	apiKeyScopesKey contextKey = "api_key_scopes"
)

func SetAccountID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

func GetAccountID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(accountIDKey).(uuid.UUID)
	return id, ok
}

func SetPlanTier(ctx context.Context, tier models.PlanTier) context.Context {
	return context.WithValue(ctx, planTierKey, tier)
}

func GetPlanTier(r *http.Request) (models.PlanTier, bool) {
	tier, ok := r.Context().Value(planTierKey).(models.PlanTier)
	return tier, ok
}

func setKeyPrefix(ctx context.Context, prefix string) context.Context {
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

func getKeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

func setScopes(ctx context.Context, scopes []string) context.Context {
	return context.WithValue(ctx, apiKeyScopesKey, scopes)
}

func getScopes(r *http.Request) []string {
	scopes, _ := r.Context().Value(apiKeyScopesKey).([]string)
	return scopes
}

// ExportedKeyPrefixKey returns the context key for key_prefix (for testing).
func ExportedKeyPrefixKey() contextKey {
	return keyPrefixKey
}
