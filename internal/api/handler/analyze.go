// Package handler contains the HTTP handlers for the SiteSpar API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sitespar/sitespar/internal/analysis"
	mw "github.com/sitespar/sitespar/internal/api/middleware"
	"github.com/sitespar/sitespar/internal/api/response"
	"github.com/sitespar/sitespar/pkg/models"
)

// Analyzer defines the engine interface the handlers depend on.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*models.CompositeResult, error)
	RefreshSection(ctx context.Context, req analysis.Request, section string) (*models.CompositeResult, error)
}

type socialHandles struct {
	Facebook  string `json:"facebook"`
	Instagram string `json:"instagram"`
	LinkedIn  string `json:"linkedin"`
}

func (s socialHandles) identity() models.SocialIdentity {
	return models.SocialIdentity{
		Facebook:  s.Facebook,
		Instagram: s.Instagram,
		LinkedIn:  s.LinkedIn,
	}
}

type analyzeRequest struct {
	OwnSite          string        `json:"own_site"`
	CompetitorSite   string        `json:"competitor_site"`
	OwnSocial        socialHandles `json:"own_social"`
	CompetitorSocial socialHandles `json:"competitor_social"`
	ForceRefresh     bool          `json:"force_refresh"`
	Section          string        `json:"section,omitempty"`
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
func NewAnalyzeHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAnalyzeRequest(w, r)
		if !ok {
			return
		}

		result, err := svc.Analyze(r.Context(), req)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		response.JSON(w, result)
	}
}

// NewRefreshSectionHandler returns an http.HandlerFunc for
// POST /api/v1/analyze/section. The body is an analyze request plus the
// section (or section group) to recompute.
func NewRefreshSectionHandler(svc Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body analyzeRequest
		req, ok := decodeInto(w, r, &body)
		if !ok {
			return
		}
		if body.Section == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "section is required", nil)
			return
		}

		result, err := svc.RefreshSection(r.Context(), req, body.Section)
		if err != nil {
			writeEngineError(w, err)
			return
		}

		response.JSON(w, result)
	}
}

func decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) (analysis.Request, bool) {
	var body analyzeRequest
	return decodeInto(w, r, &body)
}

// decodeInto validates the shared analyze-request shape and attaches the
// authenticated account identity and plan tier.
func decodeInto(w http.ResponseWriter, r *http.Request, body *analyzeRequest) (analysis.Request, bool) {
	var req analysis.Request

	accountID, ok := mw.GetAccountID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing account", nil)
		return req, false
	}
	tier, ok := mw.GetPlanTier(r)
	if !ok {
		tier = models.TierStarter
	}

	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return req, false
	}

	if body.OwnSite == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "own_site is required", nil)
		return req, false
	}
	if body.CompetitorSite == "" {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "competitor_site is required", nil)
		return req, false
	}
	if models.NormalizeDomain(body.OwnSite) == models.NormalizeDomain(body.CompetitorSite) {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
			"own_site and competitor_site must be different domains", nil)
		return req, false
	}

	return analysis.Request{
		AccountID:        accountID,
		Tier:             tier,
		OwnSite:          body.OwnSite,
		CompetitorSite:   body.CompetitorSite,
		OwnSocial:        body.OwnSocial.identity(),
		CompetitorSocial: body.CompetitorSocial.identity(),
		ForceRefresh:     body.ForceRefresh,
	}, true
}

// writeEngineError maps engine errors onto the API's error vocabulary.
func writeEngineError(w http.ResponseWriter, err error) {
	var adm *analysis.AdmissionError
	if errors.As(err, &adm) {
		switch {
		case errors.Is(err, analysis.ErrRateLimited):
			response.RetryableError(w, http.StatusTooManyRequests,
				"RATE_LIMIT_EXCEEDED", "Analysis rate limit exceeded", adm.RetryAfter)
		default:
			response.RetryableError(w, http.StatusConflict,
				"ANALYSIS_IN_PROGRESS", "An analysis for this comparison is already running", adm.RetryAfter)
		}
		return
	}

	var total *analysis.TotalFailureError
	switch {
	case errors.As(err, &total):
		response.Error(w, http.StatusBadGateway, "ALL_PROVIDERS_FAILED",
			"Every data provider failed and no cached report exists",
			map[string]any{"providers": total.Providers, "reasons": total.Reasons})
	case errors.Is(err, analysis.ErrNoPriorReport):
		response.Error(w, http.StatusNotFound, "NO_PRIOR_REPORT",
			"No existing report to refresh; run a full analysis first", nil)
	case errors.Is(err, analysis.ErrUnknownSection):
		response.Error(w, http.StatusBadRequest, "UNKNOWN_SECTION",
			"Unknown report section", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
