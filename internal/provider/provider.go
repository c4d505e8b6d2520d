// Package provider defines the uniform adapter contract for external data
// sources. Every adapter owns its timeout and never lets an error escape its
// boundary: anything that goes wrong becomes a failure or timeout outcome.
package provider

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sitespar/sitespar/pkg/models"
)

// Target identifies what an adapter should fetch for one side of the
// comparison. Handle is set for social adapters only.
type Target struct {
	Side   models.ReportSide
	Domain string
	Handle string
}

// Provider is the adapter contract. Name doubles as the report section the
// adapter populates.
type Provider interface {
	Name() string
	Timeout() time.Duration
	Fetch(ctx context.Context, target Target) models.ProviderOutcome
}

// Success builds a success outcome.
func Success(name string, side models.ReportSide, payload any, elapsed time.Duration) models.ProviderOutcome {
	return models.ProviderOutcome{
		Provider: name,
		Side:     side,
		Section:  name,
		Status:   models.OutcomeSuccess,
		Payload:  payload,
		Elapsed:  elapsed,
	}
}

// Failure builds a failure outcome with a human-readable reason.
func Failure(name string, side models.ReportSide, reason string, elapsed time.Duration) models.ProviderOutcome {
	return models.ProviderOutcome{
		Provider: name,
		Side:     side,
		Section:  name,
		Status:   models.OutcomeFailure,
		Err:      reason,
		Elapsed:  elapsed,
	}
}

// Errored classifies err into a timeout or failure outcome. Timeouts stay
// distinguishable so the orchestrator can treat them as retryable on the
// next user-initiated refresh.
func Errored(name string, side models.ReportSide, err error, elapsed time.Duration) models.ProviderOutcome {
	status := models.OutcomeFailure
	if isTimeout(err) {
		status = models.OutcomeTimeout
	}
	return models.ProviderOutcome{
		Provider: name,
		Side:     side,
		Section:  name,
		Status:   status,
		Err:      err.Error(),
		Elapsed:  elapsed,
	}
}

// isTimeout maps transport-level errors to the timeout classification.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
