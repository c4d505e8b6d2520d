package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Admission rejections are retryable and never application errors; only a
// total provider failure with no cached fallback escapes the engine as an
// error response.
var (
	ErrRateLimited    = errors.New("rate limit exceeded")
	ErrInProgress     = errors.New("analysis already in progress")
	ErrAnalysisFailed = errors.New("analysis failed")
	ErrNoPriorReport  = errors.New("no prior report to refresh")
	ErrUnknownSection = errors.New("unknown report section")
)

// AdmissionError carries a precise retry-after hint alongside the rejection
// reason. Matched via errors.Is on the wrapped sentinel and errors.As for
// the hint.
type AdmissionError struct {
	Err        error
	RetryAfter time.Duration
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s (retry after %s)", e.Err, e.RetryAfter.Round(time.Second))
}

func (e *AdmissionError) Unwrap() error { return e.Err }

// TotalFailureError reports that every provider failed and no usable cached
// data existed for any side.
type TotalFailureError struct {
	Providers []string
	Reasons   []string
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("analysis failed: all providers failed (%s)", strings.Join(e.Providers, ", "))
}

func (e *TotalFailureError) Is(target error) bool { return target == ErrAnalysisFailed }
