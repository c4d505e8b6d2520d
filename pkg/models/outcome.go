package models

import "time"

// ReportSide distinguishes the two targets of a comparison.
type ReportSide string

const (
	SideOwn        ReportSide = "own"
	SideCompetitor ReportSide = "competitor"
)

// OutcomeStatus classifies how a provider call settled. Timeouts are kept
// distinct from failures so the caller can decide whether a retry is
// worthwhile: timeouts are retried on the next user-initiated refresh,
// failures from missing input are not.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "success"
	OutcomeFailure OutcomeStatus = "failure"
	OutcomeTimeout OutcomeStatus = "timeout"
)

// ProviderOutcome is the result of one provider call for one side. Never
// persisted standalone; consumed immediately by the compositor.
type ProviderOutcome struct {
	Provider string
	Side     ReportSide
	Section  string
	Status   OutcomeStatus
	Payload  any
	Err      string
	Elapsed  time.Duration
}

// Failed reports whether the outcome did not produce a payload.
func (o ProviderOutcome) Failed() bool {
	return o.Status != OutcomeSuccess
}
