package population

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidRequest = errors.New("invalid population request")

type Phase string

const (
	PhasePrecheck Phase = "PRECHECK"
	PhaseBatching Phase = "BATCHING"
	PhaseDone     Phase = "DONE"
)

// Request asks for Count new agents. Zero BatchSize or MaxConcurrent use the
// service defaults. Force continues past the low balance gate.
type Request struct {
	Count         int
	BatchSize     int
	MaxConcurrent int
	Force         bool
}

// Report is the run-end summary. Failures always show up here.
type Report struct {
	RunID            string           `json:"run_id"`
	Phase            Phase            `json:"phase"`
	Requested        int              `json:"requested"`
	Created          int              `json:"created"`
	Funded           int              `json:"funded"`
	Failed           int              `json:"failed"`
	PersistFailed    int              `json:"persist_failed"`
	NotStarted       int              `json:"not_started"`
	TotalFunded      decimal.Decimal  `json:"total_funded"`
	ArchetypeCounts  map[string]int64 `json:"archetype_counts"`
	OccupationCounts map[string]int64 `json:"occupation_counts"`
	FailureReasons   map[string]int   `json:"failure_reasons"`
	Batches          int              `json:"batches"`
	BatchesCompleted int              `json:"batches_completed"`
	PoolCreated      bool             `json:"pool_created"`
	FunderBalance    decimal.Decimal  `json:"funder_balance"`
	EstimatedCost    decimal.Decimal  `json:"estimated_cost"`
	Warnings         []string         `json:"warnings,omitempty"`
	ArchiveLocation  string           `json:"archive_location,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
	Duration         time.Duration    `json:"duration"`
}

func newReport(runID string, requested int, now time.Time) *Report {
	return &Report{
		RunID:            runID,
		Phase:            PhasePrecheck,
		Requested:        requested,
		TotalFunded:      decimal.Zero,
		ArchetypeCounts:  map[string]int64{},
		OccupationCounts: map[string]int64{},
		FailureReasons:   map[string]int{},
		StartedAt:        now,
	}
}

func (r *Report) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// LowBalanceError is returned by the precheck when the funder balance does
// not cover the estimated cost of the run and the request was not forced.
type LowBalanceError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *LowBalanceError) Error() string {
	return fmt.Sprintf("funder balance %s is below the estimated %s needed; rerun with force to continue",
		e.Balance, e.Required)
}

// IntegrityReport compares the summary with the agent rows it aggregates.
type IntegrityReport struct {
	Consistent    bool
	SummaryTotal  int64
	SummaryFunded int64
	SummaryFailed int64
	RowTotal      int64
	RowFunded     int64
	RowFailed     int64
	Discrepancies []string
}
