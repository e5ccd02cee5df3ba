package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// PopulationSummary is the singleton aggregate over all agent rows. It is
// only ever changed by merging a per-batch delta into it.
type PopulationSummary struct {
	bun.BaseModel `bun:"table:population_summaries,alias:ps"`

	ID                 string           `bun:"id,pk"`
	TotalAgents        int64            `bun:"total_agents,notnull,default:0"`
	SuccessfullyFunded int64            `bun:"successfully_funded,notnull,default:0"`
	FailedToFund       int64            `bun:"failed_to_fund,notnull,default:0"`
	TotalFunded        decimal.Decimal  `bun:"total_funded,type:numeric,notnull,default:0"`
	ArchetypeCounts    map[string]int64 `bun:"archetype_counts,type:jsonb,notnull,default:'{}'"`
	OccupationCounts   map[string]int64 `bun:"occupation_counts,type:jsonb,notnull,default:'{}'"`
	LastRunID          string           `bun:"last_run_id"`
	UpdatedAt          time.Time        `bun:"updated_at,notnull,default:current_timestamp"`
}

// SummaryBatch marks one batch delta as applied to the summary. Its key
// makes a retried merge of the same batch a no-op.
type SummaryBatch struct {
	bun.BaseModel `bun:"table:population_summary_batches,alias:psb"`

	RunID       string    `bun:"run_id,pk"`
	Batch       int       `bun:"batch,pk"`
	TotalAgents int64     `bun:"total_agents,notnull,default:0"`
	AppliedAt   time.Time `bun:"applied_at,notnull,default:current_timestamp"`
}
