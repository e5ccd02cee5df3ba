package population

import (
	"context"

	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/agentmarket/popsim/internal/domain/funding"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Repository is the population ledger.
type Repository interface {
	// RecordAgent writes the agent and its funding log entry in one transaction.
	// Writing the same agent twice is a no-op.
	RecordAgent(ctx context.Context, agent *models.Agent, tx *models.FundingTransaction) error
	// MergeSummary adds delta to the singleton summary atomically. A batch
	// whose key was already applied is skipped, so retries never count twice.
	MergeSummary(ctx context.Context, batch *models.SummaryBatch, delta *models.PopulationSummary) error
	// GetSummary returns nil and no error before the first merge.
	GetSummary(ctx context.Context) (*models.PopulationSummary, error)
	CountAgents(ctx context.Context) (int64, error)
	CountAgentsByFunding(ctx context.Context, funded bool) (int64, error)
}

type ActivitySink interface {
	Append(ctx context.Context, entry *models.ActivityLog) error
}

type Funder interface {
	Fund(ctx context.Context, recipient common.Address, amount decimal.Decimal) funding.Outcome
	Balance(ctx context.Context) (decimal.Decimal, error)
	FunderAddress() common.Address
}

type PoolBootstrapper interface {
	EnsurePoolInitialized(ctx context.Context, reserveA, reserveB decimal.Decimal) (*models.LiquidityPool, bool, error)
}

type Distributor interface {
	DrawArchetype() archetypes.Archetype
	DrawOccupation() string
	DrawFunding(a archetypes.Archetype) decimal.Decimal
	AverageFunding() decimal.Decimal
}

// ReportArchive stores finished run reports and returns where they went.
type ReportArchive interface {
	Upload(ctx context.Context, report *Report) (string, error)
}
