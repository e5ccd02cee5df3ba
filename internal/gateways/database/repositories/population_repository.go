package repositories

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agentmarket/popsim/internal/domain/logger"
	"github.com/agentmarket/popsim/internal/domain/population"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/agentmarket/popsim/popsim/config"
	"github.com/uptrace/bun"
)

type populationRepository struct {
	*BaseRepository
	summaryID string
}

var _ population.Repository = &populationRepository{}

func NewPopulationRepository(db *bun.DB) *populationRepository {
	return &populationRepository{
		BaseRepository: NewBaseRepository(db),
		summaryID:      config.PopulationSummaryID,
	}
}

// RecordAgent inserts the agent and its funding log entry in one transaction.
// A retried call for an agent that already committed writes nothing.
func (r *populationRepository) RecordAgent(ctx context.Context, agent *models.Agent, tx *models.FundingTransaction) (err error) {
	ql := logger.NewQueryLogger("record_agent", "agents", agent.ID)
	var rows int64
	defer func() { ql.Log(err, rows) }()

	err = r.Transaction(ctx, func(ctx context.Context, btx bun.Tx) error {
		res, err := btx.NewInsert().
			Model(agent).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert agent: %w", err)
		}
		if rows, _ = res.RowsAffected(); rows == 0 {
			return nil
		}

		_, err = btx.NewInsert().
			Model(tx).
			On("CONFLICT (reference) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert funding transaction: %w", err)
		}
		return nil
	})
	return r.HandleError("record_agent", "agents", err)
}

// MergeSummary adds delta to the singleton summary. The batch key is
// inserted in the same transaction, so a batch that already committed is
// skipped when its merge is retried. Counters are summed and histograms
// merged key by key inside Postgres, so concurrent batches cannot overwrite
// each other.
func (r *populationRepository) MergeSummary(ctx context.Context, batch *models.SummaryBatch, delta *models.PopulationSummary) (err error) {
	ql := logger.NewQueryLogger("merge_summary", "population_summaries", batch.RunID, batch.Batch, delta.TotalAgents)
	var rows int64
	defer func() { ql.Log(err, rows) }()

	delta.ID = r.summaryID
	batch.TotalAgents = delta.TotalAgents

	err = r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := r.summaryBatchQuery(tx, batch).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert summary batch: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			slog.Info("Summary batch already applied",
				slog.String("type", "db"),
				slog.String("run_id", batch.RunID),
				slog.Int("batch", batch.Batch))
			return nil
		}

		res, err = r.mergeSummaryQuery(tx, delta).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to merge summary: %w", err)
		}
		rows, _ = res.RowsAffected()
		return nil
	})
	return r.HandleError("merge_summary", "population_summaries", err)
}

func (r *populationRepository) summaryBatchQuery(db bun.IDB, batch *models.SummaryBatch) *bun.InsertQuery {
	return db.NewInsert().
		Model(batch).
		On("CONFLICT (run_id, batch) DO NOTHING")
}

func (r *populationRepository) mergeSummaryQuery(db bun.IDB, delta *models.PopulationSummary) *bun.InsertQuery {
	return db.NewInsert().
		Model(delta).
		On("CONFLICT (id) DO UPDATE").
		Set("total_agents = ?TableAlias.total_agents + EXCLUDED.total_agents").
		Set("successfully_funded = ?TableAlias.successfully_funded + EXCLUDED.successfully_funded").
		Set("failed_to_fund = ?TableAlias.failed_to_fund + EXCLUDED.failed_to_fund").
		Set("total_funded = ?TableAlias.total_funded + EXCLUDED.total_funded").
		Set("archetype_counts = " + mergeCounts("archetype_counts")).
		Set("occupation_counts = " + mergeCounts("occupation_counts")).
		Set("last_run_id = EXCLUDED.last_run_id").
		Set("updated_at = EXCLUDED.updated_at")
}

// mergeCounts sums two jsonb objects of counters key by key.
func mergeCounts(column string) string {
	return fmt.Sprintf(`(
		SELECT COALESCE(jsonb_object_agg(merged.key, merged.total), '{}'::jsonb)
		FROM (
			SELECT key, SUM(value::bigint) AS total
			FROM (
				SELECT * FROM jsonb_each_text(?TableAlias.%[1]s)
				UNION ALL
				SELECT * FROM jsonb_each_text(EXCLUDED.%[1]s)
			) AS counts
			GROUP BY key
		) AS merged
	)`, column)
}

func (r *populationRepository) GetSummary(ctx context.Context) (*models.PopulationSummary, error) {
	summary := new(models.PopulationSummary)
	found, err := r.selectOne(ctx, "population_summaries",
		r.db.NewSelect().Model(summary).Where("?TableAlias.id = ?", r.summaryID))
	if err != nil || !found {
		return nil, err
	}
	return summary, nil
}

func (r *populationRepository) CountAgents(ctx context.Context) (int64, error) {
	return r.Count(ctx, "agents", r.db.NewSelect().Model((*models.Agent)(nil)))
}

func (r *populationRepository) CountAgentsByFunding(ctx context.Context, funded bool) (int64, error) {
	return r.Count(ctx, "agents", r.db.NewSelect().
		Model((*models.Agent)(nil)).
		Where("funding_success = ?", funded))
}

// ListUnfunded returns agents whose funding did not confirm, oldest first.
// External reconciliation works from this list.
func (r *populationRepository) ListUnfunded(ctx context.Context, limit int) ([]*models.Agent, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var agents []*models.Agent
	err := r.db.NewSelect().
		Model(&agents).
		Column("id", "run_id", "name", "archetype", "occupation", "wallet_address",
			"target_funding", "actual_funding", "wallet_balance", "funding_success", "funding_reason", "created_at").
		Where("funding_success = false").
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_unfunded", "agents", err)
	}
	return agents, nil
}
