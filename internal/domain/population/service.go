package population

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentmarket/popsim/internal/domain/funding"
	"github.com/agentmarket/popsim/internal/domain/wallets"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/agentmarket/popsim/popsim/config"
	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type Service interface {
	CreatePopulation(ctx context.Context, req Request) (*Report, error)
	VerifySummary(ctx context.Context) (*IntegrityReport, error)
}

type Config struct {
	BatchSize       int
	MaxConcurrent   int
	InterBatchDelay time.Duration
	// SlotsPerSecond paces slot starts inside a batch. Zero disables pacing.
	SlotsPerSecond  float64
	InitialReserveA decimal.Decimal
	InitialReserveB decimal.Decimal
	PersistAttempts int
	PersistBackoff  time.Duration
}

type Deps struct {
	Repository  Repository
	Activity    ActivitySink
	Funder      Funder
	Pool        PoolBootstrapper
	Distributor Distributor
	// Archive is optional.
	Archive ReportArchive
}

type service struct {
	repository  Repository
	activity    ActivitySink
	funder      Funder
	pool        PoolBootstrapper
	distributor Distributor
	archive     ReportArchive
	cfg         Config
	limiter     *rate.Limiter
	newRunID    func() string
	now         func() time.Time
}

func NewService(deps Deps, cfg Config) *service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 10
	}
	if cfg.PersistAttempts <= 0 {
		cfg.PersistAttempts = config.PersistAttempts
	}
	if cfg.PersistBackoff <= 0 {
		cfg.PersistBackoff = config.PersistRetryBackoff
	}

	s := &service{
		repository:  deps.Repository,
		activity:    deps.Activity,
		funder:      deps.Funder,
		pool:        deps.Pool,
		distributor: deps.Distributor,
		archive:     deps.Archive,
		cfg:         cfg,
		newRunID:    func() string { return snowflake.New(time.Now()).String() },
		now:         time.Now,
	}
	if cfg.SlotsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.SlotsPerSecond), 1)
	}
	return s
}

// slotResult is what one agent slot produced.
type slotResult struct {
	agent     *models.Agent
	outcome   funding.Outcome
	persisted bool
	started   bool
}

// CreatePopulation runs PRECHECK, then BATCHING until every requested slot
// has been processed, then DONE. Individual funding failures never abort
// the run; the returned report counts them.
func (s *service) CreatePopulation(ctx context.Context, req Request) (*Report, error) {
	runID := s.newRunID()
	report := newReport(runID, req.Count, s.now().UTC())
	log := slog.With(slog.String("run_id", runID))

	if req.Count <= 0 {
		return report, fmt.Errorf("%w: count must be positive, got %d", ErrInvalidRequest, req.Count)
	}
	if req.BatchSize <= 0 {
		req.BatchSize = s.cfg.BatchSize
	}
	if req.MaxConcurrent <= 0 {
		req.MaxConcurrent = s.cfg.MaxConcurrent
	}

	if err := s.precheck(ctx, req, report); err != nil {
		return report, err
	}

	report.Phase = PhaseBatching
	report.Batches = (req.Count + req.BatchSize - 1) / req.BatchSize
	s.appendActivity(ctx, report, config.ActivityRunStarted,
		fmt.Sprintf("Population run started for %d agents", req.Count),
		map[string]any{
			"requested":      req.Count,
			"batch_size":     req.BatchSize,
			"max_concurrent": req.MaxConcurrent,
			"batches":        report.Batches,
		})

	log.Info("Population run started",
		slog.String("type", "batch"),
		slog.Int("count", req.Count),
		slog.Int("batch_size", req.BatchSize),
		slog.Int("batches", report.Batches))

	remaining := req.Count
	for batch := 1; batch <= report.Batches; batch++ {
		if ctx.Err() != nil {
			report.NotStarted += remaining
			break
		}

		size := min(req.BatchSize, remaining)
		remaining -= size

		results := s.runBatch(ctx, runID, size, req.MaxConcurrent)
		delta := s.tally(runID, results, report)

		if err := s.mergeSummary(ctx, &models.SummaryBatch{RunID: runID, Batch: batch}, delta); err != nil {
			report.warn("summary merge failed for batch %d: %v", batch, err)
			return s.finish(ctx, report), fmt.Errorf("failed to merge summary for batch %d: %w", batch, err)
		}
		report.BatchesCompleted++

		if ctx.Err() == nil && outage(results) {
			report.warn("batch %d: every funding call failed to reach the network", batch)
			log.Warn("Network unreachable for entire batch",
				slog.String("type", "batch"),
				slog.Int("batch", batch))
		}

		s.appendActivity(ctx, report, config.ActivityBatchCompleted,
			fmt.Sprintf("Batch %d/%d completed: %d funded, %d failed", batch, report.Batches, delta.SuccessfullyFunded, delta.FailedToFund),
			map[string]any{
				"batch":          batch,
				"created":        delta.TotalAgents,
				"funded":         delta.SuccessfullyFunded,
				"failed":         delta.FailedToFund,
				"persist_failed": countPersistFailed(results),
				"not_started":    countNotStarted(results),
				"total_funded":   delta.TotalFunded.String(),
			})

		log.Info("Batch completed",
			slog.String("type", "batch"),
			slog.Int("batch", batch),
			slog.Int("of", report.Batches),
			slog.Int64("funded", delta.SuccessfullyFunded),
			slog.Int64("failed", delta.FailedToFund))

		if batch < report.Batches && s.cfg.InterBatchDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.cfg.InterBatchDelay):
			}
		}
	}

	if err := ctx.Err(); err != nil {
		report.warn("run cancelled: %d of %d slots never started", report.NotStarted, report.Requested)
		log.Warn("Population run cancelled",
			slog.String("type", "batch"),
			slog.Int("not_started", report.NotStarted),
			slog.Int("batches_completed", report.BatchesCompleted))
		return s.finish(ctx, report), fmt.Errorf("population run cancelled after %d of %d batches: %w",
			report.BatchesCompleted, report.Batches, err)
	}

	report = s.finish(ctx, report)
	log.Info("Population run finished",
		slog.String("type", "batch"),
		slog.Int("created", report.Created),
		slog.Int("funded", report.Funded),
		slog.Int("failed", report.Failed),
		slog.Int("persist_failed", report.PersistFailed),
		slog.String("total_funded", report.TotalFunded.String()),
		slog.Duration("took", report.Duration))
	return report, nil
}

func (s *service) precheck(ctx context.Context, req Request, report *Report) error {
	pool, created, err := s.pool.EnsurePoolInitialized(ctx, s.cfg.InitialReserveA, s.cfg.InitialReserveB)
	if err != nil {
		return fmt.Errorf("failed to ensure liquidity pool: %w", err)
	}
	report.PoolCreated = created
	if created {
		s.appendActivity(ctx, report, config.ActivityPoolInitialized,
			fmt.Sprintf("Liquidity pool %s initialized", pool.ID),
			map[string]any{
				"pool_id":   pool.ID,
				"reserve_a": pool.ReserveA.String(),
				"reserve_b": pool.ReserveB.String(),
				"k":         pool.K.String(),
				"price":     pool.Price.String(),
			})
	}

	report.EstimatedCost = s.distributor.AverageFunding().Mul(decimal.NewFromInt(int64(req.Count)))
	balance, err := s.funder.Balance(ctx)
	if err != nil {
		if !req.Force {
			return fmt.Errorf("failed to check funder balance: %w", err)
		}
		report.warn("funder balance unknown: %v", err)
		return nil
	}
	report.FunderBalance = balance

	if balance.LessThan(report.EstimatedCost) {
		if !req.Force {
			return &LowBalanceError{Balance: balance, Required: report.EstimatedCost}
		}
		report.warn("funder balance %s below estimated cost %s, continuing because the run was forced",
			balance, report.EstimatedCost)
		slog.Warn("Continuing with low funder balance",
			slog.String("type", "chain"),
			slog.String("balance", balance.String()),
			slog.String("required", report.EstimatedCost.String()))
	}
	return nil
}

func (s *service) runBatch(ctx context.Context, runID string, size, maxConcurrent int) []slotResult {
	results := make([]slotResult, size)
	sem := semaphore.NewWeighted(int64(maxConcurrent))

	// slot errors are recorded in results, never returned, so one slot
	// cannot cancel its siblings
	var g errgroup.Group
	for i := 0; i < size; i++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				break
			}
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			results[i] = s.runSlot(ctx, runID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *service) runSlot(ctx context.Context, runID string) slotResult {
	res := slotResult{started: true}

	archetype := s.distributor.DrawArchetype()
	occupation := s.distributor.DrawOccupation()

	wallet, err := wallets.New()
	if err != nil {
		slog.Error("Failed to provision wallet", slog.String("type", "batch"), slog.Any("error", err))
		return res
	}
	target := s.distributor.DrawFunding(archetype)

	res.outcome = s.funder.Fund(ctx, wallet.Address, target)

	secret, err := wallet.EncodeSecret()
	if err != nil {
		slog.Error("Failed to encode wallet secret", slog.String("type", "batch"), slog.Any("error", err))
		return res
	}

	actual := decimal.Zero
	if res.outcome.Succeeded {
		actual = target
	}

	now := s.now().UTC()
	agent := &models.Agent{
		ID:             uuid.NewString(),
		RunID:          runID,
		Name:           displayName(),
		Archetype:      archetype.ID,
		Occupation:     occupation,
		WalletAddress:  wallet.Address.Hex(),
		WalletSecret:   secret,
		TargetFunding:  target,
		ActualFunding:  actual,
		WalletBalance:  actual,
		FundingSuccess: res.outcome.Succeeded,
		FundingReceipt: res.outcome.Receipt,
		FundingReason:  string(res.outcome.Reason),
		Behavior:       archetype.Behavior,
		InitialState: models.AgentState{
			NativeBalance: actual,
			TokenBalance:  decimal.Zero,
			Sentiment:     "neutral",
			Active:        res.outcome.Succeeded,
		},
		CreatedAt: now,
	}
	res.agent = agent

	tx := fundingLogEntry(agent, s.funder.FunderAddress().Hex(), res.outcome, now)

	// outcomes of calls that already hit the network are recorded even
	// when the run is being cancelled
	if err := s.persist(context.WithoutCancel(ctx), agent, tx); err != nil {
		slog.Error("Failed to persist agent",
			slog.String("type", "db"),
			slog.String("agent_id", agent.ID),
			slog.String("wallet", agent.WalletAddress),
			slog.Bool("funded", agent.FundingSuccess),
			slog.String("tx", res.outcome.TxHash),
			slog.Any("error", err))
		return res
	}
	res.persisted = true
	return res
}

func fundingLogEntry(agent *models.Agent, from string, outcome funding.Outcome, now time.Time) *models.FundingTransaction {
	tx := &models.FundingTransaction{
		AgentID:     agent.ID,
		RunID:       agent.RunID,
		FromAddress: from,
		ToAddress:   agent.WalletAddress,
		Amount:      agent.TargetFunding,
		Reason:      string(outcome.Reason),
		SubmittedTx: outcome.TxHash,
		BlockNumber: int64(outcome.BlockNumber),
		CreatedAt:   now,
	}
	if outcome.Succeeded && outcome.Receipt != nil {
		tx.Reference = *outcome.Receipt
		tx.Status = models.FundingStatusConfirmed
	} else {
		tx.Reference = "unconfirmed-" + uuid.NewString()
		tx.Status = models.FundingStatusFailed
	}
	if outcome.Err != nil && tx.Reason == "" {
		tx.Reason = outcome.Err.Error()
	}
	return tx
}

func (s *service) persist(ctx context.Context, agent *models.Agent, tx *models.FundingTransaction) error {
	var err error
	for attempt := 1; attempt <= s.cfg.PersistAttempts; attempt++ {
		if err = s.repository.RecordAgent(ctx, agent, tx); err == nil {
			return nil
		}
		if attempt < s.cfg.PersistAttempts {
			slog.Warn("Retrying agent write",
				slog.String("type", "db"),
				slog.String("agent_id", agent.ID),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			time.Sleep(s.cfg.PersistBackoff * time.Duration(attempt))
		}
	}
	return fmt.Errorf("failed to record agent after %d attempts: %w", s.cfg.PersistAttempts, err)
}

// tally folds a batch into the report and builds the summary delta from
// the rows that were actually written.
func (s *service) tally(runID string, results []slotResult, report *Report) *models.PopulationSummary {
	delta := &models.PopulationSummary{
		ID:               config.PopulationSummaryID,
		TotalFunded:      decimal.Zero,
		ArchetypeCounts:  map[string]int64{},
		OccupationCounts: map[string]int64{},
		LastRunID:        runID,
		UpdatedAt:        s.now().UTC(),
	}

	for _, r := range results {
		if !r.started {
			report.NotStarted++
			continue
		}
		if !r.outcome.Succeeded {
			reason := string(r.outcome.Reason)
			if reason == "" {
				reason = "unknown"
			}
			report.FailureReasons[reason]++
		}
		if !r.persisted {
			report.PersistFailed++
			continue
		}

		delta.TotalAgents++
		if r.agent.FundingSuccess {
			delta.SuccessfullyFunded++
			delta.TotalFunded = delta.TotalFunded.Add(r.agent.ActualFunding)
		} else {
			delta.FailedToFund++
		}
		delta.ArchetypeCounts[r.agent.Archetype]++
		delta.OccupationCounts[r.agent.Occupation]++
	}

	report.Created += int(delta.TotalAgents)
	report.Funded += int(delta.SuccessfullyFunded)
	report.Failed += int(delta.FailedToFund)
	report.TotalFunded = report.TotalFunded.Add(delta.TotalFunded)
	for k, v := range delta.ArchetypeCounts {
		report.ArchetypeCounts[k] += v
	}
	for k, v := range delta.OccupationCounts {
		report.OccupationCounts[k] += v
	}
	return delta
}

// mergeSummary retries under the same batch key, so an attempt that
// committed but reported an error is not applied a second time.
func (s *service) mergeSummary(ctx context.Context, batch *models.SummaryBatch, delta *models.PopulationSummary) error {
	if delta.TotalAgents == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	var err error
	for attempt := 1; attempt <= config.SummaryMergeRetries; attempt++ {
		if err = s.repository.MergeSummary(ctx, batch, delta); err == nil {
			return nil
		}
		slog.Warn("Summary merge failed",
			slog.String("type", "db"),
			slog.String("run_id", batch.RunID),
			slog.Int("batch", batch.Batch),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		if attempt < config.SummaryMergeRetries {
			time.Sleep(s.cfg.PersistBackoff * time.Duration(attempt))
		}
	}
	return err
}

func countPersistFailed(results []slotResult) int {
	n := 0
	for _, r := range results {
		if r.started && !r.persisted {
			n++
		}
	}
	return n
}

func countNotStarted(results []slotResult) int {
	n := 0
	for _, r := range results {
		if !r.started {
			n++
		}
	}
	return n
}

// outage reports whether every slot that ran failed on the network itself.
func outage(results []slotResult) bool {
	ran := 0
	for _, r := range results {
		if !r.started {
			continue
		}
		ran++
		if r.outcome.Succeeded || !r.outcome.Reason.Transient() {
			return false
		}
	}
	return ran > 0
}

func (s *service) appendActivity(ctx context.Context, report *Report, kind, message string, details map[string]any) {
	if s.activity == nil {
		return
	}
	entry := &models.ActivityLog{
		RunID:     report.RunID,
		Kind:      kind,
		Message:   message,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}

	var err error
	for attempt := 1; attempt <= config.PersistAttempts; attempt++ {
		if err = s.activity.Append(context.WithoutCancel(ctx), entry); err == nil {
			return
		}
		if attempt < config.PersistAttempts {
			time.Sleep(s.cfg.PersistBackoff)
		}
	}
	report.warn("activity log write failed for %s: %v", kind, err)
	slog.Error("Failed to append activity",
		slog.String("type", "db"),
		slog.String("kind", kind),
		slog.Any("error", err))
}

func (s *service) finish(ctx context.Context, report *Report) *Report {
	report.Phase = PhaseDone
	report.FinishedAt = s.now().UTC()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)

	s.appendActivity(ctx, report, config.ActivityRunCompleted,
		fmt.Sprintf("Population run completed: %d created, %d funded, %d failed", report.Created, report.Funded, report.Failed),
		map[string]any{
			"requested":      report.Requested,
			"created":        report.Created,
			"funded":         report.Funded,
			"failed":         report.Failed,
			"persist_failed": report.PersistFailed,
			"not_started":    report.NotStarted,
			"total_funded":   report.TotalFunded.String(),
			"warnings":       len(report.Warnings),
		})

	if s.archive != nil {
		location, err := s.archive.Upload(context.WithoutCancel(ctx), report)
		if err != nil {
			report.warn("report archive failed: %v", err)
			slog.Warn("Failed to archive run report", slog.String("type", "sys"), slog.Any("error", err))
		} else {
			report.ArchiveLocation = location
		}
	}
	return report
}

// VerifySummary compares the summary counts with the agent rows. Divergence
// is reported and logged, never repaired here.
func (s *service) VerifySummary(ctx context.Context) (*IntegrityReport, error) {
	summary, err := s.repository.GetSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}
	total, err := s.repository.CountAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count agents: %w", err)
	}
	funded, err := s.repository.CountAgentsByFunding(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to count funded agents: %w", err)
	}

	ir := &IntegrityReport{
		RowTotal:  total,
		RowFunded: funded,
		RowFailed: total - funded,
	}
	if summary != nil {
		ir.SummaryTotal = summary.TotalAgents
		ir.SummaryFunded = summary.SuccessfullyFunded
		ir.SummaryFailed = summary.FailedToFund
	}

	check := func(name string, summaryValue, rowValue int64) {
		if summaryValue != rowValue {
			ir.Discrepancies = append(ir.Discrepancies,
				fmt.Sprintf("%s: summary has %d, agent rows have %d", name, summaryValue, rowValue))
		}
	}
	check("total agents", ir.SummaryTotal, ir.RowTotal)
	check("funded agents", ir.SummaryFunded, ir.RowFunded)
	check("failed agents", ir.SummaryFailed, ir.RowFailed)
	ir.Consistent = len(ir.Discrepancies) == 0

	if !ir.Consistent {
		slog.Warn("Data integrity warning",
			slog.String("type", "db"),
			slog.Any("discrepancies", ir.Discrepancies))
		if s.activity != nil {
			entry := &models.ActivityLog{
				Kind:      config.ActivityIntegrityWarn,
				Message:   "Population summary diverges from agent rows",
				Details:   map[string]any{"discrepancies": ir.Discrepancies},
				CreatedAt: s.now().UTC(),
			}
			if err := s.activity.Append(ctx, entry); err != nil {
				slog.Error("Failed to append activity", slog.String("type", "db"), slog.Any("error", err))
			}
		}
	}
	return ir, nil
}
