package models

import (
	"time"

	"github.com/agentmarket/popsim/internal/domain/liquidity"
	"github.com/agentmarket/popsim/internal/domain/population"
	dbmodels "github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/shopspring/decimal"
)

type SummaryView struct {
	TotalAgents        int64            `json:"total_agents"`
	SuccessfullyFunded int64            `json:"successfully_funded"`
	FailedToFund       int64            `json:"failed_to_fund"`
	TotalFunded        decimal.Decimal  `json:"total_funded"`
	ArchetypeCounts    map[string]int64 `json:"archetype_counts"`
	OccupationCounts   map[string]int64 `json:"occupation_counts"`
	LastRunID          string           `json:"last_run_id,omitempty"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// NewSummaryView returns an all-zero view before the first run.
func NewSummaryView(s *dbmodels.PopulationSummary) SummaryView {
	if s == nil {
		return SummaryView{
			TotalFunded:      decimal.Zero,
			ArchetypeCounts:  map[string]int64{},
			OccupationCounts: map[string]int64{},
		}
	}
	return SummaryView{
		TotalAgents:        s.TotalAgents,
		SuccessfullyFunded: s.SuccessfullyFunded,
		FailedToFund:       s.FailedToFund,
		TotalFunded:        s.TotalFunded,
		ArchetypeCounts:    s.ArchetypeCounts,
		OccupationCounts:   s.OccupationCounts,
		LastRunID:          s.LastRunID,
		UpdatedAt:          s.UpdatedAt,
	}
}

type IntegrityView struct {
	Consistent    bool     `json:"consistent"`
	SummaryTotal  int64    `json:"summary_total"`
	RowTotal      int64    `json:"row_total"`
	SummaryFunded int64    `json:"summary_funded"`
	RowFunded     int64    `json:"row_funded"`
	Discrepancies []string `json:"discrepancies,omitempty"`
}

func NewIntegrityView(ir *population.IntegrityReport) IntegrityView {
	return IntegrityView{
		Consistent:    ir.Consistent,
		SummaryTotal:  ir.SummaryTotal,
		RowTotal:      ir.RowTotal,
		SummaryFunded: ir.SummaryFunded,
		RowFunded:     ir.RowFunded,
		Discrepancies: ir.Discrepancies,
	}
}

type PoolView struct {
	ID          string          `json:"id"`
	TokenA      string          `json:"token_a"`
	TokenB      string          `json:"token_b"`
	ReserveA    decimal.Decimal `json:"reserve_a"`
	ReserveB    decimal.Decimal `json:"reserve_b"`
	K           decimal.Decimal `json:"k"`
	Price       decimal.Decimal `json:"price"`
	High24h     decimal.Decimal `json:"high_24h"`
	Low24h      decimal.Decimal `json:"low_24h"`
	Volume24h   decimal.Decimal `json:"volume_24h"`
	TotalVolume decimal.Decimal `json:"total_volume"`
	TradeCount  int64           `json:"trade_count"`
	FeeBps      int             `json:"fee_bps"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewPoolView(p *dbmodels.LiquidityPool) PoolView {
	return PoolView{
		ID:          p.ID,
		TokenA:      p.TokenA,
		TokenB:      p.TokenB,
		ReserveA:    p.ReserveA,
		ReserveB:    p.ReserveB,
		K:           p.K,
		Price:       p.Price,
		High24h:     p.High24h,
		Low24h:      p.Low24h,
		Volume24h:   p.Volume24h,
		TotalVolume: p.TotalVolume,
		TradeCount:  p.TradeCount,
		FeeBps:      p.FeeBps,
		CreatedAt:   p.CreatedAt,
	}
}

type PricePoint struct {
	Price      decimal.Decimal `json:"price"`
	Volume     decimal.Decimal `json:"volume"`
	RecordedAt time.Time       `json:"recorded_at"`
}

func NewPricePoints(history []*dbmodels.PoolPriceHistory) []PricePoint {
	points := make([]PricePoint, 0, len(history))
	for _, h := range history {
		points = append(points, PricePoint{Price: h.Price, Volume: h.Volume, RecordedAt: h.RecordedAt})
	}
	return points
}

type QuoteView struct {
	Side        string          `json:"side"`
	AmountIn    decimal.Decimal `json:"amount_in"`
	AmountOut   decimal.Decimal `json:"amount_out"`
	Fee         decimal.Decimal `json:"fee"`
	PriceAfter  decimal.Decimal `json:"price_after"`
	PriceImpact decimal.Decimal `json:"price_impact"`
}

func NewQuoteView(q *liquidity.Quote) QuoteView {
	return QuoteView{
		Side:        q.Side.String(),
		AmountIn:    q.AmountIn,
		AmountOut:   q.AmountOut,
		Fee:         q.Fee,
		PriceAfter:  q.Price,
		PriceImpact: q.PriceImpact,
	}
}

// AgentView never carries the wallet secret.
type AgentView struct {
	ID            string          `json:"id"`
	RunID         string          `json:"run_id"`
	Name          string          `json:"name"`
	Archetype     string          `json:"archetype"`
	Occupation    string          `json:"occupation"`
	WalletAddress string          `json:"wallet_address"`
	TargetFunding decimal.Decimal `json:"target_funding"`
	FundingReason string          `json:"funding_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewAgentViews(agents []*dbmodels.Agent) []AgentView {
	views := make([]AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, AgentView{
			ID:            a.ID,
			RunID:         a.RunID,
			Name:          a.Name,
			Archetype:     a.Archetype,
			Occupation:    a.Occupation,
			WalletAddress: a.WalletAddress,
			TargetFunding: a.TargetFunding,
			FundingReason: a.FundingReason,
			CreatedAt:     a.CreatedAt,
		})
	}
	return views
}
