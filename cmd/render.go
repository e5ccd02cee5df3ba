package cmd

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/agentmarket/popsim/internal/domain/liquidity"
	"github.com/agentmarket/popsim/internal/domain/population"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	okColor      = lipgloss.Color("#10B981")
	badColor     = lipgloss.Color("#EF4444")
	warnColor    = lipgloss.Color("#F59E0B")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(20)
	okStyle    = lipgloss.NewStyle().Foreground(okColor)
	badStyle   = lipgloss.NewStyle().Foreground(badColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warnColor)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#374151")).
			Padding(0, 1)
)

func row(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

// histogram renders counts sorted by key.
func histogram(counts map[string]int64) []string {
	keys := slices.Sorted(maps.Keys(counts))
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, row("  "+k, counts[k]))
	}
	return lines
}

func renderReport(r *population.Report) string {
	lines := []string{
		titleStyle.Render("Population run " + r.RunID),
		row("phase", r.Phase),
		row("requested", r.Requested),
		row("created", r.Created),
		row("funded", okStyle.Render(fmt.Sprint(r.Funded))),
		row("failed", badStyle.Render(fmt.Sprint(r.Failed))),
		row("persist failed", r.PersistFailed),
		row("not started", r.NotStarted),
		row("total funded", r.TotalFunded.String()),
		row("batches", fmt.Sprintf("%d/%d", r.BatchesCompleted, r.Batches)),
		row("pool created", r.PoolCreated),
		row("funder balance", r.FunderBalance.String()),
		row("estimated cost", r.EstimatedCost.String()),
		row("duration", r.Duration.Round(time.Millisecond)),
	}
	if len(r.FailureReasons) > 0 {
		lines = append(lines, "failure reasons")
		for _, k := range slices.Sorted(maps.Keys(r.FailureReasons)) {
			lines = append(lines, row("  "+k, r.FailureReasons[k]))
		}
	}
	if len(r.ArchetypeCounts) > 0 {
		lines = append(lines, "archetypes")
		lines = append(lines, histogram(r.ArchetypeCounts)...)
	}
	for _, w := range r.Warnings {
		lines = append(lines, warnStyle.Render("! "+w))
	}
	if r.ArchiveLocation != "" {
		lines = append(lines, row("archived to", r.ArchiveLocation))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderPool(p *models.LiquidityPool) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Pool %s (%s/%s)", p.ID, p.TokenA, p.TokenB)),
		row("reserve "+p.TokenA, p.ReserveA.String()),
		row("reserve "+p.TokenB, p.ReserveB.String()),
		row("k", p.K.String()),
		row("price", p.Price.String()),
		row("24h high/low", p.High24h.String()+" / "+p.Low24h.String()),
		row("24h volume", p.Volume24h.String()),
		row("trades", p.TradeCount),
		row("fee (bps)", p.FeeBps),
		row("created", p.CreatedAt.Format("2006-01-02 15:04:05")),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderQuote(q *liquidity.Quote) string {
	lines := []string{
		titleStyle.Render("Quote (" + q.Side.String() + ")"),
		row("amount in", q.AmountIn.String()),
		row("amount out", q.AmountOut.String()),
		row("fee", q.Fee.String()),
		row("price after", q.Price.String()),
		row("price impact", q.PriceImpact.Shift(2).StringFixed(4)+"%"),
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderSimulation(sim *liquidity.Simulation) string {
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Simulation (%d trades, not executed)", len(sim.Steps))),
	}
	for i, q := range sim.Quotes {
		lines = append(lines, row(fmt.Sprintf("%d. %s %s", i+1, q.Side, q.AmountIn),
			fmt.Sprintf("out %s, price %s", q.AmountOut, q.Price)))
	}
	lines = append(lines,
		row("start price", sim.Start.Price.String()),
		row("end price", sim.End.Price.String()),
		row("end reserve a", sim.End.ReserveA.String()),
		row("end reserve b", sim.End.ReserveB.String()),
		row("end k", sim.End.K.String()),
	)
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderHistory(points []*models.PoolPriceHistory) string {
	if len(points) == 0 {
		return "no price history"
	}
	lines := []string{titleStyle.Render("Price history")}
	for _, p := range points {
		lines = append(lines, row(p.RecordedAt.Format("2006-01-02 15:04:05"), p.Price.String()))
	}
	return strings.Join(lines, "\n")
}

func renderSummary(s *models.PopulationSummary, ir *population.IntegrityReport) string {
	if s == nil {
		return "no population has been created yet"
	}
	lines := []string{
		titleStyle.Render("Population summary"),
		row("total agents", s.TotalAgents),
		row("funded", okStyle.Render(fmt.Sprint(s.SuccessfullyFunded))),
		row("failed", badStyle.Render(fmt.Sprint(s.FailedToFund))),
		row("total funded", s.TotalFunded.String()),
		row("last run", s.LastRunID),
		"archetypes",
	}
	lines = append(lines, histogram(s.ArchetypeCounts)...)
	lines = append(lines, "occupations")
	lines = append(lines, histogram(s.OccupationCounts)...)

	if ir != nil {
		if ir.Consistent {
			lines = append(lines, okStyle.Render("summary matches agent rows"))
		}
		for _, d := range ir.Discrepancies {
			lines = append(lines, warnStyle.Render("! "+d))
		}
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func renderActivity(entries []*models.ActivityLog) string {
	lines := []string{titleStyle.Render("Recent activity")}
	for _, e := range entries {
		lines = append(lines, row(e.CreatedAt.Format("01-02 15:04:05"), e.Kind+"  "+e.Message))
	}
	return strings.Join(lines, "\n")
}

func renderUnfunded(agents []*models.Agent) string {
	lines := []string{titleStyle.Render("Unfunded agents")}
	for _, a := range agents {
		lines = append(lines, row(a.Name, a.WalletAddress+"  "+a.FundingReason))
	}
	return strings.Join(lines, "\n")
}

func renderArchetypes(list []archetypes.Archetype) string {
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, titleStyle.Render("Archetypes"))
	for _, a := range list {
		lines = append(lines, row(a.ID, fmt.Sprintf("%3d%%  funding %s..%s  risk %.2f  frequency %.2f",
			a.Share, a.FundingMin, a.FundingMax, a.Behavior.RiskTolerance, a.Behavior.TradeFrequency)))
	}
	return strings.Join(lines, "\n")
}
