package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/agentmarket/popsim/backend/models"
	"github.com/agentmarket/popsim/backend/utils"
	"github.com/agentmarket/popsim/internal/domain/archetypes"
	"github.com/agentmarket/popsim/internal/domain/liquidity"
	"github.com/agentmarket/popsim/internal/domain/population"
	dbmodels "github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Ledger interface {
	GetSummary(ctx context.Context) (*dbmodels.PopulationSummary, error)
	ListUnfunded(ctx context.Context, limit int) ([]*dbmodels.Agent, error)
}

type ActivityReader interface {
	Recent(ctx context.Context, limit int) ([]*dbmodels.ActivityLog, error)
}

type SummaryVerifier interface {
	VerifySummary(ctx context.Context) (*population.IntegrityReport, error)
}

// WebApp holds everything the read-only status API serves from.
type WebApp struct {
	Ledger   Ledger
	Activity ActivityReader
	Verifier SummaryVerifier
	Pool     liquidity.Service
	Table    archetypes.Table
	Version  string
	Commit   string
}

func HealthCheck(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, fiber.Map{
			"status":  "healthy",
			"version": webApp.Version,
			"commit":  webApp.Commit,
		}, "Health check successful")
	}
}

func Summary(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := webApp.Ledger.GetSummary(c.UserContext())
		if err != nil {
			slog.Error("Failed to load summary", slog.String("type", "db"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load population summary")
		}
		return utils.SendSuccess(c, models.NewSummaryView(summary), "")
	}
}

func Integrity(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		report, err := webApp.Verifier.VerifySummary(c.UserContext())
		if err != nil {
			slog.Error("Failed to verify summary", slog.String("type", "db"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to verify population summary")
		}
		return utils.SendSuccess(c, models.NewIntegrityView(report), "")
	}
}

func Unfunded(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		agents, err := webApp.Ledger.ListUnfunded(c.UserContext(), utils.QueryLimit(c, 50, 500))
		if err != nil {
			slog.Error("Failed to list unfunded agents", slog.String("type", "db"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to list unfunded agents")
		}
		return utils.SendSuccess(c, models.NewAgentViews(agents), "")
	}
}

func Activity(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		entries, err := webApp.Activity.Recent(c.UserContext(), utils.QueryLimit(c, 20, 200))
		if err != nil {
			slog.Error("Failed to load activity", slog.String("type", "db"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load activity")
		}
		return utils.SendSuccess(c, entries, "")
	}
}

func Pool(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pool, err := webApp.Pool.GetPool(c.UserContext())
		if errors.Is(err, liquidity.ErrPoolNotInitialized) {
			return utils.SendNotFound(c, err.Error())
		}
		if err != nil {
			slog.Error("Failed to load pool", slog.String("type", "pool"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load pool")
		}
		return utils.SendSuccess(c, models.NewPoolView(pool), "")
	}
}

func PoolHistory(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		history, err := webApp.Pool.History(c.UserContext(), utils.QueryLimit(c, 100, 1000))
		if err != nil {
			slog.Error("Failed to load price history", slog.String("type", "pool"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to load price history")
		}
		return utils.SendSuccess(c, models.NewPricePoints(history), "")
	}
}

func PoolQuote(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		side, err := liquidity.ParseSide(c.Query("side", "buy"))
		if err != nil {
			return utils.SendBadRequest(c, err.Error(), nil)
		}
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			return utils.SendBadRequest(c, "amount must be a decimal number", map[string]string{"amount": c.Query("amount")})
		}

		quote, err := webApp.Pool.Quote(c.UserContext(), side, amount)
		switch {
		case errors.Is(err, liquidity.ErrPoolNotInitialized):
			return utils.SendNotFound(c, err.Error())
		case errors.Is(err, liquidity.ErrInvalidAmount), errors.Is(err, liquidity.ErrInsufficientLiquidity):
			return utils.SendUnprocessableEntity(c, err.Error(), nil)
		case err != nil:
			slog.Error("Failed to quote swap", slog.String("type", "pool"), slog.Any("error", err))
			return utils.SendInternalServerError(c, "Failed to quote swap")
		}
		return utils.SendSuccess(c, models.NewQuoteView(quote), "")
	}
}

func Archetypes(webApp *WebApp) fiber.Handler {
	return func(c *fiber.Ctx) error {
		list := webApp.Table.Archetypes
		if q := c.Query("q"); q != "" {
			list = webApp.Table.Find(q)
		}
		return utils.SendSuccess(c, list, "")
	}
}
