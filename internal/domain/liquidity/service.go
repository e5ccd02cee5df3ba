package liquidity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/shopspring/decimal"
)

type Service interface {
	EnsurePoolInitialized(ctx context.Context, reserveA, reserveB decimal.Decimal) (*models.LiquidityPool, bool, error)
	GetPool(ctx context.Context) (*models.LiquidityPool, error)
	Quote(ctx context.Context, side Side, amountIn decimal.Decimal) (*Quote, error)
	History(ctx context.Context, limit int) ([]*models.PoolPriceHistory, error)
	Simulate(ctx context.Context, trades []Trade) (*Simulation, error)
}

// Simulation is the outcome of applying trades to a copy of the pool.
type Simulation struct {
	Start  *models.LiquidityPool
	End    *models.LiquidityPool
	Quotes []*Quote
	Steps  []*models.PoolPriceHistory
}

var ErrPoolNotInitialized = errors.New("liquidity pool is not initialized")

// PoolConfig identifies the singleton pool and its token pair.
type PoolConfig struct {
	ID     string
	TokenA string
	TokenB string
	FeeBps int
}

type service struct {
	repository Repository
	cfg        PoolConfig
	now        func() time.Time
}

func NewService(repository Repository, cfg PoolConfig) *service {
	return &service{
		repository: repository,
		cfg:        cfg,
		now:        time.Now,
	}
}

// EnsurePoolInitialized creates the pool the first time it is called and is a
// no-op afterwards. The boolean reports whether this call created the pool.
func (s *service) EnsurePoolInitialized(ctx context.Context, reserveA, reserveB decimal.Decimal) (*models.LiquidityPool, bool, error) {
	existing, err := s.repository.Find(ctx, s.cfg.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check pool %s: %w", s.cfg.ID, err)
	}
	if existing != nil {
		s.verify(existing)
		return existing, false, nil
	}

	k, price, err := NewPoolState(reserveA, reserveB)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	pool := &models.LiquidityPool{
		ID:          s.cfg.ID,
		TokenA:      s.cfg.TokenA,
		TokenB:      s.cfg.TokenB,
		ReserveA:    reserveA,
		ReserveB:    reserveB,
		K:           k,
		Price:       price,
		High24h:     price,
		Low24h:      price,
		Volume24h:   decimal.Zero,
		TotalVolume: decimal.Zero,
		FeeBps:      s.cfg.FeeBps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	history := &models.PoolPriceHistory{
		PoolID:     s.cfg.ID,
		Price:      price,
		ReserveA:   reserveA,
		ReserveB:   reserveB,
		Volume:     decimal.Zero,
		RecordedAt: now,
	}

	inserted, err := s.repository.InsertIfAbsent(ctx, pool, history)
	if err != nil {
		return nil, false, fmt.Errorf("failed to initialize pool %s: %w", s.cfg.ID, err)
	}
	if !inserted {
		// another caller won the race; its row is the pool
		winner, err := s.repository.Find(ctx, s.cfg.ID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to reload pool %s: %w", s.cfg.ID, err)
		}
		if winner == nil {
			return nil, false, fmt.Errorf("pool %s vanished after conflicting insert", s.cfg.ID)
		}
		s.verify(winner)
		return winner, false, nil
	}

	slog.Info("Liquidity pool initialized",
		slog.String("type", "pool"),
		slog.String("pool_id", pool.ID),
		slog.String("reserve_a", reserveA.String()),
		slog.String("reserve_b", reserveB.String()),
		slog.String("k", k.String()),
		slog.String("price", price.String()))
	return pool, true, nil
}

// verify surfaces a k mismatch for external reconciliation. The row is left as is.
func (s *service) verify(pool *models.LiquidityPool) {
	if err := CheckInvariant(pool); err != nil {
		slog.Warn("Data integrity warning",
			slog.String("type", "pool"),
			slog.String("pool_id", pool.ID),
			slog.Any("error", err))
	}
}

func (s *service) GetPool(ctx context.Context) (*models.LiquidityPool, error) {
	pool, err := s.repository.Find(ctx, s.cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s: %w", s.cfg.ID, err)
	}
	if pool == nil {
		return nil, ErrPoolNotInitialized
	}
	return pool, nil
}

func (s *service) Quote(ctx context.Context, side Side, amountIn decimal.Decimal) (*Quote, error) {
	pool, err := s.GetPool(ctx)
	if err != nil {
		return nil, err
	}
	return QuoteSwap(pool, side, amountIn)
}

func (s *service) History(ctx context.Context, limit int) ([]*models.PoolPriceHistory, error) {
	history, err := s.repository.PriceHistory(ctx, s.cfg.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}
	return history, nil
}

// Simulate runs trades in order against a copy of the stored pool. Every
// step keeps k from shrinking; nothing is written back.
func (s *service) Simulate(ctx context.Context, trades []Trade) (*Simulation, error) {
	pool, err := s.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	sim := &Simulation{Start: pool, End: pool}
	now := s.now().UTC()
	for i, t := range trades {
		q, err := QuoteSwap(sim.End, t.Side, t.AmountIn)
		if err != nil {
			return nil, fmt.Errorf("trade %d (%s %s): %w", i+1, t.Side, t.AmountIn, err)
		}
		next, step, err := ApplySwap(sim.End, t.Side, t.AmountIn, now)
		if err != nil {
			return nil, fmt.Errorf("trade %d (%s %s): %w", i+1, t.Side, t.AmountIn, err)
		}
		sim.End = next
		sim.Quotes = append(sim.Quotes, q)
		sim.Steps = append(sim.Steps, step)
	}

	slog.Debug("Pool simulation finished",
		slog.String("type", "pool"),
		slog.String("pool_id", pool.ID),
		slog.Int("trades", len(trades)),
		slog.String("start_price", pool.Price.String()),
		slog.String("end_price", sim.End.Price.String()))
	return sim, nil
}
