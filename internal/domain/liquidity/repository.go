package liquidity

import (
	"context"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
)

type Repository interface {
	// Find returns nil and no error when the pool does not exist.
	Find(ctx context.Context, id string) (*models.LiquidityPool, error)
	// InsertIfAbsent writes the pool and its first history entry atomically.
	// It reports false without writing anything when the id is already taken.
	InsertIfAbsent(ctx context.Context, pool *models.LiquidityPool, history *models.PoolPriceHistory) (bool, error)
	PriceHistory(ctx context.Context, id string, limit int) ([]*models.PoolPriceHistory, error)
}
