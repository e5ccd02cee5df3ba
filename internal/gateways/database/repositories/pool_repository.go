package repositories

import (
	"context"
	"fmt"
	"slices"

	"github.com/agentmarket/popsim/internal/domain/liquidity"
	"github.com/agentmarket/popsim/internal/domain/logger"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/uptrace/bun"
)

type poolRepository struct {
	*BaseRepository
}

var _ liquidity.Repository = &poolRepository{}

func NewPoolRepository(db *bun.DB) *poolRepository {
	return &poolRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *poolRepository) Find(ctx context.Context, id string) (*models.LiquidityPool, error) {
	pool := new(models.LiquidityPool)
	found, err := r.selectOne(ctx, "liquidity_pools",
		r.db.NewSelect().Model(pool).Where("?TableAlias.id = ?", id))
	if err != nil || !found {
		return nil, err
	}
	return pool, nil
}

// InsertIfAbsent relies on the primary key: a losing concurrent insert
// affects no rows and its history entry is never written.
func (r *poolRepository) InsertIfAbsent(ctx context.Context, pool *models.LiquidityPool, history *models.PoolPriceHistory) (inserted bool, err error) {
	ql := logger.NewQueryLogger("insert_if_absent", "liquidity_pools", pool.ID)
	var rows int64
	defer func() { ql.Log(err, rows) }()

	err = r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(pool).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert pool: %w", err)
		}
		if rows, _ = res.RowsAffected(); rows == 0 {
			return nil
		}

		if _, err := tx.NewInsert().Model(history).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert price history: %w", err)
		}
		inserted = true
		return nil
	})
	if err != nil {
		return false, r.HandleError("insert_if_absent", "liquidity_pools", err)
	}
	return inserted, nil
}

// PriceHistory returns the latest limit entries in time order.
func (r *poolRepository) PriceHistory(ctx context.Context, id string, limit int) ([]*models.PoolPriceHistory, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var history []*models.PoolPriceHistory
	q := r.db.NewSelect().
		Model(&history).
		Where("pool_id = ?", id).
		Order("recorded_at DESC", "id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, r.HandleError("price_history", "pool_price_history", err)
	}
	slices.Reverse(history)
	return history, nil
}
