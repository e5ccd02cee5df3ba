package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// LiquidityPool is the singleton constant-product pool.
type LiquidityPool struct {
	bun.BaseModel `bun:"table:liquidity_pools,alias:lp"`

	ID          string          `bun:"id,pk"`
	TokenA      string          `bun:"token_a,notnull"`
	TokenB      string          `bun:"token_b,notnull"`
	ReserveA    decimal.Decimal `bun:"reserve_a,type:numeric,notnull"`
	ReserveB    decimal.Decimal `bun:"reserve_b,type:numeric,notnull"`
	K           decimal.Decimal `bun:"k,type:numeric,notnull"`
	Price       decimal.Decimal `bun:"price,type:numeric,notnull"`
	High24h     decimal.Decimal `bun:"high_24h,type:numeric,notnull"`
	Low24h      decimal.Decimal `bun:"low_24h,type:numeric,notnull"`
	Volume24h   decimal.Decimal `bun:"volume_24h,type:numeric,notnull,default:0"`
	TotalVolume decimal.Decimal `bun:"total_volume,type:numeric,notnull,default:0"`
	TradeCount  int64           `bun:"trade_count,notnull,default:0"`
	FeeBps      int             `bun:"fee_bps,notnull"`
	LastTradeAt time.Time       `bun:"last_trade_at,nullzero"`
	CreatedAt   time.Time       `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

// PoolPriceHistory is an append-only price point for a pool.
type PoolPriceHistory struct {
	bun.BaseModel `bun:"table:pool_price_history,alias:pph"`

	ID         int64           `bun:"id,pk,autoincrement"`
	PoolID     string          `bun:"pool_id,notnull"`
	Price      decimal.Decimal `bun:"price,type:numeric,notnull"`
	ReserveA   decimal.Decimal `bun:"reserve_a,type:numeric,notnull"`
	ReserveB   decimal.Decimal `bun:"reserve_b,type:numeric,notnull"`
	Volume     decimal.Decimal `bun:"volume,type:numeric,notnull,default:0"`
	RecordedAt time.Time       `bun:"recorded_at,notnull,default:current_timestamp"`
}
