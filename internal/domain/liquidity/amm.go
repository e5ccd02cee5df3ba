package liquidity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidReserves       = errors.New("pool reserves must be positive")
	ErrInvalidAmount         = errors.New("swap amount must be positive")
	ErrInsufficientLiquidity = errors.New("insufficient pool liquidity")
	ErrInvariantViolated     = errors.New("constant product invariant violated")
)

// Side follows the on-chain trade type: 0 buys token B with token A, 1 sells it back.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return fmt.Sprintf("side(%d)", int(s))
}

func ParseSide(s string) (Side, error) {
	switch s {
	case "buy", "0":
		return SideBuy, nil
	case "sell", "1":
		return SideSell, nil
	}
	return 0, fmt.Errorf("unknown side %q", s)
}

// Trade is one swap in a simulated sequence.
type Trade struct {
	Side     Side
	AmountIn decimal.Decimal
}

// ParseTrade reads "side:amount", for example "buy:2.5".
func ParseTrade(s string) (Trade, error) {
	sideText, amountText, ok := strings.Cut(s, ":")
	if !ok {
		return Trade{}, fmt.Errorf("trade %q must look like side:amount", s)
	}
	side, err := ParseSide(strings.TrimSpace(sideText))
	if err != nil {
		return Trade{}, err
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(amountText))
	if err != nil {
		return Trade{}, fmt.Errorf("invalid amount in trade %q: %w", s, err)
	}
	if !amount.IsPositive() {
		return Trade{}, fmt.Errorf("%w: trade %q", ErrInvalidAmount, s)
	}
	return Trade{Side: side, AmountIn: amount}, nil
}

const (
	bpsDenominator = 10000
	amountScale    = 18
)

var bps = decimal.NewFromInt(bpsDenominator)

type Quote struct {
	Side        Side
	AmountIn    decimal.Decimal
	AmountOut   decimal.Decimal
	Fee         decimal.Decimal
	ReserveA    decimal.Decimal
	ReserveB    decimal.Decimal
	Price       decimal.Decimal
	PriceImpact decimal.Decimal
}

// NewPoolState computes k and price for fresh reserves.
func NewPoolState(reserveA, reserveB decimal.Decimal) (k, price decimal.Decimal, err error) {
	if !reserveA.IsPositive() || !reserveB.IsPositive() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("%w: a=%s b=%s", ErrInvalidReserves, reserveA, reserveB)
	}
	return reserveA.Mul(reserveB), reserveA.DivRound(reserveB, amountScale), nil
}

// CheckInvariant verifies that k matches the stored reserves exactly.
func CheckInvariant(pool *models.LiquidityPool) error {
	product := pool.ReserveA.Mul(pool.ReserveB)
	if !product.Equal(pool.K) {
		return fmt.Errorf("%w: pool %s has k=%s but reserves multiply to %s",
			ErrInvariantViolated, pool.ID, pool.K, product)
	}
	return nil
}

// QuoteSwap prices a constant-product swap with the pool fee taken from the input.
// The output is truncated so rounding never shrinks the product.
func QuoteSwap(pool *models.LiquidityPool, side Side, amountIn decimal.Decimal) (*Quote, error) {
	if !amountIn.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !pool.ReserveA.IsPositive() || !pool.ReserveB.IsPositive() {
		return nil, ErrInvalidReserves
	}

	reserveIn, reserveOut := pool.ReserveA, pool.ReserveB
	if side == SideSell {
		reserveIn, reserveOut = pool.ReserveB, pool.ReserveA
	}

	fee := amountIn.Mul(decimal.NewFromInt(int64(pool.FeeBps))).Div(bps)
	effective := amountIn.Sub(fee)
	amountOut := reserveOut.Mul(effective).
		DivRound(reserveIn.Add(effective), amountScale+6).
		Truncate(amountScale)
	if !amountOut.IsPositive() || amountOut.GreaterThanOrEqual(reserveOut) {
		return nil, fmt.Errorf("%w: %s in yields %s out", ErrInsufficientLiquidity, amountIn, amountOut)
	}

	newIn := reserveIn.Add(amountIn)
	newOut := reserveOut.Sub(amountOut)
	q := &Quote{Side: side, AmountIn: amountIn, AmountOut: amountOut, Fee: fee}
	if side == SideBuy {
		q.ReserveA, q.ReserveB = newIn, newOut
	} else {
		q.ReserveA, q.ReserveB = newOut, newIn
	}
	q.Price = q.ReserveA.DivRound(q.ReserveB, amountScale)
	if pool.Price.IsPositive() {
		q.PriceImpact = q.Price.Sub(pool.Price).Abs().DivRound(pool.Price, 8)
	}
	return q, nil
}

// ApplySwap returns the pool state after the swap and the history entry to
// append. The input pool is not modified. Any state whose product would drop
// below the current k is rejected.
func ApplySwap(pool *models.LiquidityPool, side Side, amountIn decimal.Decimal, now time.Time) (*models.LiquidityPool, *models.PoolPriceHistory, error) {
	q, err := QuoteSwap(pool, side, amountIn)
	if err != nil {
		return nil, nil, err
	}

	newK := q.ReserveA.Mul(q.ReserveB)
	if newK.LessThan(pool.K) {
		return nil, nil, fmt.Errorf("%w: k would drop from %s to %s", ErrInvariantViolated, pool.K, newK)
	}

	volumeA := amountIn
	if side == SideSell {
		volumeA = q.AmountOut
	}

	next := *pool
	next.ReserveA = q.ReserveA
	next.ReserveB = q.ReserveB
	next.K = newK
	next.Price = q.Price
	if q.Price.GreaterThan(next.High24h) {
		next.High24h = q.Price
	}
	if next.Low24h.IsZero() || q.Price.LessThan(next.Low24h) {
		next.Low24h = q.Price
	}
	next.Volume24h = next.Volume24h.Add(volumeA)
	next.TotalVolume = next.TotalVolume.Add(volumeA)
	next.TradeCount++
	next.LastTradeAt = now
	next.UpdatedAt = now

	history := &models.PoolPriceHistory{
		PoolID:     pool.ID,
		Price:      q.Price,
		ReserveA:   q.ReserveA,
		ReserveB:   q.ReserveB,
		Volume:     volumeA,
		RecordedAt: now,
	}
	return &next, history, nil
}
