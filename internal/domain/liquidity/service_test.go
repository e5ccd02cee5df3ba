package liquidity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/agentmarket/popsim/internal/domain/liquidity/mock"
	"github.com/agentmarket/popsim/internal/gateways/database/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testPool = PoolConfig{ID: "main", TokenA: "ETH", TokenB: "SIM", FeeBps: 30}

// memoryRepository keeps pools in memory with the same insert-if-absent
// semantics as the database repository.
type memoryRepository struct {
	mu      sync.Mutex
	pools   map[string]*models.LiquidityPool
	history []*models.PoolPriceHistory
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{pools: map[string]*models.LiquidityPool{}}
}

func (r *memoryRepository) Find(_ context.Context, id string) (*models.LiquidityPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pools[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, nil
}

func (r *memoryRepository) InsertIfAbsent(_ context.Context, pool *models.LiquidityPool, history *models.PoolPriceHistory) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[pool.ID]; ok {
		return false, nil
	}
	cp := *pool
	r.pools[pool.ID] = &cp
	r.history = append(r.history, history)
	return true, nil
}

func (r *memoryRepository) PriceHistory(_ context.Context, id string, limit int) ([]*models.PoolPriceHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PoolPriceHistory
	for _, h := range r.history {
		if h.PoolID == id {
			out = append(out, h)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestService_EnsurePoolInitialized(t *testing.T) {
	repo := newMemoryRepository()
	s := NewService(repo, testPool)

	pool, created, err := s.EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, pool.ReserveA.Equal(d("1000")))
	assert.True(t, pool.ReserveB.Equal(d("1000000")))
	assert.True(t, pool.K.Equal(d("1000000000")), pool.K.String())
	assert.True(t, pool.Price.Equal(d("0.001")), pool.Price.String())
	assert.True(t, pool.High24h.Equal(pool.Price))
	assert.True(t, pool.Low24h.Equal(pool.Price))
	assert.True(t, pool.Volume24h.IsZero())
	assert.True(t, pool.ReserveA.Mul(pool.ReserveB).Equal(pool.K))
	assert.True(t, pool.Price.Equal(pool.ReserveA.Div(pool.ReserveB)))
	require.Len(t, repo.history, 1)
	assert.True(t, repo.history[0].Price.Equal(pool.Price))
}

func TestService_EnsurePoolInitializedIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	s := NewService(repo, testPool)

	first, created, err := s.EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	require.NoError(t, err)
	require.True(t, created)

	// different reserves on the second call must not change anything
	second, created, err := s.EnsurePoolInitialized(context.Background(), d("5"), d("10"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.K.Equal(first.K))
	assert.True(t, second.Price.Equal(first.Price))
	assert.True(t, second.ReserveA.Equal(first.ReserveA))
	assert.Len(t, repo.pools, 1)
	assert.Len(t, repo.history, 1)
}

func TestService_EnsurePoolInitializedConcurrent(t *testing.T) {
	repo := newMemoryRepository()
	s := NewService(repo, testPool)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool, ok, err := s.EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
			assert.NoError(t, err)
			assert.True(t, pool.K.Equal(d("1000000000")))
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, repo.pools, 1)
	assert.Len(t, repo.history, 1)
}

func TestService_EnsurePoolInitializedInvalidReserves(t *testing.T) {
	tests := []struct {
		name     string
		reserveA decimal.Decimal
		reserveB decimal.Decimal
	}{
		{"zero a", decimal.Zero, d("10")},
		{"negative b", d("10"), d("-1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			_, _, err := NewService(repo, testPool).EnsurePoolInitialized(context.Background(), tt.reserveA, tt.reserveB)
			assert.ErrorIs(t, err, ErrInvalidReserves)
			assert.Empty(t, repo.pools)
		})
	}
}

func TestService_EnsurePoolInitializedLostRace(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	winner := &models.LiquidityPool{ID: "main", ReserveA: d("2"), ReserveB: d("8"), K: d("16"), Price: d("0.25")}

	gomock.InOrder(
		repo.EXPECT().Find(gomock.Any(), "main").Return(nil, nil),
		repo.EXPECT().InsertIfAbsent(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil),
		repo.EXPECT().Find(gomock.Any(), "main").Return(winner, nil),
	)

	got, created, err := NewService(repo, testPool).EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Same(t, winner, got)
}

func TestService_EnsurePoolInitializedExistingMismatch(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	corrupt := &models.LiquidityPool{ID: "main", ReserveA: d("2"), ReserveB: d("8"), K: d("15"), Price: d("0.25")}
	repo.EXPECT().Find(gomock.Any(), "main").Return(corrupt, nil)

	// existing state is returned untouched, never re-initialized
	got, created, err := NewService(repo, testPool).EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, got.K.Equal(d("15")))
}

func TestService_EnsurePoolInitializedRepositoryError(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	repo.EXPECT().Find(gomock.Any(), "main").Return(nil, errors.New("connection reset"))

	_, _, err := NewService(repo, testPool).EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	assert.Error(t, err)
}

func TestService_GetPoolNotInitialized(t *testing.T) {
	_, err := NewService(newMemoryRepository(), testPool).GetPool(context.Background())
	assert.ErrorIs(t, err, ErrPoolNotInitialized)
}

func TestService_Simulate(t *testing.T) {
	repo := newMemoryRepository()
	s := NewService(repo, testPool)
	_, _, err := s.EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	require.NoError(t, err)

	sim, err := s.Simulate(context.Background(), []Trade{
		{Side: SideBuy, AmountIn: d("10")},
		{Side: SideSell, AmountIn: d("4000")},
		{Side: SideBuy, AmountIn: d("0.25")},
	})
	require.NoError(t, err)

	require.Len(t, sim.Steps, 3)
	require.Len(t, sim.Quotes, 3)
	assert.Equal(t, int64(3), sim.End.TradeCount)
	assert.True(t, sim.End.K.GreaterThanOrEqual(sim.Start.K))
	assert.NoError(t, CheckInvariant(sim.End))
	assert.True(t, sim.Quotes[0].AmountOut.Equal(d("1000000").Sub(sim.Steps[0].ReserveB)))

	// the stored pool is untouched
	stored, err := s.GetPool(context.Background())
	require.NoError(t, err)
	assert.True(t, stored.ReserveA.Equal(d("1000")))
	assert.Zero(t, stored.TradeCount)
	assert.Len(t, repo.history, 1)
}

func TestService_SimulateErrors(t *testing.T) {
	repo := newMemoryRepository()
	s := NewService(repo, testPool)

	_, err := s.Simulate(context.Background(), []Trade{{Side: SideBuy, AmountIn: d("1")}})
	assert.ErrorIs(t, err, ErrPoolNotInitialized)

	_, _, err = s.EnsurePoolInitialized(context.Background(), d("1000"), d("1000000"))
	require.NoError(t, err)
	_, err = s.Simulate(context.Background(), []Trade{
		{Side: SideBuy, AmountIn: d("1")},
		{Side: SideSell, AmountIn: d("0")},
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Contains(t, err.Error(), "trade 2")
}
