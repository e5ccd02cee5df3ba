package funding

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/agentmarket/popsim/internal/domain/funding/mock"
	"github.com/agentmarket/popsim/internal/domain/wallets"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const funderKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var gwei = big.NewInt(1_000_000_000)

func newTestExecutor(t *testing.T) (*Executor, *mock.MockNetwork) {
	t.Helper()
	network := mock.NewMockNetwork(gomock.NewController(t))
	funder, err := wallets.LoadFunder(funderKey)
	require.NoError(t, err)

	exec, err := NewExecutor(network, funder, Config{
		ConfirmTimeout: 50 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
		GuardSize:      16,
	})
	require.NoError(t, err)
	return exec, network
}

func recipient(b byte) common.Address {
	return common.BytesToAddress([]byte{b})
}

func TestExecutor_FundSuccess(t *testing.T) {
	exec, network := newTestExecutor(t)
	amount := decimal.RequireFromString("0.004")

	network.EXPECT().ChainID(gomock.Any()).Return(big.NewInt(1337), nil).Times(1)
	network.EXPECT().SuggestGasPrice(gomock.Any()).Return(gwei, nil).Times(2)
	network.EXPECT().PendingNonceAt(gomock.Any(), exec.FunderAddress()).Return(uint64(7), nil).Times(1)

	var nonces []uint64
	network.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tx *types.Transaction) error {
			nonces = append(nonces, tx.Nonce())
			assert.Equal(t, ToWei(amount), tx.Value())
			assert.Equal(t, uint64(defaultGasLimit), tx.Gas())
			return nil
		}).Times(2)
	network.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
		Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(12)}, nil).Times(2)

	first := exec.Fund(context.Background(), recipient(1), amount)
	second := exec.Fund(context.Background(), recipient(2), amount)

	require.True(t, first.Succeeded, "first: %v", first.Err)
	require.True(t, second.Succeeded, "second: %v", second.Err)
	require.NotNil(t, first.Receipt)
	assert.Equal(t, first.TxHash, *first.Receipt)
	assert.Equal(t, uint64(12), first.BlockNumber)
	assert.Equal(t, []uint64{7, 8}, nonces)
}

func TestExecutor_FundFailures(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(n *mock.MockNetwork)
		reason Reason
	}{
		{
			name: "insufficient funds",
			setup: func(n *mock.MockNetwork) {
				n.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("insufficient funds for gas * price + value"))
			},
			reason: ReasonInsufficientFunds,
		},
		{
			name: "stale nonce",
			setup: func(n *mock.MockNetwork) {
				n.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("nonce too low"))
			},
			reason: ReasonStaleReference,
		},
		{
			name: "rejected",
			setup: func(n *mock.MockNetwork) {
				n.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("invalid sender"))
			},
			reason: ReasonRejected,
		},
		{
			name: "network down",
			setup: func(n *mock.MockNetwork) {
				n.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"))
			},
			reason: ReasonNetworkError,
		},
		{
			name: "reverted",
			setup: func(n *mock.MockNetwork) {
				n.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(nil)
				n.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
					Return(&types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(3)}, nil)
			},
			reason: ReasonReverted,
		},
		{
			name: "never confirmed",
			setup: func(n *mock.MockNetwork) {
				n.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(nil)
				n.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
					Return(nil, ethereum.NotFound).AnyTimes()
			},
			reason: ReasonTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec, network := newTestExecutor(t)
			network.EXPECT().ChainID(gomock.Any()).Return(big.NewInt(1337), nil)
			network.EXPECT().SuggestGasPrice(gomock.Any()).Return(gwei, nil)
			network.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(0), nil)
			tt.setup(network)

			got := exec.Fund(context.Background(), recipient(9), decimal.RequireFromString("0.001"))
			assert.False(t, got.Succeeded)
			assert.Nil(t, got.Receipt)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Error(t, got.Err)
		})
	}
}

func TestExecutor_NonceResyncAfterSubmitError(t *testing.T) {
	exec, network := newTestExecutor(t)
	amount := decimal.RequireFromString("0.002")

	network.EXPECT().ChainID(gomock.Any()).Return(big.NewInt(1337), nil)
	network.EXPECT().SuggestGasPrice(gomock.Any()).Return(gwei, nil).Times(2)
	gomock.InOrder(
		network.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(4), nil),
		network.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(5), nil),
	)
	gomock.InOrder(
		network.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(errors.New("nonce too low")),
		network.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, tx *types.Transaction) error {
				assert.Equal(t, uint64(5), tx.Nonce())
				return nil
			}),
	)
	network.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
		Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil)

	first := exec.Fund(context.Background(), recipient(1), amount)
	assert.Equal(t, ReasonStaleReference, first.Reason)

	// a failed submission does not mark the recipient as funded
	second := exec.Fund(context.Background(), recipient(1), amount)
	assert.True(t, second.Succeeded, "second: %v", second.Err)
}

func TestExecutor_DuplicateRecipient(t *testing.T) {
	exec, network := newTestExecutor(t)
	amount := decimal.RequireFromString("0.002")

	network.EXPECT().ChainID(gomock.Any()).Return(big.NewInt(1337), nil)
	network.EXPECT().SuggestGasPrice(gomock.Any()).Return(gwei, nil)
	network.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(0), nil)
	network.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	network.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
		Return(&types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil)

	first := exec.Fund(context.Background(), recipient(5), amount)
	require.True(t, first.Succeeded)

	second := exec.Fund(context.Background(), recipient(5), amount)
	assert.False(t, second.Succeeded)
	assert.Equal(t, ReasonDuplicate, second.Reason)
}

func TestExecutor_RejectsNonPositiveAmount(t *testing.T) {
	exec, _ := newTestExecutor(t)

	got := exec.Fund(context.Background(), recipient(3), decimal.Zero)
	assert.Equal(t, ReasonRejected, got.Reason)
}

func TestExecutor_Balance(t *testing.T) {
	exec, network := newTestExecutor(t)
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	network.EXPECT().BalanceAt(gomock.Any(), exec.FunderAddress(), nil).Return(wei, nil)

	got, err := exec.Balance(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")), got.String())
}

func TestWeiConversion(t *testing.T) {
	amount := decimal.RequireFromString("0.004321")
	wei := ToWei(amount)
	assert.Equal(t, "4321000000000000", wei.String())
	assert.True(t, FromWei(wei).Equal(amount))
}
