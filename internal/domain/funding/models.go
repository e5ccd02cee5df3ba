package funding

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

// Network is the part of an Ethereum JSON-RPC client the executor needs.
// *ethclient.Client satisfies it.
type Network interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

type Reason string

const (
	ReasonNone              Reason = ""
	ReasonInsufficientFunds Reason = "insufficient_funds"
	ReasonStaleReference    Reason = "stale_reference"
	ReasonRejected          Reason = "rejected"
	ReasonTimeout           Reason = "timeout"
	ReasonNetworkError      Reason = "network_error"
	ReasonReverted          Reason = "reverted"
	ReasonDuplicate         Reason = "duplicate"
)

// Transient reports whether the failure came from the network rather than
// from the transfer itself.
func (r Reason) Transient() bool {
	return r == ReasonNetworkError || r == ReasonTimeout
}

// Outcome is the result of one funding attempt. Receipt is set only when the
// transfer confirmed; TxHash is set whenever a transaction was submitted.
type Outcome struct {
	Succeeded   bool
	Receipt     *string
	TxHash      string
	Amount      decimal.Decimal
	Reason      Reason
	Err         error
	BlockNumber uint64
}

type Config struct {
	GasLimit       uint64
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	// GuardSize bounds how many funded recipients are remembered.
	GuardSize int
}
