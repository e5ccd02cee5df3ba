package funding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/agentmarket/popsim/internal/domain/wallets"
	"github.com/agentmarket/popsim/popsim/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru"
	"github.com/shopspring/decimal"
)

const (
	defaultGasLimit       = 21000
	defaultConfirmTimeout = 90 * time.Second
	defaultPollInterval   = 2 * time.Second
)

// Executor sends single value transfers from the funder to agent wallets.
// It never retries and never persists anything.
type Executor struct {
	network Network
	funder  *wallets.Funder
	cfg     Config
	funded  *lru.Cache

	chainMu sync.Mutex
	chainID *big.Int

	// nonceMu is held from nonce assignment through submission so
	// concurrent transfers never share or skip a nonce.
	nonceMu     sync.Mutex
	nonce       uint64
	nonceLoaded bool
}

func NewExecutor(network Network, funder *wallets.Funder, cfg Config) (*Executor, error) {
	if cfg.GasLimit == 0 {
		cfg.GasLimit = defaultGasLimit
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = defaultConfirmTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.GuardSize <= 0 {
		cfg.GuardSize = config.FundedAddressCacheSize
	}

	funded, err := lru.New(cfg.GuardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create funding guard: %w", err)
	}

	return &Executor{
		network: network,
		funder:  funder,
		cfg:     cfg,
		funded:  funded,
	}, nil
}

func (e *Executor) FunderAddress() common.Address {
	return e.funder.Address
}

// Balance returns the funder balance in native units.
func (e *Executor) Balance(ctx context.Context) (decimal.Decimal, error) {
	wei, err := e.network.BalanceAt(ctx, e.funder.Address, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get funder balance: %w", err)
	}
	return FromWei(wei), nil
}

// Fund transfers amount to recipient and waits for confirmation.
func (e *Executor) Fund(ctx context.Context, recipient common.Address, amount decimal.Decimal) Outcome {
	out := Outcome{Amount: amount}

	if !amount.IsPositive() {
		return e.fail(out, ReasonRejected, fmt.Errorf("funding amount must be positive, got %s", amount))
	}
	if seen, _ := e.funded.ContainsOrAdd(recipient, struct{}{}); seen {
		return e.fail(out, ReasonDuplicate, fmt.Errorf("recipient %s already funded", recipient.Hex()))
	}

	chainID, err := e.loadChainID(ctx)
	if err != nil {
		e.funded.Remove(recipient)
		return e.fail(out, classify(err), fmt.Errorf("failed to get chain id: %w", err))
	}

	gasPrice, err := e.network.SuggestGasPrice(ctx)
	if err != nil {
		e.funded.Remove(recipient)
		return e.fail(out, classify(err), fmt.Errorf("failed to suggest gas price: %w", err))
	}

	signed, err := e.submit(ctx, chainID, gasPrice, recipient, amount)
	if err != nil {
		e.funded.Remove(recipient)
		return e.fail(out, classify(err), err)
	}
	out.TxHash = signed.Hash().Hex()

	slog.Debug("Funding transfer submitted",
		slog.String("type", "chain"),
		slog.String("to", recipient.Hex()),
		slog.String("amount", amount.String()),
		slog.String("tx", out.TxHash),
		slog.Uint64("nonce", signed.Nonce()))

	receipt, err := e.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return e.fail(out, classify(err), fmt.Errorf("transfer %s not confirmed: %w", out.TxHash, err))
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return e.fail(out, ReasonReverted, fmt.Errorf("transfer %s reverted", out.TxHash))
	}

	ref := out.TxHash
	out.Succeeded = true
	out.Receipt = &ref
	if receipt.BlockNumber != nil {
		out.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return out
}

func (e *Executor) fail(out Outcome, reason Reason, err error) Outcome {
	out.Reason = reason
	out.Err = err
	slog.Warn("Funding failed",
		slog.String("type", "chain"),
		slog.String("reason", string(reason)),
		slog.Any("error", err))
	return out
}

func (e *Executor) loadChainID(ctx context.Context) (*big.Int, error) {
	e.chainMu.Lock()
	defer e.chainMu.Unlock()

	if e.chainID != nil {
		return e.chainID, nil
	}
	id, err := e.network.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	e.chainID = id
	return id, nil
}

func (e *Executor) submit(ctx context.Context, chainID, gasPrice *big.Int, to common.Address, amount decimal.Decimal) (*types.Transaction, error) {
	e.nonceMu.Lock()
	defer e.nonceMu.Unlock()

	if !e.nonceLoaded {
		nonce, err := e.network.PendingNonceAt(ctx, e.funder.Address)
		if err != nil {
			return nil, fmt.Errorf("failed to get nonce: %w", err)
		}
		e.nonce = nonce
		e.nonceLoaded = true
	}

	tx := types.NewTransaction(e.nonce, to, ToWei(amount), e.cfg.GasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), e.funder.Key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := e.network.SendTransaction(ctx, signed); err != nil {
		// resync from the node on the next transfer
		e.nonceLoaded = false
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}
	e.nonce++
	return signed, nil
}

func (e *Executor) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := e.network.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}

		select {
		case <-ctx.Done():
			if lastErr != nil && !errors.Is(lastErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			}
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// classify maps a node or transport error to a failure reason.
func classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "insufficient funds"):
		return ReasonInsufficientFunds
	case strings.Contains(msg, "nonce too low"),
		strings.Contains(msg, "nonce too high"),
		strings.Contains(msg, "underpriced"),
		strings.Contains(msg, "already known"):
		return ReasonStaleReference
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.Canceled) {
		return ReasonNetworkError
	}
	for _, s := range []string{"connection refused", "connection reset", "no such host", "eof", "i/o timeout"} {
		if strings.Contains(msg, s) {
			return ReasonNetworkError
		}
	}
	return ReasonRejected
}

func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(config.WeiDecimals).BigInt()
}

func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -config.WeiDecimals)
}
