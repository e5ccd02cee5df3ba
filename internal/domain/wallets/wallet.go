package wallets

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrSecretConsumed = errors.New("wallet secret already encoded")

// Wallet is a freshly generated agent keypair. The secret can be taken out
// exactly once, after which the wallet only exposes its address.
type Wallet struct {
	Address common.Address

	mu     sync.Mutex
	secret *ecdsa.PrivateKey
}

func New() (*Wallet, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	return &Wallet{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		secret:  key,
	}, nil
}

// EncodeSecret returns the hex encoded private key and drops the wallet's
// reference to it. Later calls return ErrSecretConsumed.
func (w *Wallet) EncodeSecret() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.secret == nil {
		return "", ErrSecretConsumed
	}
	encoded := hex.EncodeToString(crypto.FromECDSA(w.secret))
	w.secret = nil
	return encoded, nil
}

// Funder is the operator identity that pays for agent funding.
type Funder struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

func LoadFunder(secret string) (*Funder, error) {
	secret = strings.TrimPrefix(strings.TrimSpace(secret), "0x")
	if secret == "" {
		return nil, errors.New("funder key is not configured")
	}
	key, err := crypto.HexToECDSA(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid funder key: %w", err)
	}
	return &Funder{
		Address: crypto.PubkeyToAddress(key.PublicKey),
		Key:     key,
	}, nil
}
