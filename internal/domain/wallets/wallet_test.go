package wallets

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAddresses(t *testing.T) {
	seen := map[common.Address]bool{}
	for i := 0; i < 20; i++ {
		w, err := New()
		require.NoError(t, err)
		assert.False(t, seen[w.Address], "duplicate address %s", w.Address.Hex())
		seen[w.Address] = true
	}
}

func TestWallet_EncodeSecretOnce(t *testing.T) {
	w, err := New()
	require.NoError(t, err)

	secret, err := w.EncodeSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 64)

	_, err = w.EncodeSecret()
	assert.ErrorIs(t, err, ErrSecretConsumed)

	// the encoded secret restores the same identity
	funder, err := LoadFunder(secret)
	require.NoError(t, err)
	assert.Equal(t, w.Address, funder.Address)
}

func TestLoadFunder(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{
			name:    "hex with prefix",
			secret:  "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
			wantErr: false,
		},
		{
			name:    "empty",
			secret:  "  ",
			wantErr: true,
		},
		{
			name:    "not hex",
			secret:  "not-a-key",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadFunder(tt.secret)
			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFunder() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr {
				assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", got.Address.Hex())
			}
		})
	}
}
