package chains

import (
	"context"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/shopspring/decimal"

	"akx-gateway/internal/config"
)

// tronAddressVersion is the base58check version byte of TRON mainnet
// addresses (0x41, which renders as the leading 'T').
const tronAddressVersion = 0x41

// Tron implements Chain for TRON. The order core only needs address
// validation from it; balance and transfer traffic goes through the
// custody service.
type Tron struct {
	cfg config.ChainNodeConfig
}

// NewTron creates the TRON chain backend.
func NewTron(cfg config.ChainNodeConfig) *Tron {
	return &Tron{cfg: cfg}
}

func (t *Tron) Code() string {
	return CodeTron
}

// ValidateAddress checks the base58check shape: 34 characters starting
// with 'T', version byte 0x41, 20-byte payload.
func (t *Tron) ValidateAddress(addr string) bool {
	if len(addr) != 34 || !strings.HasPrefix(addr, "T") {
		return false
	}
	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return false
	}
	return version == tronAddressVersion && len(payload) == 20
}

func (t *Tron) GenerateWallet(ctx context.Context) (string, error) {
	return "", ErrOperationNotSupported
}

func (t *Tron) GetBalance(ctx context.Context, addr, token string) (Balance, error) {
	return Balance{}, ErrOperationNotSupported
}

func (t *Tron) TransferToken(ctx context.Context, from, to, token string, amount decimal.Decimal) (TransferResult, error) {
	return TransferResult{}, ErrOperationNotSupported
}

func (t *Tron) TransferNative(ctx context.Context, from, to string, amount decimal.Decimal) (TransferResult, error) {
	return TransferResult{}, ErrOperationNotSupported
}

func (t *Tron) GetTransaction(ctx context.Context, txHash string) (TxInfo, error) {
	return TxInfo{}, ErrOperationNotSupported
}
