package chains

import (
	"context"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/shopspring/decimal"

	"akx-gateway/internal/config"
)

// Solana implements Chain for Solana. As with TRON, only address
// validation is consumed by the order core.
type Solana struct {
	cfg config.ChainNodeConfig
}

// NewSolana creates the Solana chain backend.
func NewSolana(cfg config.ChainNodeConfig) *Solana {
	return &Solana{cfg: cfg}
}

func (s *Solana) Code() string {
	return CodeSolana
}

// ValidateAddress checks base58 text of 32 to 44 characters decoding to
// a 32-byte ed25519 public key.
func (s *Solana) ValidateAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	decoded := base58.Decode(addr)
	return len(decoded) == 32
}

func (s *Solana) GenerateWallet(ctx context.Context) (string, error) {
	return "", ErrOperationNotSupported
}

func (s *Solana) GetBalance(ctx context.Context, addr, token string) (Balance, error) {
	return Balance{}, ErrOperationNotSupported
}

func (s *Solana) TransferToken(ctx context.Context, from, to, token string, amount decimal.Decimal) (TransferResult, error) {
	return TransferResult{}, ErrOperationNotSupported
}

func (s *Solana) TransferNative(ctx context.Context, from, to string, amount decimal.Decimal) (TransferResult, error) {
	return TransferResult{}, ErrOperationNotSupported
}

func (s *Solana) GetTransaction(ctx context.Context, txHash string) (TxInfo, error) {
	return TxInfo{}, ErrOperationNotSupported
}
