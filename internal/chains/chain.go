package chains

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Declared failure modes of the chain layer.
var (
	// ErrUnsupportedChain is returned by the registry for a chain code
	// outside the closed implementation set.
	ErrUnsupportedChain = errors.New("unsupported chain")

	// ErrOperationNotSupported marks a capability a given chain
	// implementation does not provide (signing lives with the external
	// custody service, some read paths are chain-specific).
	ErrOperationNotSupported = errors.New("operation not supported on this chain")
)

// Balance is an address balance snapshot.
type Balance struct {
	Native decimal.Decimal
	Token  decimal.Decimal
}

// TransferResult is the outcome of a broadcast attempt.
type TransferResult struct {
	TxHash  string
	Success bool
	Err     string
}

// TxInfo describes an on-chain transaction lookup.
type TxInfo struct {
	Success       bool
	BlockNumber   uint64
	Confirmations int
	Err           string
}

// Chain is the capability interface one blockchain implementation
// provides to the order core. Implementations form a closed set chosen
// by the registry; configuration is injected at construction.
type Chain interface {
	Code() string

	// ValidateAddress reports whether addr matches the chain's address
	// shape. Pure, no network access.
	ValidateAddress(addr string) bool

	GenerateWallet(ctx context.Context) (address string, err error)
	GetBalance(ctx context.Context, addr, token string) (Balance, error)
	TransferToken(ctx context.Context, from, to, token string, amount decimal.Decimal) (TransferResult, error)
	TransferNative(ctx context.Context, from, to string, amount decimal.Decimal) (TransferResult, error)
	GetTransaction(ctx context.Context, txHash string) (TxInfo, error)
}
