package chains

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"akx-gateway/internal/config"
)

// Ethereum implements Chain for EVM mainnet. Reads go through an RPC
// client dialed lazily on first use; signing stays with the external
// custody service.
type Ethereum struct {
	cfg config.ChainNodeConfig

	dialOnce sync.Once
	client   *ethclient.Client
	dialErr  error
}

// NewEthereum creates the Ethereum chain backend.
func NewEthereum(cfg config.ChainNodeConfig) *Ethereum {
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = 10
	}
	return &Ethereum{cfg: cfg}
}

func (e *Ethereum) Code() string {
	return CodeEthereum
}

// ValidateAddress requires the canonical 0x-prefixed 40-hex-digit form.
func (e *Ethereum) ValidateAddress(addr string) bool {
	return len(addr) == 42 && common.IsHexAddress(addr)
}

func (e *Ethereum) GenerateWallet(ctx context.Context) (string, error) {
	return "", ErrOperationNotSupported
}

func (e *Ethereum) GetBalance(ctx context.Context, addr, token string) (Balance, error) {
	if !e.ValidateAddress(addr) {
		return Balance{}, fmt.Errorf("invalid ethereum address: %s", addr)
	}
	client, err := e.dial()
	if err != nil {
		return Balance{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	wei, err := client.BalanceAt(ctx, common.HexToAddress(addr), nil)
	if err != nil {
		return Balance{}, fmt.Errorf("failed to query balance: %w", err)
	}

	// token balances need a contract call through the custody service
	native := decimal.NewFromBigInt(wei, -18)
	return Balance{Native: native, Token: decimal.Zero}, nil
}

func (e *Ethereum) TransferToken(ctx context.Context, from, to, token string, amount decimal.Decimal) (TransferResult, error) {
	return TransferResult{}, ErrOperationNotSupported
}

func (e *Ethereum) TransferNative(ctx context.Context, from, to string, amount decimal.Decimal) (TransferResult, error) {
	return TransferResult{}, ErrOperationNotSupported
}

func (e *Ethereum) GetTransaction(ctx context.Context, txHash string) (TxInfo, error) {
	client, err := e.dial()
	if err != nil {
		return TxInfo{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	receipt, err := client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		return TxInfo{}, fmt.Errorf("failed to fetch receipt: %w", err)
	}

	head, err := client.BlockNumber(ctx)
	if err != nil {
		return TxInfo{}, fmt.Errorf("failed to fetch head block: %w", err)
	}

	confirmations := 0
	if receipt.BlockNumber != nil {
		diff := new(big.Int).Sub(new(big.Int).SetUint64(head), receipt.BlockNumber)
		if diff.Sign() >= 0 {
			confirmations = int(diff.Int64()) + 1
		}
	}

	info := TxInfo{
		Success:       receipt.Status == 1,
		Confirmations: confirmations,
	}
	if receipt.BlockNumber != nil {
		info.BlockNumber = receipt.BlockNumber.Uint64()
	}
	if receipt.Status != 1 {
		info.Err = "transaction reverted"
	}
	return info, nil
}

func (e *Ethereum) dial() (*ethclient.Client, error) {
	e.dialOnce.Do(func() {
		if e.cfg.RPCURL == "" {
			e.dialErr = fmt.Errorf("ethereum RPC URL not configured")
			return
		}
		e.client, e.dialErr = ethclient.Dial(e.cfg.RPCURL)
	})
	return e.client, e.dialErr
}

func (e *Ethereum) timeout() time.Duration {
	return time.Duration(e.cfg.TimeoutSeconds) * time.Second
}
