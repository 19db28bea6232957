package chains

import (
	"fmt"
	"strings"

	"akx-gateway/internal/config"
)

// Chain codes accepted by the registry.
const (
	CodeEthereum = "ETH"
	CodeTron     = "TRON"
	CodeSolana   = "SOL"
)

// Registry maps chain codes to their implementations. The set is fixed
// at construction; lookups for anything else fail with
// ErrUnsupportedChain rather than a runtime panic.
type Registry struct {
	chains map[string]Chain
}

// NewRegistry builds the closed chain set from explicit configuration.
func NewRegistry(cfg config.ChainsConfig) *Registry {
	r := &Registry{chains: make(map[string]Chain)}
	for _, c := range []Chain{
		NewEthereum(cfg.Ethereum),
		NewTron(cfg.Tron),
		NewSolana(cfg.Solana),
	} {
		r.chains[c.Code()] = c
	}
	return r
}

// ForCode resolves a chain implementation by code, case-insensitively.
func (r *Registry) ForCode(code string) (Chain, error) {
	c, ok := r.chains[strings.ToUpper(code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, code)
	}
	return c, nil
}

// Known reports whether the code belongs to the closed set. Unknown
// chains validate addresses permissively at the order layer.
func (r *Registry) Known(code string) bool {
	_, ok := r.chains[strings.ToUpper(code)]
	return ok
}
