package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akx-gateway/internal/config"
)

func TestRegistryForCode(t *testing.T) {
	r := NewRegistry(config.ChainsConfig{})

	for _, code := range []string{"ETH", "eth", "Eth", "TRON", "tron", "SOL", "sol"} {
		c, err := r.ForCode(code)
		require.NoError(t, err, code)
		assert.NotNil(t, c)
	}

	_, err := r.ForCode("DOGE")
	assert.ErrorIs(t, err, ErrUnsupportedChain)
	_, err = r.ForCode("")
	assert.ErrorIs(t, err, ErrUnsupportedChain)
}

func TestRegistryKnown(t *testing.T) {
	r := NewRegistry(config.ChainsConfig{})
	assert.True(t, r.Known("eth"))
	assert.True(t, r.Known("TRON"))
	assert.False(t, r.Known("BTC"))
}

func TestEthereumValidateAddress(t *testing.T) {
	eth := NewEthereum(config.ChainNodeConfig{})

	valid := []string{
		"0x742d35Cc6634C0532925a3b0F26750C66d78EB66",
		"0x0000000000000000000000000000000000000000",
	}
	for _, addr := range valid {
		assert.True(t, eth.ValidateAddress(addr), addr)
	}

	invalid := []string{
		"",
		"742d35Cc6634C0532925a3b0F26750C66d78EB66",    // missing 0x
		"0x742d35Cc6634C0532925a3b0F26750C66d78EB6",   // 39 hex chars
		"0x742d35Cc6634C0532925a3b0F26750C66d78EB665", // 41 hex chars
		"0x742d35Cc6634C0532925a3b0F26750C66d78EBZZ",  // non-hex
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
	}
	for _, addr := range invalid {
		assert.False(t, eth.ValidateAddress(addr), addr)
	}
}

func TestTronValidateAddress(t *testing.T) {
	tron := NewTron(config.ChainNodeConfig{})

	assert.True(t, tron.ValidateAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"))

	invalid := []string{
		"",
		"T123",
		"R7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6tX",         // wrong prefix
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6u",         // checksum broken
		"0x742d35Cc6634C0532925a3b0F26750C66d78EB66", // wrong chain
	}
	for _, addr := range invalid {
		assert.False(t, tron.ValidateAddress(addr), addr)
	}
}

func TestSolanaValidateAddress(t *testing.T) {
	sol := NewSolana(config.ChainNodeConfig{})

	valid := []string{
		"11111111111111111111111111111111",            // system program
		"So11111111111111111111111111111111111111112", // wrapped SOL mint
	}
	for _, addr := range valid {
		assert.True(t, sol.ValidateAddress(addr), addr)
	}

	invalid := []string{
		"",
		"abc",
		"0x742d35Cc6634C0532925a3b0F26750C66d78EB66", // 0, l not in base58
		"TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",         // 25-byte payload
	}
	for _, addr := range invalid {
		assert.False(t, sol.ValidateAddress(addr), addr)
	}
}
