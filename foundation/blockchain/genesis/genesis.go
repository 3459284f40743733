// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"
)

// DefaultGasLimit is used when the genesis file doesn't set a gas limit.
const DefaultGasLimit = 30_000_000

// Genesis represents the genesis file.
type Genesis struct {
	Date     time.Time           `json:"date"`
	ChainID  uint16              `json:"chain_id"`  // The chain id represents an unique id for this running instance.
	GasPrice uint64              `json:"gas_price"` // Wei paid for each unit of gas a transaction uses.
	GasLimit uint64              `json:"gas_limit"` // The maximum gas a single transaction can use.
	Balances map[string]*big.Int `json:"balances"`  // Starting balances in wei.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("reading genesis: %w", err)
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis: %w", err)
	}

	if genesis.GasLimit == 0 {
		genesis.GasLimit = DefaultGasLimit
	}

	return genesis, nil
}
