package database

import "github.com/holiman/uint256"

// Receipt statuses.
const (
	ReceiptFailed  uint64 = 0
	ReceiptSuccess uint64 = 1
)

// Receipt records the outcome of a transaction that was mined into a block.
type Receipt struct {
	TxHash            string    `json:"tx_hash"`
	BlockNumber       uint64    `json:"block_number"`
	BlockHash         string    `json:"block_hash"`
	From              AccountID `json:"from"`
	To                AccountID `json:"to,omitempty"`
	ContractAddress   AccountID `json:"contract_address,omitempty"`
	Method            string    `json:"method,omitempty"`
	GasUsed           uint64    `json:"gas_used"`
	EffectiveGasPrice uint64    `json:"effective_gas_price"`
	Status            uint64    `json:"status"`
}

// GasCost returns the wei the sender paid for the gas the transaction used.
func (r Receipt) GasCost() *uint256.Int {
	cost := uint256.NewInt(r.GasUsed)
	return cost.Mul(cost, uint256.NewInt(r.EffectiveGasPrice))
}
