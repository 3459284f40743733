// Package gas provides the gas schedule and the meter used to charge for the
// work performed by a transaction.
package gas

import (
	"errors"
	"fmt"
)

// ErrOutOfGas is returned when a transaction needs more gas than its limit.
var ErrOutOfGas = errors.New("out of gas")

// Gas schedule. The numbers follow the shape of the Ethereum schedule so the
// relative cost of storage and memory access stays recognizable.
const (
	TxBase       uint64 = 21_000 // Every transaction pays this up front.
	Create       uint64 = 32_000 // Extra cost for creating a contract.
	StorageRead  uint64 = 2_100  // Reading a word from contract storage.
	StorageWrite uint64 = 5_000  // Writing a word to contract storage.
	MemoryRead   uint64 = 3      // Reading a word from memory.
	Transfer     uint64 = 9_000  // Moving value out of a contract.
	Compute      uint64 = 200    // Arithmetic and external reads like the price feed.
)

// Meter tracks the gas used by a transaction against its limit.
type Meter struct {
	limit uint64
	used  uint64
}

// NewMeter constructs a meter with the specified gas limit.
func NewMeter(limit uint64) *Meter {
	return &Meter{limit: limit}
}

// Use charges the specified units of gas. When the limit would be exceeded
// the meter is left unchanged and ErrOutOfGas is returned.
func (m *Meter) Use(units uint64) error {
	if m.limit-m.used < units {
		return fmt.Errorf("need %d, remaining %d: %w", units, m.limit-m.used, ErrOutOfGas)
	}

	m.used += units
	return nil
}

// Used returns the amount of gas consumed so far.
func (m *Meter) Used() uint64 {
	return m.used
}

// Limit returns the gas limit of the meter.
func (m *Meter) Limit() uint64 {
	return m.limit
}

// Remaining returns the gas still available.
func (m *Meter) Remaining() uint64 {
	return m.limit - m.used
}
