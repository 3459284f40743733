// Package memory implements block storage that lives only as long as the
// process. It backs tests and the in-process hardhat network.
package memory

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
)

// Memory keeps the blocks in a slice indexed by block number minus one.
type Memory struct {
	mu     sync.RWMutex
	blocks []database.BlockData
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{}
}

// Close has nothing to release.
func (m *Memory) Close() error {
	return nil
}

// Write appends the block. Blocks must be written in order.
func (m *Memory) Write(blockData database.BlockData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp := uint64(len(m.blocks)) + 1
	if blockData.Header.Number != exp {
		return fmt.Errorf("out of order block, got %d, exp %d", blockData.Header.Number, exp)
	}

	m.blocks = append(m.blocks, blockData)

	return nil
}

// GetBlock returns the block with the specified number.
func (m *Memory) GetBlock(num uint64) (database.BlockData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if num == 0 || num > uint64(len(m.blocks)) {
		return database.BlockData{}, fmt.Errorf("%w: number %d", database.ErrBlockNotFound, num)
	}

	return m.blocks[num-1], nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (m *Memory) ForEach() database.Iterator {
	return &Iterator{memory: m}
}

// Reset drops all the blocks.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks = nil

	return nil
}

// =============================================================================

// Iterator walks the blocks held in memory.
type Iterator struct {
	memory  *Memory
	current uint64
	eoc     bool
}

// Next retrieves the next block.
func (it *Iterator) Next() (database.BlockData, error) {
	if it.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	it.current++
	blockData, err := it.memory.GetBlock(it.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		it.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}
