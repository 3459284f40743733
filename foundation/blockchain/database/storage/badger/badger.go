// Package badger implements block storage on top of the badger key/value
// store. Each block is stored as JSON under a key ordered by block number.
package badger

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	badgerdb "github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"
)

var blockPrefix = []byte("block/")

// Badger represents the serialization implementation for reading and
// storing blocks in a badger database. This implements the database.Storage
// interface.
type Badger struct {
	db *badgerdb.DB
}

// New opens the badger database at the specified path. An empty path opens
// an in-memory database.
func New(dbPath string, log *zap.SugaredLogger) (*Badger, error) {
	opts := badgerdb.DefaultOptions(dbPath)
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}

	opts.Logger = nil
	if log != nil {
		opts.Logger = logger{log: log}
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Badger{db: db}, nil
}

// Close closes the badger database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Write stores the block under its block number.
func (b *Badger) Write(blockData database.BlockData) error {
	data, err := json.Marshal(blockData)
	if err != nil {
		return err
	}

	return b.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(key(blockData.Header.Number), data)
	})
}

// GetBlock returns the block with the specified number.
func (b *Badger) GetBlock(num uint64) (database.BlockData, error) {
	var blockData database.BlockData

	err := b.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(key(num))
		if err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("%w: number %d", database.ErrBlockNotFound, num)
			}
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &blockData)
		})
	})

	if err != nil {
		return database.BlockData{}, err
	}

	return blockData, nil
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (b *Badger) ForEach() database.Iterator {
	return &Iterator{badger: b}
}

// Reset drops every block from the database.
func (b *Badger) Reset() error {
	return b.db.DropPrefix(blockPrefix)
}

func key(num uint64) []byte {
	k := make([]byte, len(blockPrefix)+8)
	copy(k, blockPrefix)
	binary.BigEndian.PutUint64(k[len(blockPrefix):], num)
	return k
}

// =============================================================================

// Iterator walks the blocks in block number order.
type Iterator struct {
	badger  *Badger
	current uint64
	eoc     bool
}

// Next retrieves the next block.
func (it *Iterator) Next() (database.BlockData, error) {
	if it.eoc {
		return database.BlockData{}, errors.New("end of chain")
	}

	it.current++
	blockData, err := it.badger.GetBlock(it.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		it.eoc = true
	}

	return blockData, err
}

// Done returns the end of chain value.
func (it *Iterator) Done() bool {
	return it.eoc
}

// =============================================================================

// logger adapts the zap logger to what badger expects.
type logger struct {
	log *zap.SugaredLogger
}

func (l logger) Errorf(format string, args ...any)   { l.log.Errorf("badger: "+format, args...) }
func (l logger) Warningf(format string, args ...any) { l.log.Warnf("badger: "+format, args...) }
func (l logger) Infof(format string, args ...any)    { l.log.Debugf("badger: "+format, args...) }
func (l logger) Debugf(format string, args ...any)   { l.log.Debugf("badger: "+format, args...) }
