// Package state is the core API for the blockchain and implements all the
// business rules and processing. Transactions are executed one at a time and
// every accepted transaction is sealed into its own block.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
)

// Set of error variables for processing transactions.
var (
	ErrReverted      = errors.New("transaction reverted")
	ErrNonce         = errors.New("invalid nonce")
	ErrGasLimit      = errors.New("invalid gas limit")
	ErrNotFound      = errors.New("not found")
	ErrNotContract   = errors.New("account is not a contract")
	ErrUnknownMethod = errors.New("unknown method")
	ErrNonPayable    = errors.New("method is not payable")
)

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of transactions and blocks.
type EventHandler func(v string, args ...any)

// FeedResolver returns a price feed that lives outside of this chain. It's
// used when a contract references a feed address that wasn't deployed here.
type FeedResolver func(address database.AccountID) (pricefeed.Provider, error)

// GasRecorder is told about the gas used by every executed transaction. An
// empty method means the transaction deployed the contract.
type GasRecorder interface {
	Record(contract string, method string, gasUsed uint64)
}

// Worker interface represents the behavior required to be implemented by any
// package providing support for sealing blocks in the background.
type Worker interface {
	Shutdown()
}

// =============================================================================

// Config represents the configuration required to start
// the blockchain node.
type Config struct {
	Genesis      genesis.Genesis
	Storage      database.Storage
	FeedResolver FeedResolver
	GasRecorder  GasRecorder
	EvHandler    EventHandler
}

// State manages the blockchain database and the contracts deployed on it.
type State struct {
	mu sync.RWMutex

	genesis      genesis.Genesis
	db           *database.Database
	feedResolver FeedResolver
	gasRecorder  GasRecorder
	evHandler    EventHandler

	contracts map[database.AccountID]contract
	receipts  map[string]database.Receipt

	Worker Worker
}

// New constructs a new blockchain for data management. Blocks found in
// storage are replayed so the accounts and contracts match the chain.
func New(cfg Config) (*State, error) {

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	// Access the storage for the blockchain.
	db, err := database.New(cfg.Genesis, cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Create the State to provide support for managing the blockchain.
	state := State{
		genesis:      cfg.Genesis,
		db:           db,
		feedResolver: cfg.FeedResolver,
		gasRecorder:  cfg.GasRecorder,
		evHandler:    ev,
		contracts:    make(map[database.AccountID]contract),
		receipts:     make(map[string]database.Receipt),
	}

	if err := state.replay(context.Background()); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}

	// The Worker is not set here. The call to worker.Run will assign itself
	// and start everything up and running for the node.

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() error {
	s.evHandler("state: shutdown: started")
	defer s.evHandler("state: shutdown: completed")

	// Make sure the database file is properly closed.
	defer s.db.Close()

	// Stop all blockchain writing activity.
	if s.Worker != nil {
		s.Worker.Shutdown()
	}

	return nil
}

// Truncate resets the chain both in storage and in memory back to genesis.
func (s *State) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Reset(); err != nil {
		return err
	}

	s.contracts = make(map[database.AccountID]contract)
	s.receipts = make(map[string]database.Receipt)

	return nil
}

// =============================================================================

// replay executes every block held in storage against the genesis state.
func (s *State) replay(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latestBlock database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return err
		}

		if err := block.ValidateBlock(latestBlock, s.evHandler); err != nil {
			return err
		}

		var gasUsed uint64
		for _, tx := range block.Trans {
			out, err := s.apply(ctx, tx)
			if err != nil {
				return fmt.Errorf("block %d: tx %s: %w", block.Header.Number, tx.Hash(), err)
			}

			gasUsed += out.receipt.GasUsed
			s.commit(block, out)
		}

		if gasUsed != block.Header.GasUsed {
			return fmt.Errorf("block %d: gas used got %d, exp %d", block.Header.Number, gasUsed, block.Header.GasUsed)
		}

		s.db.UpdateLatestBlock(block)
		latestBlock = block
	}

	s.evHandler("state: replay: blocks[%d]", latestBlock.Header.Number)

	return nil
}

// timestamp returns the time for the next block. Block times never go
// backwards even if the clock does.
func (s *State) timestamp() uint64 {
	now := uint64(time.Now().UTC().Unix())
	if latest := s.db.LatestBlock().Header.TimeStamp; now < latest {
		return latest
	}
	return now
}
