// Package database handles all the lower level support for maintaining the
// blockchain in storage and maintaining an in memory database of account
// information.
package database

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
	"github.com/holiman/uint256"
)

// Set of error variables for the database.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBlockNotFound     = errors.New("block not found")
)

// =============================================================================

// Storage interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Storage interface {
	Write(blockData BlockData) error
	GetBlock(num uint64) (BlockData, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (BlockData, error)
	Done() bool
}

// =============================================================================

// DatabaseIterator walks the blocks in storage as database blocks.
type DatabaseIterator struct {
	iterator Iterator
}

// Next retrieves the next block from storage.
func (di *DatabaseIterator) Next() (Block, error) {
	blockData, err := di.iterator.Next()
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// Done returns the end of chain value.
func (di *DatabaseIterator) Done() bool {
	return di.iterator.Done()
}

// =============================================================================

// Database manages data related to accounts who have transacted on the blockchain.
type Database struct {
	mu sync.RWMutex

	genesis     genesis.Genesis
	latestBlock Block
	accounts    map[AccountID]Account

	storage Storage
}

// New constructs a new database and applies account genesis information.
// Replaying the blocks held in storage is left to the caller since it
// requires executing contract code.
func New(genesis genesis.Genesis, storage Storage) (*Database, error) {
	accounts, err := genesisAccounts(genesis)
	if err != nil {
		return nil, err
	}

	db := Database{
		genesis:  genesis,
		accounts: accounts,
		storage:  storage,
	}

	return &db, nil
}

// Close closes the open blocks database.
func (db *Database) Close() {
	db.storage.Close()
}

// Genesis returns the genesis information the database was built from.
func (db *Database) Genesis() genesis.Genesis {
	return db.genesis
}

// Reset re-initializes the database back to the genesis state.
func (db *Database) Reset() error {
	if err := db.storage.Reset(); err != nil {
		return err
	}

	accounts, err := genesisAccounts(db.genesis)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = Block{}
	db.accounts = accounts

	return nil
}

// Query retrieves an account from the database. An unknown account is
// returned with a zero balance.
func (db *Database) Query(accountID AccountID) (Account, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	account, exists := db.accounts[accountID]
	if !exists {
		return newAccount(accountID, new(uint256.Int)), false
	}

	return account, true
}

// Copy returns a copy of all the accounts sorted by account id.
func (db *Database) Copy() []Account {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make([]Account, 0, len(db.accounts))
	for _, account := range db.accounts {
		accounts = append(accounts, account)
	}

	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountID < accounts[j].AccountID
	})

	return accounts
}

// Begin starts a working copy of the accounts for applying a transaction.
// Nothing changes in the database until the working copy is committed.
func (db *Database) Begin() *Working {
	db.mu.RLock()
	defer db.mu.RUnlock()

	accounts := make(map[AccountID]Account, len(db.accounts))
	for accountID, account := range db.accounts {
		accounts[accountID] = account
	}

	return &Working{db: db, accounts: accounts}
}

// UpdateLatestBlock provides safe access to update the latest block.
func (db *Database) UpdateLatestBlock(block Block) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.latestBlock = block
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.latestBlock
}

// Write adds a new block to the chain.
func (db *Database) Write(block Block) error {
	return db.storage.Write(NewBlockData(block))
}

// ForEach returns an iterator to walk through all the blocks
// starting with block number 1.
func (db *Database) ForEach() DatabaseIterator {
	return DatabaseIterator{iterator: db.storage.ForEach()}
}

// GetBlock searches the blockchain in storage to locate and return the
// contents of the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	blockData, err := db.storage.GetBlock(num)
	if err != nil {
		return Block{}, err
	}

	return ToBlock(blockData)
}

// =============================================================================

// Working is a copy of the database accounts that a transaction changes.
type Working struct {
	db       *Database
	accounts map[AccountID]Account
}

// Balance returns a copy of the balance of the specified account.
func (w *Working) Balance(accountID AccountID) *uint256.Int {
	account := w.accounts[accountID]
	return new(uint256.Int).Set(&account.Balance)
}

// Nonce returns the nonce of the specified account.
func (w *Working) Nonce(accountID AccountID) uint64 {
	return w.accounts[accountID].Nonce
}

// Debit takes the amount from the specified account.
func (w *Working) Debit(accountID AccountID, amount *uint256.Int) error {
	account := w.account(accountID)
	if account.Balance.Lt(amount) {
		return fmt.Errorf("%w: account %s, bal %s, needed %s", ErrInsufficientFunds, accountID, account.Balance.Dec(), amount.Dec())
	}

	account.Balance.Sub(&account.Balance, amount)
	w.accounts[accountID] = account

	return nil
}

// Credit adds the amount to the specified account.
func (w *Working) Credit(accountID AccountID, amount *uint256.Int) error {
	account := w.account(accountID)

	var sum uint256.Int
	if _, overflow := sum.AddOverflow(&account.Balance, amount); overflow {
		return fmt.Errorf("balance overflow for account %s", accountID)
	}

	account.Balance = sum
	w.accounts[accountID] = account

	return nil
}

// Transfer moves the amount between the two accounts.
func (w *Working) Transfer(from AccountID, to AccountID, amount *uint256.Int) error {
	if err := w.Debit(from, amount); err != nil {
		return err
	}

	return w.Credit(to, amount)
}

// IncrementNonce records that the account sent another transaction.
func (w *Working) IncrementNonce(accountID AccountID) {
	account := w.account(accountID)
	account.Nonce++
	w.accounts[accountID] = account
}

// Commit replaces the database accounts with the working copy.
func (w *Working) Commit() {
	w.db.mu.Lock()
	defer w.db.mu.Unlock()

	w.db.accounts = w.accounts
}

func (w *Working) account(accountID AccountID) Account {
	account, exists := w.accounts[accountID]
	if !exists {
		return newAccount(accountID, new(uint256.Int))
	}

	return account
}

// =============================================================================

func genesisAccounts(genesis genesis.Genesis) (map[AccountID]Account, error) {
	accounts := make(map[AccountID]Account)

	for accountStr, balance := range genesis.Balances {
		accountID, err := ToAccountID(accountStr)
		if err != nil {
			return nil, err
		}

		if balance == nil || balance.Sign() < 0 {
			return nil, fmt.Errorf("invalid genesis balance for account %s", accountID)
		}

		bal, overflow := uint256.FromBig(balance)
		if overflow {
			return nil, fmt.Errorf("genesis balance overflow for account %s", accountID)
		}

		accounts[accountID] = newAccount(accountID, bal)
	}

	return accounts, nil
}
