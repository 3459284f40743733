// Package fundme implements the crowdfunding contract. Funders send value
// worth at least the minimum USD amount and the owner withdraws everything
// that was collected, resetting the funder ledger.
package fundme

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/gas"
	"github.com/holiman/uint256"
)

// Name is the contract name used for deployments.
const Name = "FundMe"

// Set of methods that change the state of the contract.
const (
	MethodFund            = "fund"
	MethodWithdraw        = "withdraw"
	MethodCheaperWithdraw = "cheaperWithdraw"
)

// Set of error variables returned by the contract.
var (
	ErrInsufficientPayment = errors.New("You need to spend more ETH!")
	ErrNotOwner            = errors.New("FundMe__NotOwner")
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrTransferFailed      = errors.New("call failed")
)

// Env represents the execution environment a transaction provides to the
// contract.
type Env interface {
	Sender() database.AccountID
	Value() *uint256.Int
	Balance(account database.AccountID) *uint256.Int
	Transfer(to database.AccountID, amount *uint256.Int) error
	Gas() *gas.Meter
}

// =============================================================================

// FundMe is the crowdfunding contract.
type FundMe struct {
	address       database.AccountID
	owner         database.AccountID
	priceFeedAddr database.AccountID
	priceFeed     pricefeed.Provider
	ledger        *Ledger
}

// New constructs the contract at the specified address. The owner is the
// account that deployed it and can't be changed.
func New(address database.AccountID, owner database.AccountID, priceFeedAddr database.AccountID, priceFeed pricefeed.Provider) *FundMe {
	return &FundMe{
		address:       address,
		owner:         owner,
		priceFeedAddr: priceFeedAddr,
		priceFeed:     priceFeed,
		ledger:        NewLedger(),
	}
}

// Fund records the value sent with the transaction for the sender. The value
// must be worth at least MinimumUSD at the current price feed rate.
func (f *FundMe) Fund(ctx context.Context, env Env) error {
	meter := env.Gas()
	value := env.Value()
	sender := env.Sender()

	if err := meter.Use(gas.Compute); err != nil {
		return err
	}

	usd, err := ConversionRate(ctx, value, f.priceFeed)
	if err != nil {
		return fmt.Errorf("conversion rate: %w", err)
	}

	if usd.Lt(MinimumUSD()) {
		return ErrInsufficientPayment
	}

	// Read and write the amount. A new funder also costs a read of the list
	// length and writes of the new element and the new length.
	cost := gas.StorageRead + gas.StorageWrite
	if !f.ledger.Contains(sender) {
		cost += gas.StorageRead + 2*gas.StorageWrite
	}
	if err := meter.Use(cost); err != nil {
		return err
	}

	return f.ledger.Add(sender, value)
}

// Withdraw sends the full balance of the contract to the owner and resets
// the ledger. The length of the funder list is read from storage on every
// pass of the loop.
func (f *FundMe) Withdraw(ctx context.Context, env Env) error {
	if err := f.onlyOwner(env); err != nil {
		return err
	}

	meter := env.Gas()

	for i := 0; ; i++ {
		if err := meter.Use(gas.StorageRead); err != nil {
			return err
		}
		if i >= f.ledger.Len() {
			break
		}

		// Read funders[i] then write its amount back to zero.
		if err := meter.Use(gas.StorageRead + gas.StorageWrite); err != nil {
			return err
		}
	}

	return f.payout(env)
}

// CheaperWithdraw has the same outcome as Withdraw. The funder list is
// copied into memory once and the loop runs over the copy.
func (f *FundMe) CheaperWithdraw(ctx context.Context, env Env) error {
	if err := f.onlyOwner(env); err != nil {
		return err
	}

	meter := env.Gas()

	// One read for the length and one for each element copied to memory.
	funders := f.ledger.Funders()
	if err := meter.Use(gas.StorageRead * uint64(len(funders)+1)); err != nil {
		return err
	}

	for range funders {
		if err := meter.Use(gas.MemoryRead + gas.StorageWrite); err != nil {
			return err
		}
	}

	return f.payout(env)
}

// =============================================================================

// Address returns the address of the contract.
func (f *FundMe) Address() database.AccountID {
	return f.address
}

// Owner returns the account allowed to withdraw.
func (f *FundMe) Owner() database.AccountID {
	return f.owner
}

// PriceFeed returns the address of the price feed.
func (f *FundMe) PriceFeed() database.AccountID {
	return f.priceFeedAddr
}

// Feed returns the price feed provider used for conversions.
func (f *FundMe) Feed() pricefeed.Provider {
	return f.priceFeed
}

// Funder returns the funder at the specified index.
func (f *FundMe) Funder(index int) (database.AccountID, error) {
	return f.ledger.Funder(index)
}

// FunderCount returns the number of funders.
func (f *FundMe) FunderCount() int {
	return f.ledger.Len()
}

// AmountFunded returns the amount funded by the specified account.
func (f *FundMe) AmountFunded(funder database.AccountID) *uint256.Int {
	return f.ledger.AmountFunded(funder)
}

// TotalFunded returns the sum of all funder records.
func (f *FundMe) TotalFunded() *uint256.Int {
	return f.ledger.Total()
}

// =============================================================================

// onlyOwner validates the sender is the owner of the contract.
func (f *FundMe) onlyOwner(env Env) error {
	if env.Sender() != f.owner {
		return ErrNotOwner
	}
	return nil
}

// payout moves the contract balance to the owner and only then clears the
// ledger, so a failed transfer leaves the records untouched.
func (f *FundMe) payout(env Env) error {
	meter := env.Gas()

	// Deleting the funder array.
	if err := meter.Use(gas.StorageWrite + gas.Transfer); err != nil {
		return err
	}

	balance := env.Balance(f.address)
	if err := env.Transfer(f.owner, balance); err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	f.ledger.Clear()

	return nil
}
