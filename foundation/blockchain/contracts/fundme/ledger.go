package fundme

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/holiman/uint256"
)

// entry is a single funder record in the ledger.
type entry struct {
	funder database.AccountID
	amount uint256.Int
}

// Ledger maintains the funder records in the order of first contribution.
// The records and the funder list live in one structure so the list always
// holds exactly the funders with a non-zero amount.
type Ledger struct {
	entries []entry
	index   map[database.AccountID]int
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		index: make(map[database.AccountID]int),
	}
}

// Add increments the amount for the funder, appending the funder to the end
// of the list on its first contribution.
func (l *Ledger) Add(funder database.AccountID, amount *uint256.Int) error {
	if amount.IsZero() {
		return errors.New("zero amount can't be recorded")
	}

	i, exists := l.index[funder]
	if !exists {
		l.index[funder] = len(l.entries)
		l.entries = append(l.entries, entry{funder: funder, amount: *amount})
		return nil
	}

	var sum uint256.Int
	if _, overflow := sum.AddOverflow(&l.entries[i].amount, amount); overflow {
		return fmt.Errorf("amount for %s overflows", funder)
	}
	l.entries[i].amount = sum

	return nil
}

// Contains reports whether the funder has a record.
func (l *Ledger) Contains(funder database.AccountID) bool {
	_, exists := l.index[funder]
	return exists
}

// AmountFunded returns the cumulative amount for the funder. A funder
// without a record has funded zero.
func (l *Ledger) AmountFunded(funder database.AccountID) *uint256.Int {
	i, exists := l.index[funder]
	if !exists {
		return new(uint256.Int)
	}

	amount := l.entries[i].amount
	return &amount
}

// Funder returns the funder at the specified position in the list.
func (l *Ledger) Funder(index int) (database.AccountID, error) {
	if index < 0 || index >= len(l.entries) {
		return "", fmt.Errorf("index %d, length %d: %w", index, len(l.entries), ErrIndexOutOfRange)
	}

	return l.entries[index].funder, nil
}

// Len returns the number of funders in the list.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// Funders returns a copy of the funder list.
func (l *Ledger) Funders() []database.AccountID {
	funders := make([]database.AccountID, len(l.entries))
	for i, e := range l.entries {
		funders[i] = e.funder
	}
	return funders
}

// Total returns the sum of all recorded amounts.
func (l *Ledger) Total() *uint256.Int {
	var total uint256.Int
	for _, e := range l.entries {
		total.Add(&total, &e.amount)
	}
	return &total
}

// Clear resets every record to zero and empties the list.
func (l *Ledger) Clear() {
	l.entries = nil
	l.index = make(map[database.AccountID]int)
}
