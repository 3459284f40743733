package state

import (
	"context"
	"fmt"
	"slices"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/genesis"
	"github.com/holiman/uint256"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// FundMeInfo is a snapshot of a deployed FundMe contract.
type FundMeInfo struct {
	Address     database.AccountID
	Owner       database.AccountID
	PriceFeed   database.AccountID
	MinimumUSD  *uint256.Int
	Balance     *uint256.Int
	TotalFunded *uint256.Int
	FunderCount int
}

// ContractInfo describes a deployed contract.
type ContractInfo struct {
	Name    string
	Address database.AccountID
}

// =============================================================================

// Genesis returns a copy of the genesis information.
func (s *State) Genesis() genesis.Genesis {
	return s.genesis
}

// LatestBlock returns a copy the current latest block.
func (s *State) LatestBlock() database.Block {
	return s.db.LatestBlock()
}

// QueryAccount returns a copy of the account from the database. Accounts
// that never transacted come back with a zero balance.
func (s *State) QueryAccount(accountID database.AccountID) database.Account {
	account, _ := s.db.Query(accountID)
	return account
}

// QueryAccounts returns a copy of all the accounts in the database.
func (s *State) QueryAccounts() []database.Account {
	return s.db.Copy()
}

// QueryReceipt returns the receipt of a mined transaction.
func (s *State) QueryReceipt(txHash string) (database.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	receipt, exists := s.receipts[txHash]
	if !exists {
		return database.Receipt{}, fmt.Errorf("receipt %s: %w", txHash, ErrNotFound)
	}

	return receipt, nil
}

// QueryBlocksByNumber returns the set of blocks based on block numbers. This
// function reads the blockchain from storage.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) ([]database.Block, error) {
	if from == QueryLatest {
		from = s.db.LatestBlock().Header.Number
		to = from
	}
	if to == QueryLatest {
		to = s.db.LatestBlock().Header.Number
	}
	if from == 0 {
		from = 1
	}

	var out []database.Block
	for i := from; i <= to; i++ {
		block, err := s.db.GetBlock(i)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}

	return out, nil
}

// QueryBlocksByAccount returns the set of blocks by account. If the account
// is empty, all blocks are returned. This function reads the blockchain
// from storage.
func (s *State) QueryBlocksByAccount(accountID database.AccountID) ([]database.Block, error) {
	var out []database.Block

	iter := s.db.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, err
		}

		if accountID == "" {
			out = append(out, block)
			continue
		}

		for _, tx := range block.Trans {
			fromID, err := tx.FromAccount()
			if err != nil {
				continue
			}

			toID, _ := tx.ToAccount()
			if fromID == accountID || toID == accountID {
				out = append(out, block)
				break
			}
		}
	}

	return out, nil
}

// QueryContracts returns the contracts deployed on the chain.
func (s *State) QueryContracts() []ContractInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ContractInfo, 0, len(s.contracts))
	for _, c := range s.contracts {
		out = append(out, ContractInfo{Name: c.name, Address: c.address})
	}

	slices.SortFunc(out, func(a, b ContractInfo) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		}
		return 0
	})

	return out
}

// QueryContract returns the name of the contract at the specified address.
func (s *State) QueryContract(address database.AccountID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.contracts[address]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrNotContract, address)
	}

	return c.name, nil
}

// =============================================================================

// QueryFundMe returns a snapshot of the FundMe contract at the address.
func (s *State) QueryFundMe(address database.AccountID) (FundMeInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fm, err := s.fundMe(address)
	if err != nil {
		return FundMeInfo{}, err
	}

	account, _ := s.db.Query(address)

	info := FundMeInfo{
		Address:     fm.Address(),
		Owner:       fm.Owner(),
		PriceFeed:   fm.PriceFeed(),
		MinimumUSD:  fundme.MinimumUSD(),
		Balance:     new(uint256.Int).Set(&account.Balance),
		TotalFunded: fm.TotalFunded(),
		FunderCount: fm.FunderCount(),
	}

	return info, nil
}

// QueryFunder returns the funder at the index of the FundMe funder list.
func (s *State) QueryFunder(address database.AccountID, index int) (database.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fm, err := s.fundMe(address)
	if err != nil {
		return "", err
	}

	return fm.Funder(index)
}

// QueryFunderRecord returns the funder at the index of the FundMe funder
// list together with the amount recorded for it, read from the same state.
func (s *State) QueryFunderRecord(address database.AccountID, index int) (database.AccountID, *uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fm, err := s.fundMe(address)
	if err != nil {
		return "", nil, err
	}

	funder, err := fm.Funder(index)
	if err != nil {
		return "", nil, err
	}

	return funder, fm.AmountFunded(funder), nil
}

// QueryAmountFunded returns the amount recorded for the funder.
func (s *State) QueryAmountFunded(address database.AccountID, funder database.AccountID) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fm, err := s.fundMe(address)
	if err != nil {
		return nil, err
	}

	return fm.AmountFunded(funder), nil
}

// QueryFeed returns the price feed used by the contract at the address. The
// address can be a FundMe contract or a price feed mock.
func (s *State) QueryFeed(address database.AccountID) (pricefeed.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.contracts[address]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotContract, address)
	}

	switch code := c.code.(type) {
	case *fundme.FundMe:
		return code.Feed(), nil
	case *pricefeed.Mock:
		return code, nil
	}

	return nil, fmt.Errorf("contract %s at %s has no price feed", c.name, address)
}

// QueryRoundData returns the latest round of the price feed used by the
// contract at the address.
func (s *State) QueryRoundData(ctx context.Context, address database.AccountID) (pricefeed.RoundData, uint8, error) {
	feed, err := s.QueryFeed(address)
	if err != nil {
		return pricefeed.RoundData{}, 0, err
	}

	round, err := feed.LatestRoundData(ctx)
	if err != nil {
		return pricefeed.RoundData{}, 0, err
	}

	decimals, err := feed.Decimals(ctx)
	if err != nil {
		return pricefeed.RoundData{}, 0, err
	}

	return round, decimals, nil
}

// fundMe returns the FundMe contract at the address.
func (s *State) fundMe(address database.AccountID) (*fundme.FundMe, error) {
	c, exists := s.contracts[address]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotContract, address)
	}

	fm, ok := c.code.(*fundme.FundMe)
	if !ok {
		return nil, fmt.Errorf("contract %s at %s is not %s", c.name, address, fundme.Name)
	}

	return fm, nil
}
