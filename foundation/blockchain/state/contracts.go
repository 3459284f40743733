package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/gas"
	"github.com/holiman/uint256"
)

// MockV3Aggregator is the contract name of the price feed mock.
const MockV3Aggregator = "MockV3Aggregator"

// Set of methods that change the state of the price feed mock.
const (
	MethodUpdateAnswer    = "updateAnswer"
	MethodUpdateRoundData = "updateRoundData"
)

// =============================================================================

// CreateData is carried in the data of a transaction that deploys a contract.
type CreateData struct {
	Contract string          `json:"contract"`
	Args     json.RawMessage `json:"args"`
}

// FundMeArgs are the constructor arguments for the FundMe contract.
type FundMeArgs struct {
	PriceFeed database.AccountID `json:"priceFeed"`
}

// MockArgs are the constructor arguments for the price feed mock.
type MockArgs struct {
	Decimals      uint8    `json:"decimals"`
	InitialAnswer *big.Int `json:"initialAnswer"`
}

// UpdateAnswerArgs are the arguments for the updateAnswer method.
type UpdateAnswerArgs struct {
	Answer *big.Int `json:"answer"`
}

// UpdateRoundDataArgs are the arguments for the updateRoundData method.
type UpdateRoundDataArgs struct {
	RoundID   uint64   `json:"roundId"`
	Answer    *big.Int `json:"answer"`
	Timestamp uint64   `json:"timestamp"`
	StartedAt uint64   `json:"startedAt"`
}

// EncodeCreate produces the transaction data for deploying the named
// contract with the specified constructor arguments.
func EncodeCreate(name string, args any) ([]byte, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encoding args: %w", err)
	}

	return json.Marshal(CreateData{Contract: name, Args: data})
}

// =============================================================================

// contract is a deployed contract and the code that runs it.
type contract struct {
	name    string
	address database.AccountID
	code    any
}

// env is the execution environment provided to a contract for a single
// transaction. All balance changes go to the working copy.
type env struct {
	working   *database.Working
	sender    database.AccountID
	address   database.AccountID
	value     *uint256.Int
	meter     *gas.Meter
	timestamp uint64
}

func (e *env) Sender() database.AccountID {
	return e.sender
}

func (e *env) Value() *uint256.Int {
	return new(uint256.Int).Set(e.value)
}

func (e *env) Balance(account database.AccountID) *uint256.Int {
	return e.working.Balance(account)
}

func (e *env) Transfer(to database.AccountID, amount *uint256.Int) error {
	return e.working.Transfer(e.address, to, amount)
}

func (e *env) Gas() *gas.Meter {
	return e.meter
}

// =============================================================================

// create constructs the contract described by the transaction data. The
// contract is only registered once the transaction is committed.
func (s *State) create(ctx context.Context, e *env, data []byte) (contract, error) {
	var cd CreateData
	if err := json.Unmarshal(data, &cd); err != nil {
		return contract{}, fmt.Errorf("decoding create data: %w", err)
	}

	if err := e.meter.Use(gas.Create); err != nil {
		return contract{}, err
	}

	switch cd.Contract {
	case fundme.Name:
		if !e.value.IsZero() {
			return contract{}, ErrNonPayable
		}

		var args FundMeArgs
		if err := json.Unmarshal(cd.Args, &args); err != nil {
			return contract{}, fmt.Errorf("decoding %s args: %w", cd.Contract, err)
		}

		priceFeed, err := database.ToAccountID(string(args.PriceFeed))
		if err != nil {
			return contract{}, fmt.Errorf("price feed: %w", err)
		}

		feed, err := s.resolveFeed(priceFeed)
		if err != nil {
			return contract{}, err
		}

		// Owner and price feed are written to storage.
		if err := e.meter.Use(2 * gas.StorageWrite); err != nil {
			return contract{}, err
		}

		fm := fundme.New(e.address, e.sender, priceFeed, feed)
		return contract{name: fundme.Name, address: e.address, code: fm}, nil

	case MockV3Aggregator:
		if !e.value.IsZero() {
			return contract{}, ErrNonPayable
		}

		var args MockArgs
		if err := json.Unmarshal(cd.Args, &args); err != nil {
			return contract{}, fmt.Errorf("decoding %s args: %w", cd.Contract, err)
		}

		if args.InitialAnswer == nil {
			return contract{}, errors.New("missing initial answer")
		}

		// Decimals plus the first round.
		if err := e.meter.Use(5 * gas.StorageWrite); err != nil {
			return contract{}, err
		}

		mock := pricefeed.NewMock(args.Decimals, args.InitialAnswer, e.timestamp)
		return contract{name: MockV3Aggregator, address: e.address, code: mock}, nil
	}

	return contract{}, fmt.Errorf("unknown contract %q", cd.Contract)
}

// call runs the method of the contract. The value of the transaction has
// already been moved into the contract account.
func (s *State) call(ctx context.Context, c contract, e *env, method string, data []byte) error {
	switch code := c.code.(type) {
	case *fundme.FundMe:
		switch method {

		// Value sent without a method is treated as funding.
		case "", fundme.MethodFund:
			return code.Fund(ctx, e)

		case fundme.MethodWithdraw:
			if !e.value.IsZero() {
				return ErrNonPayable
			}
			return code.Withdraw(ctx, e)

		case fundme.MethodCheaperWithdraw:
			if !e.value.IsZero() {
				return ErrNonPayable
			}
			return code.CheaperWithdraw(ctx, e)
		}

	case *pricefeed.Mock:
		if !e.value.IsZero() {
			return ErrNonPayable
		}

		switch method {
		case MethodUpdateAnswer:
			var args UpdateAnswerArgs
			if err := json.Unmarshal(data, &args); err != nil {
				return fmt.Errorf("decoding %s args: %w", method, err)
			}
			if args.Answer == nil {
				return errors.New("missing answer")
			}
			if err := e.meter.Use(4 * gas.StorageWrite); err != nil {
				return err
			}
			code.UpdateAnswer(args.Answer, e.timestamp)
			return nil

		case MethodUpdateRoundData:
			var args UpdateRoundDataArgs
			if err := json.Unmarshal(data, &args); err != nil {
				return fmt.Errorf("decoding %s args: %w", method, err)
			}
			if args.Answer == nil {
				return errors.New("missing answer")
			}
			if err := e.meter.Use(5 * gas.StorageWrite); err != nil {
				return err
			}
			code.UpdateRoundData(args.RoundID, args.Answer, args.Timestamp, args.StartedAt)
			return nil
		}
	}

	return fmt.Errorf("%w: %s.%s", ErrUnknownMethod, c.name, method)
}

// resolveFeed finds the price feed at the specified address. A mock
// deployed on this chain wins over the resolver.
func (s *State) resolveFeed(address database.AccountID) (pricefeed.Provider, error) {
	if c, exists := s.contracts[address]; exists {
		if mock, ok := c.code.(*pricefeed.Mock); ok {
			return mock, nil
		}
		return nil, fmt.Errorf("contract %s at %s is not a price feed", c.name, address)
	}

	if s.feedResolver == nil {
		return nil, fmt.Errorf("price feed %s: %w", address, ErrNotFound)
	}

	return s.feedResolver(address)
}
