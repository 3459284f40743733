package pricefeed

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// aggregatorABI is the subset of AggregatorV3Interface that is read.
const aggregatorABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"description","outputs":[{"internalType":"string","name":"","type":"string"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"version","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"internalType":"uint80","name":"roundId","type":"uint80"},
		{"internalType":"int256","name":"answer","type":"int256"},
		{"internalType":"uint256","name":"startedAt","type":"uint256"},
		{"internalType":"uint256","name":"updatedAt","type":"uint256"},
		{"internalType":"uint80","name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"}
]`

// Caller represents the behavior required to read from a contract on a live
// network. The ethclient.Client value implements this interface.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Chainlink reads the answer of an AggregatorV3Interface contract deployed
// on a live network.
type Chainlink struct {
	address common.Address
	caller  Caller
	abi     abi.ABI
}

// NewChainlink constructs a reader for the aggregator at the specified address.
func NewChainlink(caller Caller, address common.Address) (*Chainlink, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("parsing aggregator abi: %w", err)
	}

	cl := Chainlink{
		address: address,
		caller:  caller,
		abi:     parsed,
	}

	return &cl, nil
}

// Address returns the address of the aggregator contract.
func (cl *Chainlink) Address() common.Address {
	return cl.address
}

// Decimals implements the Provider interface.
func (cl *Chainlink) Decimals(ctx context.Context) (uint8, error) {
	out, err := cl.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}

	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("decimals: unexpected type %T", out[0])
	}

	return decimals, nil
}

// Description returns the description of the aggregator.
func (cl *Chainlink) Description(ctx context.Context) (string, error) {
	out, err := cl.call(ctx, "description")
	if err != nil {
		return "", err
	}

	desc, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("description: unexpected type %T", out[0])
	}

	return desc, nil
}

// LatestRoundData implements the Provider interface.
func (cl *Chainlink) LatestRoundData(ctx context.Context) (RoundData, error) {
	out, err := cl.call(ctx, "latestRoundData")
	if err != nil {
		return RoundData{}, err
	}

	if len(out) != 5 {
		return RoundData{}, fmt.Errorf("latestRoundData: got %d values, exp 5", len(out))
	}

	var values [5]*big.Int
	for i, v := range out {
		n, ok := v.(*big.Int)
		if !ok {
			return RoundData{}, fmt.Errorf("latestRoundData: value %d unexpected type %T", i, v)
		}
		values[i] = n
	}

	rd := RoundData{
		RoundID:         values[0].Uint64(),
		Answer:          values[1],
		StartedAt:       values[2].Uint64(),
		UpdatedAt:       values[3].Uint64(),
		AnsweredInRound: values[4].Uint64(),
	}

	return rd, nil
}

// call packs the method, executes the read against the network and unpacks
// the returned values.
func (cl *Chainlink) call(ctx context.Context, method string) ([]any, error) {
	data, err := cl.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("%s: pack: %w", method, err)
	}

	msg := ethereum.CallMsg{
		To:   &cl.address,
		Data: data,
	}

	result, err := cl.caller.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: call %s: %w", method, cl.address, err)
	}

	out, err := cl.abi.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("%s: unpack: %w", method, err)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no values returned", method)
	}

	return out, nil
}
