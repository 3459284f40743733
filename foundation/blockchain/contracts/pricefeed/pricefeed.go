// Package pricefeed provides the price oracle support used by contracts to
// convert native currency into a reference currency. Both a mock aggregator
// for development chains and a reader for live Chainlink feeds implement the
// same Provider behavior.
package pricefeed

import (
	"context"
	"errors"
	"math/big"
)

// Set of error variables for price feed access.
var (
	ErrRoundNotFound = errors.New("no data present")
	ErrInvalidPrice  = errors.New("invalid price from feed")
)

// RoundData represents the result of an aggregator round.
type RoundData struct {
	RoundID         uint64   `json:"round_id"`
	Answer          *big.Int `json:"answer"`
	StartedAt       uint64   `json:"started_at"`
	UpdatedAt       uint64   `json:"updated_at"`
	AnsweredInRound uint64   `json:"answered_in_round"`
}

// Provider represents the behavior required to be implemented by any value
// providing the current exchange rate. Contracts only depend on this
// behavior, never on which implementation is deployed.
type Provider interface {
	Decimals(ctx context.Context) (uint8, error)
	LatestRoundData(ctx context.Context) (RoundData, error)
}

// Price returns the latest answer from the provider along with the decimal
// precision of the answer. A non-positive answer is an error.
func Price(ctx context.Context, p Provider) (*big.Int, uint8, error) {
	decimals, err := p.Decimals(ctx)
	if err != nil {
		return nil, 0, err
	}

	rd, err := p.LatestRoundData(ctx)
	if err != nil {
		return nil, 0, err
	}

	if rd.Answer == nil || rd.Answer.Sign() <= 0 {
		return nil, 0, ErrInvalidPrice
	}

	return new(big.Int).Set(rd.Answer), decimals, nil
}
