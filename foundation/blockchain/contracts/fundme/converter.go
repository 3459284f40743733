package fundme

import (
	"context"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/holiman/uint256"
)

// precision is the number of decimals used for wei and for USD values.
const precision = 18

// oneEther is 10^18 wei.
var oneEther = uint256.NewInt(1_000_000_000_000_000_000)

// MinimumUSD returns the smallest contribution accepted, in USD with 18
// decimals.
func MinimumUSD() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(50), oneEther)
}

// EthPrice returns the price of one ether in USD scaled to 18 decimals.
func EthPrice(ctx context.Context, feed pricefeed.Provider) (*uint256.Int, error) {
	answer, decimals, err := pricefeed.Price(ctx, feed)
	if err != nil {
		return nil, err
	}

	price, overflow := uint256.FromBig(answer)
	if overflow {
		return nil, pricefeed.ErrInvalidPrice
	}

	switch {
	case decimals < precision:
		scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(precision-decimals)))
		if _, overflow := price.MulOverflow(price, scale); overflow {
			return nil, pricefeed.ErrInvalidPrice
		}

	case decimals > precision:
		scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals-precision)))
		price.Div(price, scale)
	}

	return price, nil
}

// ConversionRate returns the USD value, with 18 decimals, of the specified
// amount of wei.
func ConversionRate(ctx context.Context, weiAmount *uint256.Int, feed pricefeed.Provider) (*uint256.Int, error) {
	price, err := EthPrice(ctx, feed)
	if err != nil {
		return nil, err
	}

	usd, overflow := new(uint256.Int).MulDivOverflow(price, weiAmount, oneEther)
	if overflow {
		return nil, pricefeed.ErrInvalidPrice
	}

	return usd, nil
}
