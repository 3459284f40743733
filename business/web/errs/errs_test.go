package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ardanlabs/fundme/business/web/errs"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "✓"
	failed  = "✗"
)

func Test_FromChain(t *testing.T) {
	t.Log("Given the need to convert chain errors into request errors.")
	{
		tests := []struct {
			name   string
			err    error
			status int
		}{
			{"notowner", fmt.Errorf("%w: %w", state.ErrReverted, fundme.ErrNotOwner), http.StatusForbidden},
			{"index", fmt.Errorf("%w: %w", state.ErrReverted, fundme.ErrIndexOutOfRange), http.StatusNotFound},
			{"payment", fmt.Errorf("%w: %w", state.ErrReverted, fundme.ErrInsufficientPayment), http.StatusBadRequest},
			{"nonce", fmt.Errorf("tx: %w", state.ErrNonce), http.StatusBadRequest},
		}

		for testID, tt := range tests {
			f := func(t *testing.T) {
				err := errs.FromChain(tt.err)

				trusted := errs.GetTrusted(err)
				if trusted == nil || trusted.Status != tt.status {
					t.Fatalf("\t%s\tTest %d:\tShould get status %d: %+v", failed, testID, tt.status, trusted)
				}
				t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tt.status)

				if !errors.Is(err, tt.err) {
					t.Fatalf("\t%s\tTest %d:\tShould keep the chain error.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould keep the chain error.", success, testID)
			}

			t.Run(tt.name, f)
		}

		t.Logf("\tTest 4:\tWhen the error isn't a chain error.")
		{
			err := errors.New("disk on fire")
			if errs.IsTrusted(errs.FromChain(err)) {
				t.Fatalf("\t%s\tTest 4:\tShould not trust the error.", failed)
			}
			t.Logf("\t%s\tTest 4:\tShould not trust the error.", success)
		}
	}
}
