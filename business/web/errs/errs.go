// Package errs provides types and support related to web v1 functionality.
package errs

import (
	"errors"
	"net/http"

	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/fundme"
	"github.com/ardanlabs/fundme/foundation/blockchain/contracts/pricefeed"
	"github.com/ardanlabs/fundme/foundation/blockchain/database"
	"github.com/ardanlabs/fundme/foundation/blockchain/state"
	"github.com/ardanlabs/fundme/foundation/deploy"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is used to pass an error during the request through the
// application with web specific context.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface. It uses the default message of the
// wrapped error. This is what will be shown in the services' logs.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap provides access to the wrapped error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// chainErrors maps the errors returned by the chain to the status the
// client should see. The first match wins.
var chainErrors = []struct {
	err    error
	status int
}{
	{fundme.ErrNotOwner, http.StatusForbidden},
	{fundme.ErrIndexOutOfRange, http.StatusNotFound},
	{state.ErrNotFound, http.StatusNotFound},
	{database.ErrBlockNotFound, http.StatusNotFound},
	{deploy.ErrNoDeployment, http.StatusNotFound},
	{state.ErrReverted, http.StatusBadRequest},
	{state.ErrNonce, http.StatusBadRequest},
	{state.ErrGasLimit, http.StatusBadRequest},
	{state.ErrNotContract, http.StatusBadRequest},
	{state.ErrUnknownMethod, http.StatusBadRequest},
	{state.ErrNonPayable, http.StatusBadRequest},
	{database.ErrInsufficientFunds, http.StatusBadRequest},
	{pricefeed.ErrRoundNotFound, http.StatusNotFound},
	{pricefeed.ErrInvalidPrice, http.StatusBadGateway},
}

// FromChain converts an error returned by the chain into a trusted error.
// Errors the chain doesn't know about are returned as is.
func FromChain(err error) error {
	if err == nil || IsTrusted(err) {
		return err
	}

	for _, ce := range chainErrors {
		if errors.Is(err, ce.err) {
			return NewTrusted(err, ce.status)
		}
	}

	return err
}
