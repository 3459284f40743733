package database

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Account represents information stored in the database for an individual
// account. Contract accounts hold the value sent to the contract.
type Account struct {
	AccountID AccountID
	Nonce     uint64
	Balance   uint256.Int
}

// newAccount constructs a new account value for use.
func newAccount(accountID AccountID, balance *uint256.Int) Account {
	return Account{
		AccountID: accountID,
		Balance:   *balance,
	}
}

// =============================================================================

// AccountID represents an account id that is used to sign transactions and is
// associated with transactions on the blockchain. Account ids are always kept
// in their checksum form so they can be compared as strings.
type AccountID string

// ToAccountID converts a hex-encoded string to an account and validates the
// hex-encoded string is formatted correctly.
func ToAccountID(hex string) (AccountID, error) {
	if !common.IsHexAddress(hex) {
		return "", errors.New("invalid account format")
	}

	return AccountID(common.HexToAddress(hex).Hex()), nil
}

// PublicKeyToAccountID converts the public key to an account value.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(crypto.PubkeyToAddress(pk).Hex())
}

// ContractAccountID returns the address of the contract created by the
// specified account when it uses the specified nonce.
func ContractAccountID(creator AccountID, nonce uint64) AccountID {
	return AccountID(crypto.CreateAddress(creator.Address(), nonce).Hex())
}

// IsAccountID verifies whether the underlying data represents a valid
// hex-encoded account.
func (a AccountID) IsAccountID() bool {
	return common.IsHexAddress(string(a))
}

// Address returns the account id as an Ethereum address.
func (a AccountID) Address() common.Address {
	return common.HexToAddress(string(a))
}
