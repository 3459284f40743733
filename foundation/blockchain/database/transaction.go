package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/fundme/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// =============================================================================

// Tx is the transactional information sent by an account to the chain. A
// transaction without a to account creates a contract.
type Tx struct {
	ChainID  uint16    `json:"chain_id"`  // Ethereum: The chain id that is listed in the genesis file.
	Nonce    uint64    `json:"nonce"`     // Ethereum: Unique id for the transaction supplied by the user.
	ToID     AccountID `json:"to"`        // Ethereum: Account receiving the transaction, empty for contract creation.
	Value    *big.Int  `json:"value"`     // Ethereum: Wei sent along with the transaction.
	GasLimit uint64    `json:"gas_limit"` // Ethereum: Maximum units of gas the transaction can use.
	Method   string    `json:"method"`    // Contract method being called.
	Data     []byte    `json:"data"`      // Ethereum: JSON encoded arguments for the method or constructor.
}

// NewTx constructs a new transaction.
func NewTx(chainID uint16, nonce uint64, toID AccountID, value *big.Int, gasLimit uint64, method string, data []byte) (Tx, error) {
	if toID != "" && !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	if value == nil {
		value = new(big.Int)
	}

	tx := Tx{
		ChainID:  chainID,
		Nonce:    nonce,
		ToID:     toID,
		Value:    value,
		GasLimit: gasLimit,
		Method:   method,
		Data:     data,
	}

	return tx, nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if tx.ToID != "" && !tx.ToID.IsAccountID() {
		return SignedTx{}, fmt.Errorf("to account is not properly formatted")
	}

	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// IsCreate reports whether the transaction creates a contract.
func (tx Tx) IsCreate() bool {
	return tx.ToID == ""
}

// ToAccount returns the receiving account in checksum form. Accounts are
// keyed by that form no matter how the recipient was written when signing.
func (tx Tx) ToAccount() (AccountID, error) {
	if tx.IsCreate() {
		return "", nil
	}

	return ToAccountID(string(tx.ToID))
}

// Amount returns the value of the transaction as a 256 bit integer.
func (tx Tx) Amount() (*uint256.Int, error) {
	if tx.Value == nil {
		return new(uint256.Int), nil
	}

	if tx.Value.Sign() < 0 {
		return nil, errors.New("negative value")
	}

	amount, overflow := uint256.FromBig(tx.Value)
	if overflow {
		return nil, errors.New("value overflows 256 bits")
	}

	return amount, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Ethereum: Recovery identifier, either 29 or 30 with fundMeID.
	R *big.Int `json:"r"` // Ethereum: First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Ethereum: Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards and checks the format of the to account.
func (tx SignedTx) Validate(chainID uint16) error {
	if tx.ChainID != chainID {
		return fmt.Errorf("invalid chain id, got %d, exp %d", tx.ChainID, chainID)
	}

	if tx.ToID != "" && !tx.ToID.IsAccountID() {
		return errors.New("invalid account for to account")
	}

	if _, err := tx.Amount(); err != nil {
		return err
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	return nil
}

// FromAccount extracts the account id that signed the transaction.
func (tx SignedTx) FromAccount() (AccountID, error) {
	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	return AccountID(address), err
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// Hash returns the unique hash of the signed transaction.
func (tx SignedTx) Hash() string {
	return signature.Hash(tx)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	from, err := tx.FromAccount()
	if err != nil {
		from = "unknown"
	}

	return fmt.Sprintf("%s:%d", from, tx.Nonce)
}

// =============================================================================

// BlockTx represents the transaction as it's recorded inside a block. This
// includes a timestamp and the gas price in effect.
type BlockTx struct {
	SignedTx
	TimeStamp uint64 `json:"timestamp"` // Ethereum: The time the transaction was received.
	GasPrice  uint64 `json:"gas_price"` // Ethereum: The price of one unit of gas to be paid for fees.
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx, timeStamp uint64, gasPrice uint64) BlockTx {
	return BlockTx{
		SignedTx:  signedTx,
		TimeStamp: timeStamp,
		GasPrice:  gasPrice,
	}
}

// LeafHash implements the merkle Hashable interface. The leaf is the keccak256
// hash of the transaction as it's recorded in the block.
func (tx BlockTx) LeafHash() ([]byte, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return nil, err
	}

	return crypto.Keccak256(data), nil
}
