// Package signature provides helper functions for signing transactions and
// recovering the account that signed them.
package signature

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0x0000000000000000000000000000000000000000000000000000000000000000"

// fundMeID is added to the recovery id of every signature so a signature
// produced here can't be replayed as a plain Ethereum signature, which uses 27.
const fundMeID = 29

// stampPrefix is hashed together with the data being signed.
const stampPrefix = "\x19FundMe Signed Message:\n32"

// =============================================================================

// Hash returns a unique keccak256 hash string for the value.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return hexutil.Encode(crypto.Keccak256(data))
}

// Sign uses the specified private key to sign the value. The signature is
// returned in the [R|S|V] format.
func Sign(value any, privateKey *ecdsa.PrivateKey) (v, r, s *big.Int, err error) {
	digest, err := stamp(value)
	if err != nil {
		return nil, nil, nil, err
	}

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("sign: %w", err)
	}

	// Make sure the signature recovers the key that produced it.
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("recover: %w", err)
	}
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, sig[:crypto.RecoveryIDOffset]) {
		return nil, nil, nil, errors.New("invalid signature")
	}

	r = new(big.Int).SetBytes(sig[:32])
	s = new(big.Int).SetBytes(sig[32:64])
	v = new(big.Int).SetUint64(uint64(sig[64]) + fundMeID)

	return v, r, s, nil
}

// VerifySignature checks the signature values conform to our standards.
func VerifySignature(v, r, s *big.Int) error {
	if v == nil || r == nil || s == nil {
		return errors.New("missing signature values")
	}

	recID := v.Uint64() - fundMeID
	if recID != 0 && recID != 1 {
		return errors.New("invalid recovery id")
	}

	if !crypto.ValidateSignatureValues(byte(recID), r, s, false) {
		return errors.New("invalid signature values")
	}

	return nil
}

// FromAddress recovers the address of the account that signed the value.
// The exact value that was signed must be provided, otherwise a different
// address is recovered.
func FromAddress(value any, v, r, s *big.Int) (string, error) {
	if err := VerifySignature(v, r, s); err != nil {
		return "", err
	}

	digest, err := stamp(value)
	if err != nil {
		return "", err
	}

	publicKey, err := crypto.SigToPub(digest, ToSignatureBytes(v, r, s))
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}

	return crypto.PubkeyToAddress(*publicKey).Hex(), nil
}

// SignatureString returns the signature as a hex string, keeping our id in
// the recovery byte.
func SignatureString(v, r, s *big.Int) string {
	sig := ToSignatureBytes(v, r, s)
	sig[64] = byte(v.Uint64())

	return hexutil.Encode(sig)
}

// ToSignatureBytes converts the r, s, v values into the 65 byte signature
// expected by the crypto package.
func ToSignatureBytes(v, r, s *big.Int) []byte {
	sig := make([]byte, crypto.SignatureLength)

	r.FillBytes(sig[:32])
	s.FillBytes(sig[32:64])
	sig[64] = byte(v.Uint64() - fundMeID)

	return sig
}

// =============================================================================

// stamp returns the 32 byte digest that is signed for the value.
func stamp(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	return crypto.Keccak256([]byte(stampPrefix), crypto.Keccak256(data)), nil
}
