// Package signer implements deterministic ECDSA signing on top of the
// rfc6979 nonce generator. Supported curves are secp256k1 (Bitcoin/Ethereum
// compatibility, via the decred library) and secp256r1 / P-256 (HSM
// compatibility, via the standard library). Ed25519 has no place here: its
// nonce is already derived deterministically inside the algorithm.
package signer

import (
	"encoding/json"
	"fmt"
)

// Algorithm identifies a supported deterministic-ECDSA curve.
// Complexity: all operations O(1).
type Algorithm string

const (
	// AlgorithmSecp256k1 is ECDSA over secp256k1.
	// Private key: 32 bytes. Public key: 33 bytes compressed. Signature: 64 bytes.
	AlgorithmSecp256k1 Algorithm = "secp256k1"

	// AlgorithmSecp256r1 is ECDSA over P-256 (secp256r1).
	// Private key: 32 bytes. Public key: 33 bytes compressed. Signature: 64 bytes.
	AlgorithmSecp256r1 Algorithm = "secp256r1"
)

// String returns the string representation of the algorithm.
func (a Algorithm) String() string {
	return string(a)
}

// IsValid returns true if the algorithm is a recognized type.
func (a Algorithm) IsValid() bool {
	switch a {
	case AlgorithmSecp256k1, AlgorithmSecp256r1:
		return true
	default:
		return false
	}
}

// PrivateKeySize returns the expected private key size in bytes.
func (a Algorithm) PrivateKeySize() int {
	if a.IsValid() {
		return 32
	}
	return 0
}

// PublicKeySize returns the expected compressed public key size in bytes.
func (a Algorithm) PublicKeySize() int {
	if a.IsValid() {
		return 33
	}
	return 0
}

// SignatureSize returns the expected signature size in bytes (r || s).
func (a Algorithm) SignatureSize() int {
	if a.IsValid() {
		return 64
	}
	return 0
}

// MarshalJSON implements json.Marshaler.
func (a Algorithm) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(a))
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Algorithm) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	alg := Algorithm(s)
	if !alg.IsValid() {
		return fmt.Errorf("unsupported algorithm: %s", s)
	}
	*a = alg
	return nil
}
