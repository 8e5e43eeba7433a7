package signer

import (
	"crypto/elliptic"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Low-S signature normalization utilities.
//
// ECDSA signatures are malleable: for any valid (r, s), the pair (r, n-s) is
// also valid. BIP-62 (Bitcoin) and EIP-2 (Ethereum) enforce s <= n/2 to make
// the encoding canonical. Sign methods in this package always produce low-S
// signatures; Verify methods accept both forms. These helpers let callers
// check or normalize signatures from elsewhere.

// Curve order constants, precomputed once.
var (
	secp256k1N     = secp256k1.Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)

	secp256r1N     = elliptic.P256().Params().N
	secp256r1HalfN = new(big.Int).Rsh(secp256r1N, 1)
)

// halfOrder returns n/2 for the algorithm's curve, or nil if unsupported.
func halfOrder(algo Algorithm) *big.Int {
	switch algo {
	case AlgorithmSecp256k1:
		return secp256k1HalfN
	case AlgorithmSecp256r1:
		return secp256r1HalfN
	default:
		return nil
	}
}

// curveOrder returns n for the algorithm's curve, or nil if unsupported.
func curveOrder(algo Algorithm) *big.Int {
	switch algo {
	case AlgorithmSecp256k1:
		return secp256k1N
	case AlgorithmSecp256r1:
		return secp256r1N
	default:
		return nil
	}
}

// IsLowS reports whether a 64-byte signature has s in the lower half of the
// curve order for the given algorithm. Returns false for invalid lengths or
// unsupported algorithms.
//
// Complexity: O(1), one big.Int comparison.
func IsLowS(sig []byte, algo Algorithm) bool {
	half := halfOrder(algo)
	if half == nil || len(sig) != 64 {
		return false
	}
	s := new(big.Int).SetBytes(sig[32:64])
	return s.Cmp(half) <= 0
}

// NormalizeToLowS returns a copy of sig with s replaced by n-s when s is in
// the upper half of the curve order. The input is not modified. Returns nil
// for invalid lengths or unsupported algorithms.
func NormalizeToLowS(sig []byte, algo Algorithm) []byte {
	n := curveOrder(algo)
	half := halfOrder(algo)
	if n == nil || len(sig) != 64 {
		return nil
	}

	out := make([]byte, 64)
	copy(out, sig)

	s := new(big.Int).SetBytes(sig[32:64])
	if s.Cmp(half) <= 0 {
		return out
	}

	s.Sub(n, s)
	for i := 32; i < 64; i++ {
		out[i] = 0
	}
	sBytes := s.Bytes()
	copy(out[64-len(sBytes):], sBytes)
	return out
}
