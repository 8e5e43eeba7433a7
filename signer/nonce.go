package signer

import (
	"crypto/elliptic"
	"fmt"
	"math/big"

	"github.com/blockberries/rfc6979"
)

// signDeterministic produces a 64-byte (r || s) ECDSA signature over digest
// using an RFC 6979 nonce stream instead of system randomness.
//
// privBytes is the fixed 32-byte big-endian encoding of the private scalar d;
// it seeds the nonce generator together with the digest. Candidate nonces
// outside [1, n-1], and candidates producing r = 0 or s = 0, are rejected by
// drawing the next generator block, which is exactly the RFC's retry path.
// In practice the first candidate is accepted; the loop is there for
// correctness, not performance.
//
// The signature is normalized to low-S (s <= n/2) per BIP-62 / EIP-2 before
// encoding. Verifiers accept both forms; producing only the canonical form
// avoids signature malleability downstream.
//
// Complexity: O(1) expected - one scalar base multiplication per accepted
// candidate.
func signDeterministic(curve elliptic.Curve, n, halfN, d *big.Int, privBytes []byte, digest []byte) ([]byte, error) {
	gen, err := rfc6979.New(privBytes, digest)
	if err != nil {
		return nil, fmt.Errorf("nonce generator: %w", err)
	}
	defer gen.Zeroize()

	// e = bits2int(digest); for 256-bit curve orders and SHA-256 digests the
	// truncation is the identity.
	e := new(big.Int).SetBytes(digest)

	for {
		block := gen.Next()
		k := new(big.Int).SetBytes(block[:])
		if k.Sign() == 0 || k.Cmp(n) >= 0 {
			continue
		}

		// R = k*G, r = R.x mod n
		x, _ := curve.ScalarBaseMult(k.Bytes())
		r := new(big.Int).Mod(x, n)
		if r.Sign() == 0 {
			continue
		}

		// s = k^-1 * (e + r*d) mod n
		kInv := new(big.Int).ModInverse(k, n)
		s := new(big.Int).Mul(r, d)
		s.Add(s, e)
		s.Mul(s, kInv)
		s.Mod(s, n)
		if s.Sign() == 0 {
			continue
		}

		if s.Cmp(halfN) > 0 {
			s.Sub(n, s)
		}

		return encodeSignature(r, s), nil
	}
}

// encodeSignature packs r and s into the 64-byte fixed-width wire form,
// each value right-aligned with zero padding.
func encodeSignature(r, s *big.Int) []byte {
	sig := make([]byte, 64)
	rBytes := r.Bytes()
	sBytes := s.Bytes()
	copy(sig[32-len(rBytes):32], rBytes)
	copy(sig[64-len(sBytes):64], sBytes)
	return sig
}
