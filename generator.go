// Package rfc6979 implements the deterministic pseudorandom generator from
// RFC 6979 section 3.2, used to derive ECDSA nonces ("k" values) from a
// private key and a message digest instead of from system entropy.
//
// Deterministic derivation removes a historically dangerous failure mode:
// a weak or repeating random source producing the same nonce for two
// signatures, which leaks the private key. The generator here is the minimal
// HMAC-SHA256 profile with no optional extra data, matching the derivation
// used by hardware wallets and by deterministic-signing libraries.
//
// A Generator is exclusively owned by one caller. Next both reads and
// mutates internal state across several HMAC invocations, so concurrent use
// of a single instance must be serialized externally.
package rfc6979

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"runtime"
)

// BlockSize is the size in bytes of every generator output block, equal to
// the HMAC-SHA256 digest size. The private key and message hash supplied at
// construction must both be exactly this long.
const BlockSize = sha256.Size

// Generator is the RFC 6979 section 3.2 state machine: two 32-byte buffers,
// the HMAC chaining value V and the HMAC key K, updated on every output
// block. The zero value is not usable; construct with New or NewFromDigest.
//
// Once constructed a Generator is infallible: Next always succeeds and
// always returns a full block. There is no exhausted state.
type Generator struct {
	v [BlockSize]byte
	k [BlockSize]byte
}

// New creates a Generator seeded from a 32-byte private key and a 32-byte
// message digest.
//
// Both lengths are checked independently and rejected with an error wrapping
// ErrInvalidLength if not exactly 32 bytes. Exact-length inputs are the
// contract; shorter or longer buffers are never padded or truncated.
//
// The seeding procedure is RFC 6979 section 3.2 steps (b)-(g) with
// x = privateKey and h1 = hash. It consumes no system randomness: two
// generators built from identical inputs produce identical output sequences.
//
// Complexity: O(1), a fixed number of HMAC-SHA256 invocations.
func New(privateKey, hash []byte) (*Generator, error) {
	if len(privateKey) != BlockSize {
		return nil, fmt.Errorf("%w: private key has to be %d bytes long", ErrInvalidLength, BlockSize)
	}
	if len(hash) != BlockSize {
		return nil, fmt.Errorf("%w: hash has to be %d bytes long", ErrInvalidLength, BlockSize)
	}

	g := new(Generator)
	g.seed(privateKey, hash)
	return g, nil
}

// NewFromDigest is New for callers who can state the length invariant in the
// type system. Fixed-size arrays cannot be the wrong length, so this
// constructor never fails and performs no runtime checks.
func NewFromDigest(privateKey, hash [BlockSize]byte) *Generator {
	g := new(Generator)
	g.seed(privateKey[:], hash[:])
	return g
}

// seed runs RFC 6979 section 3.2 steps (b)-(g).
func (g *Generator) seed(privateKey, hash []byte) {
	// Step (b): V = 0x01 repeated. Step (c): K = 0x00 repeated (zero value).
	for i := range g.v {
		g.v[i] = 0x01
	}

	// Steps (d)-(e), then (f)-(g): same shape, different separator byte.
	g.reseed(0x00, privateKey, hash)
	g.reseed(0x01, privateKey, hash)
}

// reseed performs one K/V update round:
//
//	K = HMAC_K(V || sep || privateKey || hash)
//	V = HMAC_K(V)
func (g *Generator) reseed(sep byte, privateKey, hash []byte) {
	mac := hmac.New(sha256.New, g.k[:])
	mac.Write(g.v[:])
	mac.Write([]byte{sep})
	mac.Write(privateKey)
	mac.Write(hash)
	mac.Sum(g.k[:0])

	mac = hmac.New(sha256.New, g.k[:])
	mac.Write(g.v[:])
	mac.Sum(g.v[:0])
}

// Next computes the next 32 bytes of deterministic pseudorandom data and
// advances the generator so the following call yields a different block.
//
// This is RFC 6979 section 3.2 step (h). Because the requested output length
// equals the HMAC output length, the block-concatenation loop runs exactly
// once, and the retry re-key (K = HMAC_K(V || 0x00), V = HMAC_K(V)) is
// folded into the state advance after every emitted block. Drawing the next
// block is therefore exactly the RFC's "candidate rejected, try again" path,
// which is how a caller implements the k in [1, n-1] range check.
//
// The returned array is a copy; it does not alias generator state.
func (g *Generator) Next() [BlockSize]byte {
	mac := hmac.New(sha256.New, g.k[:])
	mac.Write(g.v[:])
	mac.Sum(g.v[:0])

	out := g.v

	mac = hmac.New(sha256.New, g.k[:])
	mac.Write(g.v[:])
	mac.Write([]byte{0x00})
	mac.Sum(g.k[:0])

	mac = hmac.New(sha256.New, g.k[:])
	mac.Write(g.v[:])
	mac.Sum(g.v[:0])

	return out
}

// Zeroize overwrites the generator's internal buffers with zeros. The state
// is derived from private key material, so callers signing with short-lived
// generators should wipe them when done. After Zeroize the generator must
// not be used again.
//
// Uses subtle.XORBytes, which the compiler cannot eliminate as a dead store,
// plus runtime.KeepAlive so the buffers are not considered dead before the
// wipe completes.
func (g *Generator) Zeroize() {
	subtle.XORBytes(g.v[:], g.v[:], g.v[:])
	subtle.XORBytes(g.k[:], g.k[:], g.k[:])
	runtime.KeepAlive(g)
}
