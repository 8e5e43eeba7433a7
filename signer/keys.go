package signer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
	"runtime"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Zeroize securely overwrites a byte slice with zeros.
// Used to clear sensitive data (private keys, derived scalars) from memory.
//
// subtle.XORBytes(b, b, b) XORs each byte with itself; crypto/subtle
// functions resist compiler dead-store elimination, and runtime.KeepAlive
// keeps the slice live until the wipe completes. More robust than a naive
// zeroing loop, which compilers may eliminate entirely.
//
// Complexity: O(n). Memory: zero allocations.
func Zeroize(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.XORBytes(b, b, b)
	runtime.KeepAlive(b)
}

// PublicKey represents a public key for signature verification.
type PublicKey interface {
	// Bytes returns the 33-byte compressed public key.
	Bytes() []byte

	// Algorithm returns the key's algorithm.
	Algorithm() Algorithm

	// Verify verifies a 64-byte (r || s) signature over data.
	// Both low-S and high-S forms are accepted.
	Verify(data, signature []byte) bool

	// Equals checks if two public keys are equal.
	// Uses constant-time comparison to prevent timing attacks.
	Equals(other PublicKey) bool

	// String returns the Base64-encoded representation.
	String() string
}

// PrivateKey represents a private key for deterministic signing.
type PrivateKey interface {
	// Bytes returns the 32-byte private scalar.
	// WARNING: handle with care. Consider zeroing after use.
	Bytes() []byte

	// Algorithm returns the key's algorithm.
	Algorithm() Algorithm

	// PublicKey returns the corresponding public key.
	PublicKey() PublicKey

	// Sign signs the given data with an RFC 6979 deterministic nonce.
	// The same key and data always produce the same 64-byte signature.
	Sign(data []byte) ([]byte, error)

	// Zeroize overwrites the private key bytes with zeros.
	// After calling Zeroize, the key is no longer usable.
	Zeroize()
}

// ============================================================================
// secp256k1 implementation (Bitcoin/Ethereum compatibility)
// ============================================================================

// secp256k1PublicKey implements PublicKey for secp256k1.
// Uses 33-byte compressed format for storage efficiency.
type secp256k1PublicKey struct {
	key *secp256k1.PublicKey
}

// Bytes returns the 33-byte compressed public key.
func (k *secp256k1PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

// Algorithm returns AlgorithmSecp256k1.
func (k *secp256k1PublicKey) Algorithm() Algorithm {
	return AlgorithmSecp256k1
}

// Verify verifies an ECDSA signature in 64-byte (r || s) format.
// Complexity: O(1) for signature parsing + O(n) for hash computation.
func (k *secp256k1PublicKey) Verify(data, signature []byte) bool {
	if len(signature) != 64 {
		return false
	}

	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])

	// ECDSA verifies hashes, not raw data.
	hash := sha256.Sum256(data)

	return ecdsa.Verify(k.key.ToECDSA(), hash[:], r, s)
}

// Equals checks equality using constant-time comparison.
func (k *secp256k1PublicKey) Equals(other PublicKey) bool {
	if other == nil || other.Algorithm() != AlgorithmSecp256k1 {
		return false
	}
	return subtle.ConstantTimeCompare(k.Bytes(), other.Bytes()) == 1
}

// String returns the Base64-encoded compressed public key.
func (k *secp256k1PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

// secp256k1PrivateKey implements PrivateKey for secp256k1.
type secp256k1PrivateKey struct {
	key *secp256k1.PrivateKey
}

// Bytes returns the 32-byte scalar private key.
func (k *secp256k1PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

// Algorithm returns AlgorithmSecp256k1.
func (k *secp256k1PrivateKey) Algorithm() Algorithm {
	return AlgorithmSecp256k1
}

// PublicKey returns the corresponding public key.
func (k *secp256k1PrivateKey) PublicKey() PublicKey {
	return &secp256k1PublicKey{key: k.key.PubKey()}
}

// Sign signs data with an RFC 6979 deterministic nonce and returns a 64-byte
// low-S (r || s) signature.
// Complexity: O(n) for hashing + one scalar base multiplication.
func (k *secp256k1PrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)

	priv := k.key.Serialize()
	defer Zeroize(priv)

	d := new(big.Int).SetBytes(priv)
	defer d.SetInt64(0)

	return signDeterministic(secp256k1.S256(), secp256k1N, secp256k1HalfN, d, priv, hash[:])
}

// Zeroize overwrites the private key with zeros.
func (k *secp256k1PrivateKey) Zeroize() {
	k.key.Zero()
}

// ============================================================================
// secp256r1 (P-256) implementation (HSM compatibility)
// ============================================================================

// secp256r1PublicKey implements PublicKey for secp256r1 (P-256).
type secp256r1PublicKey struct {
	key *ecdsa.PublicKey
}

// Bytes returns the 33-byte compressed public key.
// Compressed format: 0x02/0x03 prefix + 32-byte X coordinate.
func (k *secp256r1PublicKey) Bytes() []byte {
	return elliptic.MarshalCompressed(k.key.Curve, k.key.X, k.key.Y)
}

// Algorithm returns AlgorithmSecp256r1.
func (k *secp256r1PublicKey) Algorithm() Algorithm {
	return AlgorithmSecp256r1
}

// Verify verifies an ECDSA signature in 64-byte (r || s) format.
func (k *secp256r1PublicKey) Verify(data, signature []byte) bool {
	if len(signature) != 64 {
		return false
	}

	r := new(big.Int).SetBytes(signature[:32])
	s := new(big.Int).SetBytes(signature[32:])

	hash := sha256.Sum256(data)

	return ecdsa.Verify(k.key, hash[:], r, s)
}

// Equals checks equality using constant-time comparison.
func (k *secp256r1PublicKey) Equals(other PublicKey) bool {
	if other == nil || other.Algorithm() != AlgorithmSecp256r1 {
		return false
	}
	return subtle.ConstantTimeCompare(k.Bytes(), other.Bytes()) == 1
}

// String returns the Base64-encoded compressed public key.
func (k *secp256r1PublicKey) String() string {
	return base64.StdEncoding.EncodeToString(k.Bytes())
}

// secp256r1PrivateKey implements PrivateKey for secp256r1 (P-256).
type secp256r1PrivateKey struct {
	key *ecdsa.PrivateKey
}

// Bytes returns the 32-byte scalar private key, zero-padded on the left.
func (k *secp256r1PrivateKey) Bytes() []byte {
	bytes := k.key.D.Bytes()
	if len(bytes) < 32 {
		padded := make([]byte, 32)
		copy(padded[32-len(bytes):], bytes)
		return padded
	}
	return bytes
}

// Algorithm returns AlgorithmSecp256r1.
func (k *secp256r1PrivateKey) Algorithm() Algorithm {
	return AlgorithmSecp256r1
}

// PublicKey returns the corresponding public key.
func (k *secp256r1PrivateKey) PublicKey() PublicKey {
	return &secp256r1PublicKey{key: &k.key.PublicKey}
}

// Sign signs data with an RFC 6979 deterministic nonce and returns a 64-byte
// low-S (r || s) signature.
func (k *secp256r1PrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)

	priv := k.Bytes()
	defer Zeroize(priv)

	return signDeterministic(elliptic.P256(), secp256r1N, secp256r1HalfN, k.key.D, priv, hash[:])
}

// Zeroize overwrites the private key with zeros.
func (k *secp256r1PrivateKey) Zeroize() {
	if k.key != nil && k.key.D != nil {
		bytes := k.key.D.Bytes()
		Zeroize(bytes)
		k.key.D.SetInt64(0)
	}
}

// GeneratePrivateKey generates a new private key for the given algorithm.
// Key generation is the one place this package consumes system randomness;
// signing never does.
func GeneratePrivateKey(algo Algorithm) (PrivateKey, error) {
	switch algo {
	case AlgorithmSecp256k1:
		privKey, err := secp256k1.GeneratePrivateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
		}
		return &secp256k1PrivateKey{key: privKey}, nil

	case AlgorithmSecp256r1:
		privKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to generate secp256r1 key: %w", err)
		}
		return &secp256r1PrivateKey{key: privKey}, nil

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

// PrivateKeyFromBytes creates a private key from a 32-byte scalar.
// The caller should zero the input data after this call returns.
func PrivateKeyFromBytes(algo Algorithm, data []byte) (PrivateKey, error) {
	switch algo {
	case AlgorithmSecp256k1:
		if len(data) != 32 {
			return nil, fmt.Errorf("invalid secp256k1 private key size: expected 32, got %d", len(data))
		}
		privKey := secp256k1.PrivKeyFromBytes(data)
		return &secp256k1PrivateKey{key: privKey}, nil

	case AlgorithmSecp256r1:
		if len(data) != 32 {
			return nil, fmt.Errorf("invalid secp256r1 private key size: expected 32, got %d", len(data))
		}
		d := new(big.Int).SetBytes(data)
		curve := elliptic.P256()
		x, y := curve.ScalarBaseMult(data)
		privKey := &ecdsa.PrivateKey{
			PublicKey: ecdsa.PublicKey{
				Curve: curve,
				X:     x,
				Y:     y,
			},
			D: d,
		}
		return &secp256r1PrivateKey{key: privKey}, nil

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}

// PublicKeyFromBytes creates a public key from its 33-byte compressed form.
func PublicKeyFromBytes(algo Algorithm, data []byte) (PublicKey, error) {
	switch algo {
	case AlgorithmSecp256k1:
		if len(data) != 33 {
			return nil, fmt.Errorf("invalid secp256k1 public key size: expected 33 (compressed), got %d", len(data))
		}
		pubKey, err := secp256k1.ParsePubKey(data)
		if err != nil {
			return nil, fmt.Errorf("invalid secp256k1 public key: %w", err)
		}
		return &secp256k1PublicKey{key: pubKey}, nil

	case AlgorithmSecp256r1:
		if len(data) != 33 {
			return nil, fmt.Errorf("invalid secp256r1 public key size: expected 33 (compressed), got %d", len(data))
		}
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), data)
		if x == nil {
			return nil, fmt.Errorf("invalid secp256r1 public key: failed to decompress")
		}
		pubKey := &ecdsa.PublicKey{
			Curve: elliptic.P256(),
			X:     x,
			Y:     y,
		}
		return &secp256r1PublicKey{key: pubKey}, nil

	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", algo)
	}
}
