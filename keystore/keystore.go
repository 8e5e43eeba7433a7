// Package keystore provides named, persistent storage for the 32-byte
// signing keys consumed by the signer package. Backends range from an
// in-memory map for tests to password-encrypted files, an embedded database,
// and the OS keychain.
package keystore

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/blockberries/rfc6979/signer"
)

// MaxKeyNameLength is the maximum allowed length for a key name.
// Prevents resource exhaustion and keeps names usable as filenames.
const MaxKeyNameLength = 255

// KeyStore provides persistent storage for named signing keys.
// Implementations must be thread-safe. Implementations that hold resources
// release them in Close; afterwards every operation returns ErrClosed.
type KeyStore interface {
	// Store saves a key under name.
	// Returns ErrExists if a key with the same name already exists.
	Store(name string, key StoredKey) error

	// Load retrieves a key by name, decrypting it if the backend encrypts
	// at rest. The returned copy's PrivKeyData is plaintext; callers should
	// Wipe it when done.
	// Returns ErrNotFound if no key exists with the given name.
	Load(name string) (StoredKey, error)

	// Delete removes a key.
	// Returns ErrNotFound if no key exists with the given name.
	Delete(name string) error

	// List returns all key names, in no particular order.
	List() ([]string, error)

	// Has returns true if a key exists.
	// More efficient than Load when the key data is not needed.
	Has(name string) (bool, error)

	// Close releases backend resources and wipes any key material the
	// store holds in memory. Safe to call multiple times.
	Close() error
}

// StoredKey is a named signing key with metadata.
type StoredKey struct {
	// Name is the unique identifier for this key.
	Name string `json:"name"`

	// Algorithm is the key's signing algorithm.
	Algorithm signer.Algorithm `json:"algorithm"`

	// PubKey is the 33-byte compressed public key.
	PubKey []byte `json:"pub_key"`

	// PrivKeyData is the 32-byte private scalar. Backends that encrypt at
	// rest do so transparently; in process this field is plaintext.
	PrivKeyData []byte `json:"priv_key_data"`
}

// NewStoredKey builds a StoredKey from a private key.
// The private key bytes are copied; the caller keeps ownership of key.
func NewStoredKey(name string, key signer.PrivateKey) StoredKey {
	priv := key.Bytes()
	privCopy := make([]byte, len(priv))
	copy(privCopy, priv)

	return StoredKey{
		Name:        name,
		Algorithm:   key.Algorithm(),
		PubKey:      key.PublicKey().Bytes(),
		PrivKeyData: privCopy,
	}
}

// Wipe overwrites the key's sensitive bytes with zeros.
func (k *StoredKey) Wipe() {
	signer.Zeroize(k.PrivKeyData)
}

// clone creates a deep copy so stored entries cannot be mutated externally.
func (k StoredKey) clone() StoredKey {
	cp := StoredKey{
		Name:      k.Name,
		Algorithm: k.Algorithm,
	}
	if k.PubKey != nil {
		cp.PubKey = make([]byte, len(k.PubKey))
		copy(cp.PubKey, k.PubKey)
	}
	if k.PrivKeyData != nil {
		cp.PrivKeyData = make([]byte, len(k.PrivKeyData))
		copy(cp.PrivKeyData, k.PrivKeyData)
	}
	return cp
}

// validate checks the entry against the name it is being stored under.
func (k *StoredKey) validate(name string) error {
	if name != k.Name {
		return ErrNameMismatch
	}
	if !k.Algorithm.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidAlgorithm, k.Algorithm)
	}
	return nil
}

// NormalizeKeyName returns the NFC-normalized form of a key name. Unicode
// allows the same rendered name to be encoded composed or decomposed (macOS
// file APIs decompose, most input methods compose); normalizing before
// lookup keeps the two encodings from addressing different entries.
func NormalizeKeyName(name string) string {
	return norm.NFC.String(name)
}

// ValidateKeyName checks that a key name is safe across all backends,
// including file-based ones.
func ValidateKeyName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: key name cannot be empty", ErrInvalidName)
	}
	if len(name) > MaxKeyNameLength {
		return fmt.Errorf("%w: key name too long (max %d bytes)", ErrInvalidName, MaxKeyNameLength)
	}

	// Path traversal protection for file-backed stores.
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("%w: key name cannot contain path separators", ErrInvalidName)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: key name cannot contain '..'", ErrInvalidName)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: key name cannot start with '.'", ErrInvalidName)
	}

	for _, r := range name {
		if r < 32 || r == 0x7F {
			return fmt.Errorf("%w: key name contains control characters", ErrInvalidName)
		}
	}

	return nil
}

// normalizeAndValidate is the common entry check used by every backend.
func normalizeAndValidate(name string) (string, error) {
	name = NormalizeKeyName(name)
	if err := ValidateKeyName(name); err != nil {
		return "", err
	}
	return name, nil
}

// LoadSigner loads a key from the store and wraps it as a ready-to-use
// deterministic signer. The intermediate plaintext key material is wiped
// before returning.
func LoadSigner(ks KeyStore, name string) (signer.Signer, error) {
	entry, err := ks.Load(name)
	if err != nil {
		return nil, err
	}
	defer entry.Wipe()

	priv, err := signer.PrivateKeyFromBytes(entry.Algorithm, entry.PrivKeyData)
	if err != nil {
		return nil, fmt.Errorf("stored key %q: %w", name, err)
	}

	return signer.NewSigner(priv), nil
}
