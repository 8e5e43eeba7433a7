package keystore

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"

	"github.com/blockberries/rfc6979/signer"
)

const (
	// keychainKeyPrefix namespaces key entries within the service.
	keychainKeyPrefix = "key:"
	// keychainListKey stores the list of all key names. Keychain APIs have
	// no native enumeration, so an index is maintained for List.
	keychainListKey = "_keylist"
)

// KeychainStore implements KeyStore using the OS keychain:
//   - macOS: Keychain
//   - Windows: Credential Store
//   - Linux: Secret Service (libsecret)
//
// Entries are stored as JSON in plaintext - the keychain provides encryption
// and OS-managed access control, hardware-backed where available.
//
// Thread-safe via RWMutex. Platform size limits (about 2KB on macOS, 2560
// bytes on Windows) comfortably hold 32-byte signing keys.
type KeychainStore struct {
	serviceName string
	mu          sync.RWMutex
	closed      bool
}

// keychainKeyData is the JSON structure stored in the keychain.
type keychainKeyData struct {
	Name        string `json:"name"`
	Algorithm   string `json:"algorithm"`
	PubKey      []byte `json:"pub_key"`
	PrivKeyData []byte `json:"priv_key_data"`
}

// NewKeychainStore creates a KeychainStore. The serviceName identifies this
// application's keys in the keychain.
//
// Returns ErrKeychainUnavailable if the keychain cannot be accessed; on
// Linux this usually means D-Bus or a secret service daemon is missing.
func NewKeychainStore(serviceName string) (*KeychainStore, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("%w: service name cannot be empty", ErrStoreIO)
	}

	// Probe availability with a read; catches missing D-Bus or secret
	// service before the first real operation.
	_, err := keyring.Get(serviceName, keychainListKey)
	if err != nil && err != keyring.ErrNotFound {
		return nil, fmt.Errorf("%w: %v", ErrKeychainUnavailable, err)
	}

	return &KeychainStore{serviceName: serviceName}, nil
}

// Store saves a key to the OS keychain.
// Returns ErrExists if a key with the same name already exists.
// Returns ErrClosed if the store has been closed.
func (ks *KeychainStore) Store(name string, key StoredKey) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}
	key.Name = NormalizeKeyName(key.Name)
	if err := key.validate(name); err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.closed {
		return ErrClosed
	}

	keychainKey := keychainKeyPrefix + name

	_, err = keyring.Get(ks.serviceName, keychainKey)
	if err == nil {
		return ErrExists
	}
	if err != keyring.ErrNotFound {
		return fmt.Errorf("%w: failed to check existing key: %v", ErrStoreIO, err)
	}

	data, err := json.Marshal(keychainKeyData{
		Name:        name,
		Algorithm:   string(key.Algorithm),
		PubKey:      key.PubKey,
		PrivKeyData: key.PrivKeyData,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal key data: %v", ErrStoreIO, err)
	}

	if err := keyring.Set(ks.serviceName, keychainKey, string(data)); err != nil {
		return fmt.Errorf("%w: failed to store key: %v", ErrStoreIO, err)
	}

	if err := ks.addToIndex(name); err != nil {
		// Roll back the entry so the index stays consistent.
		_ = keyring.Delete(ks.serviceName, keychainKey)
		return err
	}

	return nil
}

// Load retrieves a key from the OS keychain.
// Returns ErrNotFound if no key exists with the given name.
// Returns ErrClosed if the store has been closed.
func (ks *KeychainStore) Load(name string) (StoredKey, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return StoredKey{}, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return StoredKey{}, ErrClosed
	}

	value, err := keyring.Get(ks.serviceName, keychainKeyPrefix+name)
	if err == keyring.ErrNotFound {
		return StoredKey{}, ErrNotFound
	}
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: failed to read key: %v", ErrStoreIO, err)
	}

	var data keychainKeyData
	if err := json.Unmarshal([]byte(value), &data); err != nil {
		return StoredKey{}, fmt.Errorf("%w: failed to parse key data: %v", ErrStoreIO, err)
	}

	alg := signer.Algorithm(data.Algorithm)
	if !alg.IsValid() {
		return StoredKey{}, fmt.Errorf("%w: unknown algorithm %q", ErrStoreIO, data.Algorithm)
	}

	return StoredKey{
		Name:        data.Name,
		Algorithm:   alg,
		PubKey:      data.PubKey,
		PrivKeyData: data.PrivKeyData,
	}, nil
}

// Delete removes a key from the OS keychain.
// Returns ErrNotFound if no key exists with the given name.
// Returns ErrClosed if the store has been closed.
func (ks *KeychainStore) Delete(name string) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	if ks.closed {
		return ErrClosed
	}

	err = keyring.Delete(ks.serviceName, keychainKeyPrefix+name)
	if err == keyring.ErrNotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete key: %v", ErrStoreIO, err)
	}

	return ks.removeFromIndex(name)
}

// List returns all key names in the store.
// Returns ErrClosed if the store has been closed.
func (ks *KeychainStore) List() ([]string, error) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return nil, ErrClosed
	}

	return ks.readIndex()
}

// Has returns true if a key exists in the store.
// Returns ErrClosed if the store has been closed.
func (ks *KeychainStore) Has(name string) (bool, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return false, err
	}

	ks.mu.RLock()
	defer ks.mu.RUnlock()

	if ks.closed {
		return false, ErrClosed
	}

	_, err = keyring.Get(ks.serviceName, keychainKeyPrefix+name)
	if err == keyring.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to check key: %v", ErrStoreIO, err)
	}
	return true, nil
}

// Close marks the store as closed. Keys remain in the OS keychain.
// Safe to call multiple times; subsequent calls are no-ops.
func (ks *KeychainStore) Close() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	ks.closed = true
	return nil
}

// readIndex loads the name index. Missing index means no keys.
// Caller must hold at least a read lock.
func (ks *KeychainStore) readIndex() ([]string, error) {
	value, err := keyring.Get(ks.serviceName, keychainListKey)
	if err == keyring.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key index: %v", ErrStoreIO, err)
	}

	var names []string
	if err := json.Unmarshal([]byte(value), &names); err != nil {
		return nil, fmt.Errorf("%w: failed to parse key index: %v", ErrStoreIO, err)
	}
	return names, nil
}

// writeIndex persists the name index. Caller must hold the write lock.
func (ks *KeychainStore) writeIndex(names []string) error {
	data, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal key index: %v", ErrStoreIO, err)
	}
	if err := keyring.Set(ks.serviceName, keychainListKey, string(data)); err != nil {
		return fmt.Errorf("%w: failed to write key index: %v", ErrStoreIO, err)
	}
	return nil
}

func (ks *KeychainStore) addToIndex(name string) error {
	names, err := ks.readIndex()
	if err != nil {
		return err
	}
	return ks.writeIndex(append(names, name))
}

func (ks *KeychainStore) removeFromIndex(name string) error {
	names, err := ks.readIndex()
	if err != nil {
		return err
	}
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return ks.writeIndex(out)
}

// Verify KeychainStore implements the KeyStore interface.
var _ KeyStore = (*KeychainStore)(nil)
