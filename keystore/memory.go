package keystore

import (
	"sync"
)

// MemoryKeyStore implements KeyStore with in-memory storage.
// Thread-safe via RWMutex. Keys are held in plaintext, so this backend is
// suitable for tests and ephemeral use only.
//
// Performance characteristics:
//   - Store/Load/Delete/Has: O(1) average
//   - List: O(n)
type MemoryKeyStore struct {
	mu     sync.RWMutex
	keys   map[string]StoredKey
	closed bool
}

// NewMemoryKeyStore creates a new in-memory key store.
// Complexity: O(1).
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{
		keys: make(map[string]StoredKey, 16),
	}
}

// Store saves a key to the store.
// Returns ErrInvalidName if name fails validation.
// Returns ErrNameMismatch if name != key.Name after normalization.
// Returns ErrExists if a key with the same name already exists.
// Returns ErrClosed if the store has been closed.
func (m *MemoryKeyStore) Store(name string, key StoredKey) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}
	key.Name = NormalizeKeyName(key.Name)
	if err := key.validate(name); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if _, exists := m.keys[name]; exists {
		return ErrExists
	}

	// Deep copy to prevent external mutation.
	m.keys[name] = key.clone()
	return nil
}

// Load retrieves a key from the store.
// Returns a copy; callers should Wipe it when done.
// Returns ErrNotFound if no key exists with the given name.
// Returns ErrClosed if the store has been closed.
func (m *MemoryKeyStore) Load(name string) (StoredKey, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return StoredKey{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return StoredKey{}, ErrClosed
	}

	key, exists := m.keys[name]
	if !exists {
		return StoredKey{}, ErrNotFound
	}

	return key.clone(), nil
}

// Delete removes a key from the store, wiping its material first.
// Returns ErrNotFound if no key exists with the given name.
// Returns ErrClosed if the store has been closed.
func (m *MemoryKeyStore) Delete(name string) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	key, exists := m.keys[name]
	if !exists {
		return ErrNotFound
	}

	// key is a copy of the map value, but Wipe zeroes the underlying byte
	// arrays, which are shared with the map entry.
	key.Wipe()
	delete(m.keys, name)
	return nil
}

// List returns all key names in the store.
// Returns ErrClosed if the store has been closed.
func (m *MemoryKeyStore) List() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrClosed
	}

	names := make([]string, 0, len(m.keys))
	for name := range m.keys {
		names = append(names, name)
	}
	return names, nil
}

// Has returns true if a key exists in the store.
// Returns ErrClosed if the store has been closed.
func (m *MemoryKeyStore) Has(name string) (bool, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, ErrClosed
	}

	_, exists := m.keys[name]
	return exists, nil
}

// Len returns the number of keys in the store, or 0 if closed.
// Useful for monitoring and testing.
func (m *MemoryKeyStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0
	}
	return len(m.keys)
}

// Close marks the store as closed and wipes all stored keys.
// Safe to call multiple times; subsequent calls are no-ops.
func (m *MemoryKeyStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, key := range m.keys {
		key.Wipe()
	}
	m.keys = nil

	return nil
}

// Verify MemoryKeyStore implements the KeyStore interface.
var _ KeyStore = (*MemoryKeyStore)(nil)
