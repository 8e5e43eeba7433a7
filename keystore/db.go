package keystore

import (
	"encoding/json"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	dbm "github.com/cosmos/cosmos-db"

	"github.com/blockberries/rfc6979/signer"
)

// dbKeyPrefix namespaces keystore entries within a shared database.
var dbKeyPrefix = []byte("keystore/")

// DBKeyStore implements KeyStore on top of an embedded key-value database
// (github.com/cosmos/cosmos-db: memdb, goleveldb, pebble, rocksdb backends).
// Entries are stored under a "keystore/" prefix as JSON, in plaintext - use
// this backend when the database deployment itself provides encryption at
// rest, or FileKeyStore otherwise.
//
// Thread-safe via RWMutex. Close releases the store but not the underlying
// database, which remains owned by the caller.
type DBKeyStore struct {
	db     *dbm.PrefixDB
	logger log.Logger
	mu     sync.RWMutex
	closed bool
}

// dbKeyData is the JSON structure stored per entry.
type dbKeyData struct {
	Name        string `json:"name"`
	Algorithm   string `json:"algorithm"`
	PubKey      []byte `json:"pub_key"`
	PrivKeyData []byte `json:"priv_key_data"`
}

// NewDBKeyStore creates a DBKeyStore over db. All entries live under a
// "keystore/" key prefix, so the database can be shared with other users.
// A nil logger defaults to a no-op logger.
func NewDBKeyStore(db dbm.DB, logger log.Logger) (*DBKeyStore, error) {
	if db == nil {
		return nil, fmt.Errorf("%w: database cannot be nil", ErrStoreIO)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	return &DBKeyStore{
		db:     dbm.NewPrefixDB(db, dbKeyPrefix),
		logger: logger.With("module", "keystore"),
	}, nil
}

// Store saves a key to the database.
// Returns ErrExists if a key with the same name already exists.
// Returns ErrClosed if the store has been closed.
func (s *DBKeyStore) Store(name string, key StoredKey) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}
	key.Name = NormalizeKeyName(key.Name)
	if err := key.validate(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	exists, err := s.db.Has([]byte(name))
	if err != nil {
		return fmt.Errorf("%w: failed to check existing key: %v", ErrStoreIO, err)
	}
	if exists {
		return ErrExists
	}

	data, err := json.Marshal(dbKeyData{
		Name:        name,
		Algorithm:   string(key.Algorithm),
		PubKey:      key.PubKey,
		PrivKeyData: key.PrivKeyData,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to marshal key data: %v", ErrStoreIO, err)
	}

	if err := s.db.SetSync([]byte(name), data); err != nil {
		return fmt.Errorf("%w: failed to write key: %v", ErrStoreIO, err)
	}

	s.logger.Debug("stored key", "name", name, "algorithm", key.Algorithm)
	return nil
}

// Load retrieves a key from the database.
// Returns ErrNotFound if no key exists with the given name.
// Returns ErrClosed if the store has been closed.
func (s *DBKeyStore) Load(name string) (StoredKey, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return StoredKey{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return StoredKey{}, ErrClosed
	}

	value, err := s.db.Get([]byte(name))
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: failed to read key: %v", ErrStoreIO, err)
	}
	if value == nil {
		return StoredKey{}, ErrNotFound
	}

	var data dbKeyData
	if err := json.Unmarshal(value, &data); err != nil {
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

// Delete removes a key from the database.
// Returns ErrNotFound if no key exists with the given name.
// Returns ErrClosed if the store has been closed.
func (s *DBKeyStore) Delete(name string) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	exists, err := s.db.Has([]byte(name))
	if err != nil {
		return fmt.Errorf("%w: failed to check existing key: %v", ErrStoreIO, err)
	}
	if !exists {
		return ErrNotFound
	}

	if err := s.db.DeleteSync([]byte(name)); err != nil {
		return fmt.Errorf("%w: failed to delete key: %v", ErrStoreIO, err)
	}

	s.logger.Debug("deleted key", "name", name)
	return nil
}

// List returns all key names in the store.
// Returns ErrClosed if the store has been closed.
func (s *DBKeyStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	itr, err := s.db.Iterator(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create iterator: %v", ErrStoreIO, err)
	}
	defer itr.Close()

	var names []string
	for ; itr.Valid(); itr.Next() {
		names = append(names, string(itr.Key()))
	}
	if err := itr.Error(); err != nil {
		return nil, fmt.Errorf("%w: iteration failed: %v", ErrStoreIO, err)
	}

	return names, nil
}

// Has returns true if a key exists in the store.
// Returns ErrClosed if the store has been closed.
func (s *DBKeyStore) Has(name string) (bool, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}

	exists, err := s.db.Has([]byte(name))
	if err != nil {
		return false, fmt.Errorf("%w: failed to check key: %v", ErrStoreIO, err)
	}
	return exists, nil
}

// Close marks the store as closed. The underlying database is not closed;
// the caller owns it.
// Safe to call multiple times; subsequent calls are no-ops.
func (s *DBKeyStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// Verify DBKeyStore implements the KeyStore interface.
var _ KeyStore = (*DBKeyStore)(nil)
