package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"golang.org/x/crypto/pbkdf2"

	"github.com/blockberries/rfc6979/signer"
)

const (
	// PBKDF2 parameters. 100,000 iterations is the floor for password-based
	// key derivation with SHA-256.
	pbkdf2Iterations = 100_000
	pbkdf2KeyLen     = 32 // AES-256
	saltLen          = 16

	// AES-GCM parameters.
	aesGCMNonceLen = 12 // 96-bit nonce, the recommended GCM size

	keyFileExtension = ".key"

	// Restrictive permissions: owner read/write only.
	keyFilePermissions = 0600
	keyDirPermissions  = 0700
)

// FileKeyStore implements KeyStore with encrypted per-key files.
// Private key material is encrypted with AES-256-GCM under a PBKDF2-derived
// key; each entry gets a fresh salt and nonce, and the key name is bound as
// GCM additional data so entries cannot be swapped between files.
// Thread-safe via RWMutex.
type FileKeyStore struct {
	dir      string
	password []byte
	logger   log.Logger
	mu       sync.RWMutex
	closed   bool
}

// fileKeyData is the JSON structure stored on disk.
type fileKeyData struct {
	Name        string `json:"name"`
	Algorithm   string `json:"algorithm"`
	PubKey      string `json:"pub_key"`       // base64
	PrivKeyData string `json:"priv_key_data"` // base64, encrypted
	Salt        string `json:"salt"`          // base64
	Nonce       string `json:"nonce"`         // base64
}

// NewFileKeyStore creates a FileKeyStore rooted at dir. The password derives
// the per-entry encryption keys via PBKDF2 and is held in memory for the
// lifetime of the store. A nil logger defaults to a no-op logger.
//
// The directory is created with mode 0700 if missing; key files are written
// with mode 0600.
func NewFileKeyStore(dir, password string, logger log.Logger) (*FileKeyStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: directory path is empty", ErrStoreIO)
	}
	if password == "" {
		return nil, fmt.Errorf("%w: password cannot be empty", ErrStoreIO)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	if err := os.MkdirAll(dir, keyDirPermissions); err != nil {
		return nil, fmt.Errorf("%w: failed to create directory: %v", ErrStoreIO, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat directory: %v", ErrStoreIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: path is not a directory", ErrStoreIO)
	}

	return &FileKeyStore{
		dir:      dir,
		password: []byte(password),
		logger:   logger.With("module", "keystore", "dir", dir),
	}, nil
}

// Store encrypts and saves a key to disk.
// Returns ErrExists if a key file with the same name already exists.
// Returns ErrClosed if the store has been closed.
func (fs *FileKeyStore) Store(name string, key StoredKey) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}
	key.Name = NormalizeKeyName(key.Name)
	if err := key.validate(name); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	filePath := fs.keyFilePath(name)

	if _, err := os.Stat(filePath); err == nil {
		return ErrExists
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("%w: failed to generate salt: %v", ErrStoreIO, err)
	}

	nonce := make([]byte, aesGCMNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("%w: failed to generate nonce: %v", ErrStoreIO, err)
	}

	derivedKey := pbkdf2.Key(fs.password, salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	defer signer.Zeroize(derivedKey)

	ciphertext, err := encryptAESGCM(derivedKey, nonce, key.PrivKeyData, []byte(name))
	if err != nil {
		return fmt.Errorf("%w: encryption failed: %v", ErrStoreIO, err)
	}

	data := fileKeyData{
		Name:        name,
		Algorithm:   string(key.Algorithm),
		PubKey:      base64.StdEncoding.EncodeToString(key.PubKey),
		PrivKeyData: base64.StdEncoding.EncodeToString(ciphertext),
		Salt:        base64.StdEncoding.EncodeToString(salt),
		Nonce:       base64.StdEncoding.EncodeToString(nonce),
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal key data: %v", ErrStoreIO, err)
	}

	if err := os.WriteFile(filePath, jsonData, keyFilePermissions); err != nil {
		return fmt.Errorf("%w: failed to write key file: %v", ErrStoreIO, err)
	}

	fs.logger.Debug("stored key", "name", name, "algorithm", key.Algorithm)
	return nil
}

// Load reads and decrypts a key from disk.
// Returns ErrNotFound if no key file exists for name.
// Returns ErrInvalidPassword if decryption fails (wrong password or
// tampered file).
// Returns ErrClosed if the store has been closed.
func (fs *FileKeyStore) Load(name string) (StoredKey, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return StoredKey{}, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return StoredKey{}, ErrClosed
	}

	jsonData, err := os.ReadFile(fs.keyFilePath(name))
	if os.IsNotExist(err) {
		return StoredKey{}, ErrNotFound
	}
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: failed to read key file: %v", ErrStoreIO, err)
	}

	var data fileKeyData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return StoredKey{}, fmt.Errorf("%w: failed to parse key file: %v", ErrStoreIO, err)
	}

	pubKey, err := base64.StdEncoding.DecodeString(data.PubKey)
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: invalid public key encoding: %v", ErrStoreIO, err)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(data.PrivKeyData)
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: invalid private key encoding: %v", ErrStoreIO, err)
	}

	salt, err := base64.StdEncoding.DecodeString(data.Salt)
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: invalid salt encoding: %v", ErrStoreIO, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(data.Nonce)
	if err != nil {
		return StoredKey{}, fmt.Errorf("%w: invalid nonce encoding: %v", ErrStoreIO, err)
	}

	derivedKey := pbkdf2.Key(fs.password, salt, pbkdf2Iterations, pbkdf2KeyLen, sha256.New)
	defer signer.Zeroize(derivedKey)

	plaintext, err := decryptAESGCM(derivedKey, nonce, ciphertext, []byte(name))
	if err != nil {
		// Authentication failure means wrong password or tampered data.
		return StoredKey{}, ErrInvalidPassword
	}

	alg := signer.Algorithm(data.Algorithm)
	if !alg.IsValid() {
		return StoredKey{}, fmt.Errorf("%w: unknown algorithm %q", ErrStoreIO, data.Algorithm)
	}

	return StoredKey{
		Name:        data.Name,
		Algorithm:   alg,
		PubKey:      pubKey,
		PrivKeyData: plaintext,
	}, nil
}

// Delete removes a key file from disk.
// Returns ErrNotFound if no key file exists for name.
// Returns ErrClosed if the store has been closed.
func (fs *FileKeyStore) Delete(name string) error {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return ErrClosed
	}

	filePath := fs.keyFilePath(name)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return ErrNotFound
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("%w: failed to delete key file: %v", ErrStoreIO, err)
	}

	fs.logger.Debug("deleted key", "name", name)
	return nil
}

// List returns all key names in the store.
// Returns ErrClosed if the store has been closed.
func (fs *FileKeyStore) List() ([]string, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return nil, ErrClosed
	}

	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read directory: %v", ErrStoreIO, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, keyFileExtension) {
			names = append(names, strings.TrimSuffix(name, keyFileExtension))
		}
	}

	return names, nil
}

// Has returns true if a key file exists for name.
// Returns ErrClosed if the store has been closed.
func (fs *FileKeyStore) Has(name string) (bool, error) {
	name, err := normalizeAndValidate(name)
	if err != nil {
		return false, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.closed {
		return false, ErrClosed
	}

	_, err = os.Stat(fs.keyFilePath(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: failed to stat key file: %v", ErrStoreIO, err)
	}
	return true, nil
}

// Close marks the store as closed and zeroizes the password.
// Safe to call multiple times; subsequent calls are no-ops.
func (fs *FileKeyStore) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.closed {
		return nil
	}
	fs.closed = true

	signer.Zeroize(fs.password)
	fs.password = nil

	return nil
}

// keyFilePath returns the file path for a given key name.
func (fs *FileKeyStore) keyFilePath(name string) string {
	return filepath.Join(fs.dir, name+keyFileExtension)
}

// encryptAESGCM encrypts plaintext using AES-256-GCM.
// additionalData is authenticated but not encrypted.
func encryptAESGCM(key, nonce, plaintext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return aead.Seal(nil, nonce, plaintext, additionalData), nil
}

// decryptAESGCM decrypts ciphertext using AES-256-GCM.
// Returns an error if authentication fails.
func decryptAESGCM(key, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}

	return plaintext, nil
}

// Verify FileKeyStore implements the KeyStore interface.
var _ KeyStore = (*FileKeyStore)(nil)
