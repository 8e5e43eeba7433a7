package keystore

import "errors"

// KeyStore errors.
var (
	// ErrNotFound is returned when a key is not found in the store.
	ErrNotFound = errors.New("key not found in store")

	// ErrExists is returned when attempting to store a key that already exists.
	ErrExists = errors.New("key already exists in store")

	// ErrStoreIO is returned when an I/O error occurs during store operations.
	ErrStoreIO = errors.New("key store I/O error")

	// ErrInvalidName is returned when a key name fails validation.
	ErrInvalidName = errors.New("invalid key name")

	// ErrNameMismatch is returned when the name parameter differs from StoredKey.Name.
	ErrNameMismatch = errors.New("key name parameter does not match StoredKey.Name")

	// ErrInvalidAlgorithm is returned when an algorithm is not recognized.
	ErrInvalidAlgorithm = errors.New("invalid algorithm")

	// ErrInvalidPassword is returned when decryption fails due to wrong password.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrClosed is returned when operations are attempted on a closed store.
	ErrClosed = errors.New("key store is closed")

	// ErrKeychainUnavailable is returned when the OS keychain cannot be accessed.
	// Common causes:
	//   - Linux: D-Bus not running, or no secret service daemon (gnome-keyring, ksecretservice)
	//   - Headless environments: no GUI session for authentication prompts
	ErrKeychainUnavailable = errors.New("keychain unavailable")
)
