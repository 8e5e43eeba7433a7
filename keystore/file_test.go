package keystore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFileKeyStoreConstruction checks parameter validation.
func TestFileKeyStoreConstruction(t *testing.T) {
	_, err := NewFileKeyStore("", "password", nil)
	assert.ErrorIs(t, err, ErrStoreIO)

	_, err = NewFileKeyStore(t.TempDir(), "", nil)
	assert.ErrorIs(t, err, ErrStoreIO)

	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))
	_, err = NewFileKeyStore(file, "password", nil)
	assert.Error(t, err)
}

// TestFileKeyStorePersistence verifies keys survive store re-open with the
// same password.
func TestFileKeyStorePersistence(t *testing.T) {
	dir := t.TempDir()

	ks1, err := NewFileKeyStore(dir, "password", nil)
	require.NoError(t, err)

	key := newTestKey(t, "persistent")
	require.NoError(t, ks1.Store("persistent", key))
	require.NoError(t, ks1.Close())

	ks2, err := NewFileKeyStore(dir, "password", nil)
	require.NoError(t, err)
	defer ks2.Close()

	loaded, err := ks2.Load("persistent")
	require.NoError(t, err)
	assert.Equal(t, key.PrivKeyData, loaded.PrivKeyData)
	assert.Equal(t, key.PubKey, loaded.PubKey)
}

// TestFileKeyStoreWrongPassword verifies a wrong password fails decryption
// with ErrInvalidPassword rather than returning garbage.
func TestFileKeyStoreWrongPassword(t *testing.T) {
	dir := t.TempDir()

	ks1, err := NewFileKeyStore(dir, "correct-password", nil)
	require.NoError(t, err)
	require.NoError(t, ks1.Store("secret", newTestKey(t, "secret")))
	require.NoError(t, ks1.Close())

	ks2, err := NewFileKeyStore(dir, "wrong-password", nil)
	require.NoError(t, err)
	defer ks2.Close()

	_, err = ks2.Load("secret")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

// TestFileKeyStoreTamperDetection verifies GCM authentication catches
// modified ciphertext and entries renamed to another key's file.
func TestFileKeyStoreTamperDetection(t *testing.T) {
	dir := t.TempDir()

	ks, err := NewFileKeyStore(dir, "password", nil)
	require.NoError(t, err)
	defer ks.Close()

	require.NoError(t, ks.Store("victim", newTestKey(t, "victim")))

	path := filepath.Join(dir, "victim"+keyFileExtension)

	t.Run("ciphertext flipped", func(t *testing.T) {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		var data fileKeyData
		require.NoError(t, json.Unmarshal(raw, &data))

		// Flip one base64 character of the ciphertext.
		b := []byte(data.PrivKeyData)
		if b[0] == 'A' {
			b[0] = 'B'
		} else {
			b[0] = 'A'
		}
		data.PrivKeyData = string(b)

		tampered, err := json.Marshal(data)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, tampered, 0600))

		_, err = ks.Load("victim")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})

	t.Run("entry copied to another name", func(t *testing.T) {
		// The key name is GCM additional data, so a file copied to a new
		// name must fail authentication.
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "impostor"+keyFileExtension), raw, 0600))

		_, err = ks.Load("impostor")
		assert.ErrorIs(t, err, ErrInvalidPassword)
	})
}

// TestFileKeyStorePermissions verifies restrictive file modes on disk.
func TestFileKeyStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits not meaningful on windows")
	}

	dir := filepath.Join(t.TempDir(), "keys")
	ks, err := NewFileKeyStore(dir, "password", nil)
	require.NoError(t, err)
	defer ks.Close()

	require.NoError(t, ks.Store("perms", newTestKey(t, "perms")))

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyDirPermissions), dirInfo.Mode().Perm())

	fileInfo, err := os.Stat(filepath.Join(dir, "perms"+keyFileExtension))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(keyFilePermissions), fileInfo.Mode().Perm())
}
