package keystore

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newKeychainStoreOrSkip skips the test when no OS keychain is available,
// which is the normal case on CI and headless machines.
func newKeychainStoreOrSkip(t *testing.T) *KeychainStore {
	t.Helper()

	service := fmt.Sprintf("rfc6979-keystore-test-%d", time.Now().UnixNano())
	ks, err := NewKeychainStore(service)
	if errors.Is(err, ErrKeychainUnavailable) {
		t.Skipf("OS keychain unavailable: %v", err)
	}
	require.NoError(t, err)
	return ks
}

func TestKeychainStoreConstruction(t *testing.T) {
	_, err := NewKeychainStore("")
	assert.ErrorIs(t, err, ErrStoreIO)
}

func TestKeychainStore(t *testing.T) {
	ks := newKeychainStoreOrSkip(t)

	key := newTestKey(t, "kc-roundtrip")
	require.NoError(t, ks.Store("kc-roundtrip", key))
	defer func() {
		_ = ks.Delete("kc-roundtrip")
	}()

	loaded, err := ks.Load("kc-roundtrip")
	require.NoError(t, err)
	assert.Equal(t, key.Algorithm, loaded.Algorithm)
	assert.Equal(t, key.PubKey, loaded.PubKey)
	assert.Equal(t, key.PrivKeyData, loaded.PrivKeyData)

	names, err := ks.List()
	require.NoError(t, err)
	assert.Contains(t, names, "kc-roundtrip")

	has, err := ks.Has("kc-roundtrip")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, ks.Delete("kc-roundtrip"))

	names, err = ks.List()
	require.NoError(t, err)
	assert.NotContains(t, names, "kc-roundtrip")

	require.NoError(t, ks.Close())
	assert.ErrorIs(t, ks.Store("x", newTestKey(t, "x")), ErrClosed)
}
