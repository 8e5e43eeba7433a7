package rfc6979

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// TestGeneratorDeterminism verifies that two generators built from the same
// inputs produce identical output sequences.
func TestGeneratorDeterminism(t *testing.T) {
	key := bytes.Repeat([]byte{0xAB}, 32)
	hash := bytes.Repeat([]byte{0xCD}, 32)

	g1, err := New(key, hash)
	require.NoError(t, err)

	g2, err := New(key, hash)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		b1 := g1.Next()
		b2 := g2.Next()
		assert.Equal(t, b1, b2, "block %d must match across instances", i)
	}
}

// TestGeneratorDistinctBlocks verifies consecutive outputs differ.
func TestGeneratorDistinctBlocks(t *testing.T) {
	key := bytes.Repeat([]byte{0x42}, 32)
	hash := bytes.Repeat([]byte{0x24}, 32)

	g, err := New(key, hash)
	require.NoError(t, err)

	prev := g.Next()
	for i := 1; i < 8; i++ {
		next := g.Next()
		assert.NotEqual(t, prev, next, "block %d must differ from block %d", i, i-1)
		prev = next
	}
}

// TestGeneratorInputLengths checks the length validation matrix: both
// arguments are validated independently and only exactly 32 bytes is
// accepted.
func TestGeneratorInputLengths(t *testing.T) {
	valid := make([]byte, 32)

	cases := []struct {
		name    string
		keyLen  int
		hashLen int
		wantErr bool
	}{
		{"both 32", 32, 32, false},
		{"key 31", 31, 32, true},
		{"key 33", 33, 32, true},
		{"key empty", 0, 32, true},
		{"hash empty", 32, 0, true},
		{"hash 64", 32, 64, true},
		{"hash 31", 32, 31, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := New(make([]byte, tc.keyLen), make([]byte, tc.hashLen))
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLength)
				assert.Nil(t, g, "no partially constructed generator on failure")
			} else {
				require.NoError(t, err)
				require.NotNil(t, g)
			}
		})
	}

	t.Run("all-zero inputs accepted", func(t *testing.T) {
		_, err := New(valid, valid)
		require.NoError(t, err)
	})

	t.Run("all-0xFF inputs accepted", func(t *testing.T) {
		ff := bytes.Repeat([]byte{0xFF}, 32)
		_, err := New(ff, ff)
		require.NoError(t, err)
	})
}

// TestGeneratorErrorNamesArgument verifies the error message identifies
// which argument was wrong-length.
func TestGeneratorErrorNamesArgument(t *testing.T) {
	_, err := New(make([]byte, 31), make([]byte, 32))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private key")

	_, err = New(make([]byte, 32), make([]byte, 31))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hash")
}

// TestGeneratorOutputLength verifies every block is exactly 32 bytes no
// matter how many blocks were drawn before it.
func TestGeneratorOutputLength(t *testing.T) {
	g, err := New(make([]byte, 32), make([]byte, 32))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		block := g.Next()
		require.Len(t, block[:], BlockSize)
	}
}

// TestGeneratorKnownVectors checks the first output block against published
// RFC 6979 deterministic-k vectors. The first block equals the derived k
// directly because for 256-bit curve orders and SHA-256 digests the
// bits2octets transform is the identity.
func TestGeneratorKnownVectors(t *testing.T) {
	// RFC 6979 appendix A.2.5: ECDSA over P-256 with SHA-256.
	p256Key := "c9afa9d845ba75166b5c215767b1d6934e50c3db36e89b127b8a622b120f6721"

	t.Run("P-256 sample", func(t *testing.T) {
		hash := sha256.Sum256([]byte("sample"))
		g, err := New(mustHex(t, p256Key), hash[:])
		require.NoError(t, err)

		k := g.Next()
		assert.Equal(t,
			"a6e3c57dd01abe90086538398355dd4c3b17aa873382b0f24d6129493d8aad60",
			hex.EncodeToString(k[:]))
	})

	t.Run("P-256 test", func(t *testing.T) {
		hash := sha256.Sum256([]byte("test"))
		g, err := New(mustHex(t, p256Key), hash[:])
		require.NoError(t, err)

		k := g.Next()
		assert.Equal(t,
			"d16b6ae827f17175e040871a1c7ec3500192c4c92677336ec2537acaee0008e0",
			hex.EncodeToString(k[:]))
	})

	// Widely published secp256k1 vector (RFC 6979 applied with SHA-256):
	// private key 1, message "Satoshi Nakamoto".
	t.Run("secp256k1 Satoshi Nakamoto", func(t *testing.T) {
		key := mustHex(t, "0000000000000000000000000000000000000000000000000000000000000001")
		hash := sha256.Sum256([]byte("Satoshi Nakamoto"))

		g, err := New(key, hash[:])
		require.NoError(t, err)

		k := g.Next()
		assert.Equal(t,
			"8f8a276c19f4149656b280621e358cce24f5f52542772691ee69063b74f15d15",
			hex.EncodeToString(k[:]))
	})
}

// TestGeneratorSensitivity verifies that flipping a single bit of either
// input changes the first output block.
func TestGeneratorSensitivity(t *testing.T) {
	key := bytes.Repeat([]byte{0x5A}, 32)
	hash := bytes.Repeat([]byte{0xA5}, 32)

	base, err := New(key, hash)
	require.NoError(t, err)
	baseline := base.Next()

	t.Run("private key bit", func(t *testing.T) {
		for _, idx := range []int{0, 15, 31} {
			flipped := append([]byte(nil), key...)
			flipped[idx] ^= 0x01

			g, err := New(flipped, hash)
			require.NoError(t, err)
			assert.NotEqual(t, baseline, g.Next(), "flipping key byte %d must change output", idx)
		}
	})

	t.Run("hash bit", func(t *testing.T) {
		for _, idx := range []int{0, 15, 31} {
			flipped := append([]byte(nil), hash...)
			flipped[idx] ^= 0x80

			g, err := New(key, flipped)
			require.NoError(t, err)
			assert.NotEqual(t, baseline, g.Next(), "flipping hash byte %d must change output", idx)
		}
	})
}

// TestNewFromDigest verifies the fixed-size-array constructor matches the
// slice constructor exactly.
func TestNewFromDigest(t *testing.T) {
	var key, hash [BlockSize]byte
	for i := range key {
		key[i] = byte(i)
		hash[i] = byte(255 - i)
	}

	g1 := NewFromDigest(key, hash)

	g2, err := New(key[:], hash[:])
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.Equal(t, g2.Next(), g1.Next())
	}
}

// TestGeneratorZeroize verifies the internal buffers are cleared.
func TestGeneratorZeroize(t *testing.T) {
	g, err := New(bytes.Repeat([]byte{0x11}, 32), bytes.Repeat([]byte{0x22}, 32))
	require.NoError(t, err)

	g.Next()
	g.Zeroize()

	var zero [BlockSize]byte
	assert.Equal(t, zero, g.v)
	assert.Equal(t, zero, g.k)
}

// BenchmarkGeneratorNext measures the per-block cost: three HMAC-SHA256
// invocations.
func BenchmarkGeneratorNext(b *testing.B) {
	g, err := New(make([]byte, 32), make([]byte, 32))
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = g.Next()
	}
}

// BenchmarkGeneratorNew measures construction cost: four HMAC-SHA256
// invocations plus validation.
func BenchmarkGeneratorNew(b *testing.B) {
	key := make([]byte, 32)
	hash := make([]byte, 32)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = New(key, hash)
	}
}
