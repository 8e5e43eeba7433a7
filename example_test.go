package rfc6979_test

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/blockberries/rfc6979"
)

// Derive the deterministic nonce for a known private key and message. The
// output is reproducible on any RFC 6979 implementation.
func ExampleGenerator() {
	privateKey, _ := hex.DecodeString(
		"0000000000000000000000000000000000000000000000000000000000000001")
	digest := sha256.Sum256([]byte("Satoshi Nakamoto"))

	gen, err := rfc6979.New(privateKey, digest[:])
	if err != nil {
		panic(err)
	}
	defer gen.Zeroize()

	k := gen.Next()
	fmt.Println(hex.EncodeToString(k[:]))
	// Output:
	// 8f8a276c19f4149656b280621e358cce24f5f52542772691ee69063b74f15d15
}
