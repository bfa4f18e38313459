package jtest

import (
	"crypto/sha256"
	"math/rand/v2"
	"testing"
)

// RandomPayloadForTest returns sz bytes of pseudorandom payload data.
// The seed is derived from the test name,
// so a failing test reproduces the same payload on every run.
func RandomPayloadForTest(t *testing.T, sz int) []byte {
	t.Helper()

	// The chacha8 seed is exactly one sha256 digest,
	// and hashing means long subtest names still fit.
	seed := sha256.Sum256([]byte(t.Name()))
	chacha := rand.NewChaCha8(seed)

	out := make([]byte, sz)
	if _, err := chacha.Read(out); err != nil {
		panic(err)
	}

	return out
}
