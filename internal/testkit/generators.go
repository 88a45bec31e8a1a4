package testkit

import (
	"math/rand"
	"strings"
)

// RNG returns a deterministic source for the given seed.
func RNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// RandomBytes fills n bytes from r. Used for account ids and opaque values.
func RandomBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

const identAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_"

// RandomIdentifier returns a pallet or item style name of n characters.
func RandomIdentifier(r *rand.Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(identAlphabet[r.Intn(len(identAlphabet))])
	}
	return sb.String()
}

// CompressibleBytes returns n bytes of a repeated event-log-like record with
// sparse noise, so zstd envelopes actually shrink.
func CompressibleBytes(r *rand.Rand, n int) []byte {
	record := []byte("Balances.Transfer{from,to,amount} ")
	b := make([]byte, n)
	for i := range b {
		b[i] = record[i%len(record)]
	}
	for i := 0; i < n/1024; i++ {
		b[r.Intn(n)] = byte(r.Intn(256))
	}
	return b
}
