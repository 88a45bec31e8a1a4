package hasher

import (
	"encoding/binary"
	"fmt"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/blake2b"
)

// Kind identifies how a storage map argument is hashed before it is appended
// to a key. Values follow the tag order of on-chain storage metadata.
type Kind uint8

const (
	Blake2_128 Kind = iota
	Blake2_256
	Blake2_128Concat
	Twox128
	Twox256
	Twox64Concat
	Identity
)

var kindNames = [...]string{
	Blake2_128:       "Blake2_128",
	Blake2_256:       "Blake2_256",
	Blake2_128Concat: "Blake2_128Concat",
	Twox128:          "Twox128",
	Twox256:          "Twox256",
	Twox64Concat:     "Twox64Concat",
	Identity:         "Identity",
}

// Valid reports whether k is one of the known hasher kinds.
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind maps a metadata hasher name to its Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", core.ErrUnknownHasherKind, name)
}

// DigestLen is the number of hash bytes the kind emits before any raw suffix.
func (k Kind) DigestLen() int {
	switch k {
	case Blake2_128, Blake2_128Concat, Twox128:
		return 16
	case Blake2_256, Twox256:
		return 32
	case Twox64Concat:
		return 8
	default:
		return 0
	}
}

// Transparent reports whether the raw argument can be read back from the hashed output.
func (k Kind) Transparent() bool {
	return k == Blake2_128Concat || k == Twox64Concat || k == Identity
}

// Hash applies the kind to data and returns a new slice.
func (k Kind) Hash(data []byte) ([]byte, error) {
	switch k {
	case Blake2_128:
		return Blake2_128Sum(data), nil
	case Blake2_256:
		return Blake2_256Sum(data), nil
	case Blake2_128Concat:
		return append(Blake2_128Sum(data), data...), nil
	case Twox128:
		return Twox128Sum(data), nil
	case Twox256:
		return Twox256Sum(data), nil
	case Twox64Concat:
		return append(Twox64Sum(data), data...), nil
	case Identity:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", core.ErrUnknownHasherKind, uint8(k))
	}
}

// Twox hashes data with bits/64 xxh64 lanes seeded 0, 1, 2... and
// concatenates the lanes little-endian.
func Twox(data []byte, bits int) ([]byte, error) {
	if bits <= 0 || bits%64 != 0 {
		return nil, fmt.Errorf("%w: %d bits", core.ErrInvalidWidth, bits)
	}
	return twox(data, bits/64), nil
}

func twox(data []byte, lanes int) []byte {
	out := make([]byte, 8*lanes)
	for i := 0; i < lanes; i++ {
		d := xxhash.NewWithSeed(uint64(i))
		_, _ = d.Write(data)
		binary.LittleEndian.PutUint64(out[8*i:], d.Sum64())
	}
	return out
}

func Twox64Sum(data []byte) []byte  { return twox(data, 1) }
func Twox128Sum(data []byte) []byte { return twox(data, 2) }
func Twox256Sum(data []byte) []byte { return twox(data, 4) }

func Blake2_128Sum(data []byte) []byte {
	h, _ := blake2b.New(16, nil) // only fails for bad size or key
	h.Write(data)
	return h.Sum(nil)
}

func Blake2_256Sum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}
