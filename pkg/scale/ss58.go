package scale

import (
	"bytes"
	"fmt"

	"github.com/agenthands/statekeys/pkg/core"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

const (
	// AccountIDLen is the size of a 32-byte public key account id.
	AccountIDLen = 32

	// SubstrateFormat is the generic address format (the "5..." addresses).
	SubstrateFormat uint16 = 42

	maxFormat = 1<<14 - 1
)

var ss58Pre = []byte("SS58PRE")

// DecodeSS58 parses an SS58 address holding a 32-byte account id and returns
// the id with its address format.
func DecodeSS58(address string) ([]byte, uint16, error) {
	data, err := base58.Decode(address)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: ss58: %v", core.ErrInvalidInput, err)
	}
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("%w: ss58: empty address", core.ErrInvalidInput)
	}

	var format uint16
	var prefixLen int
	if data[0] < 64 {
		format, prefixLen = uint16(data[0]), 1
	} else if data[0] < 128 {
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("%w: ss58: truncated prefix", core.ErrInvalidInput)
		}
		lower := (data[0] << 2) | (data[1] >> 6)
		upper := data[1] & 0x3f
		format, prefixLen = uint16(lower)|uint16(upper)<<8, 2
	} else {
		return nil, 0, fmt.Errorf("%w: ss58: invalid prefix byte %d", core.ErrInvalidInput, data[0])
	}

	if len(data) != prefixLen+AccountIDLen+2 {
		return nil, 0, fmt.Errorf("%w: ss58: unexpected length %d", core.ErrInvalidInput, len(data))
	}

	body := data[:prefixLen+AccountIDLen]
	if !bytes.Equal(data[len(body):], ss58Checksum(body)) {
		return nil, 0, fmt.Errorf("%w: ss58: checksum mismatch", core.ErrInvalidInput)
	}

	id := make([]byte, AccountIDLen)
	copy(id, body[prefixLen:])
	return id, format, nil
}

// EncodeSS58 renders a 32-byte account id under the given address format.
func EncodeSS58(id []byte, format uint16) (string, error) {
	if len(id) != AccountIDLen {
		return "", fmt.Errorf("%w: ss58: account id must be %d bytes", core.ErrInvalidInput, AccountIDLen)
	}
	if format > maxFormat || format == 46 || format == 47 {
		return "", fmt.Errorf("%w: ss58: unsupported format %d", core.ErrInvalidInput, format)
	}

	var body []byte
	if format < 64 {
		body = []byte{byte(format)}
	} else {
		body = []byte{
			byte((format&0xfc)>>2) | 0x40,
			byte(format>>8) | byte(format&0x03)<<6,
		}
	}
	body = append(body, id...)
	return base58.Encode(append(body, ss58Checksum(body)...)), nil
}

// AccountID decodes an SS58 address into the encoded form of an AccountId32
// storage argument, which is the raw 32 bytes.
func AccountID(address string) ([]byte, error) {
	id, _, err := DecodeSS58(address)
	return id, err
}

func ss58Checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Pre)
	h.Write(body)
	return h.Sum(nil)[:2]
}
