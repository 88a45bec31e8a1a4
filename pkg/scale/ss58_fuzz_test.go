package scale

import (
	"testing"
)

func FuzzDecodeSS58(f *testing.F) {
	f.Add(aliceSS58)
	f.Add("")
	f.Add("1111111111111111111111111111111111")

	f.Fuzz(func(t *testing.T, addr string) {
		id, format, err := DecodeSS58(addr)
		if err != nil {
			return
		}
		if len(id) != AccountIDLen {
			t.Fatalf("decoded id has %d bytes", len(id))
		}
		if _, err := EncodeSS58(id, format); err != nil && format != 46 && format != 47 {
			t.Fatalf("re-encode failed for format %d: %v", format, err)
		}
	})
}
