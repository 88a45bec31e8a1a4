package hasher

import (
	"testing"
)

func BenchmarkTwox128(b *testing.B) {
	data := []byte("TemplateModule")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = Twox128Sum(data)
	}
}

func BenchmarkBlake2_128Concat(b *testing.B) {
	data := make([]byte, 32)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Blake2_128Concat.Hash(data)
	}
}
