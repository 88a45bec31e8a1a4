package testkit

import (
	"errors"
	"io"
)

// ErrInjectedFault is returned by fault helpers when no error is supplied.
var ErrInjectedFault = errors.New("testkit: injected fault")

// ErrorReader passes through the first limit bytes of a stream and then
// fails, simulating a snapshot download that dies mid-transfer.
type ErrorReader struct {
	r         io.Reader
	remaining int64
	err       error
}

// NewErrorReader fails with err (ErrInjectedFault when nil) after limit bytes.
func NewErrorReader(r io.Reader, limit int64, err error) *ErrorReader {
	if err == nil {
		err = ErrInjectedFault
	}
	return &ErrorReader{r: io.LimitReader(r, limit), remaining: limit, err: err}
}

func (e *ErrorReader) Read(p []byte) (int, error) {
	if e.remaining <= 0 {
		return 0, e.err
	}
	n, err := e.r.Read(p)
	e.remaining -= int64(n)
	if err == io.EOF {
		// the source ran dry before the limit; keep its EOF
		return n, err
	}
	if err == nil && e.remaining <= 0 {
		err = e.err
	}
	return n, err
}

// FailAfter returns a scan callback that fails on its n+1th call.
func FailAfter[K any, V any](n int, err error) func(K, V) error {
	if err == nil {
		err = ErrInjectedFault
	}
	calls := 0
	return func(K, V) error {
		calls++
		if calls > n {
			return err
		}
		return nil
	}
}
