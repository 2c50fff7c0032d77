package postal

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that the lookup service answered but knows no address
// for the zipcode.
var ErrNotFound = errors.New("postal: address not found")

// LookupError wraps transport, HTTP and decoding failures.
type LookupError struct {
	Zipcode    string
	StatusCode int
	Err        error
}

func (e *LookupError) Error() string {
	if e == nil {
		return "postal: lookup failed"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("postal: lookup %s: http status %d", e.Zipcode, e.StatusCode)
	}
	return fmt.Sprintf("postal: lookup %s: %v", e.Zipcode, e.Err)
}

func (e *LookupError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
