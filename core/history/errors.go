package history

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable matches every *StoreUnavailableError.
var ErrStoreUnavailable = errors.New("history store unavailable")

// StoreUnavailableError reports backing storage that is missing or corrupt.
type StoreUnavailableError struct {
	Source string
	Err    error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("history store %s unavailable: %v", e.Source, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) hold.
func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }
