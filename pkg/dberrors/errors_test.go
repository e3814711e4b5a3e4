package dberrors

import (
	"errors"
	"testing"
)

func TestCustomErrorWrapsCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := CustomError([]byte("mykey"), cause)
	if !errors.Is(err, cause) {
		t.Fatalf("CustomError should wrap its cause for errors.Is")
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrClosed, ErrInvalidArgument, ErrCompactionRunning, ErrConfig, ErrEmptyKey, ErrDecode, ErrVarDecode, ErrEOF}
	for i := range sentinels {
		for j := range sentinels {
			if i == j {
				continue
			}
			if errors.Is(sentinels[i], sentinels[j]) {
				t.Fatalf("sentinel %d unexpectedly matches sentinel %d", i, j)
			}
		}
	}
}
