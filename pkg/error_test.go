package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsDistinct(t *testing.T) {
	all := []error{
		ErrNoMemory,
		ErrNotFound,
		ErrNotConfigured,
		ErrInvalidEndpoint,
		ErrDescriptorTooShort,
		ErrDescriptorTypeMismatch,
		ErrInvalidParameter,
	}
	for i, a := range all {
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Errorf("%v matches %v", a, b)
			}
		}
	}
}

func TestErrorsWrap(t *testing.T) {
	err := fmt.Errorf("interface block 2: %w", ErrDescriptorTooShort)
	if !errors.Is(err, ErrDescriptorTooShort) {
		t.Errorf("wrapped error lost its sentinel: %v", err)
	}
	if errors.Is(err, ErrNoMemory) {
		t.Errorf("wrapped error matches unrelated sentinel: %v", err)
	}
}
