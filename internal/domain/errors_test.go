package domain

import (
	"errors"
	"testing"
)

func TestInvalidFileError_Is(t *testing.T) {
	err := NewInvalidFile("/tmp/missing.json")
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected errors.Is(ErrInvalidState), got %v", err)
	}

	var fe *InvalidFileError
	if !errors.As(err, &fe) {
		t.Fatal("expected errors.As(*InvalidFileError)")
	}
	if fe.Path != "/tmp/missing.json" {
		t.Errorf("path = %q, want %q", fe.Path, "/tmp/missing.json")
	}
}

func TestUnknownErrors_Unwrap(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{
			name: "document",
			err:  &UnknownDocumentError{Index: "ads", Type: "car", ID: 7},
			msg:  "ads/car/7 is not in the mirror: invalid local state or input",
		},
		{
			name: "type",
			err:  &UnknownTypeError{Index: "ads", Type: "car"},
			msg:  "ads/car has no documents in the mirror: invalid local state or input",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.err, ErrInvalidState) {
				t.Errorf("expected errors.Is(ErrInvalidState)")
			}
			if tc.err.Error() != tc.msg {
				t.Errorf("message = %q, want %q", tc.err.Error(), tc.msg)
			}
		})
	}
}
