package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"ok":             OK,
		"busy":           Busy,
		"invalid_params": InvalidParams,
		"transfer_error": TransferError,
		"unsupported":    Unsupported,
		"timeout":        Timeout,
		"unknown_bus":    UnknownBus,
		"unknown_pin":    UnknownPin,
		"error":          Error,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOfAndStatus(t *testing.T) {
	cause := errors.New("nack")
	cases := []struct {
		name   string
		err    error
		code   Code
		status Status
	}{
		{"nil", nil, OK, Success},
		{"busy", Busy, Busy, StatusBusy},
		{"wrapped busy", fmt.Errorf("write: %w", Busy), Busy, StatusBusy},
		{"E transfer", Wrap(TransferError, "read", cause), TransferError, Failure},
		{"E invalid", &E{C: InvalidParams, Op: "init"}, InvalidParams, Failure},
		{"foreign", cause, Error, Failure},
	}
	for _, tc := range cases {
		if got := Of(tc.err); got != tc.code {
			t.Fatalf("%s: Of=%q want %q", tc.name, got, tc.code)
		}
		if got := StatusOf(tc.err); got != tc.status {
			t.Fatalf("%s: StatusOf=%v want %v", tc.name, got, tc.status)
		}
	}
}

func TestEUnwrapAndIs(t *testing.T) {
	cause := errors.New("nack")
	err := Wrap(TransferError, "write", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable through Unwrap")
	}
	if !errors.Is(err, TransferError) {
		t.Fatal("errors.Is should match the code")
	}
	if errors.Is(err, Busy) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if got, want := err.Error(), "write: transfer_error: nack"; got != want {
		t.Fatalf("Error()=%q want %q", got, want)
	}
}

func TestStatusString(t *testing.T) {
	if Success.String() != "success" || Failure.String() != "failure" || StatusBusy.String() != "busy" {
		t.Fatal("unexpected status strings")
	}
}
