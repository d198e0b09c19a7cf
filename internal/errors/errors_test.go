package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()

	err := New(CodeAlreadyClaimed, "plan 3 already claimed")
	if !stderrors.Is(err, New(CodeAlreadyClaimed, "other message")) {
		t.Fatal("expected match by code")
	}
	if stderrors.Is(err, New(CodeExpired, "plan 3 already claimed")) {
		t.Fatal("expected mismatch for different code")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "append plan", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{name: "domain error", err: New(CodeExpired, "expired"), want: CodeExpired},
		{name: "wrapped domain error", err: fmt.Errorf("outer: %w", New(CodeNotFound, "missing")), want: CodeNotFound},
		{name: "plain error", err: stderrors.New("plain"), want: CodeUnknown},
		{name: "nil", err: nil, want: CodeUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetCode(tc.err); got != tc.want {
				t.Fatalf("GetCode = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code Code
		want int
	}{
		{CodeZeroAmount, http.StatusBadRequest},
		{CodeInvalidInput, http.StatusBadRequest},
		{CodeUnauthorized, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyClaimed, http.StatusConflict},
		{CodeNotYetUnlockable, http.StatusConflict},
		{CodeExpired, http.StatusConflict},
		{CodeUnregisteredAsset, http.StatusConflict},
		{CodeInsufficientFunds, http.StatusConflict},
		{CodeConversionFailed, http.StatusBadGateway},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("%s status = %d, want %d", tc.code, got, tc.want)
		}
	}
}
