package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrMissingParameter", ErrMissingParameter, "missing parameter"},
		{"ErrStateNotFound", ErrStateNotFound, "invalid state"},
		{"ErrNotAuthenticated", ErrNotAuthenticated, "not authenticated"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrUnknownProvider", ErrUnknownProvider, "unknown provider"},
		{"ErrProviderNotConfigured", ErrProviderNotConfigured, "provider not configured"},
		{"ErrProviderExchange", ErrProviderExchange, "provider exchange failed"},
		{"ErrProviderTimeout", ErrProviderTimeout, "provider timed out"},
		{"ErrProviderDenied", ErrProviderDenied, "provider denied authorization"},
		{"ErrStorage", ErrStorage, "storage error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrMissingParameter,
		ErrStateNotFound,
		ErrNotAuthenticated,
		ErrTokenExpired,
		ErrUnknownProvider,
		ErrProviderNotConfigured,
		ErrProviderExchange,
		ErrProviderTimeout,
		ErrProviderDenied,
		ErrStorage,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("exchange: %w", ErrProviderTimeout)) {
		t.Error("wrapped timeout should be retryable")
	}
	if !IsRetryable(errors.Join(ErrProviderTimeout, errors.New("deadline exceeded"))) {
		t.Error("joined timeout should be retryable")
	}
	if IsRetryable(ErrProviderExchange) {
		t.Error("exchange failure should not be retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil should not be retryable")
	}
}
