package resilience

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrCircuitOpen", ErrCircuitOpen},
		{"ErrMaxRetriesExceeded", ErrMaxRetriesExceeded},
		{"ErrRateLimitExceeded", ErrRateLimitExceeded},
		{"ErrBulkheadFull", ErrBulkheadFull},
		{"ErrTimeout", ErrTimeout},
		{"ErrLeaderCancelled", ErrLeaderCancelled},
		{"ErrReceiveError", ErrReceiveError},
		{"ErrLimitReached", ErrLimitReached},
		{"ErrMaxAttemptsExceeded", ErrMaxAttemptsExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}

			// Check error message is not empty
			if tt.err.Error() == "" {
				t.Errorf("%s has empty message", tt.name)
			}
		})
	}
}

func TestResilienceError_Error(t *testing.T) {
	re := &ResilienceError{Layer: LayerTimeout, Kind: "timeout", Name: "api-call", Cause: ErrTimeout}

	msg := re.Error()
	if msg == "" {
		t.Error("Error() returned empty string")
	}

	re2 := &ResilienceError{Layer: LayerTimeout, Kind: "timeout", Cause: ErrTimeout}
	if re2.Error() == "" {
		t.Error("Error() returned empty string for unnamed pattern")
	}
}

func TestResilienceError_Unwrap(t *testing.T) {
	re := &ResilienceError{Layer: LayerCircuitBreaker, Kind: "circuit_open", Cause: ErrCircuitOpen}

	if !errors.Is(re, ErrCircuitOpen) {
		t.Error("errors.Is should see through Unwrap to the wrapped sentinel")
	}
}

func TestResilienceError_MapApplication(t *testing.T) {
	appErr := errors.New("upstream 500")
	re := &ResilienceError{Layer: LayerRetry, Kind: "application", Cause: appErr}

	mapped := re.MapApplication(func(err error) error {
		return errors.New("mapped: " + err.Error())
	})

	if mapped == re {
		t.Error("MapApplication should return a new instance, not mutate the receiver")
	}
	if mapped.Cause.Error() != "mapped: upstream 500" {
		t.Errorf("mapped.Cause = %v, want mapped error", mapped.Cause)
	}
	if re.Cause != appErr {
		t.Error("receiver's Cause should be unchanged")
	}
}

func TestResilienceError_MapApplicationNonApplicationKind(t *testing.T) {
	re := &ResilienceError{Layer: LayerTimeout, Kind: "timeout", Cause: ErrTimeout}

	mapped := re.MapApplication(func(err error) error {
		t.Fatal("fn should not be called for non-application kinds")
		return err
	})

	if mapped != re {
		t.Error("MapApplication on a non-application kind should return the receiver unchanged")
	}
}

func TestWrapResilienceError_Classification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind string
	}{
		{"timeout", ErrTimeout, "timeout"},
		{"circuit open", ErrCircuitOpen, "circuit_open"},
		{"bulkhead full", ErrBulkheadFull, "bulkhead_full"},
		{"rate limited", ErrRateLimitExceeded, "rate_limited"},
		{"application", errors.New("boom"), "application"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := wrapResilienceError(LayerRetry, "op", tt.err)
			var re *ResilienceError
			if !errors.As(err, &re) {
				t.Fatalf("wrapResilienceError did not return *ResilienceError")
			}
			if re.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", re.Kind, tt.wantKind)
			}
		})
	}
}

func TestWrapResilienceError_NilPassthrough(t *testing.T) {
	if err := wrapResilienceError(LayerRetry, "op", nil); err != nil {
		t.Errorf("wrapResilienceError(nil) = %v, want nil", err)
	}
}
