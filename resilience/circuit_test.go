package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	if cb.config.MinimumNumberOfCalls != 10 {
		t.Errorf("MinimumNumberOfCalls = %d, want 10", cb.config.MinimumNumberOfCalls)
	}
	if cb.config.FailureRateThreshold != 0.5 {
		t.Errorf("FailureRateThreshold = %f, want 0.5", cb.config.FailureRateThreshold)
	}
	if cb.config.WaitDurationInOpen != 30*time.Second {
		t.Errorf("WaitDurationInOpen = %v, want 30s", cb.config.WaitDurationInOpen)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed", cb.State())
	}
}

func TestCircuitBreaker_OpensOnFailureRate(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls: 4,
		FailureRateThreshold: 0.5,
		WaitDurationInOpen:   time.Hour,
	})

	testErr := errors.New("failure")
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return testErr
		})
	}
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		})
	}

	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want StateOpen", cb.State())
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreaker_StaysClosedBelowThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls: 4,
		FailureRateThreshold: 0.9,
	})

	testErr := errors.New("failure")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })

	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls:     1,
		FailureRateThreshold:     0.5,
		WaitDurationInOpen:       10 * time.Millisecond,
		PermittedCallsInHalfOpen: 1,
	})

	testErr := errors.New("failure")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want StateOpen", cb.State())
	}

	time.Sleep(20 * time.Millisecond)
	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want StateHalfOpen", cb.State())
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenReopens(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls:     1,
		FailureRateThreshold:     0.5,
		WaitDurationInOpen:       10 * time.Millisecond,
		PermittedCallsInHalfOpen: 1,
	})

	testErr := errors.New("failure")
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	time.Sleep(20 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %v, want StateHalfOpen", cb.State())
	}

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return testErr })
	if !errors.Is(err, testErr) {
		t.Errorf("Execute() error = %v, want %v", err, testErr)
	}
	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want StateOpen", cb.State())
	}
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls: 1,
		FailureRateThreshold: 0.5,
		WaitDurationInOpen:   time.Hour,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})

	if len(transitions) != 1 || transitions[0] != "closed->open" {
		t.Errorf("transitions = %v, want [closed->open]", transitions)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls: 1,
		FailureRateThreshold: 0.5,
		WaitDurationInOpen:   time.Hour,
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("boom")
	})
	if cb.State() != StateOpen {
		t.Fatalf("State() = %v, want StateOpen", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed {
		t.Errorf("State() after Reset = %v, want StateClosed", cb.State())
	}
}

func TestCircuitBreaker_ForceOpenForceClosed(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	cb.ForceOpen()
	if !cb.IsOpen() {
		t.Error("IsOpen() = false after ForceOpen")
	}

	cb.ForceClosed()
	if cb.IsOpen() {
		t.Error("IsOpen() = true after ForceClosed")
	}
}

func TestCircuitBreaker_Metrics(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls: 10,
		FailureRateThreshold: 0.5,
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return errors.New("x") })

	m := cb.Metrics()
	if m.TotalCalls != 2 {
		t.Errorf("Metrics.TotalCalls = %d, want 2", m.TotalCalls)
	}
	if m.State != StateClosed {
		t.Errorf("Metrics.State = %v, want StateClosed", m.State)
	}
}

func TestCircuitBreaker_SlowCallRate(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls:      2,
		SlowCallRateThreshold:     0.5,
		SlowCallDurationThreshold: 5 * time.Millisecond,
		WaitDurationInOpen:        time.Hour,
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	_ = cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if cb.State() != StateOpen {
		t.Errorf("State() = %v, want StateOpen after slow-call rate breach", cb.State())
	}
}

func TestCircuitBreaker_CustomIsFailure(t *testing.T) {
	benign := errors.New("benign")
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MinimumNumberOfCalls: 1,
		FailureRateThreshold: 0.5,
		WaitDurationInOpen:   time.Hour,
		IsFailure: func(err error) bool {
			return err != nil && !errors.Is(err, benign)
		},
	})

	_ = cb.Execute(context.Background(), func(ctx context.Context) error { return benign })

	if cb.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed (benign error should not count)", cb.State())
	}
}
