package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewReconnect(t *testing.T) {
	r := NewReconnect(ReconnectConfig{})
	if r.config.Backoff == nil {
		t.Error("Backoff should default to a non-nil BackoffFunc")
	}
}

func TestReconnect_SucceedsFirstAttempt(t *testing.T) {
	r := NewReconnect(ReconnectConfig{
		Backoff: Fixed(time.Millisecond),
	})

	attempts := 0
	err := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestReconnect_SucceedsAfterRetries(t *testing.T) {
	r := NewReconnect(ReconnectConfig{
		Backoff: Fixed(time.Millisecond),
	})

	attempts := 0
	testErr := errors.New("connection refused")

	err := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return testErr
		}
		return nil
	})

	if err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestReconnect_MaxAttemptsExhausted(t *testing.T) {
	r := NewReconnect(ReconnectConfig{
		Backoff:     Fixed(time.Millisecond),
		MaxAttempts: 3,
	})

	attempts := 0
	testErr := errors.New("connection refused")

	err := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return testErr
	})

	if !errors.Is(err, ErrMaxAttemptsExceeded) {
		t.Errorf("Run() error = %v, want ErrMaxAttemptsExceeded", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestReconnect_ContextCancellation(t *testing.T) {
	r := NewReconnect(ReconnectConfig{
		Backoff: Fixed(50 * time.Millisecond),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	testErr := errors.New("connection refused")
	err := r.Run(ctx, func(ctx context.Context) error {
		return testErr
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestReconnect_Events(t *testing.T) {
	r := NewReconnect(ReconnectConfig{
		Backoff: Fixed(time.Millisecond),
	})

	var kinds []string
	r.OnEvent(func(e ReconnectEvent) {
		kinds = append(kinds, e.Kind)
	})

	attempts := 0
	testErr := errors.New("refused")
	_ = r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return testErr
		}
		return nil
	})

	if len(kinds) == 0 {
		t.Fatal("expected events to be emitted")
	}
	if kinds[len(kinds)-1] != "connected" {
		t.Errorf("last event = %q, want connected", kinds[len(kinds)-1])
	}
}
