package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHedger(t *testing.T) {
	h := NewHedger(HedgeConfig{})

	if h.config.MaxHedgedAttempts != 2 {
		t.Errorf("MaxHedgedAttempts = %d, want 2", h.config.MaxHedgedAttempts)
	}
	if h.config.Delay == nil {
		t.Error("Delay should default to a non-nil BackoffFunc")
	}
}

func TestHedger_PrimarySucceedsFast(t *testing.T) {
	h := NewHedger(HedgeConfig{
		MaxHedgedAttempts: 2,
		Delay:             Fixed(50 * time.Millisecond),
	})

	err := h.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestHedger_HedgeWinsWhenPrimarySlow(t *testing.T) {
	h := NewHedger(HedgeConfig{
		MaxHedgedAttempts: 2,
		Delay:             Fixed(5 * time.Millisecond),
	})

	var calls atomic.Int32
	err := h.Execute(context.Background(), func(ctx context.Context) error {
		n := calls.Add(1)
		if n == 1 {
			// primary: slow
			time.Sleep(200 * time.Millisecond)
			return nil
		}
		// hedge: fast
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("calls = %d, want at least 2 (hedge should have launched)", calls.Load())
	}
}

func TestHedger_AllAttemptsFail(t *testing.T) {
	h := NewHedger(HedgeConfig{
		MaxHedgedAttempts: 3,
		Delay:             Fixed(time.Millisecond),
	})

	testErr := errors.New("always fails")
	err := h.Execute(context.Background(), func(ctx context.Context) error {
		return testErr
	})

	if err == nil {
		t.Error("Execute() error = nil, want non-nil")
	}
}

func TestHedger_ContextCancelledMidRace(t *testing.T) {
	h := NewHedger(HedgeConfig{
		MaxHedgedAttempts: 2,
		Delay:             Fixed(200 * time.Millisecond),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := h.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
}

func TestHedger_Events(t *testing.T) {
	h := NewHedger(HedgeConfig{
		MaxHedgedAttempts: 2,
		Delay:             Fixed(5 * time.Millisecond),
	})

	var kinds []string
	h.OnEvent(func(e HedgeEvent) {
		kinds = append(kinds, e.Kind)
	})

	var calls atomic.Int32
	_ = h.Execute(context.Background(), func(ctx context.Context) error {
		n := calls.Add(1)
		if n == 1 {
			time.Sleep(50 * time.Millisecond)
		}
		return nil
	})

	if len(kinds) == 0 {
		t.Error("expected at least one event")
	}
	if kinds[0] != "primary_started" {
		t.Errorf("first event = %q, want primary_started", kinds[0])
	}
}

func TestHedger_NoHedgeNeeded(t *testing.T) {
	h := NewHedger(HedgeConfig{
		MaxHedgedAttempts: 4,
		Delay:             Fixed(time.Hour),
	})

	attempts := 0
	err := h.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}
