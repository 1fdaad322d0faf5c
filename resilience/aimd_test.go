package resilience

import (
	"testing"
	"time"
)

func TestNewAIMDController(t *testing.T) {
	c := NewAIMDController(AIMDConfig{})

	if c.Limit() != 10 {
		t.Errorf("Limit() = %d, want 10", c.Limit())
	}
}

func TestAIMDController_OnSuccessGrowsAdditively(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 5, Max: 100, IncreaseBy: 1})

	c.OnSuccess()
	if c.Limit() != 6 {
		t.Errorf("Limit() = %d, want 6", c.Limit())
	}
	c.OnSuccess()
	if c.Limit() != 7 {
		t.Errorf("Limit() = %d, want 7", c.Limit())
	}
}

func TestAIMDController_OnSuccessCappedAtMax(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 99, Max: 100, IncreaseBy: 5})

	c.OnSuccess()
	c.OnSuccess()
	if c.Limit() != 100 {
		t.Errorf("Limit() = %d, want 100 (capped)", c.Limit())
	}
}

func TestAIMDController_OnSuccesses(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 10, Max: 1000, IncreaseBy: 2})

	c.OnSuccesses(5)
	if c.Limit() != 20 {
		t.Errorf("Limit() = %d, want 20", c.Limit())
	}
}

func TestAIMDController_OnFailureDecaysMultiplicatively(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 100, Min: 1, DecreaseFactor: 0.5})

	c.OnFailure()
	if c.Limit() != 50 {
		t.Errorf("Limit() = %d, want 50", c.Limit())
	}
	c.OnFailure()
	if c.Limit() != 25 {
		t.Errorf("Limit() = %d, want 25", c.Limit())
	}
}

func TestAIMDController_OnFailureFlooredAtMin(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 2, Min: 1, DecreaseFactor: 0.1})

	c.OnFailure()
	if c.Limit() != 1 {
		t.Errorf("Limit() = %d, want 1 (floored)", c.Limit())
	}
	c.OnFailure()
	if c.Limit() != 1 {
		t.Errorf("Limit() = %d, want 1 (stays floored)", c.Limit())
	}
}

func TestAIMDController_Reset(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 10, Min: 1, DecreaseFactor: 0.5})

	c.OnFailure()
	c.OnFailure()
	c.Reset()

	if c.Limit() != 10 {
		t.Errorf("Limit() after Reset = %d, want 10", c.Limit())
	}
}

func TestAIMDController_OnSampleDispatch(t *testing.T) {
	c := NewAIMDController(AIMDConfig{Initial: 10, Max: 100, IncreaseBy: 1, Min: 1, DecreaseFactor: 0.5})

	c.OnSample(10*time.Millisecond, true)
	if c.Limit() != 11 {
		t.Errorf("Limit() after success sample = %d, want 11", c.Limit())
	}

	c.OnSample(10*time.Millisecond, false)
	if c.Limit() != 5 {
		t.Errorf("Limit() after failure sample = %d, want 5", c.Limit())
	}
}
