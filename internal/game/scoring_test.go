package game

import (
	"testing"
	"time"
)

func TestScoreIncorrectIsZero(t *testing.T) {
	if got := Score(false, 100, 0, 20*time.Second); got != 0 {
		t.Fatalf("incorrect answer scored %d, want 0", got)
	}
	if got := Score(false, 1000, 19*time.Second, 20*time.Second); got != 0 {
		t.Fatalf("incorrect answer scored %d, want 0", got)
	}
}

func TestScoreTimeoutBoundary(t *testing.T) {
	limit := 20 * time.Second
	// Exactly at the limit takes the timeout path, not the fast path.
	if got := Score(true, 100, limit, limit); got != 0 {
		t.Fatalf("answer at limit scored %d, want 0", got)
	}
	if got := Score(true, 100, limit+time.Second, limit); got != 0 {
		t.Fatalf("answer past limit scored %d, want 0", got)
	}
	// Just inside the limit still earns something.
	if got := Score(true, 100, limit-time.Millisecond, limit); got <= 0 {
		t.Fatalf("answer just inside limit scored %d, want > 0", got)
	}
}

func TestScoreClampsNegativeLatency(t *testing.T) {
	limit := 20 * time.Second
	if got, max := Score(true, 100, -5*time.Second, limit), Score(true, 100, 0, limit); got != max {
		t.Fatalf("negative latency scored %d, want %d (same as instant answer)", got, max)
	}
}

func TestScoreInstantAnswerEarnsFullBudget(t *testing.T) {
	if got := Score(true, 100, 0, 20*time.Second); got != 100 {
		t.Fatalf("instant correct answer scored %d, want 100", got)
	}
}

func TestScoreMonotonicNonIncreasing(t *testing.T) {
	limit := 20 * time.Second
	prev := Score(true, 100, 0, limit)
	for ms := int64(0); ms < limit.Milliseconds(); ms += 250 {
		got := Score(true, 100, time.Duration(ms)*time.Millisecond, limit)
		if got <= 0 {
			t.Fatalf("correct answer at %dms scored %d, want > 0", ms, got)
		}
		if got > prev {
			t.Fatalf("score increased from %d to %d at %dms", prev, got, ms)
		}
		prev = got
	}
}

func TestScoreTinyBudgetStaysPositive(t *testing.T) {
	limit := 10 * time.Second
	for ms := int64(0); ms < limit.Milliseconds(); ms += 500 {
		if got := Score(true, 1, time.Duration(ms)*time.Millisecond, limit); got != 1 {
			t.Fatalf("budget-1 answer at %dms scored %d, want 1", ms, got)
		}
	}
}

func TestScoreNeverExceedsBudget(t *testing.T) {
	for _, max := range []int{1, 3, 100, 1000} {
		if got := Score(true, max, 0, 15*time.Second); got > max {
			t.Fatalf("score %d exceeds budget %d", got, max)
		}
	}
}
