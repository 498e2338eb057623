package limiter

import (
	"context"
	"testing"
	"time"
)

func TestHashIP_Determinism(t *testing.T) {
	t.Parallel()
	a := HashIP("1.2.3.4:123")
	b := HashIP("1.2.3.4:123")
	c := HashIP("5.6.7.8:321")
	if string(a) != string(b) {
		t.Fatalf("same input must hash equal")
	}
	if string(a) == string(c) {
		t.Fatalf("different inputs must hash differently")
	}
}

func TestMemory_BlocksAfterThreshold(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now()
	l := NewMemory(15*time.Minute, 3, 10*time.Minute)
	l.now = func() time.Time { return now }
	ip := HashIP("1.2.3.4")

	for i := 0; i < 2; i++ {
		blocked, _, err := l.Failure(ctx, "a@b.c", ip)
		if err != nil || blocked {
			t.Fatalf("attempt %d: blocked=%v err=%v", i, blocked, err)
		}
	}
	blocked, retry, err := l.Failure(ctx, "a@b.c", ip)
	if err != nil || !blocked || retry != 10*time.Minute {
		t.Fatalf("threshold attempt: blocked=%v retry=%v err=%v", blocked, retry, err)
	}

	ok, _, err := l.Allow(ctx, "a@b.c", ip)
	if err != nil || ok {
		t.Fatalf("blocked principal allowed")
	}
	// Block expires with time.
	now = now.Add(11 * time.Minute)
	if ok, _, _ := l.Allow(ctx, "a@b.c", ip); !ok {
		t.Fatalf("block must expire")
	}
}

func TestMemory_SuccessResets(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemory(15*time.Minute, 2, 10*time.Minute)
	ip := HashIP("1.2.3.4")

	if _, _, err := l.Failure(ctx, "a@b.c", ip); err != nil {
		t.Fatalf("Failure: %v", err)
	}
	if err := l.Success(ctx, "a@b.c", ip); err != nil {
		t.Fatalf("Success: %v", err)
	}
	if blocked, _, _ := l.Failure(ctx, "a@b.c", ip); blocked {
		t.Fatalf("counters must reset after success")
	}
}

func TestMemory_IsolatesPrincipals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemory(15*time.Minute, 1, 10*time.Minute)

	if blocked, _, _ := l.Failure(ctx, "a@b.c", HashIP("1.1.1.1")); !blocked {
		t.Fatalf("first principal should be blocked at threshold 1")
	}
	if ok, _, _ := l.Allow(ctx, "a@b.c", HashIP("2.2.2.2")); !ok {
		t.Fatalf("different ip must not be affected")
	}
	if ok, _, _ := l.Allow(ctx, "x@y.z", HashIP("1.1.1.1")); !ok {
		t.Fatalf("different email must not be affected")
	}
}
