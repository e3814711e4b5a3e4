package clock

import "testing"

func TestAtomicClockNextIsMonotonic(t *testing.T) {
	c := NewAtomic(0)
	a := c.Next()
	b := c.Next()
	if b <= a {
		t.Fatalf("Next() not monotonic: %d then %d", a, b)
	}
	if c.Val() != b {
		t.Fatalf("Val() = %d, want %d", c.Val(), b)
	}
}

func TestAtomicClockSet(t *testing.T) {
	c := NewAtomic(5)
	if c.Val() != 5 {
		t.Fatalf("NewAtomic(5).Val() = %d, want 5", c.Val())
	}
	c.Set(100)
	if c.Val() != 100 {
		t.Fatalf("after Set(100), Val() = %d, want 100", c.Val())
	}
	if got := c.Next(); got != 101 {
		t.Fatalf("Next() after Set(100) = %d, want 101", got)
	}
}
