package clock

import (
	"testing"
	"time"
)

func TestSystem_IsUTC(t *testing.T) {
	if loc := (System{}).Now().Location(); loc != time.UTC {
		t.Fatalf("location = %v, want UTC", loc)
	}
}

func TestManual_SetAndAdvance(t *testing.T) {
	start := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	c := NewManual(start)
	if !c.Now().Equal(start) {
		t.Fatalf("Now = %v, want %v", c.Now(), start)
	}
	got := c.Advance(48 * time.Hour)
	if want := start.Add(48 * time.Hour); !got.Equal(want) || !c.Now().Equal(want) {
		t.Fatalf("Advance = %v, want %v", got, want)
	}
	later := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Fatalf("Set: Now = %v, want %v", c.Now(), later)
	}
}
