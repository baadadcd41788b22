package random

import "testing"

func TestNewSeedVaries(t *testing.T) {
	first, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed returned error: %v", err)
	}
	second, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct seeds, got %d twice", first)
	}
}

func TestSequence(t *testing.T) {
	next := Sequence(10)
	for want := int64(10); want < 13; want++ {
		got, err := next()
		if err != nil {
			t.Fatalf("sequence returned error: %v", err)
		}
		if got != want {
			t.Fatalf("seed = %d, want %d", got, want)
		}
	}
}
