package balance

import (
	"errors"
	"testing"
)

func TestNewPicker_Empty(t *testing.T) {
	if _, err := NewPicker[string](nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestPick_OnlyConfiguredCandidates(t *testing.T) {
	items := []string{"a", "b", "c"}
	p, err := NewPicker(items)
	if err != nil {
		t.Fatalf("NewPicker failed: %v", err)
	}

	seen := map[string]int{}
	for i := 0; i < 3000; i++ {
		seen[p.Pick()]++
	}

	if len(seen) != len(items) {
		t.Fatalf("expected all %d candidates to be picked, got %v", len(items), seen)
	}
	for _, item := range items {
		// Uniform expectation is 1000; a loose bound keeps the test stable
		if seen[item] < 700 {
			t.Errorf("candidate %q picked only %d times", item, seen[item])
		}
	}
}

func TestNewPicker_CopiesInput(t *testing.T) {
	items := []string{"a"}
	p, err := NewPicker(items)
	if err != nil {
		t.Fatalf("NewPicker failed: %v", err)
	}
	items[0] = "mutated"

	if got := p.Pick(); got != "a" {
		t.Errorf("expected 'a', got %q", got)
	}
}
