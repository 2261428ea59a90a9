package evaluation

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

// --- RecallAtK tests ---

func TestRecallAtK_AllRelevantFound(t *testing.T) {
	relevant := []string{"dog walker", "dog walking app", "pet sitter"}
	retrieved := []string{"dog walker", "pet sitter", "dog walking app", "cat sitter"}
	got := RecallAtK(relevant, retrieved, 10)
	if !almostEqual(got, 1.0) {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestRecallAtK_SomeRelevantMissing(t *testing.T) {
	relevant := []string{"dog walker", "pet sitter", "dog daycare", "puppy training"}
	retrieved := []string{"dog walker", "pet sitter", "cat food", "bird cage"}
	got := RecallAtK(relevant, retrieved, 10)
	if !almostEqual(got, 0.5) {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestRecallAtK_NormalizesKeywords(t *testing.T) {
	relevant := []string{"Dog  Walker", "dog walker", "pet sitter"}
	retrieved := []string{" dog walker ", "DOG WALKER", "pet sitter"}
	got := RecallAtK(relevant, retrieved, 10)
	// relevant collapses to two keywords, each counted once
	if !almostEqual(got, 1.0) {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestRecallAtK_EmptyResults(t *testing.T) {
	got := RecallAtK([]string{"dog walker"}, []string{}, 10)
	if !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0, got %f", got)
	}
}

func TestRecallAtK_NoRelevantKeywords(t *testing.T) {
	got := RecallAtK([]string{}, []string{"dog walker"}, 10)
	if !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0, got %f", got)
	}
	got = RecallAtK([]string{"   "}, []string{"dog walker"}, 10)
	if !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0 for blank relevant keywords, got %f", got)
	}
}

func TestRecallAtK_KSmallerThanRetrieved(t *testing.T) {
	relevant := []string{"a", "b", "c"}
	// "c" sits at rank 5, outside k=3
	retrieved := []string{"a", "b", "x", "y", "c"}
	got := RecallAtK(relevant, retrieved, 3)
	if !almostEqual(got, 2.0/3.0) {
		t.Errorf("expected %f, got %f", 2.0/3.0, got)
	}
}

// --- MRRAtK tests ---

func TestMRRAtK_FirstResultRelevant(t *testing.T) {
	got := MRRAtK([]string{"a", "b"}, []string{"a", "x", "y"}, 10)
	if !almostEqual(got, 1.0) {
		t.Errorf("expected 1.0, got %f", got)
	}
}

func TestMRRAtK_ThirdResultRelevant(t *testing.T) {
	got := MRRAtK([]string{"Dog Walker"}, []string{"x", "y", "dog walker"}, 10)
	if !almostEqual(got, 1.0/3.0) {
		t.Errorf("expected %f, got %f", 1.0/3.0, got)
	}
}

func TestMRRAtK_NoRelevantInTopK(t *testing.T) {
	retrieved := []string{"x", "y", "z", "w", "v", "u", "t", "s", "r", "q", "a"}
	got := MRRAtK([]string{"a"}, retrieved, 10)
	if !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0, got %f", got)
	}
}

func TestMRRAtK_Empty(t *testing.T) {
	if got := MRRAtK([]string{}, []string{"a"}, 10); !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0 for empty relevant, got %f", got)
	}
	if got := MRRAtK([]string{"a"}, []string{}, 10); !almostEqual(got, 0.0) {
		t.Errorf("expected 0.0 for empty retrieved, got %f", got)
	}
}
