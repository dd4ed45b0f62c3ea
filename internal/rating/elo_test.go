package rating

import (
	"math"
	"testing"
)

func TestUpdateEqualRatings(t *testing.T) {
	// Equal ratings, A wins: transfer is exactly K/2 = 16 points each way.
	ra, rb := Update(1200, 1200, 1.0)
	if ra != 1216 || rb != 1184 {
		t.Fatalf("expected 1216/1184, got %d/%d", ra, rb)
	}

	// Draw between equals changes nothing.
	ra, rb = Update(1200, 1200, 0.5)
	if ra != 1200 || rb != 1200 {
		t.Fatalf("draw between equals should be a no-op, got %d/%d", ra, rb)
	}
}

func TestUpdateFavoriteLoses(t *testing.T) {
	// 1400 loses to 1200: E(1400 vs 1200) ~= 0.759747.
	ra, rb := Update(1400, 1200, 0.0)
	if ra != 1376 {
		t.Errorf("expected favorite to drop to 1376, got %d", ra)
	}
	if rb != 1224 {
		t.Errorf("expected underdog to rise to 1224, got %d", rb)
	}
}

func TestExpectedSymmetry(t *testing.T) {
	for _, pair := range [][2]int{{1200, 1200}, {1000, 1400}, {1350, 1275}, {800, 2200}} {
		ea := Expected(pair[0], pair[1])
		eb := Expected(pair[1], pair[0])
		if math.Abs(ea+eb-1.0) > 1e-12 {
			t.Errorf("Expected(%d,%d)+Expected(%d,%d)=%v, want 1", pair[0], pair[1], pair[1], pair[0], ea+eb)
		}
	}
}

func TestUpdateZeroSumWhenEqual(t *testing.T) {
	ra, rb := Update(1200, 1200, 1.0)
	if ra+rb != 2400 {
		t.Fatalf("equal pre-match ratings must conserve total, got %d", ra+rb)
	}
}
