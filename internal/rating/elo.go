// Package rating implements the classic Elo update used for 1v1 chess games.
package rating

import "math"

// KFactor controls the magnitude of rating change per game.
const KFactor = 32

// Expected returns the expected score for a player rated ra against an
// opponent rated rb: 1 / (1 + 10^((rb-ra)/400)).
func Expected(ra, rb int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(rb-ra)/400.0))
}

// Update computes both players' new ratings given A's actual score
// (1 win, 0.5 draw, 0 loss). Results are rounded to the nearest integer;
// fractional intermediates are never persisted. No min/max clamping.
func Update(ra, rb int, scoreA float64) (int, int) {
	newA := float64(ra) + KFactor*(scoreA-Expected(ra, rb))
	newB := float64(rb) + KFactor*((1.0-scoreA)-Expected(rb, ra))
	return int(math.Round(newA)), int(math.Round(newB))
}
