// Package overlap detects conflicting provider active periods. The cost
// engine evaluates whatever provider it is handed; keeping at most one
// provider per (name, active period) is the write path's job, enforced
// here before a save is accepted.
package overlap

import (
	"errors"
	"fmt"

	"github.com/finsizer/sizing-engine/internal/model"
)

// ErrPeriodConflict is returned when a provider's active period overlaps
// an existing provider with the same name.
var ErrPeriodConflict = errors.New("overlap: provider active period conflicts with an existing provider")

// Check validates candidate against the existing providers and returns
// ErrPeriodConflict (wrapped with the conflicting provider's ID) when
// another provider of the same name has an overlapping active window.
// The candidate's own ID is skipped so updates do not conflict with
// themselves.
func Check(candidate model.Provider, existing []model.Provider) error {
	for _, p := range existing {
		if p.ID == candidate.ID || p.Name != candidate.Name {
			continue
		}
		if periodsOverlap(candidate, p) {
			return fmt.Errorf("%w: %s (%s)", ErrPeriodConflict, p.Name, p.ID)
		}
	}
	return nil
}

// periodsOverlap reports whether two active windows intersect. A nil
// ActiveTo means open-ended.
func periodsOverlap(a, b model.Provider) bool {
	if a.ActiveTo != nil && a.ActiveTo.Before(b.ActiveFrom) {
		return false
	}
	if b.ActiveTo != nil && b.ActiveTo.Before(a.ActiveFrom) {
		return false
	}
	return true
}
