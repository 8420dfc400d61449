package core

import (
	"fmt"

	"kittycore/pkg/domain"
)

// AreSiblingsOrParentChild reports whether a and b are parent and child or
// share a parent in either role. Kitties without parents only relate through
// the parent check.
func AreSiblingsOrParentChild(a, b domain.Kitty) bool {
	if a.MatronID == b.ID || a.SireID == b.ID || b.MatronID == a.ID || b.SireID == a.ID {
		return true
	}
	if a.IsGen0() || b.IsGen0() {
		return false
	}
	return a.MatronID == b.MatronID ||
		a.MatronID == b.SireID ||
		a.SireID == b.MatronID ||
		a.SireID == b.SireID
}

// IsReadyToBreed reports whether k is neither gestating nor cooling at now.
func IsReadyToBreed(k domain.Kitty, now int64) bool {
	return k.State(now) == domain.StateReady
}

// CanBreedWith is the pure pair check: distinct, both Ready and unrelated.
// Custody is checked separately because it depends on the ownership registry.
func CanBreedWith(a, b domain.Kitty, now int64) bool {
	return pairIneligibility(a, b, now) == ""
}

// pairIneligibility explains why the pair cannot mate, or returns "".
func pairIneligibility(matron, sire domain.Kitty, now int64) string {
	if matron.ID == sire.ID {
		return fmt.Sprintf("kitty %d cannot breed with itself", matron.ID)
	}
	for _, k := range []domain.Kitty{matron, sire} {
		switch k.State(now) {
		case domain.StateGestating:
			return fmt.Sprintf("kitty %d is gestating", k.ID)
		case domain.StateCooling:
			return fmt.Sprintf("kitty %d is cooling down until %d", k.ID, k.NextActionAt)
		}
	}
	if AreSiblingsOrParentChild(matron, sire) {
		return fmt.Sprintf("kitties %d and %d are siblings or parent and child", matron.ID, sire.ID)
	}
	return ""
}

// ownerLookup is satisfied by both transactions and read views.
type ownerLookup interface {
	OwnerOf(domain.KittyID) (domain.Address, bool)
}

// escrowedKitty reports whether id is currently held by an auction engine.
func escrowedKitty(view ownerLookup, id domain.KittyID) bool {
	owner, ok := view.OwnerOf(id)
	return ok && domain.IsEscrowAddress(owner)
}

// checkMatingPair applies the full eligibility check used by every breeding path.
func checkMatingPair(view ownerLookup, op string, matron, sire domain.Kitty, now int64) error {
	for _, k := range []domain.Kitty{matron, sire} {
		if escrowedKitty(view, k.ID) {
			return domain.Failf(domain.ErrNotEligible, op, "kitty %d is held by an auction", k.ID)
		}
	}
	if reason := pairIneligibility(matron, sire, now); reason != "" {
		return domain.Failf(domain.ErrNotEligible, op, "%s", reason)
	}
	return nil
}
