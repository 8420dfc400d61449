package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

// LineageIntegrityRule enforces the kitty arena invariants: parents exist and
// precede their children, generations follow the max+1 rule, pregnancies
// point at real sires and cooldown indices stay within the table and never
// decrease.
func LineageIntegrityRule() domain.Rule {
	return lineageIntegrityRule{}
}

type lineageIntegrityRule struct{}

func (lineageIntegrityRule) Name() string { return "lineage_integrity" }

func (lineageIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}

	for _, kitty := range view.ListKitties() {
		checkKittyLineage(&res, view, kitty)
	}

	for _, change := range changes {
		if change.Entity != domain.EntityKitty || change.Action != domain.ActionUpdate {
			continue
		}
		before, okBefore := change.Before.(domain.Kitty)
		after, okAfter := change.After.(domain.Kitty)
		if !okBefore || !okAfter {
			continue
		}
		if after.CooldownIndex < before.CooldownIndex {
			res.Violations = append(res.Violations, lineageViolation(after.ID,
				fmt.Sprintf("kitty %d cooldown index decreased from %d to %d", after.ID, before.CooldownIndex, after.CooldownIndex)))
		}
		if after.Genes != before.Genes || after.MatronID != before.MatronID || after.SireID != before.SireID ||
			after.Generation != before.Generation || after.BirthTime != before.BirthTime {
			res.Violations = append(res.Violations, lineageViolation(after.ID,
				fmt.Sprintf("kitty %d immutable fields changed", after.ID)))
		}
	}

	return res, nil
}

func checkKittyLineage(res *domain.Result, view domain.RuleView, kitty domain.Kitty) {
	if kitty.CooldownIndex > domain.MaxCooldownIndex {
		res.Violations = append(res.Violations, lineageViolation(kitty.ID,
			fmt.Sprintf("kitty %d cooldown index %d exceeds %d", kitty.ID, kitty.CooldownIndex, domain.MaxCooldownIndex)))
	}
	if kitty.SiringWithID != 0 {
		if kitty.SiringWithID == kitty.ID {
			res.Violations = append(res.Violations, lineageViolation(kitty.ID,
				fmt.Sprintf("kitty %d is pregnant by itself", kitty.ID)))
		} else if _, ok := view.FindKitty(kitty.SiringWithID); !ok {
			res.Violations = append(res.Violations, lineageViolation(kitty.ID,
				fmt.Sprintf("kitty %d is pregnant by missing sire %d", kitty.ID, kitty.SiringWithID)))
		}
	}

	if kitty.IsGen0() {
		if kitty.Generation != 0 {
			res.Violations = append(res.Violations, lineageViolation(kitty.ID,
				fmt.Sprintf("parentless kitty %d has generation %d", kitty.ID, kitty.Generation)))
		}
		return
	}
	if kitty.MatronID == 0 || kitty.SireID == 0 {
		res.Violations = append(res.Violations, lineageViolation(kitty.ID,
			fmt.Sprintf("kitty %d has only one parent", kitty.ID)))
		return
	}
	if kitty.MatronID == kitty.SireID {
		res.Violations = append(res.Violations, lineageViolation(kitty.ID,
			fmt.Sprintf("kitty %d lists %d as both matron and sire", kitty.ID, kitty.MatronID)))
	}

	var maxGeneration uint32
	for _, parentID := range []domain.KittyID{kitty.MatronID, kitty.SireID} {
		if parentID >= kitty.ID {
			res.Violations = append(res.Violations, lineageViolation(kitty.ID,
				fmt.Sprintf("kitty %d references parent %d that was not born before it", kitty.ID, parentID)))
			return
		}
		parent, ok := view.FindKitty(parentID)
		if !ok {
			res.Violations = append(res.Violations, lineageViolation(kitty.ID,
				fmt.Sprintf("kitty %d references missing parent %d", kitty.ID, parentID)))
			return
		}
		if parent.Generation > maxGeneration {
			maxGeneration = parent.Generation
		}
	}
	if kitty.Generation != maxGeneration+1 {
		res.Violations = append(res.Violations, lineageViolation(kitty.ID,
			fmt.Sprintf("kitty %d has generation %d, want %d", kitty.ID, kitty.Generation, maxGeneration+1)))
	}
}

func lineageViolation(id domain.KittyID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "lineage_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   domain.EntityKitty,
		EntityID: id.String(),
	}
}
