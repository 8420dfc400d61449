package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

// NewEscrowSolvencyRule returns the rule requiring the core treasury to cover
// every auto-birth fee still owed to keepers.
func NewEscrowSolvencyRule() domain.Rule {
	return escrowSolvencyRule{}
}

type escrowSolvencyRule struct{}

func (escrowSolvencyRule) Name() string { return "escrow_solvency" }

func (escrowSolvencyRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	held := view.Balance(domain.CoreAddress)
	owed := view.TotalAutoBirthEscrow()
	if held < owed {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "escrow_solvency",
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("core balance %d does not cover %d of escrowed auto-birth fees", held, owed),
			Entity:   domain.EntityEscrow,
			EntityID: string(domain.CoreAddress),
		})
	}
	return res, nil
}
