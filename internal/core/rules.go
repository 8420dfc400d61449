package core

import "kittycore/pkg/domain"

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *domain.RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in ledger invariants.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := NewRulesEngine()
	engine.Register(LineageIntegrityRule())
	engine.Register(NewCustodyIntegrityRule())
	engine.Register(NewEscrowSolvencyRule())
	return engine
}
