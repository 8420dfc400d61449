package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "custody mismatch"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	err := RuleViolationError{Result: result}
	if err.Error() != "transaction blocked by rules: block: custody mismatch" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected rule violation to match ErrInvariantViolation")
	}
	if CodeOf(fmt.Errorf("wrapped: %w", err)) != CodeInvariant {
		t.Fatalf("expected invariant code through wrapping")
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}
	if names := engine.Rules(); len(names) != 1 || names[0] != "warn" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

func TestRulesEngineEvaluateCancelled(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := engine.Evaluate(ctx, emptyView{}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type emptyView struct{}

func (emptyView) Now() time.Time                                   { return time.Unix(0, 0) }
func (emptyView) FindKitty(KittyID) (Kitty, bool)                  { return Kitty{}, false }
func (emptyView) ListKitties() []Kitty                             { return nil }
func (emptyView) KittyCount() int                                  { return 0 }
func (emptyView) OwnerOf(KittyID) (Address, bool)                  { return "", false }
func (emptyView) TokensOwnedBy(Address) []KittyID                  { return nil }
func (emptyView) ListOwnership() []Ownership                       { return nil }
func (emptyView) ApprovedFor(KittyID) Address                      { return "" }
func (emptyView) SiringApproval(KittyID) Address                   { return "" }
func (emptyView) FindAuction(AuctionKind, KittyID) (Auction, bool) { return Auction{}, false }
func (emptyView) ListAuctions(AuctionKind) []Auction               { return nil }
func (emptyView) Gen0Tracker() Gen0PriceTracker                    { return Gen0PriceTracker{} }
func (emptyView) Balance(Address) Amount                           { return 0 }
func (emptyView) ListBalances() []AccountEntry                     { return nil }
func (emptyView) AutoBirthEscrow(KittyID) Amount                   { return 0 }
func (emptyView) TotalAutoBirthEscrow() Amount                     { return 0 }
func (emptyView) System() SystemState                              { return SystemState{} }
func (emptyView) Events(uint64, int) []Event                       { return nil }

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	if _, err := engine.Evaluate(context.Background(), emptyView{}, nil); err == nil {
		t.Fatalf("expected evaluation error")
	}
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, fmt.Errorf("boom")
}
