package core

import (
	"context"
	"fmt"

	"kittycore/pkg/domain"
)

// NewCustodyIntegrityRule returns the rule tying auction records to escrow
// custody: every live auction's token is held by its engine's escrow and
// every escrowed token has a live auction.
func NewCustodyIntegrityRule() domain.Rule {
	return custodyIntegrityRule{}
}

type custodyIntegrityRule struct{}

func (custodyIntegrityRule) Name() string { return "custody_integrity" }

func (custodyIntegrityRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, kind := range domain.AuctionKinds {
		for _, auction := range view.ListAuctions(kind) {
			owner, _ := view.OwnerOf(auction.TokenID)
			if owner != kind.EscrowAddress() {
				res.Violations = append(res.Violations, custodyViolation(domain.EntityAuction, auction.TokenID,
					fmt.Sprintf("%s auction for kitty %d but custody is with %q", kind, auction.TokenID, owner)))
			}
			if auction.Seller.IsZero() || domain.IsEscrowAddress(auction.Seller) {
				res.Violations = append(res.Violations, custodyViolation(domain.EntityAuction, auction.TokenID,
					fmt.Sprintf("%s auction for kitty %d has invalid seller %q", kind, auction.TokenID, auction.Seller)))
			}
		}
	}
	for _, own := range view.ListOwnership() {
		for _, kind := range domain.AuctionKinds {
			if own.Owner != kind.EscrowAddress() {
				continue
			}
			if _, ok := view.FindAuction(kind, own.KittyID); !ok {
				res.Violations = append(res.Violations, custodyViolation(domain.EntityOwnership, own.KittyID,
					fmt.Sprintf("kitty %d is held by %s without a live auction", own.KittyID, own.Owner)))
			}
		}
	}
	return res, nil
}

func custodyViolation(entity domain.EntityType, id domain.KittyID, message string) domain.Violation {
	return domain.Violation{
		Rule:     "custody_integrity",
		Severity: domain.SeverityBlock,
		Message:  message,
		Entity:   entity,
		EntityID: id.String(),
	}
}
