package core

import (
	"context"

	"go.uber.org/zap"

	"kittycore/pkg/domain"
)

// listable checks that caller may put tokenID on the kind auction.
func listable(tx domain.Transaction, op string, kind domain.AuctionKind, tokenID domain.KittyID, caller domain.Address) error {
	kitty, err := loadKitty(tx, tokenID)
	if err != nil {
		return err
	}
	if escrowedKitty(tx, tokenID) {
		return domain.Failf(domain.ErrAlreadyOnAuction, op, "kitty %d is already held by an auction", tokenID)
	}
	if err := requireOwner(tx, op, tokenID, caller); err != nil {
		return err
	}
	now := tx.Now().Unix()
	if kitty.IsGestating() {
		return domain.Failf(domain.ErrNotEligible, op, "kitty %d is gestating", tokenID)
	}
	if kind == domain.AuctionSiring && !IsReadyToBreed(kitty, now) {
		return domain.Failf(domain.ErrNotEligible, op, "kitty %d is cooling down until %d", tokenID, kitty.NextActionAt)
	}
	return nil
}

func (s *Service) createAuction(ctx context.Context, op string, kind domain.AuctionKind, req AuctionRequest, caller domain.Address) (domain.Auction, error) {
	var created domain.Auction
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := listable(tx, op, kind, req.TokenID, caller); err != nil {
			return err
		}
		var err error
		created, err = openAuction(tx, op, kind, req, caller, false)
		return err
	})
	return created, err
}

// CreateSaleAuction lists a kitty owned by caller for sale. The kitty stays in
// the sale escrow until it is bought or the auction is cancelled.
func (s *Service) CreateSaleAuction(ctx context.Context, req AuctionRequest, caller domain.Address) (domain.Auction, error) {
	return s.createAuction(ctx, "create_sale_auction", domain.AuctionSale, req, caller)
}

// CreateSiringAuction offers a Ready kitty as a sire. Winning bidders breed
// their matron with it and the sire returns to caller afterwards.
func (s *Service) CreateSiringAuction(ctx context.Context, req AuctionRequest, caller domain.Address) (domain.Auction, error) {
	return s.createAuction(ctx, "create_siring_auction", domain.AuctionSiring, req, caller)
}

// BidOnSiringAuction wins the siring auction for sireID and immediately breeds
// it with matronID through the auto-birth path. paid must cover the current
// price plus the auto-birth fee.
func (s *Service) BidOnSiringAuction(ctx context.Context, sireID, matronID domain.KittyID, paid domain.Amount, bidder domain.Address) (domain.Kitty, error) {
	const op = "bid_on_siring_auction"
	var pregnant domain.Kitty
	var settled Settlement
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		matron, err := loadKitty(tx, matronID)
		if err != nil {
			return err
		}
		sire, err := loadKitty(tx, sireID)
		if err != nil {
			return err
		}
		if err := requireOwner(tx, op, matronID, bidder); err != nil {
			return err
		}
		auction, err := findAuction(tx, op, domain.AuctionSiring, sireID)
		if err != nil {
			return err
		}
		now := tx.Now().Unix()
		if escrowedKitty(tx, matronID) {
			return domain.Failf(domain.ErrNotEligible, op, "kitty %d is held by an auction", matronID)
		}
		if reason := pairIneligibility(matron, sire, now); reason != "" {
			return domain.Failf(domain.ErrNotEligible, op, "%s", reason)
		}

		fee := tx.System().Params.AutoBirthFee
		due, err := addAmounts(op, auctionPrice(tx, auction), fee)
		if err != nil {
			return err
		}
		if paid < due {
			return domain.Failf(domain.ErrInsufficientValue, op, "paid %d, price plus auto-birth fee is %d", paid, due)
		}
		if settled, err = s.settle(tx, op, domain.AuctionSiring, sireID, paid-fee, bidder); err != nil {
			return err
		}
		if err := move(tx, sireID, domain.SiringEscrowAddress, auction.Seller); err != nil {
			return err
		}
		if pregnant, err = s.mate(tx, matron, sire); err != nil {
			return err
		}
		return holdAutoBirthFee(tx, pregnant, fee)
	})
	if err == nil {
		s.logger.Debug("siring auction settled",
			zap.Uint64("sire_id", uint64(sireID)),
			zap.Uint64("matron_id", uint64(matronID)),
			zap.Uint64("price", uint64(settled.Price)),
		)
	}
	return pregnant, err
}
