package core

import (
	"context"
	"time"

	"kittycore/pkg/domain"
)

// NextGen0StartingPrice returns one and a half times the average of the last
// gen0 sale prices, never less than floor.
func NextGen0StartingPrice(tracker domain.Gen0PriceTracker, floor domain.Amount) domain.Amount {
	avg := uint64(tracker.Average())
	next := domain.Amount(mulDiv(avg, 3, 2))
	if next < floor {
		return floor
	}
	return next
}

// mint creates a parentless kitty owned by owner.
func mint(tx domain.Transaction, genes domain.Genes, owner domain.Address) (domain.Kitty, error) {
	kitty, err := tx.CreateKitty(domain.Kitty{
		Genes:     genes,
		BirthTime: tx.Now().Unix(),
	})
	if err != nil {
		return domain.Kitty{}, err
	}
	if err := move(tx, kitty.ID, "", owner); err != nil {
		return domain.Kitty{}, err
	}
	tx.Emit(domain.Event{Kind: domain.EventBirth, Owner: owner, KittyID: kitty.ID, Genes: &genes})
	return kitty, nil
}

// CreatePromoKitty mints a gen0 kitty straight to owner. An empty owner
// defaults to the COO. Promotional mints also count against the gen0 quota.
func (s *Service) CreatePromoKitty(ctx context.Context, genes domain.Genes, owner, caller domain.Address) (domain.Kitty, error) {
	const op = "create_promo_kitty"
	var kitty domain.Kitty
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := requireRole(tx, op, caller, domain.RoleCOO); err != nil {
			return err
		}
		recipient := owner
		if recipient.IsZero() {
			recipient = tx.System().Roles.COO
		}
		if err := validateRecipient(op, recipient); err != nil {
			return err
		}
		counters := tx.System().Counters
		if counters.PromoCreated >= s.cfg.PromoCreationLimit {
			return domain.Failf(domain.ErrLimitReached, op, "promo creation limit %d reached", s.cfg.PromoCreationLimit)
		}
		if _, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			st.Counters.PromoCreated++
			st.Counters.Gen0Created++
			return nil
		}); err != nil {
			return err
		}
		var err error
		kitty, err = mint(tx, genes, recipient)
		return err
	})
	return kitty, err
}

// CreateGen0Auction mints a gen0 kitty to the core account and lists it on
// the sale auction at the next gen0 starting price, decaying to zero.
func (s *Service) CreateGen0Auction(ctx context.Context, genes domain.Genes, caller domain.Address) (domain.Kitty, domain.Auction, error) {
	const op = "create_gen0_auction"
	var (
		kitty   domain.Kitty
		auction domain.Auction
	)
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := requireRole(tx, op, caller, domain.RoleCOO); err != nil {
			return err
		}
		if created := tx.System().Counters.Gen0Created; created >= s.cfg.Gen0CreationLimit {
			return domain.Failf(domain.ErrLimitReached, op, "gen0 creation limit %d reached", s.cfg.Gen0CreationLimit)
		}
		if _, err := tx.UpdateSystem(func(st *domain.SystemState) error {
			st.Counters.Gen0Created++
			return nil
		}); err != nil {
			return err
		}
		var err error
		if kitty, err = mint(tx, genes, domain.CoreAddress); err != nil {
			return err
		}
		auction, err = openAuction(tx, op, domain.AuctionSale, AuctionRequest{
			TokenID:       kitty.ID,
			StartingPrice: NextGen0StartingPrice(tx.Gen0Tracker(), s.cfg.Gen0StartingPrice),
			EndingPrice:   0,
			Duration:      uint64(s.cfg.Gen0AuctionDuration / time.Second),
		}, domain.CoreAddress, true)
		return err
	})
	return kitty, auction, err
}
