package core

import (
	"context"

	"go.uber.org/zap"

	"kittycore/pkg/domain"
)

// AuctionRequest carries the seller supplied terms of a new dutch auction.
type AuctionRequest struct {
	TokenID       domain.KittyID `json:"token_id"`
	StartingPrice domain.Amount  `json:"starting_price"`
	EndingPrice   domain.Amount  `json:"ending_price"`
	Duration      uint64         `json:"duration"`
}

// Settlement describes a successful bid.
type Settlement struct {
	Auction domain.Auction `json:"auction"`
	Price   domain.Amount  `json:"price"`
	Fee     domain.Amount  `json:"fee"`
	Refund  domain.Amount  `json:"refund"`
	Winner  domain.Address `json:"winner"`
}

// SellerProceeds is the amount credited to the seller.
func (s Settlement) SellerProceeds() domain.Amount { return s.Price - s.Fee }

// openAuction moves custody of req.TokenID into the kind's escrow and records
// the auction. Ownership and eligibility are checked by the caller.
func openAuction(tx domain.Transaction, op string, kind domain.AuctionKind, req AuctionRequest, seller domain.Address, gen0 bool) (domain.Auction, error) {
	if err := validateAuctionDuration(op, req.Duration); err != nil {
		return domain.Auction{}, err
	}
	if _, ok := tx.FindAuction(kind, req.TokenID); ok {
		return domain.Auction{}, domain.Failf(domain.ErrAlreadyOnAuction, op, "kitty %d is already on the %s auction", req.TokenID, kind)
	}
	if err := move(tx, req.TokenID, seller, kind.EscrowAddress()); err != nil {
		return domain.Auction{}, err
	}
	auction, err := tx.CreateAuction(domain.Auction{
		Kind:          kind,
		TokenID:       req.TokenID,
		Seller:        seller,
		StartingPrice: req.StartingPrice,
		EndingPrice:   req.EndingPrice,
		Duration:      req.Duration,
		StartedAt:     tx.Now().Unix(),
		Gen0:          gen0,
	})
	if err != nil {
		return domain.Auction{}, err
	}
	tx.Emit(domain.Event{
		Kind:          domain.EventAuctionCreated,
		AuctionKind:   kind,
		KittyID:       req.TokenID,
		From:          seller,
		StartingPrice: req.StartingPrice,
		EndingPrice:   req.EndingPrice,
		Duration:      req.Duration,
	})
	return auction, nil
}

// auctionPrice is the price of a at the transaction clock.
func auctionPrice(tx domain.Transaction, a domain.Auction) domain.Amount {
	return priceAt(a, tx.Now().Unix())
}

// settle closes the auction for tokenID against a payment of paid. The seller
// receives price minus the house cut, the house account keeps the cut and the
// bidder is credited any excess. Custody stays in escrow; the caller decides
// where the token goes next.
func (s *Service) settle(tx domain.Transaction, op string, kind domain.AuctionKind, tokenID domain.KittyID, paid domain.Amount, bidder domain.Address) (Settlement, error) {
	auction, ok := tx.FindAuction(kind, tokenID)
	if !ok {
		return Settlement{}, domain.Failf(domain.ErrNoSuchAuction, op, "kitty %d is not on the %s auction", tokenID, kind)
	}
	price := auctionPrice(tx, auction)
	if paid < price {
		return Settlement{}, domain.Failf(domain.ErrInsufficientValue, op, "paid %d, current price is %d", paid, price)
	}
	if _, err := tx.DeleteAuction(kind, tokenID); err != nil {
		return Settlement{}, err
	}
	fee := ComputeCut(price, s.cfg.CutBps(kind))
	if err := tx.Credit(auction.Seller, price-fee); err != nil {
		return Settlement{}, err
	}
	if err := tx.Credit(kind.EscrowAddress(), fee); err != nil {
		return Settlement{}, err
	}
	if err := tx.Credit(bidder, paid-price); err != nil {
		return Settlement{}, err
	}
	if auction.Gen0 && kind == domain.AuctionSale {
		tx.RecordGen0Sale(price)
	}
	tx.Emit(domain.Event{
		Kind:        domain.EventAuctionSuccessful,
		AuctionKind: kind,
		KittyID:     tokenID,
		From:        auction.Seller,
		To:          bidder,
		Price:       price,
		Fee:         fee,
	})
	return Settlement{Auction: auction, Price: price, Fee: fee, Refund: paid - price, Winner: bidder}, nil
}

// Bid buys a kitty on the sale auction. paid must cover the current price;
// the excess is credited back to the bidder's balance.
func (s *Service) Bid(ctx context.Context, tokenID domain.KittyID, paid domain.Amount, bidder domain.Address) (Settlement, error) {
	const op = "bid"
	var out Settlement
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireNotPaused(tx, op); err != nil {
			return err
		}
		if err := validateRecipient(op, bidder); err != nil {
			return err
		}
		var err error
		if out, err = s.settle(tx, op, domain.AuctionSale, tokenID, paid, bidder); err != nil {
			return err
		}
		return move(tx, tokenID, domain.SaleEscrowAddress, bidder)
	})
	if err == nil {
		s.logger.Debug("auction settled",
			zap.String("kind", string(domain.AuctionSale)),
			zap.Uint64("kitty_id", uint64(tokenID)),
			zap.Uint64("price", uint64(out.Price)),
		)
	}
	return out, err
}

func (s *Service) cancel(tx domain.Transaction, kind domain.AuctionKind, tokenID domain.KittyID) (domain.Auction, error) {
	auction, err := tx.DeleteAuction(kind, tokenID)
	if err != nil {
		return domain.Auction{}, err
	}
	if err := move(tx, tokenID, kind.EscrowAddress(), auction.Seller); err != nil {
		return domain.Auction{}, err
	}
	tx.Emit(domain.Event{Kind: domain.EventAuctionCancelled, AuctionKind: kind, KittyID: tokenID, To: auction.Seller})
	return auction, nil
}

func findAuction(tx domain.Transaction, op string, kind domain.AuctionKind, tokenID domain.KittyID) (domain.Auction, error) {
	if !kind.Valid() {
		return domain.Auction{}, domain.Failf(domain.ErrInvalidArgument, op, "unknown auction kind %q", kind)
	}
	auction, ok := tx.FindAuction(kind, tokenID)
	if !ok {
		return domain.Auction{}, domain.Failf(domain.ErrNoSuchAuction, op, "kitty %d is not on the %s auction", tokenID, kind)
	}
	return auction, nil
}

// CancelAuction withdraws an unsold kitty and returns it to the seller. Only
// the seller may cancel; it remains available while the system is paused.
func (s *Service) CancelAuction(ctx context.Context, kind domain.AuctionKind, tokenID domain.KittyID, caller domain.Address) error {
	const op = "cancel_auction"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		auction, err := findAuction(tx, op, kind, tokenID)
		if err != nil {
			return err
		}
		if caller.IsZero() || auction.Seller != caller {
			return domain.Failf(domain.ErrNotSeller, op, "%q did not list kitty %d", caller, tokenID)
		}
		_, err = s.cancel(tx, kind, tokenID)
		return err
	})
}

// CancelAuctionWhenPaused lets an operator unwind any auction during an
// emergency pause. The kitty is returned to its seller.
func (s *Service) CancelAuctionWhenPaused(ctx context.Context, kind domain.AuctionKind, tokenID domain.KittyID, caller domain.Address) error {
	const op = "cancel_auction_when_paused"
	return s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCOO, domain.RoleCEO); err != nil {
			return err
		}
		if !tx.System().Paused {
			return domain.Failf(domain.ErrNotPaused, op, "emergency cancellation requires a paused system")
		}
		if _, err := findAuction(tx, op, kind, tokenID); err != nil {
			return err
		}
		_, err := s.cancel(tx, kind, tokenID)
		return err
	})
}

// payOut debits amount from `from` and emits a Withdrawal to `to`. When to is
// an external account the funds leave the ledger; otherwise they are credited.
func payOut(tx domain.Transaction, from, to domain.Address, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}
	if err := tx.Debit(from, amount); err != nil {
		return err
	}
	if to == domain.CoreAddress {
		if err := tx.Credit(to, amount); err != nil {
			return err
		}
	}
	tx.Emit(domain.Event{Kind: domain.EventWithdrawal, From: from, To: to, Amount: amount})
	return nil
}

// WithdrawAuctionBalance pays the whole house cut accumulated by one auction
// engine to the CFO.
func (s *Service) WithdrawAuctionBalance(ctx context.Context, kind domain.AuctionKind, caller domain.Address) (domain.Amount, error) {
	const op = "withdraw_auction_balance"
	if !kind.Valid() {
		return 0, domain.Failf(domain.ErrInvalidArgument, op, "unknown auction kind %q", kind)
	}
	var paid domain.Amount
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCFO); err != nil {
			return err
		}
		paid = tx.Balance(kind.EscrowAddress())
		return payOut(tx, kind.EscrowAddress(), caller, paid)
	})
	return paid, err
}

// WithdrawAuctionBalances sweeps both house balances into the core treasury.
func (s *Service) WithdrawAuctionBalances(ctx context.Context, caller domain.Address) (domain.Amount, error) {
	const op = "withdraw_auction_balances"
	var swept domain.Amount
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCOO, domain.RoleCEO); err != nil {
			return err
		}
		swept = 0
		for _, kind := range domain.AuctionKinds {
			amount := tx.Balance(kind.EscrowAddress())
			if err := payOut(tx, kind.EscrowAddress(), domain.CoreAddress, amount); err != nil {
				return err
			}
			swept += amount
		}
		return nil
	})
	return swept, err
}

// WithdrawBalance pays the core treasury to the CFO, keeping back the
// auto-birth fees still owed to keepers.
func (s *Service) WithdrawBalance(ctx context.Context, caller domain.Address) (domain.Amount, error) {
	const op = "withdraw_balance"
	var paid domain.Amount
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		if err := requireRole(tx, op, caller, domain.RoleCFO); err != nil {
			return err
		}
		balance := tx.Balance(domain.CoreAddress)
		reserved := tx.Snapshot().TotalAutoBirthEscrow()
		if balance <= reserved {
			paid = 0
			return nil
		}
		paid = balance - reserved
		return payOut(tx, domain.CoreAddress, caller, paid)
	})
	return paid, err
}

// Withdraw pays out the caller's pending balance: sale proceeds, refunds and
// keeper fees. System accounts are drained through the operator withdrawals.
func (s *Service) Withdraw(ctx context.Context, caller domain.Address) (domain.Amount, error) {
	const op = "withdraw"
	if caller.IsZero() || caller == domain.CoreAddress || domain.IsEscrowAddress(caller) {
		return 0, domain.Failf(domain.ErrNotAuthorized, op, "%q cannot withdraw directly", caller)
	}
	var paid domain.Amount
	err := s.run(ctx, op, func(tx domain.Transaction) error {
		paid = tx.Balance(caller)
		return payOut(tx, caller, caller, paid)
	})
	return paid, err
}
