package core

import (
	"context"

	"kittycore/pkg/domain"
)

// KittyInfo is a kitty record together with its custody and derived state.
type KittyInfo struct {
	domain.Kitty
	Owner     domain.Address       `json:"owner"`
	State     domain.BreedingState `json:"state"`
	OnAuction domain.AuctionKind   `json:"on_auction,omitempty"`
}

// AuctionInfo is an auction together with its price at the query time.
type AuctionInfo struct {
	domain.Auction
	CurrentPrice domain.Amount `json:"current_price"`
}

func kittyInfo(view domain.TransactionView, k domain.Kitty) KittyInfo {
	info := KittyInfo{Kitty: k, State: k.State(view.Now().Unix())}
	info.Owner, _ = view.OwnerOf(k.ID)
	for _, kind := range domain.AuctionKinds {
		if _, ok := view.FindAuction(kind, k.ID); ok {
			info.OnAuction = kind
		}
	}
	return info
}

func viewKitty(view domain.TransactionView, id domain.KittyID) (domain.Kitty, error) {
	k, ok := view.FindKitty(id)
	if !ok {
		return domain.Kitty{}, domain.KittyNotFound(id)
	}
	return k, nil
}

// GetKitty returns the kitty with its owner and breeding state.
func (s *Service) GetKitty(ctx context.Context, id domain.KittyID) (KittyInfo, error) {
	var out KittyInfo
	err := s.read(ctx, func(view domain.TransactionView) error {
		k, err := viewKitty(view, id)
		if err != nil {
			return err
		}
		out = kittyInfo(view, k)
		return nil
	})
	return out, err
}

// ListKitties returns every kitty in id order.
func (s *Service) ListKitties(ctx context.Context) ([]KittyInfo, error) {
	var out []KittyInfo
	err := s.read(ctx, func(view domain.TransactionView) error {
		kitties := view.ListKitties()
		out = make([]KittyInfo, 0, len(kitties))
		for _, k := range kitties {
			out = append(out, kittyInfo(view, k))
		}
		return nil
	})
	return out, err
}

// IsReadyToBreed reports whether the kitty is neither gestating nor cooling.
func (s *Service) IsReadyToBreed(ctx context.Context, id domain.KittyID) (bool, error) {
	var ready bool
	err := s.read(ctx, func(view domain.TransactionView) error {
		k, err := viewKitty(view, id)
		if err != nil {
			return err
		}
		ready = IsReadyToBreed(k, view.Now().Unix())
		return nil
	})
	return ready, err
}

// IsPregnant reports whether the kitty is gestating.
func (s *Service) IsPregnant(ctx context.Context, id domain.KittyID) (bool, error) {
	var pregnant bool
	err := s.read(ctx, func(view domain.TransactionView) error {
		k, err := viewKitty(view, id)
		if err != nil {
			return err
		}
		pregnant = k.IsGestating()
		return nil
	})
	return pregnant, err
}

// CanBreedWith reports whether the pair could mate right now: distinct, both
// Ready, neither held by an auction and not closely related.
func (s *Service) CanBreedWith(ctx context.Context, matronID, sireID domain.KittyID) (bool, error) {
	var ok bool
	err := s.read(ctx, func(view domain.TransactionView) error {
		matron, err := viewKitty(view, matronID)
		if err != nil {
			return err
		}
		sire, err := viewKitty(view, sireID)
		if err != nil {
			return err
		}
		ok = checkMatingPair(view, "can_breed_with", matron, sire, view.Now().Unix()) == nil
		return nil
	})
	return ok, err
}

// GetAuction returns the live auction of kind for tokenID.
func (s *Service) GetAuction(ctx context.Context, kind domain.AuctionKind, tokenID domain.KittyID) (AuctionInfo, error) {
	const op = "get_auction"
	var out AuctionInfo
	err := s.read(ctx, func(view domain.TransactionView) error {
		a, ok := view.FindAuction(kind, tokenID)
		if !ok {
			return domain.Failf(domain.ErrNoSuchAuction, op, "kitty %d is not on the %s auction", tokenID, kind)
		}
		out = AuctionInfo{Auction: a, CurrentPrice: priceAt(a, view.Now().Unix())}
		return nil
	})
	return out, err
}

// ListAuctions returns the live auctions of kind in token order.
func (s *Service) ListAuctions(ctx context.Context, kind domain.AuctionKind) ([]AuctionInfo, error) {
	if !kind.Valid() {
		return nil, domain.Failf(domain.ErrInvalidArgument, "list_auctions", "unknown auction kind %q", kind)
	}
	var out []AuctionInfo
	err := s.read(ctx, func(view domain.TransactionView) error {
		now := view.Now().Unix()
		for _, a := range view.ListAuctions(kind) {
			out = append(out, AuctionInfo{Auction: a, CurrentPrice: priceAt(a, now)})
		}
		return nil
	})
	return out, err
}

func priceAt(a domain.Auction, now int64) domain.Amount {
	return CurrentPrice(a.StartingPrice, a.EndingPrice, a.Duration, now-a.StartedAt)
}

// CurrentAuctionPrice returns the price a bid must cover right now.
func (s *Service) CurrentAuctionPrice(ctx context.Context, kind domain.AuctionKind, tokenID domain.KittyID) (domain.Amount, error) {
	info, err := s.GetAuction(ctx, kind, tokenID)
	if err != nil {
		return 0, err
	}
	return info.CurrentPrice, nil
}

// AverageGen0SalePrice returns the windowed average of recent gen0 sales.
func (s *Service) AverageGen0SalePrice(ctx context.Context) (domain.Amount, error) {
	var avg domain.Amount
	err := s.read(ctx, func(view domain.TransactionView) error {
		avg = view.Gen0Tracker().Average()
		return nil
	})
	return avg, err
}

// NextGen0Price returns the starting price the next gen0 auction would use.
func (s *Service) NextGen0Price(ctx context.Context) (domain.Amount, error) {
	var next domain.Amount
	err := s.read(ctx, func(view domain.TransactionView) error {
		next = NextGen0StartingPrice(view.Gen0Tracker(), s.cfg.Gen0StartingPrice)
		return nil
	})
	return next, err
}

// AccountBalance returns the pending pull-payment balance of addr.
func (s *Service) AccountBalance(ctx context.Context, addr domain.Address) (domain.Amount, error) {
	var balance domain.Amount
	err := s.read(ctx, func(view domain.TransactionView) error {
		balance = view.Balance(addr)
		return nil
	})
	return balance, err
}

// TotalSupply returns the number of kitties ever created.
func (s *Service) TotalSupply(ctx context.Context) (int, error) {
	var n int
	err := s.read(ctx, func(view domain.TransactionView) error {
		n = view.KittyCount()
		return nil
	})
	return n, err
}

// BalanceOf returns the number of kitties owned by owner.
func (s *Service) BalanceOf(ctx context.Context, owner domain.Address) (int, error) {
	ids, err := s.TokensOfOwner(ctx, owner)
	return len(ids), err
}

// TokensOfOwner returns the ids custodied by owner in ascending order.
func (s *Service) TokensOfOwner(ctx context.Context, owner domain.Address) ([]domain.KittyID, error) {
	var ids []domain.KittyID
	err := s.read(ctx, func(view domain.TransactionView) error {
		ids = view.TokensOwnedBy(owner)
		return nil
	})
	return ids, err
}

// Events returns up to limit committed events with a sequence above since.
func (s *Service) Events(ctx context.Context, since uint64, limit int) ([]domain.Event, error) {
	var out []domain.Event
	err := s.read(ctx, func(view domain.TransactionView) error {
		out = view.Events(since, limit)
		return nil
	})
	return out, err
}

// SystemStatus returns the operator record: roles, pause flag, fee and mint counters.
func (s *Service) SystemStatus(ctx context.Context) (domain.SystemState, error) {
	var st domain.SystemState
	err := s.read(ctx, func(view domain.TransactionView) error {
		st = view.System()
		return nil
	})
	return st, err
}

// Roles returns the operator role assignments.
func (s *Service) Roles(ctx context.Context) (domain.Roles, error) {
	st, err := s.SystemStatus(ctx)
	return st.Roles, err
}

// Paused reports whether the system is paused.
func (s *Service) Paused(ctx context.Context) (bool, error) {
	st, err := s.SystemStatus(ctx)
	return st.Paused, err
}

// AutoBirthFee returns the fee currently charged by BreedWithAuto.
func (s *Service) AutoBirthFee(ctx context.Context) (domain.Amount, error) {
	st, err := s.SystemStatus(ctx)
	return st.Params.AutoBirthFee, err
}
