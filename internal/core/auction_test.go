package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kittycore/pkg/domain"
)

func (h *harness) listForSale(owner domain.Address, id domain.KittyID, start, end domain.Amount, duration uint64) domain.Auction {
	h.t.Helper()
	a, err := h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: id, StartingPrice: start, EndingPrice: end, Duration: duration}, owner)
	require.NoError(h.t, err)
	return a
}

func TestDutchAuctionRisingPriceScenario(t *testing.T) {
	h := newHarness(t)
	first := h.promo(alice, 1)
	second := h.promo(alice, 2)

	since := h.lastSequence()
	auction := h.listForSale(alice, first.ID, 100, 200, 60)
	require.Equal(t, h.clock.Now().Unix(), auction.StartedAt)
	require.Equal(t, domain.SaleEscrowAddress, h.kitty(first.ID).Owner)
	require.Equal(t, domain.AuctionSale, h.kitty(first.ID).OnAuction)
	require.Equal(t, []domain.EventKind{domain.EventTransfer, domain.EventAuctionCreated}, h.eventKinds(since))

	settled, err := h.svc.Bid(h.ctx, first.ID, 101, bob)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(100), settled.Price)
	require.Equal(t, domain.Amount(1), settled.Refund)
	require.Equal(t, domain.Amount(3), settled.Fee)
	require.Equal(t, domain.Amount(97), settled.SellerProceeds())
	require.Equal(t, bob, h.kitty(first.ID).Owner)
	require.Equal(t, domain.Amount(1), h.balance(bob))
	require.Equal(t, domain.Amount(97), h.balance(alice))
	require.Equal(t, domain.Amount(3), h.balance(domain.SaleEscrowAddress))

	h.listForSale(alice, second.ID, 100, 200, 60)
	h.clock.Advance(30 * time.Second)
	price, err := h.svc.CurrentAuctionPrice(h.ctx, domain.AuctionSale, second.ID)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(150), price)

	h.clock.Advance(45 * time.Second)
	_, err = h.svc.Bid(h.ctx, second.ID, 199, carol)
	require.ErrorIs(t, err, domain.ErrInsufficientValue)
	settled, err = h.svc.Bid(h.ctx, second.ID, 200, carol)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(200), settled.Price)
	require.Zero(t, settled.Refund)
	require.Equal(t, carol, h.kitty(second.ID).Owner)
}

func TestAuctionHouseCutScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SaleCutBps = 500
	h := newHarness(t, WithConfig(cfg))
	kitty := h.promo(alice, 1)
	h.listForSale(alice, kitty.ID, 100, 100, 60)

	settled, err := h.svc.Bid(h.ctx, kitty.ID, 100, bob)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(5), settled.Fee)
	require.Equal(t, domain.Amount(95), h.balance(alice))
	require.Equal(t, domain.Amount(5), h.balance(domain.SaleEscrowAddress))

	_, err = h.svc.WithdrawAuctionBalance(h.ctx, domain.AuctionSale, alice)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)

	since := h.lastSequence()
	paid, err := h.svc.WithdrawAuctionBalance(h.ctx, domain.AuctionSale, cfo)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(5), paid)
	require.Zero(t, h.balance(domain.SaleEscrowAddress))
	require.Equal(t, []domain.EventKind{domain.EventWithdrawal}, h.eventKinds(since))

	paid, err = h.svc.Withdraw(h.ctx, alice)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(95), paid)
	require.Zero(t, h.balance(alice))
}

func TestAuctionUniquenessAndLifecycle(t *testing.T) {
	h := newHarness(t)
	kitty := h.promo(alice, 1)
	h.listForSale(alice, kitty.ID, 50, 10, 600)

	_, err := h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: kitty.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.ErrorIs(t, err, domain.ErrAlreadyOnAuction)
	_, err = h.svc.CreateSiringAuction(h.ctx, AuctionRequest{TokenID: kitty.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.ErrorIs(t, err, domain.ErrAlreadyOnAuction)

	err = h.svc.Transfer(h.ctx, kitty.ID, bob, alice)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved, "escrowed kitties cannot be transferred by the seller")

	err = h.svc.CancelAuction(h.ctx, domain.AuctionSale, kitty.ID, bob)
	require.ErrorIs(t, err, domain.ErrNotSeller)

	require.NoError(t, h.svc.CancelAuction(h.ctx, domain.AuctionSale, kitty.ID, alice))
	require.Equal(t, alice, h.kitty(kitty.ID).Owner)

	_, err = h.svc.GetAuction(h.ctx, domain.AuctionSale, kitty.ID)
	require.ErrorIs(t, err, domain.ErrNoSuchAuction)
	err = h.svc.CancelAuction(h.ctx, domain.AuctionSale, kitty.ID, alice)
	require.ErrorIs(t, err, domain.ErrNoSuchAuction)
	_, err = h.svc.Bid(h.ctx, kitty.ID, 100, bob)
	require.ErrorIs(t, err, domain.ErrNoSuchAuction)

	h.listForSale(alice, kitty.ID, 50, 10, 600)
	_, err = h.svc.Bid(h.ctx, kitty.ID, 50, bob)
	require.NoError(t, err)
	_, err = h.svc.Bid(h.ctx, kitty.ID, 50, carol)
	require.ErrorIs(t, err, domain.ErrNoSuchAuction)

	auctions, err := h.svc.ListAuctions(h.ctx, domain.AuctionSale)
	require.NoError(t, err)
	require.Empty(t, auctions)
}

func TestCreateAuctionValidation(t *testing.T) {
	h := newHarness(t)
	kitty := h.promo(alice, 1)

	_, err := h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: kitty.ID, StartingPrice: 1, EndingPrice: 1, Duration: 59}, alice)
	require.ErrorIs(t, err, domain.ErrInvalidDuration)
	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: kitty.ID, StartingPrice: 1, EndingPrice: 1, Duration: MaxAuctionDuration + 1}, alice)
	require.ErrorIs(t, err, domain.ErrDurationOverflow)
	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: kitty.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, bob)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved)
	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: 42, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.ErrorIs(t, err, domain.ErrNotFoundAny)

	require.Equal(t, alice, h.kitty(kitty.ID).Owner, "failed listings leave custody untouched")

	sire := h.promo(alice, 2)
	_, err = h.svc.BreedWith(h.ctx, kitty.ID, sire.ID, alice)
	require.NoError(t, err)
	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: kitty.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "gestating matron")
	_, err = h.svc.CreateSiringAuction(h.ctx, AuctionRequest{TokenID: sire.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "cooling sire")
	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: sire.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.NoError(t, err, "cooling kitties may still be sold")
}

func TestSiringAuctionBreedsWinningMatron(t *testing.T) {
	h := newHarness(t)
	fee := DefaultAutoBirthFee
	sire := h.promo(bob, 7)
	matron := h.promo(alice, 9)

	_, err := h.svc.CreateSiringAuction(h.ctx, AuctionRequest{TokenID: sire.ID, StartingPrice: 1000, EndingPrice: 1000, Duration: 600}, bob)
	require.NoError(t, err)
	require.Equal(t, domain.SiringEscrowAddress, h.kitty(sire.ID).Owner)

	_, err = h.svc.BidOnSiringAuction(h.ctx, sire.ID, matron.ID, 1000, alice)
	require.ErrorIs(t, err, domain.ErrInsufficientValue, "the auto-birth fee is due on top of the price")
	_, err = h.svc.BidOnSiringAuction(h.ctx, sire.ID, matron.ID, 1000+fee, bob)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved, "bidder must own the matron")

	pregnant, err := h.svc.BidOnSiringAuction(h.ctx, sire.ID, matron.ID, 1000+fee+7, alice)
	require.NoError(t, err)
	require.Equal(t, sire.ID, pregnant.SiringWithID)

	sireInfo := h.kitty(sire.ID)
	require.Equal(t, bob, sireInfo.Owner, "sire returns to its seller")
	require.Equal(t, domain.StateCooling, sireInfo.State)
	require.Empty(t, sireInfo.OnAuction)

	cut := ComputeCut(1000, DefaultSiringCutBps)
	require.Equal(t, 1000-cut, h.balance(bob))
	require.Equal(t, cut, h.balance(domain.SiringEscrowAddress))
	require.Equal(t, domain.Amount(7), h.balance(alice))
	require.Equal(t, fee, h.balance(domain.CoreAddress))

	h.waitUntil(pregnant.NextActionAt)
	child, err := h.svc.GiveBirth(h.ctx, matron.ID, carol)
	require.NoError(t, err)
	require.Equal(t, alice, h.kitty(child.ID).Owner)
	require.Equal(t, fee, h.balance(carol))
}

func TestSiringAuctionRejectsRelatedMatron(t *testing.T) {
	h := newHarness(t)
	sire := h.promo(alice, 1)
	other := h.promo(alice, 2)
	child := h.breedAndBirth(other.ID, sire.ID, alice)
	h.waitUntil(h.kitty(sire.ID).NextActionAt)

	_, err := h.svc.CreateSiringAuction(h.ctx, AuctionRequest{TokenID: sire.ID, StartingPrice: 10, EndingPrice: 10, Duration: 60}, alice)
	require.NoError(t, err)

	_, err = h.svc.BidOnSiringAuction(h.ctx, sire.ID, child.ID, 10+DefaultAutoBirthFee, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible)
	require.Equal(t, domain.SiringEscrowAddress, h.kitty(sire.ID).Owner)
	require.Zero(t, h.balance(alice))

	_, err = h.svc.BidOnSiringAuction(h.ctx, child.ID, other.ID, 10+DefaultAutoBirthFee, alice)
	require.ErrorIs(t, err, domain.ErrNoSuchAuction)
}

func TestAuctionsWhilePaused(t *testing.T) {
	h := newHarness(t)
	first := h.promo(alice, 1)
	second := h.promo(alice, 2)
	h.listForSale(alice, first.ID, 10, 10, 60)
	h.listForSale(alice, second.ID, 10, 10, 60)

	err := h.svc.CancelAuctionWhenPaused(h.ctx, domain.AuctionSale, first.ID, coo)
	require.ErrorIs(t, err, domain.ErrNotPaused)

	require.NoError(t, h.svc.Pause(h.ctx, coo))
	_, err = h.svc.Bid(h.ctx, first.ID, 10, bob)
	require.ErrorIs(t, err, domain.ErrSystemPaused)
	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: first.ID, StartingPrice: 1, EndingPrice: 1, Duration: 60}, alice)
	require.ErrorIs(t, err, domain.ErrSystemPaused)

	err = h.svc.CancelAuctionWhenPaused(h.ctx, domain.AuctionSale, first.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	require.NoError(t, h.svc.CancelAuctionWhenPaused(h.ctx, domain.AuctionSale, first.ID, coo))
	require.Equal(t, alice, h.kitty(first.ID).Owner)

	require.NoError(t, h.svc.CancelAuction(h.ctx, domain.AuctionSale, second.ID, alice), "sellers may always withdraw")
	require.Equal(t, alice, h.kitty(second.ID).Owner)
}

func TestWithdrawalsRespectRolesAndReserves(t *testing.T) {
	h := newHarness(t)
	kitty := h.promo(alice, 1)
	h.listForSale(alice, kitty.ID, 10_000, 10_000, 60)
	_, err := h.svc.Bid(h.ctx, kitty.ID, 10_000, bob)
	require.NoError(t, err)
	saleCut := h.balance(domain.SaleEscrowAddress)
	require.Equal(t, domain.Amount(375), saleCut)

	matron := h.promo(carol, 2)
	sire := h.promo(carol, 3)
	_, err = h.svc.BreedWithAuto(h.ctx, matron.ID, sire.ID, DefaultAutoBirthFee, carol)
	require.NoError(t, err)

	_, err = h.svc.WithdrawAuctionBalances(h.ctx, cfo)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	swept, err := h.svc.WithdrawAuctionBalances(h.ctx, coo)
	require.NoError(t, err)
	require.Equal(t, saleCut, swept)
	require.Equal(t, saleCut+DefaultAutoBirthFee, h.balance(domain.CoreAddress))

	_, err = h.svc.WithdrawBalance(h.ctx, coo)
	require.ErrorIs(t, err, domain.ErrNotAuthorized)
	paid, err := h.svc.WithdrawBalance(h.ctx, cfo)
	require.NoError(t, err)
	require.Equal(t, saleCut, paid)
	require.Equal(t, DefaultAutoBirthFee, h.balance(domain.CoreAddress))

	for _, addr := range []domain.Address{"", domain.CoreAddress, domain.SaleEscrowAddress} {
		_, err = h.svc.Withdraw(h.ctx, addr)
		require.ErrorIs(t, err, domain.ErrNotAuthorized, "address %q", addr)
	}
	paid, err = h.svc.Withdraw(h.ctx, "dave")
	require.NoError(t, err)
	require.Zero(t, paid)

	_, err = h.svc.WithdrawAuctionBalance(h.ctx, "bogus", cfo)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
