package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kittycore/pkg/domain"
)

func TestBreedAndBirthScenario(t *testing.T) {
	h := newHarness(t)
	matron := h.promo(alice, 10)
	sire := h.promo(alice, 100)
	require.Equal(t, uint32(0), matron.Generation)

	pregnant, err := h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.NoError(t, err)
	require.Equal(t, sire.ID, pregnant.SiringWithID)
	require.Equal(t, h.clock.Now().Unix()+60, pregnant.NextActionAt)
	require.Equal(t, uint8(1), pregnant.CooldownIndex)

	sireAfter := h.kitty(sire.ID)
	require.Equal(t, uint8(1), sireAfter.CooldownIndex)
	require.Equal(t, domain.StateCooling, sireAfter.State)
	require.Equal(t, domain.StateGestating, h.kitty(matron.ID).State)

	_, err = h.svc.GiveBirth(h.ctx, matron.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotReady)

	h.clock.Advance(61 * time.Second)
	since := h.lastSequence()
	child, err := h.svc.GiveBirth(h.ctx, matron.ID, bob)
	require.NoError(t, err)
	require.Equal(t, uint32(1), child.Generation)
	require.Equal(t, matron.ID, child.MatronID)
	require.Equal(t, sire.ID, child.SireID)
	require.Equal(t, domain.GenesFromUint64(56), child.Genes)
	require.Equal(t, uint8(0), child.CooldownIndex)

	info := h.kitty(child.ID)
	require.Equal(t, alice, info.Owner, "child belongs to the matron owner, not the caller")
	require.Equal(t, domain.StateReady, info.State)
	require.False(t, h.kitty(matron.ID).IsGestating())
	require.Equal(t, []domain.EventKind{domain.EventTransfer, domain.EventBirth}, h.eventKinds(since))

	_, err = h.svc.GiveBirth(h.ctx, matron.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotReady)
}

func TestFullSiblingsCannotBreed(t *testing.T) {
	h := newHarness(t)
	matron := h.promo(alice, 1)
	sire := h.promo(alice, 2)

	first := h.breedAndBirth(matron.ID, sire.ID, alice)
	h.waitUntil(h.kitty(sire.ID).NextActionAt)
	second := h.breedAndBirth(matron.ID, sire.ID, alice)

	for _, pair := range [][2]domain.KittyID{{first.ID, second.ID}, {second.ID, first.ID}} {
		ok, err := h.svc.CanBreedWith(h.ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.False(t, ok, "siblings %d and %d", pair[0], pair[1])
	}
	_, err := h.svc.BreedWith(h.ctx, first.ID, second.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible)

	ok, err := h.svc.CanBreedWith(h.ctx, first.ID, matron.ID)
	require.NoError(t, err)
	require.False(t, ok, "child and parent")

	unrelated := h.promo(alice, 3)
	ok, err = h.svc.CanBreedWith(h.ctx, first.ID, unrelated.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCooldownIndexAdvancesAndCaps(t *testing.T) {
	h := newHarness(t)
	cooldowns := h.svc.Config().Cooldowns
	matron := h.promo(alice, 1)
	for i := 0; i < 14; i++ {
		sire := h.promo(alice, uint64(100+i))
		h.waitUntil(h.kitty(matron.ID).NextActionAt)
		h.breedAndBirth(matron.ID, sire.ID, alice)
		require.Equal(t, min(uint8(i+1), domain.MaxCooldownIndex), h.kitty(matron.ID).CooldownIndex)
	}

	sire := h.promo(alice, 999)
	h.waitUntil(h.kitty(matron.ID).NextActionAt)
	now := h.clock.Now().Unix()
	pregnant, err := h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.NoError(t, err)
	require.Equal(t, domain.MaxCooldownIndex, pregnant.CooldownIndex)
	require.Equal(t, now+cooldowns.Seconds(domain.MaxCooldownIndex), pregnant.NextActionAt)
	require.Equal(t, int64(7*24*3600), cooldowns.Seconds(domain.MaxCooldownIndex))
}

func TestBreedWithPermissions(t *testing.T) {
	h := newHarness(t)
	matron := h.promo(alice, 1)
	sire := h.promo(bob, 2)

	_, err := h.svc.BreedWith(h.ctx, matron.ID, sire.ID, bob)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved, "bob does not own the matron")

	_, err = h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved, "no siring approval yet")

	require.NoError(t, h.svc.ApproveSiring(h.ctx, sire.ID, alice, bob))
	_, err = h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.NoError(t, err)

	h.waitUntil(h.kitty(matron.ID).NextActionAt)
	_, err = h.svc.GiveBirth(h.ctx, matron.ID, alice)
	require.NoError(t, err)
	h.waitUntil(h.kitty(sire.ID).NextActionAt)

	_, err = h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved, "siring approval is single use")

	_, err = h.svc.BreedWith(h.ctx, matron.ID, 99, alice)
	require.ErrorIs(t, err, domain.ErrNotFoundAny)
}

func TestBreedWithIneligiblePairs(t *testing.T) {
	h := newHarness(t)
	a := h.promo(alice, 1)
	b := h.promo(alice, 2)
	c := h.promo(alice, 3)

	_, err := h.svc.BreedWith(h.ctx, a.ID, a.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = h.svc.BreedWith(h.ctx, a.ID, b.ID, alice)
	require.NoError(t, err)

	_, err = h.svc.BreedWith(h.ctx, a.ID, c.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "matron is gestating")
	_, err = h.svc.BreedWith(h.ctx, c.ID, b.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "sire is cooling")

	_, err = h.svc.CreateSaleAuction(h.ctx, AuctionRequest{TokenID: c.ID, StartingPrice: 10, EndingPrice: 1, Duration: 600}, alice)
	require.NoError(t, err)
	d := h.promo(alice, 4)
	_, err = h.svc.BreedWith(h.ctx, d.ID, c.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "escrowed sire")
	_, err = h.svc.BreedWithAuto(h.ctx, d.ID, c.ID, DefaultAutoBirthFee, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "escrowed sire")
	ok, err := h.svc.CanBreedWith(h.ctx, d.ID, c.ID)
	require.NoError(t, err)
	require.False(t, ok)

	e := h.promo(alice, 5)
	_, err = h.svc.CreateSiringAuction(h.ctx, AuctionRequest{TokenID: d.ID, StartingPrice: 10, EndingPrice: 1, Duration: 600}, alice)
	require.NoError(t, err)
	_, err = h.svc.BreedWith(h.ctx, d.ID, e.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotEligible, "escrowed matron")
	require.NotErrorIs(t, err, domain.ErrNotOwnerOrApproved)
	_, err = h.svc.BreedWith(h.ctx, e.ID, d.ID, bob)
	require.ErrorIs(t, err, domain.ErrNotEligible, "escrow is checked before ownership")
}

func TestBreedWithAutoEscrowsKeeperFee(t *testing.T) {
	h := newHarness(t)
	fee := DefaultAutoBirthFee
	matron := h.promo(alice, 1)
	sire := h.promo(alice, 2)

	_, err := h.svc.BreedWithAuto(h.ctx, matron.ID, sire.ID, fee-1, alice)
	require.ErrorIs(t, err, domain.ErrInsufficientValue)

	since := h.lastSequence()
	pregnant, err := h.svc.BreedWithAuto(h.ctx, matron.ID, sire.ID, fee+5, alice)
	require.NoError(t, err)
	require.Equal(t, []domain.EventKind{domain.EventPregnant, domain.EventAutoBirth}, h.eventKinds(since))
	events, err := h.svc.Events(h.ctx, since, 0)
	require.NoError(t, err)
	require.Equal(t, pregnant.NextActionAt, events[1].CooldownEndTime)
	require.Equal(t, domain.Amount(5), h.balance(alice))
	require.Equal(t, fee, h.balance(domain.CoreAddress))

	withdrawn, err := h.svc.WithdrawBalance(h.ctx, cfo)
	require.NoError(t, err)
	require.Zero(t, withdrawn, "escrowed fees are not withdrawable")

	h.waitUntil(pregnant.NextActionAt)
	since = h.lastSequence()
	_, err = h.svc.GiveBirth(h.ctx, matron.ID, carol)
	require.NoError(t, err)
	require.Equal(t, fee, h.balance(carol))
	require.Zero(t, h.balance(domain.CoreAddress))

	events, err = h.svc.Events(h.ctx, since, 0)
	require.NoError(t, err)
	last := events[len(events)-1]
	require.Equal(t, domain.EventAutoBirth, last.Kind)
	require.True(t, last.Settled)
	require.Equal(t, carol, last.Keeper)
	require.Equal(t, fee, last.Fee)
}

func TestGiveBirthRollsBackOnGeneFailure(t *testing.T) {
	failing := GeneScienceFunc(func(context.Context, domain.Genes, domain.Genes, uint64) (domain.Genes, error) {
		return domain.Genes{}, errors.New("gene lab offline")
	})
	h := newHarness(t, WithGeneScience(failing))
	matron := h.promo(alice, 1)
	sire := h.promo(alice, 2)
	pregnant, err := h.svc.BreedWithAuto(h.ctx, matron.ID, sire.ID, DefaultAutoBirthFee, alice)
	require.NoError(t, err)
	h.waitUntil(pregnant.NextActionAt)

	before, err := h.svc.TotalSupply(h.ctx)
	require.NoError(t, err)
	seq := h.lastSequence()

	_, err = h.svc.GiveBirth(h.ctx, matron.ID, carol)
	require.ErrorContains(t, err, "gene lab offline")

	after, err := h.svc.TotalSupply(h.ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.True(t, h.kitty(matron.ID).IsGestating())
	require.Zero(t, h.balance(carol))
	require.Equal(t, DefaultAutoBirthFee, h.balance(domain.CoreAddress))
	require.Equal(t, seq, h.lastSequence())
}

func TestBreedingBlockedWhilePaused(t *testing.T) {
	h := newHarness(t)
	matron := h.promo(alice, 1)
	sire := h.promo(alice, 2)
	pregnant, err := h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.NoError(t, err)
	h.waitUntil(pregnant.NextActionAt)

	require.NoError(t, h.svc.Pause(h.ctx, cfo))
	_, err = h.svc.GiveBirth(h.ctx, matron.ID, alice)
	require.ErrorIs(t, err, domain.ErrSystemPaused)
	_, err = h.svc.BreedWith(h.ctx, sire.ID, matron.ID, alice)
	require.ErrorIs(t, err, domain.ErrSystemPaused)

	require.NoError(t, h.svc.Unpause(h.ctx, ceo))
	_, err = h.svc.GiveBirth(h.ctx, matron.ID, alice)
	require.NoError(t, err)
}
