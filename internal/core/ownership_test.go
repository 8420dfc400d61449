package core

import (
	"testing"

	"github.com/stretchr/testify/require"

	"kittycore/pkg/domain"
)

func TestTransferAndApprovals(t *testing.T) {
	h := newHarness(t)
	kitty := h.promo(alice, 1)

	require.ErrorIs(t, h.svc.Transfer(h.ctx, kitty.ID, bob, carol), domain.ErrNotOwnerOrApproved)
	require.ErrorIs(t, h.svc.Transfer(h.ctx, kitty.ID, "", alice), domain.ErrInvalidArgument)
	require.ErrorIs(t, h.svc.Transfer(h.ctx, kitty.ID, domain.SiringEscrowAddress, alice), domain.ErrInvalidArgument)

	since := h.lastSequence()
	require.NoError(t, h.svc.Transfer(h.ctx, kitty.ID, bob, alice))
	require.Equal(t, bob, h.kitty(kitty.ID).Owner)
	require.Equal(t, []domain.EventKind{domain.EventTransfer}, h.eventKinds(since))

	require.ErrorIs(t, h.svc.TransferFrom(h.ctx, kitty.ID, bob, carol, carol), domain.ErrNotOwnerOrApproved)
	require.NoError(t, h.svc.Approve(h.ctx, kitty.ID, carol, bob))
	require.NoError(t, h.svc.TransferFrom(h.ctx, kitty.ID, bob, alice, carol))
	require.Equal(t, alice, h.kitty(kitty.ID).Owner)
	require.ErrorIs(t, h.svc.TransferFrom(h.ctx, kitty.ID, alice, carol, carol), domain.ErrNotOwnerOrApproved, "approval is consumed by the transfer")

	ids, err := h.svc.TokensOfOwner(h.ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []domain.KittyID{kitty.ID}, ids)
	n, err := h.svc.BalanceOf(h.ctx, bob)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTransferClearsSiringApproval(t *testing.T) {
	h := newHarness(t)
	sire := h.promo(bob, 1)
	matron := h.promo(alice, 2)
	require.NoError(t, h.svc.ApproveSiring(h.ctx, sire.ID, alice, bob))
	require.NoError(t, h.svc.Transfer(h.ctx, sire.ID, carol, bob))

	_, err := h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.ErrorIs(t, err, domain.ErrNotOwnerOrApproved)
}

func TestTransfersBlockedWhilePaused(t *testing.T) {
	h := newHarness(t)
	kitty := h.promo(alice, 1)
	require.NoError(t, h.svc.Pause(h.ctx, coo))

	require.ErrorIs(t, h.svc.Transfer(h.ctx, kitty.ID, bob, alice), domain.ErrSystemPaused)
	require.ErrorIs(t, h.svc.Approve(h.ctx, kitty.ID, bob, alice), domain.ErrSystemPaused)
	require.ErrorIs(t, h.svc.ApproveSiring(h.ctx, kitty.ID, bob, alice), domain.ErrSystemPaused)
}

func TestRescueLostKitty(t *testing.T) {
	h := newHarness(t)
	kitty := h.promo(alice, 1)
	require.NoError(t, h.svc.Transfer(h.ctx, kitty.ID, domain.CoreAddress, alice))

	require.ErrorIs(t, h.svc.RescueLostKitty(h.ctx, kitty.ID, alice, cfo), domain.ErrNotAuthorized)
	require.NoError(t, h.svc.RescueLostKitty(h.ctx, kitty.ID, alice, coo))
	require.Equal(t, alice, h.kitty(kitty.ID).Owner)

	require.ErrorIs(t, h.svc.RescueLostKitty(h.ctx, kitty.ID, bob, coo), domain.ErrNotOwnerOrApproved, "only core-held kitties can be rescued")
}

func TestQueriesReportDerivedState(t *testing.T) {
	h := newHarness(t)
	matron := h.promo(alice, 1)
	sire := h.promo(alice, 2)

	ready, err := h.svc.IsReadyToBreed(h.ctx, matron.ID)
	require.NoError(t, err)
	require.True(t, ready)

	_, err = h.svc.BreedWith(h.ctx, matron.ID, sire.ID, alice)
	require.NoError(t, err)

	pregnant, err := h.svc.IsPregnant(h.ctx, matron.ID)
	require.NoError(t, err)
	require.True(t, pregnant)
	ready, err = h.svc.IsReadyToBreed(h.ctx, sire.ID)
	require.NoError(t, err)
	require.False(t, ready)

	all, err := h.svc.ListKitties(h.ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, domain.StateGestating, all[0].State)
	require.Equal(t, domain.StateCooling, all[1].State)

	_, err = h.svc.GetKitty(h.ctx, 77)
	require.ErrorIs(t, err, domain.KittyNotFound(77))
	_, err = h.svc.IsPregnant(h.ctx, 77)
	require.ErrorIs(t, err, domain.ErrNotFoundAny)
	_, err = h.svc.ListAuctions(h.ctx, "raffle")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
