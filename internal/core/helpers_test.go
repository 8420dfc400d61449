package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/pkg/domain"
)

const (
	ceo   domain.Address = "ceo"
	cfo   domain.Address = "cfo"
	coo   domain.Address = "coo"
	alice domain.Address = "alice"
	bob   domain.Address = "bob"
	carol domain.Address = "carol"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	svc   *Service
	store *memory.Store
	clock *fakeClock
}

// newHarness returns a bootstrapped service over a memory store with a
// controllable clock.
func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	clock := newFakeClock()
	store := memory.NewStore(NewDefaultRulesEngine(), memory.WithClock(clock.Now))
	svc, err := NewService(store, opts...)
	require.NoError(t, err)
	h := &harness{t: t, ctx: context.Background(), svc: svc, store: store, clock: clock}
	require.NoError(t, svc.Bootstrap(h.ctx, domain.Roles{CEO: ceo, CFO: cfo, COO: coo}, DefaultAutoBirthFee))
	return h
}

func (h *harness) promo(owner domain.Address, genes uint64) domain.Kitty {
	h.t.Helper()
	k, err := h.svc.CreatePromoKitty(h.ctx, domain.GenesFromUint64(genes), owner, coo)
	require.NoError(h.t, err)
	return k
}

func (h *harness) kitty(id domain.KittyID) KittyInfo {
	h.t.Helper()
	info, err := h.svc.GetKitty(h.ctx, id)
	require.NoError(h.t, err)
	return info
}

func (h *harness) balance(addr domain.Address) domain.Amount {
	h.t.Helper()
	b, err := h.svc.AccountBalance(h.ctx, addr)
	require.NoError(h.t, err)
	return b
}

// breedAndBirth breeds the pair, waits out the gestation and delivers the child.
func (h *harness) breedAndBirth(matronID, sireID domain.KittyID, owner domain.Address) domain.Kitty {
	h.t.Helper()
	pregnant, err := h.svc.BreedWith(h.ctx, matronID, sireID, owner)
	require.NoError(h.t, err)
	h.waitUntil(pregnant.NextActionAt)
	child, err := h.svc.GiveBirth(h.ctx, matronID, owner)
	require.NoError(h.t, err)
	return child
}

// waitUntil advances the clock so that now >= unix.
func (h *harness) waitUntil(unix int64) {
	if delta := unix - h.clock.Now().Unix(); delta > 0 {
		h.clock.Advance(time.Duration(delta) * time.Second)
	}
}

func (h *harness) eventKinds(since uint64) []domain.EventKind {
	h.t.Helper()
	events, err := h.svc.Events(h.ctx, since, 0)
	require.NoError(h.t, err)
	kinds := make([]domain.EventKind, 0, len(events))
	for _, ev := range events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (h *harness) lastSequence() uint64 {
	h.t.Helper()
	events, err := h.svc.Events(h.ctx, 0, 0)
	require.NoError(h.t, err)
	if len(events) == 0 {
		return 0
	}
	return events[len(events)-1].Sequence
}
