// Package memory provides an in-memory implementation of the kitty ledger
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"kittycore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Kitty aliases domain.Kitty for in-memory persistence operations.
	Kitty = domain.Kitty
	// Auction aliases domain.Auction.
	Auction = domain.Auction
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	kitties   []Kitty
	owners    map[domain.KittyID]domain.Address
	approvals map[domain.KittyID]domain.Address
	siring    map[domain.KittyID]domain.Address
	auctions  map[domain.AuctionKind]map[domain.KittyID]Auction
	gen0      domain.Gen0PriceTracker
	balances  map[domain.Address]domain.Amount
	escrow    map[domain.KittyID]domain.Amount
	system    domain.SystemState
	eventSeq  uint64
	events    []domain.Event
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Kitties         []Kitty                                           `json:"kitties"`
	Owners          map[domain.KittyID]domain.Address                 `json:"owners"`
	Approvals       map[domain.KittyID]domain.Address                 `json:"approvals"`
	SiringApprovals map[domain.KittyID]domain.Address                 `json:"siring_approvals"`
	Auctions        map[domain.AuctionKind]map[domain.KittyID]Auction `json:"auctions"`
	Gen0            domain.Gen0PriceTracker                           `json:"gen0"`
	Balances        map[domain.Address]domain.Amount                  `json:"balances"`
	Escrow          map[domain.KittyID]domain.Amount                  `json:"escrow"`
	System          domain.SystemState                                `json:"system"`
	EventSequence   uint64                                            `json:"event_sequence"`
	Events          []domain.Event                                    `json:"events"`
}

func newMemoryState() memoryState {
	auctions := make(map[domain.AuctionKind]map[domain.KittyID]Auction, len(domain.AuctionKinds))
	for _, kind := range domain.AuctionKinds {
		auctions[kind] = make(map[domain.KittyID]Auction)
	}
	return memoryState{
		owners:    make(map[domain.KittyID]domain.Address),
		approvals: make(map[domain.KittyID]domain.Address),
		siring:    make(map[domain.KittyID]domain.Address),
		auctions:  auctions,
		balances:  make(map[domain.Address]domain.Amount),
		escrow:    make(map[domain.KittyID]domain.Amount),
	}
}

// clone copies every mutable container. Events are append-only and shared:
// transactions stage their own events and append them on commit.
func (s memoryState) clone() memoryState {
	out := memoryState{
		kitties:   append([]Kitty(nil), s.kitties...),
		owners:    cloneMap(s.owners),
		approvals: cloneMap(s.approvals),
		siring:    cloneMap(s.siring),
		auctions:  make(map[domain.AuctionKind]map[domain.KittyID]Auction, len(s.auctions)),
		gen0:      s.gen0,
		balances:  cloneMap(s.balances),
		escrow:    cloneMap(s.escrow),
		system:    s.system,
		eventSeq:  s.eventSeq,
		events:    s.events[:len(s.events):len(s.events)],
	}
	for _, kind := range domain.AuctionKinds {
		out.auctions[kind] = cloneMap(s.auctions[kind])
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	c := state.clone()
	return Snapshot{
		Kitties:         c.kitties,
		Owners:          c.owners,
		Approvals:       c.approvals,
		SiringApprovals: c.siring,
		Auctions:        c.auctions,
		Gen0:            c.gen0,
		Balances:        c.balances,
		Escrow:          c.escrow,
		System:          c.system,
		EventSequence:   c.eventSeq,
		Events:          append([]domain.Event(nil), c.events...),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	state.kitties = append(state.kitties, s.Kitties...)
	for k, v := range s.Owners {
		state.owners[k] = v
	}
	for k, v := range s.Approvals {
		state.approvals[k] = v
	}
	for k, v := range s.SiringApprovals {
		state.siring[k] = v
	}
	for kind, auctions := range s.Auctions {
		if !kind.Valid() {
			continue
		}
		for id, a := range auctions {
			state.auctions[kind][id] = a
		}
	}
	for k, v := range s.Balances {
		state.balances[k] = v
	}
	for k, v := range s.Escrow {
		state.escrow[k] = v
	}
	state.gen0 = s.Gen0
	state.system = s.System
	state.eventSeq = s.EventSequence
	state.events = append(state.events, s.Events...)
	if n := uint64(len(state.events)); n > 0 && state.eventSeq < state.events[n-1].Sequence {
		state.eventSeq = state.events[n-1].Sequence
	}
	return state
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for transaction timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// WithEventRetention caps the number of journal entries kept in memory. Zero keeps everything.
func WithEventRetention(limit int) Option {
	return func(s *Store) {
		if limit >= 0 {
			s.eventLimit = limit
		}
	}
}

// CommitHook receives the candidate state of a transaction that passed every
// rule. A non-nil error aborts the commit and leaves the live state untouched.
type CommitHook func(ctx context.Context, snapshot Snapshot) error

// WithCommitHook installs hook to run under the store lock before each commit.
func WithCommitHook(hook CommitHook) Option {
	return func(s *Store) {
		s.commitHook = hook
	}
}

// Store is a copy-on-write ledger guarded by a single RW mutex.
type Store struct {
	mu         sync.RWMutex
	state      memoryState
	engine     *RulesEngine
	nowFn      func() time.Time
	eventLimit int
	commitHook CommitHook
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn succeeds, no blocking rule
// violation is reported and the commit hook, if any, accepts it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state, tx.now)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	result.Events = tx.commitEvents()
	if s.eventLimit > 0 && len(tx.state.events) > s.eventLimit {
		trimmed := tx.state.events[len(tx.state.events)-s.eventLimit:]
		tx.state.events = append([]domain.Event(nil), trimmed...)
	}
	if s.commitHook != nil {
		if err := s.commitHook(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return Result{}, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(ctx context.Context, fn func(TransactionView) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snapshot := s.state.clone()
	now := s.nowFn()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot, now))
}

type transaction struct {
	state   memoryState
	changes []Change
	pending []domain.Event
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) commitEvents() []domain.Event {
	if len(tx.pending) == 0 {
		return nil
	}
	committed := make([]domain.Event, 0, len(tx.pending))
	for _, ev := range tx.pending {
		tx.state.eventSeq++
		ev.Sequence = tx.state.eventSeq
		ev.ID = uuid.NewString()
		if ev.At == 0 {
			ev.At = tx.now.Unix()
		}
		committed = append(committed, ev)
	}
	tx.state.events = append(tx.state.events, committed...)
	return committed
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state, tx.now)
}

func (tx *transaction) Now() time.Time { return tx.now }

func (tx *transaction) FindKitty(id domain.KittyID) (Kitty, bool) {
	return findKitty(&tx.state, id)
}

// CreateKitty appends k to the arena and assigns the next identifier.
func (tx *transaction) CreateKitty(k Kitty) (Kitty, error) {
	next := uint64(len(tx.state.kitties)) + 1
	if next > math.MaxUint32 {
		return Kitty{}, domain.Failf(domain.ErrLimitReached, "create_kitty", "kitty arena exhausted")
	}
	if k.ID != 0 && uint64(k.ID) != next {
		return Kitty{}, fmt.Errorf("kitty %d would not be the next arena index %d", k.ID, next)
	}
	k.ID = domain.KittyID(next)
	tx.state.kitties = append(tx.state.kitties, k)
	tx.recordChange(Change{Entity: domain.EntityKitty, Action: domain.ActionCreate, After: k})
	return k, nil
}

// UpdateKitty mutates a kitty using the provided mutator function.
func (tx *transaction) UpdateKitty(id domain.KittyID, mutator func(*Kitty) error) (Kitty, error) {
	current, ok := findKitty(&tx.state, id)
	if !ok {
		return Kitty{}, domain.KittyNotFound(id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Kitty{}, err
	}
	current.ID = id
	tx.state.kitties[id-1] = current
	tx.recordChange(Change{Entity: domain.EntityKitty, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

func (tx *transaction) OwnerOf(id domain.KittyID) (domain.Address, bool) {
	owner, ok := tx.state.owners[id]
	return owner, ok
}

func (tx *transaction) Assign(id domain.KittyID, from, to domain.Address) error {
	if _, ok := findKitty(&tx.state, id); !ok {
		return domain.KittyNotFound(id)
	}
	if to.IsZero() {
		return domain.Failf(domain.ErrInvalidArgument, "assign", "kitty %d cannot move to the zero address", id)
	}
	current, owned := tx.state.owners[id]
	if owned && current != from {
		return domain.Failf(domain.ErrNotOwnerOrApproved, "assign", "kitty %d is held by %s, not %s", id, current, from)
	}
	if !owned && !from.IsZero() {
		return domain.Failf(domain.ErrNotOwnerOrApproved, "assign", "kitty %d has no owner", id)
	}
	tx.state.owners[id] = to
	delete(tx.state.approvals, id)
	before := domain.Ownership{KittyID: id, Owner: current}
	after := domain.Ownership{KittyID: id, Owner: to}
	if owned {
		tx.recordChange(Change{Entity: domain.EntityOwnership, Action: domain.ActionUpdate, Before: before, After: after})
	} else {
		tx.recordChange(Change{Entity: domain.EntityOwnership, Action: domain.ActionCreate, After: after})
	}
	return nil
}

func (tx *transaction) ApprovedFor(id domain.KittyID) domain.Address {
	return tx.state.approvals[id]
}

func (tx *transaction) Approve(id domain.KittyID, to domain.Address) error {
	if _, ok := tx.state.owners[id]; !ok {
		return domain.KittyNotFound(id)
	}
	if to.IsZero() {
		delete(tx.state.approvals, id)
		return nil
	}
	tx.state.approvals[id] = to
	return nil
}

func (tx *transaction) SiringApproval(id domain.KittyID) domain.Address {
	return tx.state.siring[id]
}

func (tx *transaction) SetSiringApproval(id domain.KittyID, to domain.Address) error {
	if _, ok := tx.state.owners[id]; !ok {
		return domain.KittyNotFound(id)
	}
	if to.IsZero() {
		delete(tx.state.siring, id)
		return nil
	}
	tx.state.siring[id] = to
	return nil
}

func (tx *transaction) ClearSiringApproval(id domain.KittyID) {
	delete(tx.state.siring, id)
}

func (tx *transaction) FindAuction(kind domain.AuctionKind, id domain.KittyID) (Auction, bool) {
	a, ok := tx.state.auctions[kind][id]
	return a, ok
}

func (tx *transaction) CreateAuction(a Auction) (Auction, error) {
	book, ok := tx.state.auctions[a.Kind]
	if !ok {
		return Auction{}, domain.Failf(domain.ErrInvalidArgument, "create_auction", "unknown auction kind %q", a.Kind)
	}
	if _, exists := book[a.TokenID]; exists {
		return Auction{}, domain.Failf(domain.ErrAlreadyOnAuction, "create_auction", "kitty %d already listed on %s auction", a.TokenID, a.Kind)
	}
	book[a.TokenID] = a
	tx.recordChange(Change{Entity: domain.EntityAuction, Action: domain.ActionCreate, After: a})
	return a, nil
}

func (tx *transaction) DeleteAuction(kind domain.AuctionKind, id domain.KittyID) (Auction, error) {
	a, ok := tx.state.auctions[kind][id]
	if !ok {
		return Auction{}, domain.Failf(domain.ErrNoSuchAuction, "delete_auction", "kitty %d has no %s auction", id, kind)
	}
	delete(tx.state.auctions[kind], id)
	tx.recordChange(Change{Entity: domain.EntityAuction, Action: domain.ActionDelete, Before: a})
	return a, nil
}

func (tx *transaction) Gen0Tracker() domain.Gen0PriceTracker { return tx.state.gen0 }

func (tx *transaction) RecordGen0Sale(price domain.Amount) {
	before := tx.state.gen0
	tx.state.gen0.Record(price)
	tx.recordChange(Change{Entity: domain.EntityGen0Tracker, Action: domain.ActionUpdate, Before: before, After: tx.state.gen0})
}

func (tx *transaction) Balance(addr domain.Address) domain.Amount { return tx.state.balances[addr] }

func (tx *transaction) Credit(addr domain.Address, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}
	if addr.IsZero() {
		return domain.Failf(domain.ErrInvalidArgument, "credit", "cannot credit the zero address")
	}
	current := tx.state.balances[addr]
	if current > math.MaxUint64-amount {
		return domain.Failf(domain.ErrInvalidArgument, "credit", "balance of %s would overflow", addr)
	}
	tx.setBalance(addr, current, current+amount)
	return nil
}

func (tx *transaction) Debit(addr domain.Address, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}
	current := tx.state.balances[addr]
	if current < amount {
		return domain.Failf(domain.ErrInsufficientValue, "debit", "balance of %s is %d, need %d", addr, current, amount)
	}
	tx.setBalance(addr, current, current-amount)
	return nil
}

func (tx *transaction) setBalance(addr domain.Address, before, after domain.Amount) {
	if after == 0 {
		delete(tx.state.balances, addr)
	} else {
		tx.state.balances[addr] = after
	}
	tx.recordChange(Change{
		Entity: domain.EntityAccount,
		Action: domain.ActionUpdate,
		Before: domain.AccountEntry{Address: addr, Balance: before},
		After:  domain.AccountEntry{Address: addr, Balance: after},
	})
}

func (tx *transaction) AutoBirthEscrow(matron domain.KittyID) domain.Amount {
	return tx.state.escrow[matron]
}

func (tx *transaction) HoldAutoBirthEscrow(matron domain.KittyID, amount domain.Amount) error {
	if amount == 0 {
		return nil
	}
	if _, exists := tx.state.escrow[matron]; exists {
		return fmt.Errorf("matron %d already holds an auto-birth escrow", matron)
	}
	tx.state.escrow[matron] = amount
	tx.recordChange(Change{Entity: domain.EntityEscrow, Action: domain.ActionCreate, After: domain.AccountEntry{Address: domain.Address(matron.String()), Balance: amount}})
	return nil
}

func (tx *transaction) ReleaseAutoBirthEscrow(matron domain.KittyID) domain.Amount {
	amount, ok := tx.state.escrow[matron]
	if !ok {
		return 0
	}
	delete(tx.state.escrow, matron)
	tx.recordChange(Change{Entity: domain.EntityEscrow, Action: domain.ActionDelete, Before: domain.AccountEntry{Address: domain.Address(matron.String()), Balance: amount}})
	return amount
}

func (tx *transaction) System() domain.SystemState { return tx.state.system }

func (tx *transaction) UpdateSystem(mutator func(*domain.SystemState) error) (domain.SystemState, error) {
	current := tx.state.system
	before := current
	if err := mutator(&current); err != nil {
		return domain.SystemState{}, err
	}
	tx.state.system = current
	tx.recordChange(Change{Entity: domain.EntitySystem, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

func (tx *transaction) Emit(ev domain.Event) {
	tx.pending = append(tx.pending, ev)
}

func findKitty(state *memoryState, id domain.KittyID) (Kitty, bool) {
	if id == 0 || uint64(id) > uint64(len(state.kitties)) {
		return Kitty{}, false
	}
	return state.kitties[id-1], true
}

// transactionView exposes a read-only snapshot of ledger state to rules and queries.
type transactionView struct {
	state *memoryState
	now   time.Time
}

func newTransactionView(state *memoryState, now time.Time) TransactionView {
	return transactionView{state: state, now: now}
}

func (v transactionView) Now() time.Time { return v.now }

func (v transactionView) FindKitty(id domain.KittyID) (Kitty, bool) { return findKitty(v.state, id) }

func (v transactionView) ListKitties() []Kitty {
	return append([]Kitty(nil), v.state.kitties...)
}

func (v transactionView) KittyCount() int { return len(v.state.kitties) }

func (v transactionView) OwnerOf(id domain.KittyID) (domain.Address, bool) {
	owner, ok := v.state.owners[id]
	return owner, ok
}

func (v transactionView) TokensOwnedBy(owner domain.Address) []domain.KittyID {
	var ids []domain.KittyID
	for id, addr := range v.state.owners {
		if addr == owner {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (v transactionView) ListOwnership() []domain.Ownership {
	out := make([]domain.Ownership, 0, len(v.state.owners))
	for id, addr := range v.state.owners {
		out = append(out, domain.Ownership{KittyID: id, Owner: addr})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KittyID < out[j].KittyID })
	return out
}

func (v transactionView) ApprovedFor(id domain.KittyID) domain.Address { return v.state.approvals[id] }

func (v transactionView) SiringApproval(id domain.KittyID) domain.Address { return v.state.siring[id] }

func (v transactionView) FindAuction(kind domain.AuctionKind, id domain.KittyID) (Auction, bool) {
	a, ok := v.state.auctions[kind][id]
	return a, ok
}

func (v transactionView) ListAuctions(kind domain.AuctionKind) []Auction {
	book := v.state.auctions[kind]
	out := make([]Auction, 0, len(book))
	for _, a := range book {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

func (v transactionView) Gen0Tracker() domain.Gen0PriceTracker { return v.state.gen0 }

func (v transactionView) Balance(addr domain.Address) domain.Amount { return v.state.balances[addr] }

func (v transactionView) ListBalances() []domain.AccountEntry {
	out := make([]domain.AccountEntry, 0, len(v.state.balances))
	for addr, bal := range v.state.balances {
		out = append(out, domain.AccountEntry{Address: addr, Balance: bal})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func (v transactionView) AutoBirthEscrow(matron domain.KittyID) domain.Amount {
	return v.state.escrow[matron]
}

func (v transactionView) TotalAutoBirthEscrow() domain.Amount {
	var total domain.Amount
	for _, amount := range v.state.escrow {
		total += amount
	}
	return total
}

func (v transactionView) System() domain.SystemState { return v.state.system }

// Events returns up to limit journal entries with a sequence above afterSequence.
// A non-positive limit returns every matching entry.
func (v transactionView) Events(afterSequence uint64, limit int) []domain.Event {
	events := v.state.events
	start := sort.Search(len(events), func(i int) bool { return events[i].Sequence > afterSequence })
	end := len(events)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return append([]domain.Event(nil), events[start:end]...)
}
