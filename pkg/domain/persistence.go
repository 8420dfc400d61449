package domain

import (
	"context"
	"time"
)

// Transaction exposes the ledger mutations a persistence implementation must
// support within an atomic scope. Every mutation is recorded as a Change and
// discarded together with the rest of the transaction when fn fails.
type Transaction interface {
	Snapshot() TransactionView
	Now() time.Time

	FindKitty(id KittyID) (Kitty, bool)
	CreateKitty(Kitty) (Kitty, error)
	UpdateKitty(id KittyID, mutator func(*Kitty) error) (Kitty, error)

	OwnerOf(id KittyID) (Address, bool)
	// Assign moves custody of id from `from` to `to`. An empty from mints a
	// kitty that has no owner yet. Approvals for id are cleared.
	Assign(id KittyID, from, to Address) error
	ApprovedFor(id KittyID) Address
	Approve(id KittyID, to Address) error
	SiringApproval(id KittyID) Address
	SetSiringApproval(id KittyID, to Address) error
	ClearSiringApproval(id KittyID)

	FindAuction(kind AuctionKind, id KittyID) (Auction, bool)
	CreateAuction(Auction) (Auction, error)
	DeleteAuction(kind AuctionKind, id KittyID) (Auction, error)

	Gen0Tracker() Gen0PriceTracker
	RecordGen0Sale(price Amount)

	Balance(addr Address) Amount
	Credit(addr Address, amount Amount) error
	Debit(addr Address, amount Amount) error

	AutoBirthEscrow(matron KittyID) Amount
	HoldAutoBirthEscrow(matron KittyID, amount Amount) error
	ReleaseAutoBirthEscrow(matron KittyID) Amount

	System() SystemState
	UpdateSystem(mutator func(*SystemState) error) (SystemState, error)

	Emit(Event)
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	Now() time.Time

	FindKitty(id KittyID) (Kitty, bool)
	ListKitties() []Kitty
	KittyCount() int

	OwnerOf(id KittyID) (Address, bool)
	TokensOwnedBy(owner Address) []KittyID
	ListOwnership() []Ownership
	ApprovedFor(id KittyID) Address
	SiringApproval(id KittyID) Address

	FindAuction(kind AuctionKind, id KittyID) (Auction, bool)
	ListAuctions(kind AuctionKind) []Auction

	Gen0Tracker() Gen0PriceTracker
	Balance(addr Address) Amount
	ListBalances() []AccountEntry
	AutoBirthEscrow(matron KittyID) Amount
	TotalAutoBirthEscrow() Amount

	System() SystemState
	Events(afterSequence uint64, limit int) []Event
}

// PersistentStore is the abstraction over durable backends used by the engine.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	NowFunc() func() time.Time
}
