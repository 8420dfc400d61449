package domain

// EventKind names a state transition observable by indexers and keepers.
type EventKind string

// Event kinds.
const (
	EventTransfer          EventKind = "Transfer"
	EventApproval          EventKind = "Approval"
	EventPregnant          EventKind = "Pregnant"
	EventBirth             EventKind = "Birth"
	EventAutoBirth         EventKind = "AutoBirth"
	EventAuctionCreated    EventKind = "AuctionCreated"
	EventAuctionSuccessful EventKind = "AuctionSuccessful"
	EventAuctionCancelled  EventKind = "AuctionCancelled"
	EventPause             EventKind = "Pause"
	EventUnpause           EventKind = "Unpause"
	EventRoleChanged       EventKind = "RoleChanged"
	EventWithdrawal        EventKind = "Withdrawal"
)

// Event is a committed journal entry. Only the fields relevant to Kind are set.
type Event struct {
	ID       string    `json:"id"`
	Sequence uint64    `json:"sequence"`
	Kind     EventKind `json:"kind"`
	At       int64     `json:"at"`

	KittyID  KittyID `json:"kitty_id,omitempty"`
	MatronID KittyID `json:"matron_id,omitempty"`
	SireID   KittyID `json:"sire_id,omitempty"`
	Genes    *Genes  `json:"genes,omitempty"`

	From  Address `json:"from,omitempty"`
	To    Address `json:"to,omitempty"`
	Owner Address `json:"owner,omitempty"`

	AuctionKind   AuctionKind `json:"auction_kind,omitempty"`
	StartingPrice Amount      `json:"starting_price,omitempty"`
	EndingPrice   Amount      `json:"ending_price,omitempty"`
	Duration      uint64      `json:"duration,omitempty"`
	Price         Amount      `json:"price,omitempty"`
	Fee           Amount      `json:"fee,omitempty"`
	Amount        Amount      `json:"amount,omitempty"`

	CooldownEndTime int64   `json:"cooldown_end_time,omitempty"`
	Keeper          Address `json:"keeper,omitempty"`
	Settled         bool    `json:"settled,omitempty"`

	Role Role `json:"role,omitempty"`
}
