// Package domain defines the persistent entities, value types, errors and
// rule primitives shared by the kittycore engine and its storage backends.
package domain

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// EntityType identifies the record family touched by a change.
type EntityType string

// Entity type constants referenced by changes and violations.
const (
	EntityKitty       EntityType = "kitty"
	EntityOwnership   EntityType = "ownership"
	EntityAuction     EntityType = "auction"
	EntityAccount     EntityType = "account"
	EntityEscrow      EntityType = "auto_birth_escrow"
	EntityGen0Tracker EntityType = "gen0_tracker"
	EntitySystem      EntityType = "system"
)

// KittyID is the arena index of a kitty. Zero is the reserved sentinel and
// never identifies a real kitty.
type KittyID uint64

// String renders the identifier in base 10.
func (id KittyID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseKittyID parses a base 10 identifier.
func ParseKittyID(raw string) (KittyID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse kitty id %q: %w", raw, err)
	}
	return KittyID(v), nil
}

// Address identifies an account. The empty address is the zero address.
type Address string

// IsZero reports whether the address is unset.
func (a Address) IsZero() bool { return a == "" }

// Amount is a quantity of the smallest currency unit.
type Amount uint64

// Well known system accounts.
const (
	// CoreAddress owns gen0 kitties before their first sale and receives the
	// house balances swept from the auction engines.
	CoreAddress Address = "kittycore"
	// SaleEscrowAddress holds kitties listed on the sale auction engine.
	SaleEscrowAddress Address = "auction:sale"
	// SiringEscrowAddress holds sires listed on the siring auction engine.
	SiringEscrowAddress Address = "auction:siring"
)

// IsEscrowAddress reports whether addr is one of the auction engine custody accounts.
func IsEscrowAddress(addr Address) bool {
	return addr == SaleEscrowAddress || addr == SiringEscrowAddress
}

// MaxCooldownIndex is the last valid index of the cooldown table.
const MaxCooldownIndex uint8 = 13

// Genes is an opaque 256-bit genome.
type Genes [32]byte

// GenesFromUint64 builds a genome holding v in its low-order bytes.
func GenesFromUint64(v uint64) Genes {
	var g Genes
	binary.BigEndian.PutUint64(g[24:], v)
	return g
}

// String renders the genome as 0x-prefixed hex.
func (g Genes) String() string { return "0x" + hex.EncodeToString(g[:]) }

// MarshalText implements encoding.TextMarshaler.
func (g Genes) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

// UnmarshalText accepts 0x-prefixed or bare hex of at most 64 digits.
func (g *Genes) UnmarshalText(text []byte) error {
	raw := strings.TrimPrefix(strings.TrimPrefix(string(text), "0x"), "0X")
	if len(raw) > 64 {
		return fmt.Errorf("genes: %d hex digits exceeds 64", len(raw))
	}
	if len(raw)%2 == 1 {
		raw = "0" + raw
	}
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return fmt.Errorf("genes: %w", err)
	}
	var out Genes
	copy(out[len(out)-len(decoded):], decoded)
	*g = out
	return nil
}

// Kitty is an immutable-lineage breeding record. Times are Unix seconds.
type Kitty struct {
	ID            KittyID `json:"id"`
	Genes         Genes   `json:"genes"`
	BirthTime     int64   `json:"birth_time"`
	NextActionAt  int64   `json:"next_action_at"`
	MatronID      KittyID `json:"matron_id"`
	SireID        KittyID `json:"sire_id"`
	SiringWithID  KittyID `json:"siring_with_id"`
	CooldownIndex uint8   `json:"cooldown_index"`
	Generation    uint32  `json:"generation"`
}

// IsGestating reports whether the kitty is carrying a pregnancy.
func (k Kitty) IsGestating() bool { return k.SiringWithID != 0 }

// IsGen0 reports whether the kitty was minted without parents.
func (k Kitty) IsGen0() bool { return k.MatronID == 0 && k.SireID == 0 }

// BreedingState is the lifecycle state derived from a kitty record and the clock.
type BreedingState string

// Breeding lifecycle states.
const (
	StateReady     BreedingState = "ready"
	StateCooling   BreedingState = "cooling"
	StateGestating BreedingState = "gestating"
)

// State derives the lifecycle state at now.
func (k Kitty) State(now int64) BreedingState {
	switch {
	case k.IsGestating():
		return StateGestating
	case k.NextActionAt > now:
		return StateCooling
	default:
		return StateReady
	}
}

// AuctionKind selects one of the two auction engine instances.
type AuctionKind string

// Auction kinds.
const (
	AuctionSale   AuctionKind = "sale"
	AuctionSiring AuctionKind = "siring"
)

// AuctionKinds lists every engine instance in a stable order.
var AuctionKinds = []AuctionKind{AuctionSale, AuctionSiring}

// Valid reports whether k names a known engine.
func (k AuctionKind) Valid() bool { return k == AuctionSale || k == AuctionSiring }

// EscrowAddress returns the custody account of the engine.
func (k AuctionKind) EscrowAddress() Address {
	if k == AuctionSiring {
		return SiringEscrowAddress
	}
	return SaleEscrowAddress
}

// ParseAuctionKind parses a kind name.
func ParseAuctionKind(raw string) (AuctionKind, error) {
	kind := AuctionKind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown auction kind %q", ErrInvalidArgument, raw)
	}
	return kind, nil
}

// Auction is an active dutch auction. Duration is in seconds.
type Auction struct {
	Kind          AuctionKind `json:"kind"`
	TokenID       KittyID     `json:"token_id"`
	Seller        Address     `json:"seller"`
	StartingPrice Amount      `json:"starting_price"`
	EndingPrice   Amount      `json:"ending_price"`
	Duration      uint64      `json:"duration"`
	StartedAt     int64       `json:"started_at"`
	Gen0          bool        `json:"gen0,omitempty"`
}

// Gen0PriceWindow is the number of recent gen0 sale prices tracked.
const Gen0PriceWindow = 5

// Gen0PriceTracker is a ring buffer of the most recent gen0 sale prices.
type Gen0PriceTracker struct {
	Prices [Gen0PriceWindow]Amount `json:"prices"`
	Count  uint64                  `json:"count"`
}

// Record overwrites the oldest slot with price.
func (t *Gen0PriceTracker) Record(price Amount) {
	t.Prices[t.Count%Gen0PriceWindow] = price
	t.Count++
}

// Average returns the slot sum divided by the window size. Empty slots count as
// zero.
func (t Gen0PriceTracker) Average() Amount {
	var hi, lo, carry uint64
	for _, p := range t.Prices {
		lo, carry = bits.Add64(lo, uint64(p), 0)
		hi += carry
	}
	q, _ := bits.Div64(hi, lo, Gen0PriceWindow)
	return Amount(q)
}

// Role names an operator capability.
type Role string

// Operator roles.
const (
	RoleCEO Role = "ceo"
	RoleCFO Role = "cfo"
	RoleCOO Role = "coo"
)

// ParseRole parses a role name.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleCEO, RoleCFO, RoleCOO:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, raw)
	}
}

// Roles records the operator addresses.
type Roles struct {
	CEO Address `json:"ceo"`
	CFO Address `json:"cfo"`
	COO Address `json:"coo"`
}

// Holder returns the address assigned to role.
func (r Roles) Holder(role Role) Address {
	switch role {
	case RoleCEO:
		return r.CEO
	case RoleCFO:
		return r.CFO
	case RoleCOO:
		return r.COO
	}
	return ""
}

// Has reports whether addr holds role.
func (r Roles) Has(role Role, addr Address) bool {
	return !addr.IsZero() && r.Holder(role) == addr
}

// IsCLevel reports whether addr holds any operator role.
func (r Roles) IsCLevel(addr Address) bool {
	return r.Has(RoleCEO, addr) || r.Has(RoleCFO, addr) || r.Has(RoleCOO, addr)
}

// Initialized reports whether the CEO has been assigned.
func (r Roles) Initialized() bool { return !r.CEO.IsZero() }

// Params holds operator tunable values stored alongside the ledger.
type Params struct {
	AutoBirthFee Amount `json:"auto_birth_fee"`
}

// Counters tracks operator mint quotas.
type Counters struct {
	Gen0Created  uint64 `json:"gen0_created"`
	PromoCreated uint64 `json:"promo_created"`
}

// Ownership pairs a kitty with its owner of record.
type Ownership struct {
	KittyID KittyID `json:"kitty_id"`
	Owner   Address `json:"owner"`
}

// AccountEntry records a pull-payment balance change.
type AccountEntry struct {
	Address Address `json:"address"`
	Balance Amount  `json:"balance"`
}

// SystemState is the singleton operator record.
type SystemState struct {
	Roles    Roles    `json:"roles"`
	Paused   bool     `json:"paused"`
	Params   Params   `json:"params"`
	Counters Counters `json:"counters"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions.
const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Severity captures rule outcomes.
type Severity string

// Rule severities.
const (
	SeverityBlock Severity = "block"
	SeverityWarn  Severity = "warn"
	SeverityLog   Severity = "log"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates rule violations and the events committed by a transaction.
type Result struct {
	Violations []Violation
	Events     []Event
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock {
			return fmt.Sprintf("transaction blocked by rules: %s: %s", v.Rule, v.Message)
		}
	}
	return "transaction blocked by rules"
}

// Is lets callers match rule violations against ErrInvariantViolation.
func (e RuleViolationError) Is(target error) bool { return target == ErrInvariantViolation }
