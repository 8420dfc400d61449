package memory

import (
	"encoding/json"
	"fmt"

	"kittycore/pkg/domain"
)

// Bucket names used by the snapshotting SQL backends. Each bucket stores one
// JSON-encoded slice of Snapshot.
const (
	BucketKitties         = "kitties"
	BucketOwners          = "owners"
	BucketApprovals       = "approvals"
	BucketSiringApprovals = "siring_approvals"
	BucketAuctions        = "auctions"
	BucketGen0            = "gen0"
	BucketBalances        = "balances"
	BucketEscrow          = "escrow"
	BucketSystem          = "system"
	BucketEvents          = "events"
)

// Buckets lists every bucket in persistence order.
var Buckets = []string{
	BucketKitties,
	BucketOwners,
	BucketApprovals,
	BucketSiringApprovals,
	BucketAuctions,
	BucketGen0,
	BucketBalances,
	BucketEscrow,
	BucketSystem,
	BucketEvents,
}

type eventJournal struct {
	Sequence uint64         `json:"sequence"`
	Events   []domain.Event `json:"events"`
}

// EncodeBucket returns the JSON payload stored under bucket.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	var value any
	switch bucket {
	case BucketKitties:
		value = s.Kitties
	case BucketOwners:
		value = s.Owners
	case BucketApprovals:
		value = s.Approvals
	case BucketSiringApprovals:
		value = s.SiringApprovals
	case BucketAuctions:
		value = s.Auctions
	case BucketGen0:
		value = s.Gen0
	case BucketBalances:
		value = s.Balances
	case BucketEscrow:
		value = s.Escrow
	case BucketSystem:
		value = s.System
	case BucketEvents:
		value = eventJournal{Sequence: s.EventSequence, Events: s.Events}
	default:
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	return json.Marshal(value)
}

// DecodeBucket loads payload into the part of the snapshot named by bucket.
// Unknown buckets are ignored so older databases keep loading.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var err error
	switch bucket {
	case BucketKitties:
		err = json.Unmarshal(payload, &s.Kitties)
	case BucketOwners:
		err = json.Unmarshal(payload, &s.Owners)
	case BucketApprovals:
		err = json.Unmarshal(payload, &s.Approvals)
	case BucketSiringApprovals:
		err = json.Unmarshal(payload, &s.SiringApprovals)
	case BucketAuctions:
		err = json.Unmarshal(payload, &s.Auctions)
	case BucketGen0:
		err = json.Unmarshal(payload, &s.Gen0)
	case BucketBalances:
		err = json.Unmarshal(payload, &s.Balances)
	case BucketEscrow:
		err = json.Unmarshal(payload, &s.Escrow)
	case BucketSystem:
		err = json.Unmarshal(payload, &s.System)
	case BucketEvents:
		var journal eventJournal
		if err = json.Unmarshal(payload, &journal); err == nil {
			s.EventSequence = journal.Sequence
			s.Events = journal.Events
		}
	}
	if err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
