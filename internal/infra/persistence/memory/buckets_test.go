package memory

import (
	"testing"

	"kittycore/pkg/domain"
)

func TestSnapshotBucketsRoundTrip(t *testing.T) {
	src := Snapshot{
		Kitties:  []domain.Kitty{{ID: 1, Genes: domain.GenesFromUint64(9)}},
		Owners:   map[domain.KittyID]domain.Address{1: "alice"},
		Auctions: map[domain.AuctionKind]map[domain.KittyID]domain.Auction{domain.AuctionSale: {1: {Kind: domain.AuctionSale, TokenID: 1, Seller: "alice", Duration: 60}}},
		Balances: map[domain.Address]domain.Amount{"alice": 5},
		System:   domain.SystemState{Paused: true, Params: domain.Params{AutoBirthFee: 2}},
		Events:   []domain.Event{{Sequence: 7, Kind: domain.EventPause}},

		EventSequence: 7,
	}
	var dst Snapshot
	for _, bucket := range Buckets {
		payload, err := src.EncodeBucket(bucket)
		if err != nil {
			t.Fatalf("encode %s: %v", bucket, err)
		}
		if err := dst.DecodeBucket(bucket, payload); err != nil {
			t.Fatalf("decode %s: %v", bucket, err)
		}
	}
	if dst.Owners[1] != "alice" || dst.Balances["alice"] != 5 || !dst.System.Paused {
		t.Fatalf("unexpected decoded snapshot %+v", dst)
	}
	if dst.EventSequence != 7 || len(dst.Events) != 1 {
		t.Fatalf("expected journal restored, got %d/%d", dst.EventSequence, len(dst.Events))
	}
	if a := dst.Auctions[domain.AuctionSale][1]; a.Seller != "alice" {
		t.Fatalf("unexpected auction %+v", a)
	}
	if _, err := src.EncodeBucket("organisms"); err == nil {
		t.Fatalf("expected unknown bucket error")
	}
	if err := dst.DecodeBucket("legacy", []byte("{")); err != nil {
		t.Fatalf("unknown buckets are ignored: %v", err)
	}
	if err := dst.DecodeBucket(BucketKitties, []byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}
