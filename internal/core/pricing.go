package core

import (
	"errors"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"kittycore/pkg/domain"
)

const (
	// MaxAuctionDuration is the longest accepted auction, in seconds.
	MaxAuctionDuration uint64 = math.MaxInt64
	// MinAuctionDuration is the shortest accepted auction, in seconds.
	MinAuctionDuration = 60
)

// CurrentPrice interpolates linearly from start to end over duration seconds.
// The change is truncated toward zero and the intermediate product is 128 bits
// wide, so the result always lies between start and end.
func CurrentPrice(start, end domain.Amount, duration uint64, elapsed int64) domain.Amount {
	if duration == 0 || elapsed <= 0 {
		return start
	}
	if uint64(elapsed) >= duration {
		return end
	}
	if end >= start {
		return start + domain.Amount(mulDiv(uint64(end-start), uint64(elapsed), duration))
	}
	return start - domain.Amount(mulDiv(uint64(start-end), uint64(elapsed), duration))
}

// ComputeCut returns floor(price * cutBps / 10000). cutBps above MaxCutBps is clamped.
func ComputeCut(price domain.Amount, cutBps uint64) domain.Amount {
	if cutBps > MaxCutBps {
		cutBps = MaxCutBps
	}
	return domain.Amount(mulDiv(uint64(price), cutBps, MaxCutBps))
}

// mulDiv computes floor(a*b/d) for a*b/d < 2^64.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// ParseAuctionDuration parses a decimal duration in seconds, reporting values
// that do not fit the ledger as ErrDurationOverflow.
func ParseAuctionDuration(raw string) (uint64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, domain.Failf(domain.ErrDurationOverflow, "parse_duration", "%s seconds does not fit 64 bits", raw)
		}
		return 0, domain.Failf(domain.ErrInvalidArgument, "parse_duration", "%q is not a duration in seconds", raw)
	}
	return v, nil
}

func validateAuctionDuration(op string, duration uint64) error {
	if duration > MaxAuctionDuration {
		return domain.Failf(domain.ErrDurationOverflow, op, "duration %d exceeds %d seconds", duration, MaxAuctionDuration)
	}
	if duration < MinAuctionDuration {
		return domain.Failf(domain.ErrInvalidDuration, op, "duration %d is below the %d second minimum", duration, MinAuctionDuration)
	}
	return nil
}
