package core

import (
	"fmt"
	"time"

	"kittycore/pkg/domain"
)

// Currency units in the smallest payment denomination.
const (
	Wei    domain.Amount = 1
	Finney domain.Amount = 1_000_000_000_000_000
	Ether  domain.Amount = 1_000_000_000_000_000_000
)

// Engine defaults.
const (
	DefaultSaleCutBps          = 375
	DefaultSiringCutBps        = 375
	DefaultAutoBirthFee        = 2 * Finney
	DefaultGen0StartingPrice   = 10 * Finney
	DefaultGen0AuctionDuration = 24 * time.Hour
	DefaultGen0CreationLimit   = 45000
	DefaultPromoCreationLimit  = 5000

	// MaxCutBps is the basis point denominator; a cut may not exceed it.
	MaxCutBps = 10000
)

// Config holds the static engine parameters. Operator-mutable values such as
// the auto-birth fee live in the ledger instead.
type Config struct {
	Cooldowns           CooldownTable
	SaleCutBps          uint64
	SiringCutBps        uint64
	Gen0StartingPrice   domain.Amount
	Gen0AuctionDuration time.Duration
	Gen0CreationLimit   uint64
	PromoCreationLimit  uint64
}

// DefaultConfig returns the production parameter set.
func DefaultConfig() Config {
	return Config{
		Cooldowns:           DefaultCooldowns(),
		SaleCutBps:          DefaultSaleCutBps,
		SiringCutBps:        DefaultSiringCutBps,
		Gen0StartingPrice:   DefaultGen0StartingPrice,
		Gen0AuctionDuration: DefaultGen0AuctionDuration,
		Gen0CreationLimit:   DefaultGen0CreationLimit,
		PromoCreationLimit:  DefaultPromoCreationLimit,
	}
}

// Validate rejects parameter sets the engine cannot honour.
func (c Config) Validate() error {
	if err := c.Cooldowns.Validate(); err != nil {
		return err
	}
	if c.SaleCutBps > MaxCutBps {
		return fmt.Errorf("sale cut %d bps exceeds %d", c.SaleCutBps, MaxCutBps)
	}
	if c.SiringCutBps > MaxCutBps {
		return fmt.Errorf("siring cut %d bps exceeds %d", c.SiringCutBps, MaxCutBps)
	}
	if c.Gen0AuctionDuration < MinAuctionDuration*time.Second {
		return fmt.Errorf("gen0 auction duration %s is below the %ds minimum", c.Gen0AuctionDuration, MinAuctionDuration)
	}
	return nil
}

// CutBps returns the owner cut configured for kind.
func (c Config) CutBps(kind domain.AuctionKind) uint64 {
	if kind == domain.AuctionSiring {
		return c.SiringCutBps
	}
	return c.SaleCutBps
}
