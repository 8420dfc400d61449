package core

import (
	"fmt"
	"time"

	"kittycore/pkg/domain"
)

// CooldownTable maps a cooldown index to the wait imposed after breeding.
type CooldownTable []time.Duration

// DefaultCooldowns returns the fourteen step production table.
func DefaultCooldowns() CooldownTable {
	return CooldownTable{
		1 * time.Minute,
		2 * time.Minute,
		5 * time.Minute,
		10 * time.Minute,
		30 * time.Minute,
		1 * time.Hour,
		2 * time.Hour,
		4 * time.Hour,
		8 * time.Hour,
		16 * time.Hour,
		24 * time.Hour,
		2 * 24 * time.Hour,
		4 * 24 * time.Hour,
		7 * 24 * time.Hour,
	}
}

// Duration returns the entry for index, clamped to the last entry.
func (t CooldownTable) Duration(index uint8) time.Duration {
	if len(t) == 0 {
		return 0
	}
	if int(index) >= len(t) {
		return t[len(t)-1]
	}
	return t[index]
}

// Seconds returns Duration(index) in whole seconds.
func (t CooldownTable) Seconds(index uint8) int64 {
	return int64(t.Duration(index) / time.Second)
}

// Validate checks the table has one entry per index and never shrinks.
func (t CooldownTable) Validate() error {
	if want := int(domain.MaxCooldownIndex) + 1; len(t) != want {
		return fmt.Errorf("cooldown table has %d entries, want %d", len(t), want)
	}
	for i, d := range t {
		if d < time.Second {
			return fmt.Errorf("cooldown %d is %s, want at least 1s", i, d)
		}
		if i > 0 && d < t[i-1] {
			return fmt.Errorf("cooldown %d (%s) is shorter than cooldown %d (%s)", i, d, i-1, t[i-1])
		}
	}
	return nil
}

// nextCooldownIndex advances idx by one step without passing the last entry.
func nextCooldownIndex(idx uint8) uint8 {
	if idx < domain.MaxCooldownIndex {
		return idx + 1
	}
	return domain.MaxCooldownIndex
}
