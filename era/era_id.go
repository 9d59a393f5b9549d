// Package era provides the identifier type for consensus eras. Eras are
// numbered from genesis upwards and the identifier deliberately exposes only
// explicit checked or saturating arithmetic so that callers must choose how
// an out-of-range step is handled rather than relying on wraparound.
package era

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// ID identifies a single consensus era. The zero value is the genesis era.
type ID uint64

// Successor returns the era immediately following this one. The caller must
// ensure the era counter cannot realistically overflow; use CheckedAdd when
// operating on untrusted input.
func (id ID) Successor() ID {
	return id + 1
}

// CheckedAdd returns the era x steps ahead of this one, or None if the
// addition would overflow.
func (id ID) CheckedAdd(x uint64) fn.Option[ID] {
	sum := uint64(id) + x
	if sum < uint64(id) {
		return fn.None[ID]()
	}

	return fn.Some(ID(sum))
}

// CheckedSub returns the era x steps before this one, or None if that would
// precede genesis.
func (id ID) CheckedSub(x uint64) fn.Option[ID] {
	if x > uint64(id) {
		return fn.None[ID]()
	}

	return fn.Some(ID(uint64(id) - x))
}

// SaturatingAdd returns the era x steps ahead of this one, clamping at the
// maximum representable era.
func (id ID) SaturatingAdd(x uint64) ID {
	sum := uint64(id) + x
	if sum < uint64(id) {
		return ID(^uint64(0))
	}

	return ID(sum)
}

// SaturatingSub returns the era x steps before this one, clamping at
// genesis.
func (id ID) SaturatingSub(x uint64) ID {
	if x > uint64(id) {
		return 0
	}

	return ID(uint64(id) - x)
}

// IsGenesis reports whether this is era 0.
func (id ID) IsGenesis() bool {
	return id == 0
}

// String returns a human readable rendering of the era.
func (id ID) String() string {
	return fmt.Sprintf("era %d", uint64(id))
}
