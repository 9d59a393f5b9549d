package state

import (
	"testing"

	"github.com/drfurkann/casper-node/deploy"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// TestLookupVersion covers the version resolution rules of a contract
// package: explicit versions must be present and enabled, and a None
// version selects the highest enabled version.
func TestLookupVersion(t *testing.T) {
	t.Parallel()

	pkg := &ContractPackage{
		Versions: map[uint32]deploy.ContractHash{
			1: {0x01},
			2: {0x02},
			3: {0x03},
		},
		DisabledVersions: map[uint32]struct{}{
			3: {},
		},
	}

	// Present and enabled.
	require.Equal(
		t, deploy.ContractHash{0x02},
		pkg.LookupVersion(fn.Some(uint32(2))).UnwrapOrFail(t),
	)

	// Absent.
	require.True(t, pkg.LookupVersion(fn.Some(uint32(9))).IsNone())

	// Present but disabled.
	require.True(t, pkg.LookupVersion(fn.Some(uint32(3))).IsNone())

	// None selects the highest enabled version, skipping disabled ones.
	require.Equal(
		t, deploy.ContractHash{0x02},
		pkg.LookupVersion(fn.None[uint32]()).UnwrapOrFail(t),
	)

	// A package with no enabled versions resolves nothing.
	empty := &ContractPackage{}
	require.True(t, empty.LookupVersion(fn.None[uint32]()).IsNone())
}

// TestHasEntryPoint asserts entry point lookup on a contract.
func TestHasEntryPoint(t *testing.T) {
	t.Parallel()

	contract := &Contract{
		EntryPoints: map[string]EntryPoint{
			"call": {Name: "call"},
		},
	}

	require.True(t, contract.HasEntryPoint("call"))
	require.False(t, contract.HasEntryPoint("missing"))
}
