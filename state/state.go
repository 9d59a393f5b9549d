// Package state models the slice of the ledger's execution state that the
// admission pipeline consults: accounts with their multi-signature policy,
// stored contracts with their entry points, and versioned contract packages.
// All lookups go through the Reader interface, which is implemented by the
// node's execution-state query service.
package state

import (
	"context"
	"errors"

	"github.com/drfurkann/casper-node/deploy"
	"github.com/lightningnetwork/lnd/fn/v2"
)

var (
	// ErrValueNotFound is returned by Query when no value is stored under
	// the requested key and path.
	ErrValueNotFound = errors.New("value not found in global state")

	// ErrRootNotFound is returned by AccountBalance when the state root
	// the balance would be read from is unknown.
	ErrRootNotFound = errors.New("state root not found")
)

// Motes is an amount of the chain's base token.
type Motes uint64

// Weight is the signature weight an account assigns to an associated key.
type Weight uint8

// URef references a purse holding an account's balance.
type URef [32]byte

// ActionThresholds are the cumulative signature weights an account requires
// for its operations.
type ActionThresholds struct {
	// Deployment is the weight required to submit a deploy.
	Deployment Weight

	// KeyManagement is the weight required to modify the associated key
	// set.
	KeyManagement Weight
}

// Account is a ledger entity able to pay for deploys. Its associated keys
// and thresholds form the account's multi-signature authorization policy.
type Account struct {
	// AccountHash is the account's ledger address.
	AccountHash deploy.AccountHash

	// MainPurse holds the account's spendable balance.
	MainPurse URef

	// AssociatedKeys maps authorized key addresses to their weights.
	AssociatedKeys map[deploy.AccountHash]Weight

	// ActionThresholds are the weights required for account operations.
	ActionThresholds ActionThresholds
}

// EntryPoint describes a callable method exported by a stored contract.
type EntryPoint struct {
	// Name is the method name referenced by deploys.
	Name string
}

// Contract is a unit of stored code addressable in global state.
type Contract struct {
	// Package is the contract package this contract version belongs to.
	Package deploy.PackageHash

	// EntryPoints is the contract's exported methods, keyed by name.
	EntryPoints map[string]EntryPoint
}

// HasEntryPoint reports whether the contract exports a method with the
// given name.
func (c *Contract) HasEntryPoint(name string) bool {
	_, ok := c.EntryPoints[name]
	return ok
}

// ContractPackage is a versioned collection of contracts. Individual
// versions may be disabled without being removed.
type ContractPackage struct {
	// Versions maps version numbers to the contract stored at that
	// version.
	Versions map[uint32]deploy.ContractHash

	// DisabledVersions marks versions that may no longer be invoked.
	DisabledVersions map[uint32]struct{}
}

// LookupVersion resolves the requested version to a contract hash. A None
// version selects the highest enabled version. None is returned when the
// requested version is absent or disabled, or when no enabled version
// exists.
func (p *ContractPackage) LookupVersion(
	version fn.Option[uint32]) fn.Option[deploy.ContractHash] {

	resolve := func(v uint32) fn.Option[deploy.ContractHash] {
		if _, disabled := p.DisabledVersions[v]; disabled {
			return fn.None[deploy.ContractHash]()
		}
		hash, ok := p.Versions[v]
		if !ok {
			return fn.None[deploy.ContractHash]()
		}
		return fn.Some(hash)
	}

	if version.IsSome() {
		return resolve(version.UnwrapOr(0))
	}

	var (
		best      uint32
		bestFound bool
	)
	for v := range p.Versions {
		if _, disabled := p.DisabledVersions[v]; disabled {
			continue
		}
		if !bestFound || v > best {
			best = v
			bestFound = true
		}
	}
	if !bestFound {
		return fn.None[deploy.ContractHash]()
	}

	return fn.Some(p.Versions[best])
}

// Key addresses a value in global state.
type Key interface {
	isKey()
}

// AccountKey addresses an account record and, with a query path, its named
// keys.
type AccountKey deploy.AccountHash

func (AccountKey) isKey() {}

// HashKey addresses a stored contract or contract package.
type HashKey [32]byte

func (HashKey) isKey() {}

// StoredValue is a value read from global state. The concrete type depends
// on what is stored under the queried key.
type StoredValue interface {
	isStoredValue()
}

func (*Account) isStoredValue()         {}
func (*Contract) isStoredValue()        {}
func (*ContractPackage) isStoredValue() {}

// Reader is the asynchronous query surface of the execution-state service.
// Implementations are expected to be safe for concurrent use; every deploy
// admission runs its queries independently.
type Reader interface {
	// Query reads the value stored under key, following the optional
	// path through the record's named keys. It returns ErrValueNotFound
	// when nothing is stored there.
	Query(ctx context.Context, key Key, path []string) (StoredValue, error)

	// AccountBalance reads the balance of the given purse. It returns
	// ErrRootNotFound when the backing state root is unknown.
	AccountBalance(ctx context.Context, purse URef) (Motes, error)
}
