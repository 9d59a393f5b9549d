package deploy

import (
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Codec tags for the executable item variants. These values are part of the
// storage encoding and must not be reordered.
const (
	itemTagModuleBytes byte = iota
	itemTagStoredContractByHash
	itemTagStoredContractByName
	itemTagStoredPackageByHash
	itemTagStoredPackageByName
	itemTagTransfer
)

// ExecutableItem is the tagged variant describing the payment or session
// logic of a deploy. Exactly one of the concrete types in this package
// implements each shape.
type ExecutableItem interface {
	fmt.Stringer

	// tag returns the codec tag identifying the variant.
	tag() byte
}

// ModuleBytes is inline wasm carried directly by the deploy. An empty
// Module in payment position selects the standard payment path.
type ModuleBytes struct {
	// Module is the raw module code.
	Module []byte

	// Args is the serialized runtime arguments.
	Args []byte
}

func (m *ModuleBytes) tag() byte { return itemTagModuleBytes }

// String returns a short human readable rendering of the item.
func (m *ModuleBytes) String() string {
	return fmt.Sprintf("module-bytes(%d bytes)", len(m.Module))
}

// StoredContractByHash references a stored contract by its hash.
type StoredContractByHash struct {
	// Contract is the hash addressing the stored contract.
	Contract ContractHash

	// EntryPoint names the contract method to invoke.
	EntryPoint string

	// Args is the serialized runtime arguments.
	Args []byte
}

func (s *StoredContractByHash) tag() byte { return itemTagStoredContractByHash }

// String returns a short human readable rendering of the item.
func (s *StoredContractByHash) String() string {
	return fmt.Sprintf("stored-contract(%v, entry point %q)",
		s.Contract, s.EntryPoint)
}

// StoredContractByName references a stored contract through a named key of
// the submitting account.
type StoredContractByName struct {
	// Name is the named key under which the contract is stored.
	Name string

	// EntryPoint names the contract method to invoke.
	EntryPoint string

	// Args is the serialized runtime arguments.
	Args []byte
}

func (s *StoredContractByName) tag() byte { return itemTagStoredContractByName }

// String returns a short human readable rendering of the item.
func (s *StoredContractByName) String() string {
	return fmt.Sprintf("stored-contract(%q, entry point %q)",
		s.Name, s.EntryPoint)
}

// StoredPackageByHash references a versioned contract package by its hash.
type StoredPackageByHash struct {
	// Package is the hash addressing the contract package.
	Package PackageHash

	// Version selects a package version. None selects the highest
	// enabled version.
	Version fn.Option[uint32]

	// EntryPoint names the contract method to invoke.
	EntryPoint string

	// Args is the serialized runtime arguments.
	Args []byte
}

func (s *StoredPackageByHash) tag() byte { return itemTagStoredPackageByHash }

// String returns a short human readable rendering of the item.
func (s *StoredPackageByHash) String() string {
	return fmt.Sprintf("stored-package(%v, version %v, entry point %q)",
		s.Package, optVersionString(s.Version), s.EntryPoint)
}

// StoredPackageByName references a versioned contract package through a
// named key of the submitting account.
type StoredPackageByName struct {
	// Name is the named key under which the package is stored.
	Name string

	// Version selects a package version. None selects the highest
	// enabled version.
	Version fn.Option[uint32]

	// EntryPoint names the contract method to invoke.
	EntryPoint string

	// Args is the serialized runtime arguments.
	Args []byte
}

func (s *StoredPackageByName) tag() byte { return itemTagStoredPackageByName }

// String returns a short human readable rendering of the item.
func (s *StoredPackageByName) String() string {
	return fmt.Sprintf("stored-package(%q, version %v, entry point %q)",
		s.Name, optVersionString(s.Version), s.EntryPoint)
}

// Transfer is the native token transfer built into the runtime. It is only
// admissible in session position.
type Transfer struct {
	// Args is the serialized runtime arguments.
	Args []byte
}

func (t *Transfer) tag() byte { return itemTagTransfer }

// String returns a short human readable rendering of the item.
func (t *Transfer) String() string {
	return "transfer"
}

func optVersionString(version fn.Option[uint32]) string {
	return fn.ElimOption(version,
		func() string { return "latest" },
		func(v uint32) string { return fmt.Sprintf("%d", v) },
	)
}
