// Package deploy defines the transaction type submitted to the node for
// admission, along with its content addressing and approval signatures. A
// deploy is immutable once constructed; subsystems classify it but never
// mutate it.
package deploy

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"golang.org/x/crypto/blake2b"
)

var (
	// ErrInvalidBodyHash is returned when the hash of a deploy's payment
	// and session items does not match the body hash claimed in its
	// header.
	ErrInvalidBodyHash = errors.New("deploy body hash mismatch")

	// ErrInvalidDeployHash is returned when the hash recomputed over a
	// deploy's header does not match its claimed identity.
	ErrInvalidDeployHash = errors.New("deploy hash mismatch")

	// ErrInvalidApproval is returned when an approval's signature does
	// not verify against the deploy hash.
	ErrInvalidApproval = errors.New("deploy approval failed verification")
)

// Hash is the content address of a deploy, computed over its serialized
// header with BLAKE2b.
type Hash [32]byte

// String returns the hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ContractHash addresses a stored contract in global state.
type ContractHash [32]byte

// String returns the hex encoding of the contract hash.
func (h ContractHash) String() string {
	return hex.EncodeToString(h[:])
}

// PackageHash addresses a stored contract package in global state.
type PackageHash [32]byte

// String returns the hex encoding of the package hash.
func (h PackageHash) String() string {
	return hex.EncodeToString(h[:])
}

// AccountHash is the ledger address of an account, derived from its public
// key.
type AccountHash [32]byte

// String returns the hex encoding of the account hash.
func (h AccountHash) String() string {
	return hex.EncodeToString(h[:])
}

// NewAccountHash derives the ledger address for the given public key.
func NewAccountHash(pub *btcec.PublicKey) AccountHash {
	return AccountHash(blake2b.Sum256(pub.SerializeCompressed()))
}

// Approval is a single signature over a deploy's hash together with the key
// that produced it.
type Approval struct {
	// Signer is the public key that produced Sig.
	Signer *btcec.PublicKey

	// Sig is an ECDSA signature over the deploy hash.
	Sig *ecdsa.Signature
}

// Verify reports whether the approval's signature is valid for the given
// deploy hash.
func (a *Approval) Verify(hash Hash) bool {
	return a.Sig.Verify(hash[:], a.Signer)
}

// Header carries the deploy metadata that is hashed to form the deploy's
// identity.
type Header struct {
	// Account is the public key of the account paying for the deploy.
	Account *btcec.PublicKey

	// Timestamp is the creation time of the deploy. It is stored with
	// millisecond precision.
	Timestamp time.Time

	// TTL is the duration after Timestamp for which the deploy remains
	// admissible.
	TTL time.Duration

	// GasPrice is the gas price tolerance declared by the creator.
	GasPrice uint64

	// BodyHash commits to the payment and session items.
	BodyHash Hash

	// Dependencies lists deploys that must be executed before this one.
	Dependencies []Hash

	// ChainName names the network the deploy is destined for.
	ChainName string
}

// Deploy is a content-addressed transaction pending admission. The Hash
// field is the deploy's identity and commits, via the header's body hash, to
// the payment and session items as well.
type Deploy struct {
	// Hash is the deploy's content address.
	Hash Hash

	// Header is the hashed deploy metadata.
	Header Header

	// Payment is the executable item covering execution costs.
	Payment ExecutableItem

	// Session is the executable item carrying the deploy's effect.
	Session ExecutableItem

	// Approvals is the set of signatures authorizing the deploy.
	Approvals []Approval
}

// New assembles a deploy from its parts, computing the body hash and the
// deploy's content address. The returned deploy carries no approvals; use
// Sign to add them.
func New(account *btcec.PublicKey, timestamp time.Time, ttl time.Duration,
	gasPrice uint64, dependencies []Hash, chainName string,
	payment, session ExecutableItem) (*Deploy, error) {

	bodyHash, err := hashBody(payment, session)
	if err != nil {
		return nil, fmt.Errorf("unable to hash deploy body: %w", err)
	}

	header := Header{
		Account:      account,
		Timestamp:    timestamp.UTC().Truncate(time.Millisecond),
		TTL:          ttl,
		GasPrice:     gasPrice,
		BodyHash:     bodyHash,
		Dependencies: dependencies,
		ChainName:    chainName,
	}

	hash, err := hashHeader(&header)
	if err != nil {
		return nil, fmt.Errorf("unable to hash deploy header: %w", err)
	}

	return &Deploy{
		Hash:    hash,
		Header:  header,
		Payment: payment,
		Session: session,
	}, nil
}

// Sign appends an approval by the given private key to the deploy.
func (d *Deploy) Sign(priv *btcec.PrivateKey) {
	sig := ecdsa.Sign(priv, d.Hash[:])
	d.Approvals = append(d.Approvals, Approval{
		Signer: priv.PubKey(),
		Sig:    sig,
	})
}

// VerifyIntegrity checks that the deploy's claimed identity matches its
// contents and that every approval signature verifies against it. It
// performs no I/O and consults no external state.
func (d *Deploy) VerifyIntegrity() error {
	bodyHash, err := hashBody(d.Payment, d.Session)
	if err != nil {
		return fmt.Errorf("unable to hash deploy body: %w", err)
	}
	if bodyHash != d.Header.BodyHash {
		return fmt.Errorf("%w: computed %v, header claims %v",
			ErrInvalidBodyHash, bodyHash, d.Header.BodyHash)
	}

	headerHash, err := hashHeader(&d.Header)
	if err != nil {
		return fmt.Errorf("unable to hash deploy header: %w", err)
	}
	if headerHash != d.Hash {
		return fmt.Errorf("%w: computed %v, deploy claims %v",
			ErrInvalidDeployHash, headerHash, d.Hash)
	}

	for i := range d.Approvals {
		if !d.Approvals[i].Verify(d.Hash) {
			return fmt.Errorf("%w: signer %x", ErrInvalidApproval,
				d.Approvals[i].Signer.SerializeCompressed())
		}
	}

	return nil
}

// SerializedSize returns the number of bytes the deploy occupies in its
// wire/storage encoding.
func (d *Deploy) SerializedSize() (uint32, error) {
	var b bytes.Buffer
	if err := Serialize(&b, d); err != nil {
		return 0, err
	}

	return uint32(b.Len()), nil
}

// hashBody computes the hash committing to the payment and session items.
func hashBody(payment, session ExecutableItem) (Hash, error) {
	var b bytes.Buffer
	if err := serializeItem(&b, payment); err != nil {
		return Hash{}, err
	}
	if err := serializeItem(&b, session); err != nil {
		return Hash{}, err
	}

	return blake2b.Sum256(b.Bytes()), nil
}

// hashHeader computes the deploy's content address from its header.
func hashHeader(header *Header) (Hash, error) {
	var b bytes.Buffer
	if err := serializeHeader(&b, header); err != nil {
		return Hash{}, err
	}

	return blake2b.Sum256(b.Bytes()), nil
}
