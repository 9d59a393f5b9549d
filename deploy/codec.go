package deploy

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// maxVarBytesLen caps the length prefix of variable-size fields so a corrupt
// record cannot trigger an oversized allocation on read.
const maxVarBytesLen = 1 << 24

// Big endian is the preferred byte order for all integer fields, matching
// cursor iteration order over serialized keys.
var byteOrder = binary.BigEndian

// Serialize writes the deploy in its storage encoding.
func Serialize(w io.Writer, d *Deploy) error {
	if err := writeBytes32(w, d.Hash); err != nil {
		return err
	}
	if err := serializeHeader(w, &d.Header); err != nil {
		return err
	}
	if err := serializeItem(w, d.Payment); err != nil {
		return err
	}
	if err := serializeItem(w, d.Session); err != nil {
		return err
	}

	if err := writeUint32(w, uint32(len(d.Approvals))); err != nil {
		return err
	}
	for i := range d.Approvals {
		if err := writePubKey(w, d.Approvals[i].Signer); err != nil {
			return err
		}
		err := writeVarBytes(w, d.Approvals[i].Sig.Serialize())
		if err != nil {
			return err
		}
	}

	return nil
}

// Deserialize reads a deploy from its storage encoding.
func Deserialize(r io.Reader) (*Deploy, error) {
	var (
		d   Deploy
		err error
	)

	hash, err := readBytes32(r)
	if err != nil {
		return nil, err
	}
	d.Hash = Hash(hash)

	d.Header, err = deserializeHeader(r)
	if err != nil {
		return nil, err
	}

	d.Payment, err = deserializeItem(r)
	if err != nil {
		return nil, err
	}
	d.Session, err = deserializeItem(r)
	if err != nil {
		return nil, err
	}

	numApprovals, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < numApprovals; i++ {
		signer, err := readPubKey(r)
		if err != nil {
			return nil, err
		}
		sigBytes, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		sig, err := ecdsa.ParseDERSignature(sigBytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse approval "+
				"signature: %w", err)
		}

		d.Approvals = append(d.Approvals, Approval{
			Signer: signer,
			Sig:    sig,
		})
	}

	return &d, nil
}

func serializeHeader(w io.Writer, header *Header) error {
	if err := writePubKey(w, header.Account); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(header.Timestamp.UnixMilli())); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(header.TTL/time.Millisecond)); err != nil {
		return err
	}
	if err := writeUint64(w, header.GasPrice); err != nil {
		return err
	}
	if err := writeBytes32(w, header.BodyHash); err != nil {
		return err
	}

	if err := writeUint32(w, uint32(len(header.Dependencies))); err != nil {
		return err
	}
	for _, dep := range header.Dependencies {
		if err := writeBytes32(w, dep); err != nil {
			return err
		}
	}

	return writeVarBytes(w, []byte(header.ChainName))
}

func deserializeHeader(r io.Reader) (Header, error) {
	var header Header

	account, err := readPubKey(r)
	if err != nil {
		return header, err
	}
	header.Account = account

	millis, err := readUint64(r)
	if err != nil {
		return header, err
	}
	header.Timestamp = time.UnixMilli(int64(millis)).UTC()

	ttlMillis, err := readUint64(r)
	if err != nil {
		return header, err
	}
	header.TTL = time.Duration(ttlMillis) * time.Millisecond

	header.GasPrice, err = readUint64(r)
	if err != nil {
		return header, err
	}

	bodyHash, err := readBytes32(r)
	if err != nil {
		return header, err
	}
	header.BodyHash = Hash(bodyHash)

	numDeps, err := readUint32(r)
	if err != nil {
		return header, err
	}
	for i := uint32(0); i < numDeps; i++ {
		dep, err := readBytes32(r)
		if err != nil {
			return header, err
		}
		header.Dependencies = append(header.Dependencies, Hash(dep))
	}

	chainName, err := readVarBytes(r)
	if err != nil {
		return header, err
	}
	header.ChainName = string(chainName)

	return header, nil
}

func serializeItem(w io.Writer, item ExecutableItem) error {
	if _, err := w.Write([]byte{item.tag()}); err != nil {
		return err
	}

	switch i := item.(type) {
	case *ModuleBytes:
		if err := writeVarBytes(w, i.Module); err != nil {
			return err
		}
		return writeVarBytes(w, i.Args)

	case *StoredContractByHash:
		if err := writeBytes32(w, [32]byte(i.Contract)); err != nil {
			return err
		}
		if err := writeVarBytes(w, []byte(i.EntryPoint)); err != nil {
			return err
		}
		return writeVarBytes(w, i.Args)

	case *StoredContractByName:
		if err := writeVarBytes(w, []byte(i.Name)); err != nil {
			return err
		}
		if err := writeVarBytes(w, []byte(i.EntryPoint)); err != nil {
			return err
		}
		return writeVarBytes(w, i.Args)

	case *StoredPackageByHash:
		if err := writeBytes32(w, [32]byte(i.Package)); err != nil {
			return err
		}
		if err := writeOptVersion(w, i.Version); err != nil {
			return err
		}
		if err := writeVarBytes(w, []byte(i.EntryPoint)); err != nil {
			return err
		}
		return writeVarBytes(w, i.Args)

	case *StoredPackageByName:
		if err := writeVarBytes(w, []byte(i.Name)); err != nil {
			return err
		}
		if err := writeOptVersion(w, i.Version); err != nil {
			return err
		}
		if err := writeVarBytes(w, []byte(i.EntryPoint)); err != nil {
			return err
		}
		return writeVarBytes(w, i.Args)

	case *Transfer:
		return writeVarBytes(w, i.Args)

	default:
		return fmt.Errorf("unknown executable item type %T", item)
	}
}

func deserializeItem(r io.Reader) (ExecutableItem, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return nil, err
	}

	switch tag[0] {
	case itemTagModuleBytes:
		module, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		args, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		return &ModuleBytes{Module: module, Args: args}, nil

	case itemTagStoredContractByHash:
		hash, err := readBytes32(r)
		if err != nil {
			return nil, err
		}
		entryPoint, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		args, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		return &StoredContractByHash{
			Contract:   ContractHash(hash),
			EntryPoint: string(entryPoint),
			Args:       args,
		}, nil

	case itemTagStoredContractByName:
		name, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		entryPoint, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		args, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		return &StoredContractByName{
			Name:       string(name),
			EntryPoint: string(entryPoint),
			Args:       args,
		}, nil

	case itemTagStoredPackageByHash:
		hash, err := readBytes32(r)
		if err != nil {
			return nil, err
		}
		version, err := readOptVersion(r)
		if err != nil {
			return nil, err
		}
		entryPoint, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		args, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		return &StoredPackageByHash{
			Package:    PackageHash(hash),
			Version:    version,
			EntryPoint: string(entryPoint),
			Args:       args,
		}, nil

	case itemTagStoredPackageByName:
		name, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		version, err := readOptVersion(r)
		if err != nil {
			return nil, err
		}
		entryPoint, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		args, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		return &StoredPackageByName{
			Name:       string(name),
			Version:    version,
			EntryPoint: string(entryPoint),
			Args:       args,
		}, nil

	case itemTagTransfer:
		args, err := readVarBytes(r)
		if err != nil {
			return nil, err
		}
		return &Transfer{Args: args}, nil

	default:
		return nil, fmt.Errorf("unknown executable item tag %d", tag[0])
	}
}

func writeUint32(w io.Writer, v uint32) error {
	var b [4]byte
	byteOrder.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint32(b[:]), nil
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	byteOrder.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func readUint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return byteOrder.Uint64(b[:]), nil
}

func writeBytes32(w io.Writer, b [32]byte) error {
	_, err := w.Write(b[:])
	return err
}

func readBytes32(r io.Reader) ([32]byte, error) {
	var b [32]byte
	_, err := io.ReadFull(r, b[:])
	return b, err
}

func writeVarBytes(w io.Writer, b []byte) error {
	if len(b) > maxVarBytesLen {
		return fmt.Errorf("field of %d bytes exceeds encoding limit",
			len(b))
	}
	if err := writeUint32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readVarBytes(r io.Reader) ([]byte, error) {
	length, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if length > maxVarBytesLen {
		return nil, fmt.Errorf("field of %d bytes exceeds encoding "+
			"limit", length)
	}
	if length == 0 {
		return nil, nil
	}

	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writePubKey(w io.Writer, pub *btcec.PublicKey) error {
	_, err := w.Write(pub.SerializeCompressed())
	return err
}

func readPubKey(r io.Reader) (*btcec.PublicKey, error) {
	var b [33]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, err
	}
	return btcec.ParsePubKey(b[:])
}

func writeOptVersion(w io.Writer, version fn.Option[uint32]) error {
	if version.IsNone() {
		_, err := w.Write([]byte{0})
		return err
	}

	if _, err := w.Write([]byte{1}); err != nil {
		return err
	}
	return writeUint32(w, version.UnwrapOr(0))
}

func readOptVersion(r io.Reader) (fn.Option[uint32], error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return fn.None[uint32](), err
	}
	if b[0] == 0 {
		return fn.None[uint32](), nil
	}

	v, err := readUint32(r)
	if err != nil {
		return fn.None[uint32](), err
	}
	return fn.Some(v), nil
}
