package deploy

import (
	"encoding/hex"
	"fmt"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// NodeID identifies a peer on the gossip network.
type NodeID [32]byte

// String returns the hex encoding of the node ID.
func (n NodeID) String() string {
	return hex.EncodeToString(n[:])
}

// Source records where a deploy entered the node: directly from a client
// served by this node, or relayed by a peer that has already admitted it.
// The distinction decides which validation stages run.
type Source struct {
	peer fn.Option[NodeID]
}

// FromClient returns the source tag for a deploy submitted by a directly
// connected client.
func FromClient() Source {
	return Source{peer: fn.None[NodeID]()}
}

// FromPeer returns the source tag for a deploy relayed by the given peer.
func FromPeer(id NodeID) Source {
	return Source{peer: fn.Some(id)}
}

// IsClient reports whether the deploy was submitted by a client.
func (s Source) IsClient() bool {
	return s.peer.IsNone()
}

// PeerID returns the relaying peer's identity, or None for client
// submissions.
func (s Source) PeerID() fn.Option[NodeID] {
	return s.peer
}

// String returns a human readable rendering of the source.
func (s Source) String() string {
	return fn.ElimOption(s.peer,
		func() string { return "client" },
		func(id NodeID) string {
			return fmt.Sprintf("peer(%x)", id[:8])
		},
	)
}
