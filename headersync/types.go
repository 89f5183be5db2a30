package headersync

import "fmt"

// HashLength is the length of a source-chain block hash, in bytes.
const HashLength = 32

// Hash is a source-chain block hash. It is a fixed-size value so it can key
// maps directly.
type Hash [HashLength]byte

func (h Hash) String() string {
	return fmt.Sprintf("%X", h[:])
}

// HeaderID uniquely identifies a source-chain header. Forks mean several
// headers can share a block number, so identity is the (number, hash) pair;
// pipeline progress is ordered by number alone.
type HeaderID struct {
	Number int64
	Hash   Hash
}

func (id HeaderID) String() string {
	return fmt.Sprintf("%d:%X", id.Number, id.Hash[:8])
}

// Header is the queue's view of a source-chain header. Implementations are
// chain-specific; the queue only needs identity and parent linkage.
type Header interface {
	// ID returns the (number, hash) identifier of this header.
	ID() HeaderID
	// ParentID returns the identifier of this header's parent.
	ParentID() HeaderID
}

// QueuedHeader wraps one source-chain header while it moves through the
// submission pipeline. The header itself is immutable; the only mutable
// state is the chain-specific extra data slot, attached by the queue on the
// Extra -> Ready transition.
type QueuedHeader[H Header, E any] struct {
	header H
	extra  *E
}

func newQueuedHeader[H Header, E any](header H) *QueuedHeader[H, E] {
	return &QueuedHeader[H, E]{header: header}
}

// Header returns the wrapped source-chain header.
func (qh *QueuedHeader[H, E]) Header() H { return qh.header }

// ID returns the identifier of the wrapped header.
func (qh *QueuedHeader[H, E]) ID() HeaderID { return qh.header.ID() }

// ParentID returns the identifier of the wrapped header's parent.
func (qh *QueuedHeader[H, E]) ParentID() HeaderID { return qh.header.ParentID() }

// Extra returns the attached extra data, or nil if none has been attached
// yet.
func (qh *QueuedHeader[H, E]) Extra() *E { return qh.extra }
