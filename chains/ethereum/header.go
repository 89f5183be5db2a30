// Package ethereum adapts go-ethereum block headers to the header
// synchronization queue, with transaction receipts as the extra data
// fetched before submission.
package ethereum

import (
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"

	"github.com/celestiaorg/header-relay/headersync"
	"github.com/celestiaorg/header-relay/libs/log"
)

// Receipts is the extra data attached to an Ethereum header before
// submission: the receipts of every transaction in the block.
type Receipts = ethtypes.Receipts

// Header wraps a go-ethereum block header for queueing. The id is computed
// once on construction; ethtypes.Header.Hash re-derives the RLP hash on
// every call.
type Header struct {
	inner *ethtypes.Header
	id    headersync.HeaderID
}

// Interface assertions
var _ headersync.Header = Header{}

// NewHeader validates and wraps an Ethereum block header.
func NewHeader(h *ethtypes.Header) (Header, error) {
	if h == nil {
		return Header{}, errors.New("nil header")
	}
	if h.Number == nil {
		return Header{}, errors.New("header missing block number")
	}
	if h.Number.Sign() < 0 || !h.Number.IsInt64() {
		return Header{}, errors.Errorf("header number %s out of range", h.Number)
	}
	return Header{
		inner: h,
		id: headersync.HeaderID{
			Number: h.Number.Int64(),
			Hash:   headersync.Hash(h.Hash()),
		},
	}, nil
}

// ID implements headersync.Header.
func (h Header) ID() headersync.HeaderID { return h.id }

// ParentID implements headersync.Header.
func (h Header) ParentID() headersync.HeaderID {
	return headersync.HeaderID{
		Number: h.id.Number - 1,
		Hash:   headersync.Hash(h.inner.ParentHash),
	}
}

// Raw returns the wrapped go-ethereum header.
func (h Header) Raw() *ethtypes.Header { return h.inner }

// Queue is the header synchronization queue specialized for Ethereum
// headers.
type Queue = headersync.Queue[Header, Receipts]

// QueuedHeader is an Ethereum header in flight through the queue.
type QueuedHeader = headersync.QueuedHeader[Header, Receipts]

// NewQueue returns an empty Ethereum header queue.
func NewQueue(logger log.Logger, metrics *headersync.Metrics) *Queue {
	return headersync.NewQueue[Header, Receipts](logger, metrics)
}
