package ethereum

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celestiaorg/header-relay/headersync"
	"github.com/celestiaorg/header-relay/libs/log"
)

// makeChain returns length linked headers starting at the given number.
func makeChain(t *testing.T, start int64, length int) []Header {
	t.Helper()

	headers := make([]Header, 0, length)
	parentHash := common.Hash{}
	for i := 0; i < length; i++ {
		raw := &ethtypes.Header{
			Number:     big.NewInt(start + int64(i)),
			ParentHash: parentHash,
			Extra:      []byte{byte(i)},
		}
		h, err := NewHeader(raw)
		require.NoError(t, err)
		headers = append(headers, h)
		parentHash = raw.Hash()
	}
	return headers
}

func TestNewHeader_Validation(t *testing.T) {
	_, err := NewHeader(nil)
	assert.Error(t, err)

	_, err = NewHeader(&ethtypes.Header{})
	assert.Error(t, err, "missing block number")

	_, err = NewHeader(&ethtypes.Header{Number: big.NewInt(-1)})
	assert.Error(t, err, "negative block number")

	tooBig := new(big.Int).Lsh(big.NewInt(1), 70)
	_, err = NewHeader(&ethtypes.Header{Number: tooBig})
	assert.Error(t, err, "number beyond int64")

	h, err := NewHeader(&ethtypes.Header{Number: big.NewInt(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), h.ID().Number)
}

func TestHeader_IDAndParentID(t *testing.T) {
	chain := makeChain(t, 100, 3)

	for i, h := range chain {
		assert.Equal(t, int64(100+i), h.ID().Number)
		assert.Equal(t, headersync.Hash(h.Raw().Hash()), h.ID().Hash)
	}
	// Each header's parent id must be the previous header's id.
	for i := 1; i < len(chain); i++ {
		assert.Equal(t, chain[i-1].ID(), chain[i].ParentID())
	}
}

func TestQueue_EthereumHeadersEndToEnd(t *testing.T) {
	q := NewQueue(log.NewNopLogger(), nil)
	chain := makeChain(t, 100, 4)

	// The untracked ancestor of the chain is known to the target chain.
	q.TargetBestHeaderResponse(chain[0].ParentID())
	for _, h := range chain {
		q.HeaderResponse(h)
	}

	// The first header's ancestry is already resolved, and each child saw
	// its parent in MaybeExtra on arrival.
	for _, h := range chain {
		require.Equal(t, headersync.StatusMaybeExtra, q.Status(h.ID()))
	}

	q.MaybeExtraResponse(chain[0].ID(), true)
	receipts := Receipts{&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}}
	q.ExtraResponse(chain[0].ID(), receipts)

	ready := q.Header(headersync.StatusReady)
	require.NotNil(t, ready)
	assert.Equal(t, chain[0].ID(), ready.ID())
	require.NotNil(t, ready.Extra())
	assert.Len(t, *ready.Extra(), 1)

	q.HeadersSubmitted([]headersync.HeaderID{chain[0].ID()})
	assert.Equal(t, headersync.StatusSubmitted, q.Status(chain[0].ID()))

	// The target chain confirms the submitted header: it and nothing else
	// is retired.
	q.TargetBestHeaderResponse(chain[0].ID())
	assert.Equal(t, headersync.StatusSynced, q.Status(chain[0].ID()))
	assert.Equal(t, headersync.StatusMaybeExtra, q.Status(chain[1].ID()))
}
