package headersync

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// checkConsistency asserts the structural invariants that must hold after
// every public call: the known-header index and the stage containers agree
// on every id, and nothing below the prune border survives anywhere.
func checkConsistency(t *testing.T, q *testQueue) {
	t.Helper()

	// Every indexed id sits in exactly the stage the index names, or in no
	// stage at all for Synced ids.
	for number, bucket := range q.known.byNumber {
		require.GreaterOrEqual(t, number, q.pruneBorder, "index holds id below prune border")
		for hash, status := range bucket {
			id := HeaderID{Number: number, Hash: hash}
			require.NotEqual(t, StatusUnknown, status, "index holds an Unknown entry for %v", id)
			for _, s := range stageStatuses {
				if s == status {
					require.NotNil(t, q.stage(s).get(id), "%v indexed as %v but missing from its stage", id, status)
				} else {
					require.Nil(t, q.stage(s).get(id), "%v indexed as %v but also present in %v", id, status, s)
				}
			}
		}
	}

	// Every staged header is indexed with the matching status, and no
	// stage holds anything below the prune border.
	for _, s := range stageStatuses {
		count := 0
		q.stage(s).ascend(func(qh *QueuedHeader[testHeader, string]) bool {
			count++
			require.GreaterOrEqual(t, qh.ID().Number, q.pruneBorder, "stage %v holds id below prune border", s)
			require.Equal(t, s, q.known.get(qh.ID()), "staged %v not indexed as %v", qh.ID(), s)
			return true
		})
		require.Equal(t, q.stage(s).len(), count, "stage %v count drifted", s)
	}
}

// queueSnapshot captures the status of every id on every test fork within
// [from, to], plus the per-stage counts and the border, for state equality
// comparisons.
type snapshot struct {
	statuses map[HeaderID]HeaderStatus
	counts   map[HeaderStatus]int
	border   int64
}

func queueSnapshot(q *testQueue, from, to int64) snapshot {
	statuses := make(map[HeaderID]HeaderStatus)
	for n := from; n <= to; n++ {
		for fork := byte(0); fork < 3; fork++ {
			id := forkHeader(n, fork).ID()
			if status := q.Status(id); status != StatusUnknown {
				statuses[id] = status
			}
		}
	}
	return snapshot{
		statuses: statuses,
		counts:   q.StatusCounts(),
		border:   q.PruneBorder(),
	}
}

func TestQueue_RandomOperationsKeepConsistency(t *testing.T) {
	const (
		numOps    = 3000
		maxNumber = 48
		forks     = 3
	)

	// Fixed seed: the sequence is arbitrary but the test must be
	// reproducible.
	rng := rand.New(rand.NewSource(42))

	q := newTestQueue()
	for i := 0; i < numOps; i++ {
		number := int64(rng.Intn(maxNumber)) + 1
		fork := byte(rng.Intn(forks))
		h := forkHeader(number, fork)
		if rng.Intn(10) == 0 {
			// Occasionally a header whose parent sits on another fork.
			h = crossForkHeader(number, fork, byte(rng.Intn(forks)))
		}

		switch rng.Intn(9) {
		case 0, 1, 2:
			q.HeaderResponse(h)
		case 3:
			q.MaybeOrphanResponse(h.ID(), rng.Intn(2) == 0)
		case 4:
			q.MaybeExtraResponse(h.ID(), rng.Intn(2) == 0)
		case 5:
			q.ExtraResponse(h.ID(), "extra")
		case 6:
			q.HeadersSubmitted([]HeaderID{h.ID()})
		case 7:
			q.TargetBestHeaderResponse(h.ID())
		case 8:
			q.Prune(int64(rng.Intn(maxNumber / 2)))
		}

		checkConsistency(t, q)
	}
}

func TestQueue_PruneMonotonicity(t *testing.T) {
	build := func() *testQueue {
		q := newTestQueue()
		for n := int64(1); n <= 20; n++ {
			for fork := byte(0); fork < 3; fork++ {
				q.HeaderResponse(forkHeader(n, fork))
			}
		}
		q.MaybeOrphanResponse(forkHeader(1, 0).ID(), true)
		q.MaybeOrphanResponse(forkHeader(1, 1).ID(), false)
		return q
	}

	// prune(b1) then prune(b2) must equal prune(b2) alone for b1 <= b2.
	stepped := build()
	stepped.Prune(5)
	stepped.Prune(12)

	direct := build()
	direct.Prune(12)

	assert.Equal(t, queueSnapshot(direct, 0, 25), queueSnapshot(stepped, 0, 25))

	// A smaller border afterwards changes nothing.
	before := queueSnapshot(stepped, 0, 25)
	stepped.Prune(3)
	assert.Equal(t, before, queueSnapshot(stepped, 0, 25))
}

func TestQueue_SyncedIdempotence(t *testing.T) {
	q := newTestQueue()
	for n := int64(1); n <= 10; n++ {
		q.HeaderResponse(header(n))
	}
	q.MaybeOrphanResponse(header(1).ID(), true)

	q.TargetBestHeaderResponse(header(6).ID())
	first := queueSnapshot(q, 0, 15)
	checkConsistency(t, q)

	q.TargetBestHeaderResponse(header(6).ID())
	assert.Equal(t, first, queueSnapshot(q, 0, 15))
	checkConsistency(t, q)
}
