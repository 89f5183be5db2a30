package headersync

import (
	"fmt"

	"github.com/celestiaorg/header-relay/libs/log"
)

// Queue tracks every header observed on the source chain that is not yet
// known to be finalized on the target chain, and moves each one through the
// validation stages required before it can be submitted.
//
// The queue performs no I/O and no cryptography. An external relay loop
// feeds it chain observations through the *Response methods and reads it
// back (Header, Headers, Status) to decide what to request next. The loop
// owns the queue exclusively: none of the methods are safe for concurrent
// use, and none of them block.
//
// Responses may arrive in any order relative to each other. Every state
// transition therefore moves "this id and its already-known descendants",
// and a response for an id that has since left the expected stage is
// silently dropped.
type Queue[H Header, E any] struct {
	maybeOrphan *stageQueue[H, E]
	orphan      *stageQueue[H, E]
	maybeExtra  *stageQueue[H, E]
	extra       *stageQueue[H, E]
	ready       *stageQueue[H, E]
	submitted   *stageQueue[H, E]

	// known maps every accepted id to its current status, mirroring the
	// stage containers plus the Synced ids they no longer hold.
	known *knownHeaders

	// pruneBorder is the minimum block number still retained. Headers
	// below it are never accepted and have been forgotten.
	pruneBorder int64

	logger  log.Logger
	metrics *Metrics
}

// NewQueue returns an empty queue with the prune border at zero. A nil
// metrics falls back to no-op metrics.
func NewQueue[H Header, E any](logger log.Logger, metrics *Metrics) *Queue[H, E] {
	if metrics == nil {
		metrics = NopMetrics()
	}
	return &Queue[H, E]{
		maybeOrphan: newStageQueue[H, E](),
		orphan:      newStageQueue[H, E](),
		maybeExtra:  newStageQueue[H, E](),
		extra:       newStageQueue[H, E](),
		ready:       newStageQueue[H, E](),
		submitted:   newStageQueue[H, E](),
		known:       newKnownHeaders(),
		logger:      logger,
		metrics:     metrics,
	}
}

// stage returns the container backing the given status, nil for Unknown and
// Synced which have none.
func (q *Queue[H, E]) stage(status HeaderStatus) *stageQueue[H, E] {
	switch status {
	case StatusMaybeOrphan:
		return q.maybeOrphan
	case StatusOrphan:
		return q.orphan
	case StatusMaybeExtra:
		return q.maybeExtra
	case StatusExtra:
		return q.extra
	case StatusReady:
		return q.ready
	case StatusSubmitted:
		return q.submitted
	default:
		return nil
	}
}

// inFlightStages returns the five stages a header occupies before
// submission.
func (q *Queue[H, E]) inFlightStages() []*stageQueue[H, E] {
	return []*stageQueue[H, E]{q.maybeOrphan, q.orphan, q.maybeExtra, q.extra, q.ready}
}

// Status returns the current pipeline status of id, StatusUnknown if the
// queue has never accepted it (or has pruned it).
func (q *Queue[H, E]) Status(id HeaderID) HeaderStatus {
	return q.known.get(id)
}

// Header returns the oldest header currently sitting in the given stage, or
// nil if the stage is empty or the status has no stage.
func (q *Queue[H, E]) Header(status HeaderStatus) *QueuedHeader[H, E] {
	stage := q.stage(status)
	if stage == nil {
		return nil
	}
	return stage.oldest()
}

// Headers returns the longest oldest-first prefix of the given stage for
// which pred keeps returning true, stopping at the first failure. It
// returns nil if the prefix is empty. This lets a caller collect e.g. "all
// Ready headers up to N bytes of combined payload" without building the
// full list first.
func (q *Queue[H, E]) Headers(status HeaderStatus, pred func(*QueuedHeader[H, E]) bool) []*QueuedHeader[H, E] {
	stage := q.stage(status)
	if stage == nil {
		return nil
	}
	var out []*QueuedHeader[H, E]
	stage.ascend(func(qh *QueuedHeader[H, E]) bool {
		if !pred(qh) {
			return false
		}
		out = append(out, qh)
		return true
	})
	return out
}

// HeadersInStatus returns how many headers currently sit in the given
// stage.
func (q *Queue[H, E]) HeadersInStatus(status HeaderStatus) int {
	stage := q.stage(status)
	if stage == nil {
		return 0
	}
	return stage.len()
}

// TotalHeaders returns the number of headers across the five in-flight
// stages, excluding Submitted.
func (q *Queue[H, E]) TotalHeaders() int {
	total := 0
	for _, stage := range q.inFlightStages() {
		total += stage.len()
	}
	return total
}

// BestQueuedNumber returns the highest block number across the in-flight
// stages, zero if they are all empty.
func (q *Queue[H, E]) BestQueuedNumber() int64 {
	best := int64(0)
	for _, stage := range q.inFlightStages() {
		if n, ok := stage.newestNumber(); ok && n > best {
			best = n
		}
	}
	return best
}

// IsEmpty reports whether no header sits in any stage, Submitted included.
func (q *Queue[H, E]) IsEmpty() bool {
	for _, status := range stageStatuses {
		if q.stage(status).len() != 0 {
			return false
		}
	}
	return true
}

// StatusCounts returns a snapshot of per-stage header counts.
func (q *Queue[H, E]) StatusCounts() map[HeaderStatus]int {
	counts := make(map[HeaderStatus]int, len(stageStatuses))
	for _, status := range stageStatuses {
		counts[status] = q.stage(status).len()
	}
	return counts
}

// PruneBorder returns the minimum block number still retained.
func (q *Queue[H, E]) PruneBorder() int64 {
	return q.pruneBorder
}

// HeaderResponse accepts a header newly observed on the source chain. The
// header is classified by what is known about its parent: an unresolved or
// possibly-orphaned parent makes it MaybeOrphan, a confirmed-orphan parent
// makes it Orphan, and a parent anywhere past orphan resolution makes it
// MaybeExtra. Duplicate and ancient deliveries are dropped.
func (q *Queue[H, E]) HeaderResponse(header H) {
	id := header.ID()
	if q.known.get(id) != StatusUnknown {
		q.logger.Trace("Ignoring duplicate header", "id", id)
		q.metrics.IgnoredHeaders.Add(1)
		return
	}
	if id.Number < q.pruneBorder {
		q.logger.Trace("Ignoring ancient header", "id", id, "border", q.pruneBorder)
		q.metrics.IgnoredHeaders.Add(1)
		return
	}

	var status HeaderStatus
	switch q.known.get(header.ParentID()) {
	case StatusUnknown, StatusMaybeOrphan:
		status = StatusMaybeOrphan
	case StatusOrphan:
		status = StatusOrphan
	default:
		// Parent is MaybeExtra or further: ancestry is resolved.
		status = StatusMaybeExtra
	}

	q.stage(status).insert(newQueuedHeader[H, E](header))
	q.known.set(id, status)

	q.logger.Debug("Queueing new header", "id", id, "status", status)
	q.metrics.AcceptedHeaders.Add(1)
	q.updateGauges()
}

// TargetBestHeaderResponse records that the target chain's best known
// source-chain header is id. Every stored ancestor of id (and id itself) is
// retired to Synced, and every known descendant still waiting on orphan
// resolution is moved to MaybeExtra: the target chain confirming id proves
// the chain up to id is known there.
func (q *Queue[H, E]) TargetBestHeaderResponse(id HeaderID) {
	// Walk backward through the stored ancestry, one generation at a
	// time, until we fall off the known set or reach previously-synced
	// history.
	synced := 0
	current := id
	for {
		status := q.known.get(current)
		if status == StatusUnknown || status == StatusSynced {
			break
		}
		qh := q.stage(status).remove(current)
		if qh == nil {
			panic(fmt.Sprintf("headersync: index reports %v in stage %v, but the stage does not hold it", current, status))
		}
		q.known.set(current, StatusSynced)
		synced++
		current = qh.ParentID()
	}

	// The target chain can report ids this queue never staged; remember
	// them as synced so future children are admitted past orphan
	// resolution. Ids below the prune border stay forgotten.
	if id.Number >= q.pruneBorder {
		q.known.set(id, StatusSynced)
	}

	// Anything built on top of a target-known header no longer needs
	// orphan resolution.
	moved := q.moveDescendants(orphanStatuses, StatusMaybeExtra, id)

	if synced > 0 || moved > 0 {
		q.logger.Debug("Target best header advanced", "id", id, "synced", synced, "unorphaned", moved)
	}
	q.metrics.SyncedHeaders.Add(float64(synced))
	q.updateGauges()
}

// MaybeOrphanResponse answers whether the target chain knows the parent of
// the header id that was surfaced from the MaybeOrphan stage. A positive
// answer moves the header and its orphaned descendants on to extra-data
// resolution; a negative one parks them all in Orphan until their ancestry
// is resolved. A response for an id that already left orphan resolution is
// dropped.
func (q *Queue[H, E]) MaybeOrphanResponse(id HeaderID, known bool) {
	destination := StatusMaybeExtra
	if !known {
		destination = StatusOrphan
	}
	if q.moveHeader(id, orphanStatuses, destination) == nil {
		q.logger.Trace("Ignoring stale maybe-orphan response", "id", id, "known", known)
		return
	}
	q.moveDescendants(orphanStatuses, destination, id)
	q.logger.Debug("Resolved maybe-orphan header", "id", id, "status", destination)
	q.updateGauges()
}

// MaybeExtraResponse answers whether extra data must be fetched for the
// header id before submission. The header moves MaybeExtra -> Extra when
// data is needed and straight to Ready when it is not. A response for an id
// no longer in MaybeExtra is dropped.
func (q *Queue[H, E]) MaybeExtraResponse(id HeaderID, needed bool) {
	destination := StatusReady
	if needed {
		destination = StatusExtra
	}
	if q.moveHeader(id, []HeaderStatus{StatusMaybeExtra}, destination) == nil {
		q.logger.Trace("Ignoring stale maybe-extra response", "id", id, "needed", needed)
		return
	}
	q.logger.Debug("Resolved maybe-extra header", "id", id, "status", destination)
	q.updateGauges()
}

// ExtraResponse attaches the fetched extra data to the header id and moves
// it Extra -> Ready. A response for an id no longer in Extra is dropped.
func (q *Queue[H, E]) ExtraResponse(id HeaderID, extra E) {
	qh := q.moveHeader(id, []HeaderStatus{StatusExtra}, StatusReady)
	if qh == nil {
		q.logger.Trace("Ignoring stale extra-data response", "id", id)
		return
	}
	qh.extra = &extra
	q.logger.Debug("Header ready for submission", "id", id)
	q.updateGauges()
}

// HeadersSubmitted records that the given Ready headers were submitted to
// the target chain. An id no longer in Ready is skipped; it may already
// have been synced by a concurrent target chain observation.
func (q *Queue[H, E]) HeadersSubmitted(ids []HeaderID) {
	for _, id := range ids {
		if q.moveHeader(id, []HeaderStatus{StatusReady}, StatusSubmitted) == nil {
			q.logger.Trace("Skipping submitted header not in Ready", "id", id)
			continue
		}
		q.logger.Debug("Header submitted", "id", id)
	}
	q.updateGauges()
}

// Prune forgets every header with block number below border, across all
// stages and the known-header index, and raises the border. The border is
// monotonic: a smaller or equal border is a no-op. Pruning is unconditional;
// callers only raise the border to heights they know are safely finalized.
func (q *Queue[H, E]) Prune(border int64) {
	if border <= q.pruneBorder {
		return
	}
	pruned := 0
	for _, status := range stageStatuses {
		pruned += q.stage(status).prune(border)
	}
	q.known.prune(border)
	q.pruneBorder = border

	q.logger.Debug("Pruned header queue", "border", border, "pruned", pruned)
	q.metrics.PrunedHeaders.Add(float64(pruned))
	q.metrics.PruneBorder.Set(float64(border))
	q.updateGauges()
}

// moveHeader relocates id into the destination stage if it currently sits
// in one of the source stages, keeping the index in lockstep. It returns
// the moved header, or nil if id is in none of the sources (a stale
// response). An index entry pointing at a stage that does not hold the
// header is a programming defect and panics.
func (q *Queue[H, E]) moveHeader(id HeaderID, sources []HeaderStatus, destination HeaderStatus) *QueuedHeader[H, E] {
	status := q.known.get(id)
	found := false
	for _, source := range sources {
		if status == source {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	qh := q.stage(status).remove(id)
	if qh == nil {
		panic(fmt.Sprintf("headersync: index reports %v in stage %v, but the stage does not hold it", id, status))
	}
	q.stage(destination).insert(qh)
	q.known.set(id, destination)
	return qh
}

// moveDescendants moves every header in the source stages that descends
// from id into the destination stage, and returns how many moved. The data
// model has no child pointers, so children are discovered breadth-first by
// generation: probe the bucket one number above the current frontier for
// headers whose parent hash is in the frontier, move them, and repeat with
// the moved headers as the new frontier until a generation yields nothing.
func (q *Queue[H, E]) moveDescendants(sources []HeaderStatus, destination HeaderStatus, id HeaderID) int {
	moved := 0
	number := id.Number
	frontier := map[Hash]struct{}{id.Hash: {}}

	for len(frontier) > 0 {
		number++
		next := make(map[Hash]struct{})
		for _, source := range sources {
			stage := q.stage(source)
			// Collect first: moving mutates the bucket being probed.
			var children []HeaderID
			for hash, qh := range stage.bucketAt(number) {
				if _, seen := next[hash]; seen {
					// Already moved out of an earlier source stage in
					// this generation.
					continue
				}
				if _, ok := frontier[qh.ParentID().Hash]; ok {
					children = append(children, HeaderID{Number: number, Hash: hash})
				}
			}
			for _, child := range children {
				if q.moveHeader(child, []HeaderStatus{source}, destination) == nil {
					panic(fmt.Sprintf("headersync: header %v vanished from stage %v during cascade", child, source))
				}
				next[child.Hash] = struct{}{}
				moved++
			}
		}
		frontier = next
	}
	return moved
}

// updateGauges refreshes the per-stage size gauges and the best queued
// number after any mutation.
func (q *Queue[H, E]) updateGauges() {
	for _, status := range stageStatuses {
		q.metrics.QueuedHeaders.With("status", status.String()).Set(float64(q.stage(status).len()))
	}
	q.metrics.BestQueuedNumber.Set(float64(q.BestQueuedNumber()))
}
