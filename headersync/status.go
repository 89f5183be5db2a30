package headersync

import "fmt"

// HeaderStatus is the position of a header in the submission pipeline.
//
// A header enters the queue in MaybeOrphan, Orphan or MaybeExtra depending
// on what is known about its parent, and only ever advances:
//
//	MaybeOrphan -> MaybeExtra -> Extra -> Ready -> Submitted -> Synced
//	           \-> Orphan    -/        \-> Ready (extra data not needed)
//
// Unknown and Synced are not backed by stage storage.
type HeaderStatus int

const (
	// StatusUnknown means the header was never seen (or has been pruned).
	StatusUnknown HeaderStatus = iota
	// StatusMaybeOrphan means we do not know yet whether the header's
	// ancestry connects to the target chain.
	StatusMaybeOrphan
	// StatusOrphan means the target chain does not know the header's
	// parent; the header waits for its ancestry to be resolved.
	StatusOrphan
	// StatusMaybeExtra means the header's ancestry is connected, but we do
	// not know yet whether extra data must be fetched for it.
	StatusMaybeExtra
	// StatusExtra means extra data is required and not yet attached.
	StatusExtra
	// StatusReady means the header can be submitted to the target chain.
	StatusReady
	// StatusSubmitted means the header has been sent to the target chain
	// and we are waiting for it to be noticed there.
	StatusSubmitted
	// StatusSynced is terminal: the header is an ancestor of (or is) a
	// header the target chain has confirmed.
	StatusSynced
)

// stageStatuses are the statuses backed by a stage container, in pipeline
// order.
var stageStatuses = []HeaderStatus{
	StatusMaybeOrphan,
	StatusOrphan,
	StatusMaybeExtra,
	StatusExtra,
	StatusReady,
	StatusSubmitted,
}

// orphanStatuses are the stages a header can occupy while its ancestry is
// unresolved; cascades out of orphan-resolution always source from both.
var orphanStatuses = []HeaderStatus{StatusMaybeOrphan, StatusOrphan}

func (s HeaderStatus) String() string {
	switch s {
	case StatusUnknown:
		return "Unknown"
	case StatusMaybeOrphan:
		return "MaybeOrphan"
	case StatusOrphan:
		return "Orphan"
	case StatusMaybeExtra:
		return "MaybeExtra"
	case StatusExtra:
		return "Extra"
	case StatusReady:
		return "Ready"
	case StatusSubmitted:
		return "Submitted"
	case StatusSynced:
		return "Synced"
	default:
		return fmt.Sprintf("HeaderStatus(%d)", int(s))
	}
}
