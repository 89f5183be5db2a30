package headersync

import (
	"bytes"
	"sort"
)

// insertNumber adds n to the sorted slice if absent.
func insertNumber(numbers []int64, n int64) []int64 {
	i := sort.Search(len(numbers), func(i int) bool { return numbers[i] >= n })
	if i < len(numbers) && numbers[i] == n {
		return numbers
	}
	numbers = append(numbers, 0)
	copy(numbers[i+1:], numbers[i:])
	numbers[i] = n
	return numbers
}

// removeNumber deletes n from the sorted slice if present.
func removeNumber(numbers []int64, n int64) []int64 {
	i := sort.Search(len(numbers), func(i int) bool { return numbers[i] >= n })
	if i < len(numbers) && numbers[i] == n {
		numbers = append(numbers[:i], numbers[i+1:]...)
	}
	return numbers
}

// splitNumbers cuts off the prefix of the sorted slice below border,
// returning the dropped numbers and the retained tail.
func splitNumbers(numbers []int64, border int64) (dropped, kept []int64) {
	i := sort.Search(len(numbers), func(i int) bool { return numbers[i] >= border })
	return numbers[:i], numbers[i:]
}

// stageQueue holds the headers currently sitting in one pipeline stage,
// keyed by block number then block hash. A sorted slice of occupied numbers
// is kept alongside the map so oldest-first iteration and pruning never
// scan the whole stage.
type stageQueue[H Header, E any] struct {
	byNumber map[int64]map[Hash]*QueuedHeader[H, E]
	numbers  []int64 // occupied numbers, ascending
	count    int
}

func newStageQueue[H Header, E any]() *stageQueue[H, E] {
	return &stageQueue[H, E]{
		byNumber: make(map[int64]map[Hash]*QueuedHeader[H, E]),
	}
}

func (s *stageQueue[H, E]) len() int { return s.count }

func (s *stageQueue[H, E]) insert(qh *QueuedHeader[H, E]) {
	id := qh.ID()
	bucket := s.byNumber[id.Number]
	if bucket == nil {
		bucket = make(map[Hash]*QueuedHeader[H, E])
		s.byNumber[id.Number] = bucket
		s.numbers = insertNumber(s.numbers, id.Number)
	}
	if _, ok := bucket[id.Hash]; !ok {
		s.count++
	}
	bucket[id.Hash] = qh
}

func (s *stageQueue[H, E]) get(id HeaderID) *QueuedHeader[H, E] {
	return s.byNumber[id.Number][id.Hash]
}

// remove deletes id from the stage, returning the removed header or nil if
// the stage does not hold it.
func (s *stageQueue[H, E]) remove(id HeaderID) *QueuedHeader[H, E] {
	bucket := s.byNumber[id.Number]
	qh := bucket[id.Hash]
	if qh == nil {
		return nil
	}
	delete(bucket, id.Hash)
	s.count--
	if len(bucket) == 0 {
		delete(s.byNumber, id.Number)
		s.numbers = removeNumber(s.numbers, id.Number)
	}
	return qh
}

// bucketAt returns every header the stage holds at the given number. The
// descendant cascade probes these buckets one generation at a time.
func (s *stageQueue[H, E]) bucketAt(number int64) map[Hash]*QueuedHeader[H, E] {
	return s.byNumber[number]
}

// ascend calls fn for each header in the stage, lowest number first and in
// lexicographic hash order within one number, stopping early if fn returns
// false. Hash order carries no meaning; it only makes iteration stable.
func (s *stageQueue[H, E]) ascend(fn func(*QueuedHeader[H, E]) bool) {
	for _, n := range s.numbers {
		bucket := s.byNumber[n]
		hashes := make([]Hash, 0, len(bucket))
		for h := range bucket {
			hashes = append(hashes, h)
		}
		sort.Slice(hashes, func(i, j int) bool {
			return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
		})
		for _, h := range hashes {
			if !fn(bucket[h]) {
				return
			}
		}
	}
}

// oldest returns the header with the lowest number in the stage, or nil if
// the stage is empty.
func (s *stageQueue[H, E]) oldest() *QueuedHeader[H, E] {
	var out *QueuedHeader[H, E]
	s.ascend(func(qh *QueuedHeader[H, E]) bool {
		out = qh
		return false
	})
	return out
}

// newestNumber returns the highest occupied number in the stage.
func (s *stageQueue[H, E]) newestNumber() (int64, bool) {
	if len(s.numbers) == 0 {
		return 0, false
	}
	return s.numbers[len(s.numbers)-1], true
}

// prune drops every header with number < border and returns how many were
// dropped.
func (s *stageQueue[H, E]) prune(border int64) int {
	dropped, kept := splitNumbers(s.numbers, border)
	pruned := 0
	for _, n := range dropped {
		pruned += len(s.byNumber[n])
		delete(s.byNumber, n)
	}
	s.numbers = kept
	s.count -= pruned
	return pruned
}

// knownHeaders indexes the current status of every header id the queue has
// ever accepted, including Synced ids that no stage holds any more. It is
// kept in lockstep with the stage containers: observers must never see the
// two disagree.
type knownHeaders struct {
	byNumber map[int64]map[Hash]HeaderStatus
	numbers  []int64 // occupied numbers, ascending
}

func newKnownHeaders() *knownHeaders {
	return &knownHeaders{
		byNumber: make(map[int64]map[Hash]HeaderStatus),
	}
}

// get returns the indexed status of id, StatusUnknown if absent.
func (k *knownHeaders) get(id HeaderID) HeaderStatus {
	return k.byNumber[id.Number][id.Hash]
}

func (k *knownHeaders) set(id HeaderID, status HeaderStatus) {
	bucket := k.byNumber[id.Number]
	if bucket == nil {
		bucket = make(map[Hash]HeaderStatus)
		k.byNumber[id.Number] = bucket
		k.numbers = insertNumber(k.numbers, id.Number)
	}
	bucket[id.Hash] = status
}

// prune forgets every id with number < border and returns how many were
// forgotten.
func (k *knownHeaders) prune(border int64) int {
	dropped, kept := splitNumbers(k.numbers, border)
	pruned := 0
	for _, n := range dropped {
		pruned += len(k.byNumber[n])
		delete(k.byNumber, n)
	}
	k.numbers = kept
	return pruned
}
