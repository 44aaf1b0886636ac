package fanout

import "sync"

// seenSet remembers delivered feed item ids for the life of the process.
// It is capped with FIFO eviction so a long-running bot cannot grow without
// bound; at the default poll interval the cap covers years of feed churn.
type seenSet struct {
	mu    sync.Mutex
	ids   map[int]struct{}
	order []int
	cap   int
}

func newSeenSet(capacity int) *seenSet {
	if capacity <= 0 {
		capacity = 4096
	}
	return &seenSet{
		ids: make(map[int]struct{}, capacity),
		cap: capacity,
	}
}

// markNew records id and reports whether it was unseen. The oldest entry is
// evicted when the cap is reached.
func (s *seenSet) markNew(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.ids, oldest)
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *seenSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
