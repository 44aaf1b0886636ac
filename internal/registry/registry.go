package registry

import (
	"sort"
	"sync"

	"cinegram/internal/metrics"
)

// DefaultFailureThreshold is how many consecutive delivery failures a
// subscriber survives before RecordFailure asks the caller to prune it.
const DefaultFailureThreshold = 5

// Registry is the in-memory subscriber set. Membership is volatile by
// design: a restart starts empty. All methods are safe for concurrent use.
type Registry struct {
	mu               sync.RWMutex
	subscribers      map[int64]int // chat id -> consecutive delivery failures
	failureThreshold int
}

func New() *Registry {
	return &Registry{
		subscribers:      make(map[int64]int),
		failureThreshold: DefaultFailureThreshold,
	}
}

// Add registers a chat id. Adding an existing id is a no-op and also resets
// its failure count, so re-subscribing revives a nearly-pruned chat.
func (r *Registry) Add(chatID int64) {
	r.mu.Lock()
	r.subscribers[chatID] = 0
	metrics.Subscribers.Set(float64(len(r.subscribers)))
	r.mu.Unlock()
}

// Remove unregisters a chat id. Removing an absent id is a no-op.
func (r *Registry) Remove(chatID int64) {
	r.mu.Lock()
	delete(r.subscribers, chatID)
	metrics.Subscribers.Set(float64(len(r.subscribers)))
	r.mu.Unlock()
}

// Contains reports membership.
func (r *Registry) Contains(chatID int64) bool {
	r.mu.RLock()
	_, ok := r.subscribers[chatID]
	r.mu.RUnlock()
	return ok
}

// Len returns the current subscriber count.
func (r *Registry) Len() int {
	r.mu.RLock()
	n := len(r.subscribers)
	r.mu.RUnlock()
	return n
}

// Snapshot returns the current membership as a sorted slice. The fan-out
// loop works against a snapshot taken at tick start, so mid-tick changes
// never affect in-flight deliveries.
func (r *Registry) Snapshot() []int64 {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.subscribers))
	for id := range r.subscribers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RecordFailure bumps the consecutive failure count for a chat and reports
// whether the subscriber crossed the prune threshold. Chats removed between
// snapshot and failure are ignored.
func (r *Registry) RecordFailure(chatID int64) (pruned bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count, ok := r.subscribers[chatID]
	if !ok {
		return false
	}
	count++
	if count >= r.failureThreshold {
		delete(r.subscribers, chatID)
		metrics.Subscribers.Set(float64(len(r.subscribers)))
		return true
	}
	r.subscribers[chatID] = count
	return false
}

// RecordSuccess clears the consecutive failure count for a chat.
func (r *Registry) RecordSuccess(chatID int64) {
	r.mu.Lock()
	if _, ok := r.subscribers[chatID]; ok {
		r.subscribers[chatID] = 0
	}
	r.mu.Unlock()
}
