package authority

import (
	"container/list"
	"sync"
)

const defaultRecentCapacity = 512

// recentAcks remembers the acks of the last N handled request IDs.
type recentAcks struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type recentEntry struct {
	requestID string
	ack       Ack
}

func newRecentAcks(capacity int) *recentAcks {
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}
	return &recentAcks{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (r *recentAcks) get(requestID string) (Ack, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.entries[requestID]
	if !ok {
		return Ack{}, false
	}
	r.order.MoveToFront(el)
	return el.Value.(*recentEntry).ack, true
}

func (r *recentAcks) put(requestID string, ack Ack) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if el, ok := r.entries[requestID]; ok {
		el.Value.(*recentEntry).ack = ack
		r.order.MoveToFront(el)
		return
	}
	r.entries[requestID] = r.order.PushFront(&recentEntry{requestID: requestID, ack: ack})
	for r.order.Len() > r.capacity {
		oldest := r.order.Back()
		r.order.Remove(oldest)
		delete(r.entries, oldest.Value.(*recentEntry).requestID)
	}
}

func (r *recentAcks) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order.Len()
}
