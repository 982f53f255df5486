package query

import (
	"sync"
	"time"
)

// entry tracks the reactive state of one cached (endpoint, args) pair.
// The cache service decides freshness; the entry keeps the last known data so
// refetches can show stale data while in flight.
type entry struct {
	key      string
	endpoint string
	args     any

	mu          sync.Mutex
	status      Status
	data        any
	hasData     bool
	err         error
	requestID   string
	fulfilledAt time.Time
	inflight    int
	tags        []Tag
	subscribers map[uint64]*QuerySubscription
	nextSubID   uint64
	changed     chan struct{}
	removal     *time.Timer
	detached    bool

	loaded     chan struct{}
	loadedOnce sync.Once
	loadedData any
	removed    chan struct{}
	removeOnce sync.Once
}

func newEntry(key, endpoint string, args any) *entry {
	return &entry{
		key:         key,
		endpoint:    endpoint,
		args:        args,
		status:      StatusUninitialized,
		subscribers: make(map[uint64]*QuerySubscription),
		changed:     make(chan struct{}),
		loaded:      make(chan struct{}),
		removed:     make(chan struct{}),
	}
}

func (e *entry) snapshot() QueryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *entry) stateLocked() QueryState {
	st := QueryState{
		Endpoint:    e.endpoint,
		Args:        e.args,
		Status:      e.status,
		Data:        e.data,
		Error:       e.err,
		RequestID:   e.requestID,
		FulfilledAt: e.fulfilledAt,
	}
	st.IsUninitialized = e.status == StatusUninitialized
	st.IsFetching = e.inflight > 0
	st.IsLoading = st.IsFetching && !e.hasData
	st.IsSuccess = e.status == StatusFulfilled || (e.status == StatusPending && e.hasData && e.err == nil)
	st.IsError = e.status == StatusRejected
	return st
}

func (e *entry) begin(requestID string) {
	e.mu.Lock()
	e.inflight++
	e.status = StatusPending
	e.requestID = requestID
	e.notifyLocked()
	e.mu.Unlock()
}

func (e *entry) finish(requestID string, res Result, tags []Tag) {
	e.mu.Lock()
	if e.inflight > 0 {
		e.inflight--
	}
	if res.Error != nil {
		e.status = StatusRejected
		e.err = res.Error
	} else {
		e.status = StatusFulfilled
		e.err = nil
		e.data = res.Data
		e.hasData = true
		e.fulfilledAt = time.Now()
	}
	e.requestID = requestID
	e.tags = tags
	e.notifyLocked()
	e.mu.Unlock()

	if res.Error == nil {
		e.markLoaded(res.Data)
	}
}

// setData replaces the data and returns the previous value.
func (e *entry) setData(data any) (previous any, had bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	previous, had = e.data, e.hasData
	e.data = data
	e.hasData = true
	if e.status == StatusUninitialized || e.status == StatusRejected {
		e.status = StatusFulfilled
		e.err = nil
		e.fulfilledAt = time.Now()
	}
	e.notifyLocked()
	e.markLoaded(data)
	return previous, had
}

func (e *entry) markLoaded(data any) {
	e.loadedOnce.Do(func() {
		e.loadedData = data
		close(e.loaded)
	})
}

func (e *entry) isFulfilled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status == StatusFulfilled && e.inflight == 0
}

func (e *entry) providedTags() []Tag {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Tag(nil), e.tags...)
}

// subscribe adds sub unless the entry was already claimed for removal.
func (e *entry) subscribe(sub *QuerySubscription) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.detached {
		return false
	}
	if e.removal != nil {
		e.removal.Stop()
		e.removal = nil
	}
	e.nextSubID++
	sub.id = e.nextSubID
	e.subscribers[sub.id] = sub
	sub.push(e.stateLocked())
	return true
}

// unsubscribe removes the subscriber and reports how many remain.
func (e *entry) unsubscribe(id uint64) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, id)
	return len(e.subscribers)
}

func (e *entry) subscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribers)
}

// scheduleRemoval runs remove after keep unless a subscriber shows up first.
func (e *entry) scheduleRemoval(keep time.Duration, remove func()) {
	if keep < 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.subscribers) > 0 {
		return
	}
	if e.removal != nil {
		e.removal.Stop()
	}
	e.removal = time.AfterFunc(keep, func() {
		if e.claimRemoval() {
			remove()
		}
	})
}

// claimRemoval detaches an entry without subscribers. Once detached, subscribe
// refuses new subscribers so none can attach to an entry being removed.
func (e *entry) claimRemoval() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.detached || len(e.subscribers) > 0 {
		return false
	}
	e.detached = true
	e.removal = nil
	return true
}

func (e *entry) isDetached() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.detached
}

func (e *entry) markRemoved() {
	e.mu.Lock()
	if e.removal != nil {
		e.removal.Stop()
		e.removal = nil
	}
	e.detached = true
	e.status = StatusUninitialized
	e.data = nil
	e.hasData = false
	e.err = nil
	e.notifyLocked()
	e.mu.Unlock()

	e.removeOnce.Do(func() { close(e.removed) })
}

// notifyLocked wakes waiters and pushes the new state to subscribers.
func (e *entry) notifyLocked() {
	close(e.changed)
	e.changed = make(chan struct{})

	st := e.stateLocked()
	for _, sub := range e.subscribers {
		sub.push(st)
	}
}

// waitChange returns the current state and a channel closed on the next change.
func (e *entry) waitChange() (QueryState, <-chan struct{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked(), e.changed
}

func (e *entry) currentData() (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data, e.hasData
}
