package inspect

import "sync"

type queuedInspection struct {
	ref     string
	startFn func()
}

// InspectQueue bounds how many dive subprocesses run at once. Requests
// beyond the limit wait in FIFO order; requests for a reference that is
// already active or pending are not enqueued twice.
type InspectQueue struct {
	maxConcurrent int
	active        map[string]bool
	pending       []queuedInspection
	mu            sync.Mutex
}

// NewInspectQueue creates a queue running at most maxConcurrent
// inspections concurrently.
func NewInspectQueue(maxConcurrent int) *InspectQueue {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &InspectQueue{
		maxConcurrent: maxConcurrent,
		active:        make(map[string]bool),
		pending:       make([]queuedInspection, 0),
	}
}

// Enqueue schedules an inspection. Returns 0 if it started immediately
// (or is already active), otherwise its 1-based queue position.
func (q *InspectQueue) Enqueue(ref string, startFn func()) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active[ref] {
		return 0
	}
	for i, queued := range q.pending {
		if queued.ref == ref {
			return i + 1
		}
	}

	wrappedFn := func() {
		defer q.markComplete(ref)
		startFn()
	}

	if len(q.active) < q.maxConcurrent {
		q.active[ref] = true
		go wrappedFn()
		return 0
	}

	q.pending = append(q.pending, queuedInspection{ref: ref, startFn: wrappedFn})
	return len(q.pending)
}

func (q *InspectQueue) markComplete(ref string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.active, ref)

	if len(q.pending) > 0 && len(q.active) < q.maxConcurrent {
		next := q.pending[0]
		q.pending = q.pending[1:]
		q.active[next.ref] = true
		go next.startFn()
	}
}

// Position returns the 1-based pending position for ref, or nil when
// the ref is active or unknown.
func (q *InspectQueue) Position(ref string) *int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.active[ref] {
		return nil
	}
	for i, queued := range q.pending {
		if queued.ref == ref {
			pos := i + 1
			return &pos
		}
	}
	return nil
}

// ActiveCount returns the number of running inspections.
func (q *InspectQueue) ActiveCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Length returns active plus pending inspections.
func (q *InspectQueue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active) + len(q.pending)
}
