package inspect

import (
	"sync"
	"time"
)

// subscriberBuffer is sized so a burst of pull updates does not block
// the pipeline; overflow events are dropped, not queued.
const subscriberBuffer = 64

// Tracker holds the in-memory progress records and relays updates to
// at most one subscriber per image name. Records for terminal statuses
// expire after the configured TTL.
type Tracker struct {
	ttl time.Duration

	mu      sync.Mutex
	records map[string]*Progress
	subs    map[string]chan Event
	timers  map[string]*time.Timer
}

// NewTracker creates a tracker whose terminal records live for ttl.
func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:     ttl,
		records: make(map[string]*Progress),
		subs:    make(map[string]chan Event),
		timers:  make(map[string]*time.Timer),
	}
}

// Update records a non-terminal progress point and relays it.
func (t *Tracker) Update(image, status string, progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setLocked(image, status, progress, message, nil)
}

// SetQueuePosition updates the pending queue position on the record.
func (t *Tracker) SetQueuePosition(image string, pos *int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[image]
	if !ok {
		return
	}
	rec.QueuePosition = pos
	rec.UpdatedAt = time.Now()
}

// Complete marks the inspection finished, relays the final event, and
// schedules record expiry. The subscriber channel is closed after the
// final event.
func (t *Tracker) Complete(image, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.setLocked(image, StatusComplete, 100, message, nil)
	t.closeSubscriberLocked(image)
	t.scheduleExpiryLocked(image)
}

// Fail marks the inspection failed with the given error text.
func (t *Tracker) Fail(image, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.setLocked(image, StatusError, 0, errMsg, &errMsg)
	t.closeSubscriberLocked(image)
	t.scheduleExpiryLocked(image)
}

// Get returns a copy of the record for image.
func (t *Tracker) Get(image string) (Progress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec, ok := t.records[image]
	if !ok {
		return Progress{}, false
	}
	return *rec, true
}

// Subscribe registers the caller as the image's subscriber. A later
// subscriber replaces the earlier one, whose channel is closed. The
// returned cancel func unregisters, but only if the caller is still
// the current subscriber.
func (t *Tracker) Subscribe(image string) (<-chan Event, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeSubscriberLocked(image)
	ch := make(chan Event, subscriberBuffer)
	t.subs[image] = ch

	cancel := func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if current, ok := t.subs[image]; ok && current == ch {
			delete(t.subs, image)
			close(current)
		}
	}
	return ch, cancel
}

// setLocked mutates the record (last writer wins) and relays the event
// to the current subscriber without blocking.
func (t *Tracker) setLocked(image, status string, progress int, message string, errMsg *string) {
	now := time.Now()
	rec, ok := t.records[image]
	if !ok {
		rec = &Progress{Image: image}
		t.records[image] = rec
	}
	rec.Status = status
	rec.Progress = progress
	rec.Message = message
	rec.Error = errMsg
	rec.UpdatedAt = now
	if status != StatusQueued {
		rec.QueuePosition = nil
	}

	// A fresh Update after expiry was scheduled means a re-inspection;
	// keep the record alive.
	if timer, ok := t.timers[image]; ok && status != StatusComplete && status != StatusError {
		timer.Stop()
		delete(t.timers, image)
	}

	if ch, ok := t.subs[image]; ok {
		select {
		case ch <- Event{Image: image, Status: status, Progress: progress, Message: message, Timestamp: now}:
		default:
		}
	}
}

func (t *Tracker) closeSubscriberLocked(image string) {
	if ch, ok := t.subs[image]; ok {
		delete(t.subs, image)
		close(ch)
	}
}

func (t *Tracker) scheduleExpiryLocked(image string) {
	if timer, ok := t.timers[image]; ok {
		timer.Stop()
	}
	t.timers[image] = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.records, image)
		delete(t.timers, image)
		t.closeSubscriberLocked(image)
	})
}
