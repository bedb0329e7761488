package inspect

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_UpdateAndGet(t *testing.T) {
	tracker := NewTracker(time.Minute)

	tracker.Update("a:latest", StatusChecking, 5, "checking local engine")
	tracker.Update("a:latest", StatusPulling, 30, "downloading 10 MB of 30 MB")

	rec, ok := tracker.Get("a:latest")
	require.True(t, ok)
	assert.Equal(t, StatusPulling, rec.Status)
	assert.Equal(t, 30, rec.Progress)
	assert.Equal(t, "downloading 10 MB of 30 MB", rec.Message)

	_, ok = tracker.Get("b:latest")
	assert.False(t, ok)
}

func TestTracker_TerminalRecordExpires(t *testing.T) {
	tracker := NewTracker(20 * time.Millisecond)

	tracker.Update("a:latest", StatusAnalyzing, 65, "running dive analysis")
	tracker.Complete("a:latest", "analysis complete")

	rec, ok := tracker.Get("a:latest")
	require.True(t, ok, "record readable right after completion")
	assert.Equal(t, StatusComplete, rec.Status)
	assert.Equal(t, 100, rec.Progress)

	assert.Eventually(t, func() bool {
		_, ok := tracker.Get("a:latest")
		return !ok
	}, time.Second, 5*time.Millisecond, "terminal record should expire")
}

func TestTracker_ReinspectionCancelsExpiry(t *testing.T) {
	tracker := NewTracker(30 * time.Millisecond)

	tracker.Fail("a:latest", "dive analysis timed out")
	tracker.Update("a:latest", StatusQueued, 0, "inspection queued")

	time.Sleep(60 * time.Millisecond)
	rec, ok := tracker.Get("a:latest")
	require.True(t, ok, "fresh update should keep the record alive")
	assert.Equal(t, StatusQueued, rec.Status)
	assert.Nil(t, rec.Error)
}

func TestTracker_FailSetsError(t *testing.T) {
	tracker := NewTracker(time.Minute)

	tracker.Fail("a:latest", "image not found")
	rec, ok := tracker.Get("a:latest")
	require.True(t, ok)
	assert.Equal(t, StatusError, rec.Status)
	require.NotNil(t, rec.Error)
	assert.Equal(t, "image not found", *rec.Error)
}

func TestTracker_SubscriberReceivesInOrder(t *testing.T) {
	tracker := NewTracker(time.Minute)

	ch, cancel := tracker.Subscribe("a:latest")
	defer cancel()

	tracker.Update("a:latest", StatusChecking, 5, "checking local engine")
	tracker.Update("a:latest", StatusAnalyzing, 65, "running dive analysis")
	tracker.Complete("a:latest", "analysis complete")

	var statuses []string
	for ev := range ch {
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []string{StatusChecking, StatusAnalyzing, StatusComplete}, statuses)
}

func TestTracker_LaterSubscriberReplacesEarlier(t *testing.T) {
	tracker := NewTracker(time.Minute)

	first, _ := tracker.Subscribe("a:latest")
	second, cancel := tracker.Subscribe("a:latest")
	defer cancel()

	// First channel is closed on replacement.
	_, open := <-first
	assert.False(t, open)

	tracker.Update("a:latest", StatusChecking, 5, "checking local engine")
	select {
	case ev := <-second:
		assert.Equal(t, StatusChecking, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("second subscriber received nothing")
	}
}

func TestTracker_CancelOnlyRemovesOwnSubscription(t *testing.T) {
	tracker := NewTracker(time.Minute)

	_, cancelFirst := tracker.Subscribe("a:latest")
	second, cancelSecond := tracker.Subscribe("a:latest")
	defer cancelSecond()

	// First subscriber was already replaced; its cancel must not tear
	// down the second subscription.
	cancelFirst()

	tracker.Update("a:latest", StatusChecking, 5, "checking local engine")
	select {
	case ev := <-second:
		assert.Equal(t, StatusChecking, ev.Status)
	case <-time.After(time.Second):
		t.Fatal("second subscriber received nothing")
	}
}

func TestTracker_SlowSubscriberDropsEvents(t *testing.T) {
	tracker := NewTracker(time.Minute)

	ch, cancel := tracker.Subscribe("a:latest")
	defer cancel()

	// Overfill the buffer; sends must not block the pipeline.
	for i := 0; i < subscriberBuffer*2; i++ {
		tracker.Update("a:latest", StatusPulling, i%100, "downloading")
	}

	drained := 0
	for {
		select {
		case <-ch:
			drained++
			continue
		default:
		}
		break
	}
	assert.Equal(t, subscriberBuffer, drained)
}
