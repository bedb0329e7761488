package inspect

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInspectQueue_StartsImmediately(t *testing.T) {
	queue := NewInspectQueue(2)

	started := make(chan string, 1)
	done := make(chan struct{})

	pos := queue.Enqueue("alpine:latest", func() {
		started <- "alpine:latest"
		<-done
	})
	assert.Equal(t, 0, pos, "first inspection should start immediately")

	select {
	case ref := <-started:
		assert.Equal(t, "alpine:latest", ref)
	case <-time.After(time.Second):
		t.Fatal("inspection did not start")
	}

	close(done)
}

func TestInspectQueue_QueuesAtCapacity(t *testing.T) {
	queue := NewInspectQueue(1)

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	pos1 := queue.Enqueue("a:latest", func() {
		wg.Done()
		<-done
	})
	assert.Equal(t, 0, pos1)
	wg.Wait()

	pos2 := queue.Enqueue("b:latest", func() {})
	assert.Equal(t, 1, pos2)

	pos3 := queue.Enqueue("c:latest", func() {})
	assert.Equal(t, 2, pos3)

	assert.Equal(t, 1, queue.ActiveCount())
	assert.Equal(t, 3, queue.Length())

	close(done)
}

func TestInspectQueue_Deduplicates(t *testing.T) {
	queue := NewInspectQueue(1)
	done := make(chan struct{})

	started := make(chan struct{})
	queue.Enqueue("a:latest", func() {
		close(started)
		<-done
	})
	<-started

	// Active ref re-enqueued: position 0, no second run.
	assert.Equal(t, 0, queue.Enqueue("a:latest", func() { t.Error("duplicate run") }))

	// Pending ref re-enqueued: existing position returned.
	assert.Equal(t, 1, queue.Enqueue("b:latest", func() {}))
	assert.Equal(t, 1, queue.Enqueue("b:latest", func() { t.Error("duplicate run") }))

	close(done)
}

func TestInspectQueue_DrainsPendingInOrder(t *testing.T) {
	queue := NewInspectQueue(1)

	var mu sync.Mutex
	var order []string
	ran := make(chan struct{}, 3)
	record := func(ref string) func() {
		return func() {
			mu.Lock()
			order = append(order, ref)
			mu.Unlock()
			ran <- struct{}{}
		}
	}

	queue.Enqueue("a:latest", record("a:latest"))
	queue.Enqueue("b:latest", record("b:latest"))
	queue.Enqueue("c:latest", record("c:latest"))

	for i := 0; i < 3; i++ {
		select {
		case <-ran:
		case <-time.After(time.Second):
			t.Fatal("queue did not drain")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a:latest", "b:latest", "c:latest"}, order)
}

func TestInspectQueue_Position(t *testing.T) {
	queue := NewInspectQueue(1)
	done := make(chan struct{})

	started := make(chan struct{})
	queue.Enqueue("a:latest", func() {
		close(started)
		<-done
	})
	<-started

	queue.Enqueue("b:latest", func() {})

	assert.Nil(t, queue.Position("a:latest"), "active ref has no pending position")
	if pos := queue.Position("b:latest"); assert.NotNil(t, pos) {
		assert.Equal(t, 1, *pos)
	}
	assert.Nil(t, queue.Position("zzz:latest"))

	close(done)
}
