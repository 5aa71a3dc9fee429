package executor

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestSerialOrder verifies tasks from a single producer run in post order.
func TestSerialOrder(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Close()

	const count = 1000
	var mu sync.Mutex
	var got []int
	done := make(chan struct{})

	for i := 0; i < count; i++ {
		i := i
		e.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			if i == count-1 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout, ran %d of %d tasks", len(got), count)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran out of order (got %d)", i, v)
		}
	}
}

// TestConcurrentProducers verifies every posted task runs exactly once and
// never concurrently with another.
func TestConcurrentProducers(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Close()

	const producers = 10
	const perProducer = 1000
	total := producers * perProducer

	var running int32
	var ran int32
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				e.Post(func() {
					if atomic.AddInt32(&running, 1) != 1 {
						t.Error("tasks ran concurrently")
					}
					atomic.AddInt32(&running, -1)
					if atomic.AddInt32(&ran, 1) == int32(total) {
						close(done)
					}
				})
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout, ran %d of %d tasks", atomic.LoadInt32(&ran), total)
	}
}

// TestCloseDrains verifies Close runs already-queued tasks and rejects new
// ones afterwards.
func TestCloseDrains(t *testing.T) {
	e := NewSerialExecutor()

	var ran int32
	for i := 0; i < 50; i++ {
		e.Post(func() { atomic.AddInt32(&ran, 1) })
	}

	if err := e.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := atomic.LoadInt32(&ran); got != 50 {
		t.Fatalf("expected 50 tasks to run before close returned, got %d", got)
	}
	if !e.IsClosed() {
		t.Fatal("executor should report closed")
	}

	e.Post(func() { atomic.AddInt32(&ran, 1) })
	time.Sleep(20 * time.Millisecond)
	if got := atomic.LoadInt32(&ran); got != 50 {
		t.Fatalf("post after close must be dropped, ran %d", got)
	}
}

// TestPostWakesIdleConsumer verifies a post always wakes a parked consumer.
// Each iteration lets the consumer drain and park before the next post, so a
// signal that falls into the consumer's check-to-wait window stalls the task.
func TestPostWakesIdleConsumer(t *testing.T) {
	e := NewSerialExecutor()
	defer e.Close()

	const iterations = 100000
	ran := make(chan struct{})

	for i := 0; i < iterations; i++ {
		e.Post(func() { ran <- struct{}{} })

		select {
		case <-ran:
		case <-time.After(2 * time.Second):
			t.Fatalf("task %d did not run within 2s", i)
		}
	}
}

// BenchmarkPost benchmarks concurrent posting.
func BenchmarkPost(b *testing.B) {
	e := NewSerialExecutor()
	defer e.Close()

	fn := func() {}
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			e.Post(fn)
		}
	})
}
