package refcount

import (
	"sync"
	"testing"

	"github.com/taskforge/ostore/lib/objstore"
)

func TestAddRemove(t *testing.T) {
	c := NewCounter()
	id := objstore.NewObjectID()

	if c.HasReference(id) {
		t.Fatal("fresh id should have no reference")
	}
	if n := c.AddReference(id); n != 1 {
		t.Fatalf("expected count 1, got %d", n)
	}
	if n := c.AddReference(id); n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}
	if !c.HasReference(id) {
		t.Fatal("id should have a reference")
	}
	if n := c.RemoveReference(id); n != 1 {
		t.Fatalf("expected count 1 after remove, got %d", n)
	}
	if n := c.RemoveReference(id); n != 0 {
		t.Fatalf("expected count 0 after remove, got %d", n)
	}
	if c.HasReference(id) {
		t.Fatal("id should have no reference after release")
	}
	if c.Size() != 0 {
		t.Fatalf("expected empty counter, got size %d", c.Size())
	}
}

func TestRemoveWithoutAdd(t *testing.T) {
	c := NewCounter()
	id := objstore.NewObjectID()

	if n := c.RemoveReference(id); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	if c.HasReference(id) {
		t.Fatal("id should have no reference")
	}
}

func TestConcurrentCounting(t *testing.T) {
	c := NewCounter()
	id := objstore.NewObjectID()

	const workers = 16
	const perWorker = 1000

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.AddReference(id)
			}
		}()
	}
	wg.Wait()

	if n := c.Count(id); n != workers*perWorker {
		t.Fatalf("expected %d, got %d", workers*perWorker, n)
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				c.RemoveReference(id)
			}
		}()
	}
	wg.Wait()

	if c.HasReference(id) {
		t.Fatal("all references released, HasReference should be false")
	}
}
