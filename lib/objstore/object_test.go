package objstore

import (
	"bytes"
	"testing"
)

// TestWithTransportPreservesRecord verifies the derivative carries every
// field of the original plus the transport tag.
func TestWithTransportPreservesRecord(t *testing.T) {
	nested := []ObjectID{NewObjectID()}
	orig := NewObject([]byte("payload"), []byte("meta"), nested)
	orig.SetAccessed()

	tagged := orig.WithTransport("nvlink")

	if tagged.Transport() != "nvlink" {
		t.Fatalf("transport tag not applied: %q", tagged.Transport())
	}
	if !bytes.Equal(tagged.Data(), orig.Data()) {
		t.Fatal("data not carried over")
	}
	if !bytes.Equal(tagged.Metadata(), orig.Metadata()) {
		t.Fatal("metadata not carried over")
	}
	if len(tagged.NestedIDs()) != 1 || tagged.NestedIDs()[0] != nested[0] {
		t.Fatal("nested ids not carried over")
	}
	if tagged.CreatedAt() != orig.CreatedAt() {
		t.Fatal("creation timestamp not carried over")
	}
	if !tagged.WasAccessed() {
		t.Fatal("accessed flag not carried over")
	}
}

// TestWithTransportIndependentAccessedFlag verifies the derivative owns its
// accessed flag: marking it read must not mark the original.
func TestWithTransportIndependentAccessedFlag(t *testing.T) {
	orig := NewErrorObject(ErrTWorkerDied, []byte("failure info"))
	tagged := orig.WithTransport("rdma")

	if tagged.ErrorType() != ErrTWorkerDied {
		t.Fatalf("error classification not carried over: %s", tagged.ErrorType())
	}

	tagged.SetAccessed()
	if orig.WasAccessed() {
		t.Fatal("marking the derivative must not mark the original")
	}

	orig.SetAccessed()
	if !orig.WasAccessed() || !tagged.WasAccessed() {
		t.Fatal("accessed flags lost")
	}
}
