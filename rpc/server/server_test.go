package server

import (
	"fmt"
	"testing"

	"github.com/taskforge/ostore/rpc/common"
	"github.com/taskforge/ostore/rpc/serializer"
	"github.com/taskforge/ostore/rpc/transport"
)

// captureTransport records the registered handler so tests can invoke it
// directly without a network listener.
type captureTransport struct {
	handler transport.ServerHandleFunc
}

func (c *captureTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	c.handler = handler
}

func (c *captureTransport) Listen(_ common.ServerConfig) error { return nil }

// failingSerializer rejects everything except error messages.
type failingSerializer struct {
	inner serializer.IRPCSerializer
}

func (f *failingSerializer) Serialize(msg common.Message) ([]byte, error) {
	if msg.MsgType != common.MsgTError {
		return nil, fmt.Errorf("unserializable message")
	}
	return f.inner.Serialize(msg)
}

func (f *failingSerializer) Deserialize(b []byte, msg *common.Message) error {
	return f.inner.Deserialize(b, msg)
}

func testServerConfig() common.ServerConfig {
	return common.ServerConfig{
		Shards:        []uint64{100},
		TimeoutSecond: 5,
		LogLevel:      "error",
	}
}

// TestHandlerRoundTrip verifies a request reaches the shard's store and the
// response travels back through the registered handler.
func TestHandlerRoundTrip(t *testing.T) {
	tr := &captureTransport{}
	ser := serializer.NewJSONSerializer()
	s := NewRPCServer(testServerConfig(), tr, ser)
	if err := s.init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	req, err := ser.Serialize(*common.NewStatsRequest())
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	respBytes := tr.handler(100, req)
	var resp common.Message
	if err := ser.Deserialize(respBytes, &resp); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if resp.MsgType != common.MsgTObjStats || resp.Err != "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.NumLocal != 0 {
		t.Fatalf("fresh shard reported %d objects", resp.NumLocal)
	}
}

// TestHandlerUnknownShard verifies a request for a shard the server does not
// host yields an error message, not an empty frame.
func TestHandlerUnknownShard(t *testing.T) {
	tr := &captureTransport{}
	ser := serializer.NewJSONSerializer()
	s := NewRPCServer(testServerConfig(), tr, ser)
	if err := s.init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	req, err := ser.Serialize(*common.NewStatsRequest())
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	respBytes := tr.handler(999, req)
	var resp common.Message
	if err := ser.Deserialize(respBytes, &resp); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("expected error response, got: %+v", resp)
	}
}

// TestHandlerSerializeFailureStillAnswers verifies a response the serializer
// rejects is replaced by an encoded error message instead of an empty frame.
func TestHandlerSerializeFailureStillAnswers(t *testing.T) {
	tr := &captureTransport{}
	inner := serializer.NewJSONSerializer()
	ser := &failingSerializer{inner: inner}
	s := NewRPCServer(testServerConfig(), tr, ser)
	if err := s.init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	req, err := inner.Serialize(*common.NewStatsRequest())
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}

	respBytes := tr.handler(100, req)
	if len(respBytes) == 0 {
		t.Fatal("handler returned an empty frame")
	}

	var resp common.Message
	if err := inner.Deserialize(respBytes, &resp); err != nil {
		t.Fatalf("deserialize failed: %v", err)
	}
	if resp.MsgType != common.MsgTError || resp.Err == "" {
		t.Fatalf("expected encoded error response, got: %+v", resp)
	}
}
