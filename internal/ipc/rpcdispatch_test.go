package ipc

import (
	"testing"

	"pikernel/internal/rpcwire"
)

func TestReceiveRPCRequestClassifiesKnownTag(t *testing.T) {
	resolve := func(string) []PID { return nil }
	bus := New(resolve)
	bus.EnsureQueue(1)

	bus.SendRPCRequest(2, 1, rpcwire.TagOpen, []byte("path"))

	msg, tag, ok := bus.ReceiveRPCRequest(1)
	if !ok {
		t.Fatalf("expected a recognized RPC tag")
	}
	if tag != rpcwire.TagOpen {
		t.Fatalf("tag = %v, want %v", tag, rpcwire.TagOpen)
	}
	if string(msg.Body) != "path" {
		t.Fatalf("Body = %q", msg.Body)
	}
}

func TestReceiveRPCRequestRejectsUnknownTag(t *testing.T) {
	resolve := func(string) []PID { return nil }
	bus := New(resolve)
	bus.EnsureQueue(1)

	bus.SendByPID(2, 1, 0xDEAD, nil)

	_, _, ok := bus.ReceiveRPCRequest(1)
	if ok {
		t.Fatalf("expected an unrecognized tag to report ok=false")
	}
}

func TestReceiveRPCRequestEmptyQueue(t *testing.T) {
	resolve := func(string) []PID { return nil }
	bus := New(resolve)
	bus.EnsureQueue(1)

	_, _, ok := bus.ReceiveRPCRequest(1)
	if ok {
		t.Fatalf("expected ok=false on an empty queue")
	}
}
