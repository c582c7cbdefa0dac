// Package ipc implements the message/RPC plane: per-process FIFO
// message queues, send_by_pid/send_by_name, receive/wait_for_response,
// and RPC raise/return on top of messages.
//
// Grounded on include/core/syscall.h's message syscalls for the
// queue/broadcast semantics and on
// bolthur/kernel/ipc/rpc.h (rpc_backup/rpc_entry) for the RPC backup
// record shape, reworked per DESIGN NOTES into a tagged struct keyed
// by (owner PID, message id) instead of a raw void* context.
package ipc

import (
	"pikernel/internal/collection"
)

// PID mirrors proc.PID without importing internal/proc, keeping this
// package usable by anything that can name a process by integer id.
type PID uint32

// MessageID is a monotonic integer.
type MessageID uint64

// Message mirrors the Message record.
type Message struct {
	ID MessageID
	TypeTag uint32
	SenderPID PID
	ReceiverPID PID
	Body []byte
	IsResponseTo MessageID // 0 means "not a response"
}

// Bus owns every process's message queue plus the monotonic id
// counter and the name→PID resolution callback used by send_by_name.
type Bus struct {
	queues map[PID]*collection.List[Message]
	nextID MessageID
	destroyed map[PID]bool
	resolve func(name string) []PID
}

// New returns an empty message bus. resolveName is used by
// SendByName to turn a process name into the set of receiving PIDs;
// internal/kernel supplies proc.Manager.ProcessesByName here, keeping
// this package decoupled from internal/proc.
func New(resolveName func(name string) []PID) *Bus {
	return &Bus{
		queues: make(map[PID]*collection.List[Message]),
		destroyed: make(map[PID]bool),
		resolve: resolveName,
		nextID: 1,
	}
}

// EnsureQueue creates an empty queue for pid if one does not exist
// yet; internal/kernel calls this at process creation.
func (b *Bus) EnsureQueue(pid PID) {
	if _, ok := b.queues[pid]; !ok {
		b.queues[pid] = collection.NewList[Message]()
	}
}

// DestroyQueue drops pid's queue silently, dropping any pending
// messages: if a message's receiver is destroyed before receive, the
// message is dropped silently.
func (b *Bus) DestroyQueue(pid PID) {
	delete(b.queues, pid)
	b.destroyed[pid] = true
}

func (b *Bus) nextMessageID() MessageID {
	id := b.nextID
	b.nextID++
	return id
}

// SendByPID enqueues a new message to target; returns its id, or 0 if
// target's queue does not exist (process unknown/destroyed).
func (b *Bus) SendByPID(sender, target PID, typeTag uint32, body []byte) MessageID {
	return b.sendOne(sender, target, typeTag, body, 0)
}

func (b *Bus) sendOne(sender, target PID, typeTag uint32, body []byte, responseTo MessageID) MessageID {
	q, ok := b.queues[target]
	if !ok {
		return 0
	}
	id := b.nextMessageID()
	q.PushBack(Message{
		ID: id,
		TypeTag: typeTag,
		SenderPID: sender,
		ReceiverPID: target,
		Body: body,
		IsResponseTo: responseTo,
	})
	return id
}

// SendByName resolves name against the name index and enqueues to
// every matching process (broadcast). It returns the ids assigned,
// one per successful delivery, in no particular correlation with the
// recipient list's order beyond delivery order.
func (b *Bus) SendByName(sender PID, name string, typeTag uint32, body []byte) []MessageID {
	var ids []MessageID
	for _, target := range b.resolve(name) {
		if id := b.SendByPID(sender, target, typeTag, body); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// SendResponse is SendByPID with is_response_to populated, used by
// RPC handlers replying to a request.
func (b *Bus) SendResponse(sender, target PID, typeTag uint32, body []byte, responseTo MessageID) MessageID {
	return b.sendOne(sender, target, typeTag, body, responseTo)
}

// Filter optionally restricts Receive/WaitForResponse to messages
// whose TypeTag matches. A nil filter matches everything.
type Filter func(Message) bool

// ByType returns a Filter matching exactly typeTag.
func ByType(typeTag uint32) Filter {
	return func(m Message) bool { return m.TypeTag == typeTag }
}

// Receive pops the oldest matching message from pid's queue. ok is
// false when nothing matches; the caller (internal/kernel's syscall
// handler) is responsible for transitioning the thread to HaltSwitch
// and retrying once the scheduler wakes it, since blocking is a
// scheduler concept this package does not model directly.
func (b *Bus) Receive(pid PID, filter Filter) (Message, bool) {
	q, ok := b.queues[pid]
	if !ok {
		return Message{}, false
	}
	if filter == nil {
		return q.PopFront()
	}
	var found Message
	ok = q.RemoveFirst(func(m Message) bool {
		matched := filter(m)
		if matched {
			found = m
		}
		return matched
	})
	return found, ok
}

// WaitForResponse pops the oldest message whose IsResponseTo equals
// id, optionally additionally restricted by filter.
func (b *Bus) WaitForResponse(pid PID, id MessageID, filter Filter) (Message, bool) {
	combined := func(m Message) bool {
		if m.IsResponseTo != id {
			return false
		}
		if filter != nil && !filter(m) {
			return false
		}
		return true
	}
	return b.Receive(pid, combined)
}

// HasByName reports whether name resolves to at least one live
// process, backing the HAS_BY_NAME syscall.
func (b *Bus) HasByName(name string) bool {
	return len(b.resolve(name)) > 0
}
