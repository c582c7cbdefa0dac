// Package event implements the single FIFO event queue: posted from
// interrupt context, drained after every interrupt return and at the
// tail of every syscall.
package event

import "pikernel/internal/collection"

// Kind tags what an event represents.
type Kind int

const (
	Timer Kind = iota
	IRQ
	Process
	Serial
	Debug
	InterruptCleanup
)

// Origin distinguishes kernel-originated events from user-originated
// ones.
type Origin int

const (
	FromKernel Origin = iota
	FromUser
)

// Event is a tagged, deferred record of something an exception
// handler observed.
type Event struct {
	Kind Kind
	Origin Origin
	Payload any
}

// Queue is the kernel's single event FIFO. Enqueue is non-blocking
// and runs with interrupts masked by the caller (this package does
// not itself model interrupt masking, which belongs to the platform
// layer); dequeue happens with scheduler privilege.
type Queue struct {
	list *collection.List[Event]
}

// New returns an empty event queue.
func New() *Queue {
	return &Queue{list: collection.NewList[Event]()}
}

// Post enqueues an event.
func (q *Queue) Post(kind Kind, origin Origin, payload any) {
	q.list.PushBack(Event{Kind: kind, Origin: origin, Payload: payload})
}

// Drain pops and hands every queued event to fn, in FIFO order,
// stopping if fn returns false, mirroring the "drained at safe
// points" discipline.
func (q *Queue) Drain(fn func(Event) bool) {
	for {
		ev, ok := q.list.PopFront()
		if !ok {
			return
		}
		if !fn(ev) {
			return
		}
	}
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return q.list.Len() }
