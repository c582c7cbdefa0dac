// Package proc implements the process/thread scheduler: priority-
// indexed ready queues, round-robin within a level, strict-priority
// preemption across levels, fork and replace.
//
// Grounded on include/core/task/process.h and task/thread.h for field
// shape, reworked into arena + integer-id ownership: processes and
// threads live in id-keyed maps, never behind raw pointers, and this
// package stays decoupled from internal/vm, internal/ipc, and
// internal/shm. The cross-subsystem wiring those fields imply
// (address_space, message_queue, rpc_registry, shared_segments) is
// composed by internal/kernel, keyed by the PIDs this package hands
// out, which avoids an import cycle while preserving the same
// ownership story.
package proc

import (
	"sort"

	"pikernel/internal/kerr"
)

// PID and TID are monotonic integer identifiers, starting at 1.
type PID uint32
type TID uint32

// State is the shared Process/Thread lifecycle state machine.
type State int

const (
	Init State = iota
	Ready
	Active
	HaltSwitch
	Kill
)

func (s State) String() string {
	switch s {
	case Init:
		return "init"
	case Ready:
		return "ready"
	case Active:
		return "active"
	case HaltSwitch:
		return "halt"
	case Kill:
		return "kill"
	default:
		return "unknown"
	}
}

// SavedContext is the opaque saved-register-context parameter block a
// thread carries across suspension, mirroring the syscall surface's
// "saved context" concept. Kept as a plain register struct here
// since its layout is architecture-defined and irrelevant to
// scheduling logic.
type SavedContext struct {
	Registers [16]uint32
	PC uint32
	SPSR uint32
}

// Process mirrors the Process record, minus the
// cross-subsystem handles (address_space, message_queue,
// rpc_registry, shared_segments, io_permissions) that internal/kernel
// tracks in PID-keyed side tables to keep this package dependency-free.
type Process struct {
	ID PID
	ParentID PID
	Name string
	Priority int
	State State
	ThreadIDs []TID
	CurrentThreadID TID
}

// Thread mirrors the Thread record.
type Thread struct {
	ID TID
	ProcessID PID
	Priority int
	State State
	SavedContext SavedContext
	UserStackVirt uint64
	KernelStackPhys uint64
}

type readyQueue struct {
	tids []TID
	lastHandled int // index into tids, -1 means null
}

// Manager owns the process table, thread table, name index, and
// priority-indexed ready queues. One Manager per kernel instance.
type Manager struct {
	processes map[PID]*Process
	threads map[TID]*Thread
	nameIndex map[string][]PID
	queues map[int]*readyQueue

	nextPID PID
	nextTID TID
	active TID
}

// New returns an empty scheduler.
func New() *Manager {
	return &Manager{
		processes: make(map[PID]*Process),
		threads: make(map[TID]*Thread),
		nameIndex: make(map[string][]PID),
		queues: make(map[int]*readyQueue),
		nextPID: 1,
		nextTID: 1,
	}
}

func (m *Manager) queueFor(priority int) *readyQueue {
	q, ok := m.queues[priority]
	if !ok {
		q = &readyQueue{lastHandled: -1}
		m.queues[priority] = q
	}
	return q
}

// CreateProcess allocates a fresh process record and indexes it by
// name.
func (m *Manager) CreateProcess(parent PID, name string, priority int) *Process {
	p := &Process{
		ID: m.nextPID,
		ParentID: parent,
		Name: name,
		Priority: priority,
		State: Init,
	}
	m.nextPID++
	m.processes[p.ID] = p
	m.nameIndex[name] = append(m.nameIndex[name], p.ID)
	return p
}

// CreateThread allocates a fresh thread under pid, enqueues it Ready.
func (m *Manager) CreateThread(pid PID, priority int, entry SavedContext) (*Thread, error) {
	proc, ok := m.processes[pid]
	if !ok {
		return nil, kerr.New(kerr.NotFound, "no such process")
	}
	th := &Thread{
		ID: m.nextTID,
		ProcessID: pid,
		Priority: priority,
		State: Ready,
		SavedContext: entry,
	}
	m.nextTID++
	m.threads[th.ID] = th
	proc.ThreadIDs = append(proc.ThreadIDs, th.ID)
	if proc.CurrentThreadID == 0 {
		proc.CurrentThreadID = th.ID
	}
	if proc.State == Init {
		proc.State = Ready
	}
	q := m.queueFor(priority)
	q.tids = append(q.tids, th.ID)
	return th, nil
}

// Process looks up a process by id.
func (m *Manager) Process(pid PID) (*Process, bool) {
	p, ok := m.processes[pid]
	return p, ok
}

// Thread looks up a thread by id.
func (m *Manager) Thread(tid TID) (*Thread, bool) {
	t, ok := m.threads[tid]
	return t, ok
}

// ProcessesByName returns every process registered under name, per
// the name→list-of-processes index.
func (m *Manager) ProcessesByName(name string) []PID {
	return append([]PID(nil), m.nameIndex[name]...)
}

// SetThreadState transitions a thread's state.
func (m *Manager) SetThreadState(tid TID, s State) error {
	th, ok := m.threads[tid]
	if !ok {
		return kerr.New(kerr.NotFound, "no such thread")
	}
	th.State = s
	return nil
}

func sortedPrioritiesDesc(queues map[int]*readyQueue) []int {
	ps := make([]int, 0, len(queues))
	for p := range queues {
		ps = append(ps, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ps)))
	return ps
}

// Schedule implements the 5-step pick algorithm: priority level,
// ready state, round-robin rotation within the level. On success the
// returned thread's state is set to Active and it becomes the
// scheduler's "current" thread.
func (m *Manager) Schedule() (*Thread, bool) {
	if th, ok := m.pickOnce(); ok {
		return th, true
	}
	// Step 5: all queues exhausted. Reset every last_handled to null
	// and retry once.
	for _, q := range m.queues {
		q.lastHandled = -1
	}
	return m.pickOnce()
}

func (m *Manager) pickOnce() (*Thread, bool) {
	for _, priority := range sortedPrioritiesDesc(m.queues) {
		q := m.queues[priority]
		if len(q.tids) == 0 {
			continue
		}
		if q.lastHandled == len(q.tids)-1 {
			// Step 2: queue exhausted for this round.
			continue
		}
		start := q.lastHandled + 1
		for i := start; i < len(q.tids); i++ {
			tid := q.tids[i]
			th := m.threads[tid]
			if th == nil {
				continue
			}
			if th.State == Ready || th.State == HaltSwitch {
				th.State = Active
				q.lastHandled = i
				m.active = tid
				return th, true
			}
		}
		// Scanned to the end without finding a runnable thread:
		// exhausted.
		q.lastHandled = len(q.tids) - 1
	}
	return nil, false
}

// Current returns the thread id most recently made Active by
// Schedule.
func (m *Manager) Current() (TID, bool) {
	if m.active == 0 {
		return 0, false
	}
	return m.active, true
}

// SetCurrent forces the scheduler's notion of the running thread to
// tid without going through pickOnce's ready-queue scan, the same way
// a trap handler's "current thread" pointer is whatever the last
// context switch left it at. Used by internal/kernel's syscall
// dispatch wiring and by tests driving a single thread's syscalls
// without running a full scheduling pass.
func (m *Manager) SetCurrent(tid TID) error {
	if _, ok := m.threads[tid]; !ok {
		return kerr.New(kerr.NotFound, "no such thread")
	}
	m.active = tid
	return nil
}

// Snapshot returns every live process's bookkeeping, in unspecified
// order, for diagnostics (e.g. a scheduler readout) that need to
// enumerate running processes without reaching into the manager's
// internals.
func (m *Manager) Snapshot() []*Process {
	out := make([]*Process, 0, len(m.processes))
	for _, p := range m.processes {
		out = append(out, p)
	}
	return out
}

// Fork duplicates parent's process record with a fresh id and clones
// every thread (fresh ids, copied SavedContext), enqueuing the child
// Ready. It returns the child process and its primary thread; the
// caller (internal/kernel) is responsible for forking the address
// space and mirroring stack contents, since this package does not
// depend on internal/vm.
func (m *Manager) Fork(parentPID PID) (*Process, *Thread, error) {
	parent, ok := m.processes[parentPID]
	if !ok {
		return nil, nil, kerr.New(kerr.NotFound, "no such process")
	}
	child := m.CreateProcess(parentPID, parent.Name, parent.Priority)
	child.State = Ready

	var primary *Thread
	for _, ptid := range parent.ThreadIDs {
		pthread := m.threads[ptid]
		if pthread == nil {
			continue
		}
		ct, err := m.CreateThread(child.ID, pthread.Priority, pthread.SavedContext)
		if err != nil {
			return nil, nil, err
		}
		ct.UserStackVirt = pthread.UserStackVirt
		ct.KernelStackPhys = pthread.KernelStackPhys
		if primary == nil {
			primary = ct
		}
	}
	return child, primary, nil
}

// Replace implements the replace semantics at the
// scheduler level: destroy all but one thread, rebind the surviving
// thread's saved context to the new entry point, keep the process id
// and name index untouched. Address-space replacement is the caller's
// responsibility.
func (m *Manager) Replace(pid PID, newEntry SavedContext) error {
	p, ok := m.processes[pid]
	if !ok {
		return kerr.New(kerr.NotFound, "no such process")
	}
	if len(p.ThreadIDs) == 0 {
		return kerr.New(kerr.InvalidArgument, "process has no threads to replace")
	}
	survivor := p.ThreadIDs[0]
	for _, tid := range p.ThreadIDs[1:] {
		m.destroyThread(tid)
	}
	p.ThreadIDs = p.ThreadIDs[:1]
	p.CurrentThreadID = survivor

	th := m.threads[survivor]
	th.SavedContext = newEntry
	th.State = Ready
	return nil
}

func (m *Manager) destroyThread(tid TID) {
	th, ok := m.threads[tid]
	if !ok {
		return
	}
	for _, q := range m.queues {
		for i, qt := range q.tids {
			if qt == tid {
				q.tids = append(q.tids[:i], q.tids[i+1:]...)
				if q.lastHandled >= i {
					q.lastHandled--
				}
				break
			}
		}
	}
	delete(m.threads, tid)
	_ = th
}

// MarkProcessKill transitions a process (and
// cleanup semantics, every thread it owns whose process is about to
// be reaped) to Kill state. Actual resource release — message queue
// drain, shared-segment detach, address-space destroy, index removal
// — happens in internal/kernel's InterruptCleanup handling, which has
// the cross-subsystem handles this package intentionally does not
// hold.
func (m *Manager) MarkProcessKill(pid PID) error {
	p, ok := m.processes[pid]
	if !ok {
		return kerr.New(kerr.NotFound, "no such process")
	}
	p.State = Kill
	for _, tid := range p.ThreadIDs {
		if th := m.threads[tid]; th != nil {
			th.State = Kill
		}
	}
	return nil
}

// ReapProcess removes a Kill-state process's bookkeeping from the
// manager: its threads, its ready-queue entries, and its name-index
// entry. Must be called after internal/kernel has released its
// cross-subsystem resources.
func (m *Manager) ReapProcess(pid PID) error {
	p, ok := m.processes[pid]
	if !ok {
		return kerr.New(kerr.NotFound, "no such process")
	}
	if p.State != Kill {
		return kerr.New(kerr.InvalidArgument, "process not in Kill state")
	}
	for _, tid := range append([]TID(nil), p.ThreadIDs...) {
		m.destroyThread(tid)
	}
	bucket := m.nameIndex[p.Name]
	for i, candidate := range bucket {
		if candidate == pid {
			m.nameIndex[p.Name] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	delete(m.processes, pid)
	return nil
}

