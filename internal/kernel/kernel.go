// Package kernel wires internal/frame, internal/vm, internal/proc,
// internal/ipc, internal/shm, internal/event, internal/intc,
// internal/timer, and internal/syscall together into the single
// composed kernel image, the same role a kernel.go main() plays for
// its own subsystems: bring every singleton up in order, register the
// real syscall handlers onto Syscalls, then hand control to the
// scheduler. PID-keyed side tables here are what lets internal/proc,
// internal/ipc, and internal/shm stay decoupled from each other (see
// their package doc comments) while still cooperating.
package kernel

import (
	"pikernel/internal/asmport"
	"pikernel/internal/event"
	"pikernel/internal/frame"
	"pikernel/internal/intc"
	"pikernel/internal/ipc"
	"pikernel/internal/kerr"
	"pikernel/internal/proc"
	"pikernel/internal/shm"
	"pikernel/internal/syscall"
	"pikernel/internal/timer"
	"pikernel/internal/vm"
)

// gicRegsWords sizes the GIC's fake register window large enough to
// cover its highest real offset (the end-of-interrupt register).
const gicRegsWords = 0x4200

// Kernel composes every subsystem singleton plus the PID-keyed side
// tables that bind a proc.PID to its vm.Handle.
type Kernel struct {
	Frames *frame.Allocator
	VM *vm.Engine
	Procs *proc.Manager
	IPC *ipc.Bus
	RPC *ipc.Registry
	SHM *shm.Registry
	Events *event.Queue
	Syscalls *syscall.Table
	Intc *intc.Controller
	Timer timer.Source

	addressSpace map[proc.PID]vm.Handle
}

// New boots a kernel image over memoryBytes of physical memory,
// selecting the short or long descriptor format the way
// internal/vm.New does, and wires every subsystem's cross-references.
func New(memoryBytes uint64, lpaeAdvertised, physBusAtLeast36Bits bool) (*Kernel, error) {
	frames := frame.New(memoryBytes)
	engine, err := vm.New(frames, lpaeAdvertised, physBusAtLeast36Bits)
	if err != nil {
		return nil, err
	}

	gic := intc.NewGIC(asmport.NewMemRegs(gicRegsWords))

	k := &Kernel{
		Frames: frames,
		VM: engine,
		Procs: proc.New(),
		Events: event.New(),
		RPC: ipc.NewRegistry(),
		SHM: shm.New(frames),
		Syscalls: syscall.NewTable(),
		Intc: intc.NewController(gic),
		Timer: timer.NewBCMSystemTimer(asmport.NewMemRegs(16)),
		addressSpace: make(map[proc.PID]vm.Handle),
	}
	k.IPC = ipc.New(k.resolveByName)
	k.registerSyscalls()
	return k, nil
}

func (k *Kernel) resolveByName(name string) []ipc.PID {
	pids := k.Procs.ProcessesByName(name)
	out := make([]ipc.PID, len(pids))
	for i, p := range pids {
		out[i] = ipc.PID(p)
	}
	return out
}

// Spawn creates a process plus its primary thread and a fresh user
// address space, binding them in the side table. parent is 0 for the
// initial boot process.
func (k *Kernel) Spawn(parent proc.PID, name string, priority int) (proc.PID, error) {
	p := k.Procs.CreateProcess(parent, name, priority)
	if _, err := k.Procs.CreateThread(p.ID, priority, proc.SavedContext{}); err != nil {
		return 0, err
	}
	handle, err := k.VM.CreateContext(vm.User)
	if err != nil {
		return 0, err
	}
	k.addressSpace[p.ID] = handle
	k.IPC.EnsureQueue(ipc.PID(p.ID))
	return p.ID, nil
}

// AddressSpace returns the vm.Handle bound to pid.
func (k *Kernel) AddressSpace(pid proc.PID) (vm.Handle, bool) {
	h, ok := k.addressSpace[pid]
	return h, ok
}

// Fork implements process_fork: clones pid's threads via internal/proc
// and eagerly copies its address space via internal/vm.ForkContext,
// binding the child's new PID to its own handle.
func (k *Kernel) Fork(pid proc.PID) (proc.PID, error) {
	child, _, err := k.Procs.Fork(pid)
	if err != nil {
		return 0, err
	}
	parentHandle, ok := k.addressSpace[pid]
	if !ok {
		return 0, kerr.New(kerr.NotFound, "no address space bound to parent")
	}
	childHandle, err := k.VM.ForkContext(parentHandle)
	if err != nil {
		return 0, err
	}
	k.addressSpace[child.ID] = childHandle
	k.IPC.EnsureQueue(ipc.PID(child.ID))
	return child.ID, nil
}

// Kill drives teardown of a process: destroy its message queue,
// detach its shared segments, release any interrupt lines it still
// owns, destroy its address space with frame release, reap its
// process record, and post an InterruptCleanup event recording the
// exit.
func (k *Kernel) Kill(pid proc.PID) error {
	if err := k.Procs.MarkProcessKill(pid); err != nil {
		return err
	}
	k.IPC.DestroyQueue(ipc.PID(pid))
	k.SHM.DetachAll(shm.PID(pid))
	k.Intc.ReleaseAll(intc.PID(pid))
	if handle, ok := k.addressSpace[pid]; ok {
		if err := k.VM.DestroyContext(handle, true); err != nil {
			return err
		}
		delete(k.addressSpace, pid)
	}
	if err := k.Procs.ReapProcess(pid); err != nil {
		return err
	}
	k.Events.Post(event.InterruptCleanup, event.FromKernel, pid)
	return nil
}

// Replace implements process_replace (S6): destroys every
// thread but the first, tears down and rebuilds the address space, and
// preserves the process id.
func (k *Kernel) Replace(pid proc.PID, newEntry proc.SavedContext) error {
	if err := k.Procs.Replace(pid, newEntry); err != nil {
		return err
	}
	if oldHandle, ok := k.addressSpace[pid]; ok {
		if err := k.VM.DestroyContext(oldHandle, true); err != nil {
			return err
		}
	}
	newHandle, err := k.VM.CreateContext(vm.User)
	if err != nil {
		return err
	}
	k.addressSpace[pid] = newHandle
	return nil
}
