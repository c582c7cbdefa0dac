package kernel

import (
	"pikernel/internal/frame"
	"pikernel/internal/intc"
	"pikernel/internal/ipc"
	"pikernel/internal/kerr"
	"pikernel/internal/proc"
	"pikernel/internal/rpcwire"
	"pikernel/internal/shm"
	"pikernel/internal/syscall"
	"pikernel/internal/vm"
)

// CurrentPID resolves the scheduler's current thread back to the
// process that owns it, the way a syscall handler learns which
// process trapped into it: real hardware reads this off the saved
// context/TCB pointer left by the last context switch, modeled here
// as internal/proc's notion of "current".
func (k *Kernel) CurrentPID() (proc.PID, bool) {
	tid, ok := k.Procs.Current()
	if !ok {
		return 0, false
	}
	th, ok := k.Procs.Thread(tid)
	if !ok {
		return 0, false
	}
	return th.ProcessID, true
}

// registerSyscalls binds every syscall this kernel actually
// implements onto Syscalls, called once from New so a freshly booted
// kernel is immediately ready to Dispatch.
func (k *Kernel) registerSyscalls() {
	k.Syscalls.Register(syscall.ProcessID, k.sysProcessID)
	k.Syscalls.Register(syscall.ProcessFork, k.sysProcessFork)
	k.Syscalls.Register(syscall.ProcessExit, k.sysProcessExit)
	k.Syscalls.Register(syscall.ProcessReplace, k.sysProcessReplace)

	k.Syscalls.Register(syscall.MemoryAcquire, k.sysMemoryAcquire)
	k.Syscalls.Register(syscall.MemoryRelease, k.sysMemoryRelease)
	k.Syscalls.Register(syscall.MemorySharedCreate, k.sysMemorySharedCreate)
	k.Syscalls.Register(syscall.MemorySharedAttach, k.sysMemorySharedAttach)
	k.Syscalls.Register(syscall.MemorySharedDetach, k.sysMemorySharedDetach)

	k.Syscalls.Register(syscall.MessageSendByPID, k.sysMessageSendByPID)
	k.Syscalls.Register(syscall.MessageReceive, k.sysMessageReceive)

	k.Syscalls.Register(syscall.InterruptAcquire, k.sysInterruptAcquire)
	k.Syscalls.Register(syscall.InterruptRelease, k.sysInterruptRelease)
}

func (k *Kernel) sysProcessID(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	syscall.PopulateSuccess(ctx, uint32(pid))
}

// sysProcessFork implements process_fork (S2): the caller's process
// is cloned, inheriting its address space eagerly.
func (k *Kernel) sysProcessFork(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	child, err := k.Fork(pid)
	if err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, uint32(child))
}

// sysProcessExit implements process_exit: the caller kills itself,
// driving the same teardown Kill performs for any other process.
func (k *Kernel) sysProcessExit(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	if err := k.Kill(pid); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}

// sysProcessReplace implements process_replace (S6): parameter 0 is
// the new entry point, the only saved-context field a syscall
// parameter can carry without a user-pointer copy.
func (k *Kernel) sysProcessReplace(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	entry := proc.SavedContext{PC: syscall.GetParameter(ctx, 0)}
	if err := k.Replace(pid, entry); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}

// sysMemoryAcquire implements memory_acquire: parameter 0 is the
// requested virtual address, parameter 1 the length in bytes, and
// parameter 2 the MemoryProtection bit vector, which shares its bit
// assignment with vm.Perm (Read=1, Write=2, Execute=4) by
// construction.
func (k *Kernel) sysMemoryAcquire(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	handle, ok := k.AddressSpace(pid)
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no address space bound to caller"))
		return
	}
	virt := uint64(syscall.GetParameter(ctx, 0))
	length := uint64(syscall.GetParameter(ctx, 1))
	if length == 0 {
		length = frame.PageSize
	}
	perm := vm.Perm(syscall.GetParameter(ctx, 2))
	if err := k.VM.MapRangeRandom(handle, virt, length, vm.Normal, vm.Auto, perm); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, uint32(virt))
}

// sysMemoryRelease implements memory_release (S5): parameter 0 is the
// virtual address, parameter 1 the length in bytes, release_frames is
// always true at the syscall boundary (a process releasing its own
// memory always wants the frames back).
func (k *Kernel) sysMemoryRelease(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	handle, ok := k.AddressSpace(pid)
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no address space bound to caller"))
		return
	}
	virt := uint64(syscall.GetParameter(ctx, 0))
	length := uint64(syscall.GetParameter(ctx, 1))
	if length == 0 {
		length = frame.PageSize
	}
	if err := k.VM.UnmapRange(handle, virt, length, true); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}

// sysMemorySharedCreate implements memory_shared_create (S3):
// parameter 0 is the requested size in bytes.
func (k *Kernel) sysMemorySharedCreate(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	size := uint64(syscall.GetParameter(ctx, 0))
	id, err := k.SHM.Create(shm.PID(pid), size)
	if err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, uint32(id))
}

// sysMemorySharedAttach implements memory_shared_attach: parameter 0
// is the segment id, parameter 1 the virtual address to attach at.
func (k *Kernel) sysMemorySharedAttach(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	id := shm.ID(syscall.GetParameter(ctx, 0))
	virt := uint64(syscall.GetParameter(ctx, 1))
	if err := k.SHM.Attach(id, shm.PID(pid), virt); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}

// sysMemorySharedDetach implements memory_shared_detach: parameter 0
// is the segment id.
func (k *Kernel) sysMemorySharedDetach(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	id := shm.ID(syscall.GetParameter(ctx, 0))
	if err := k.SHM.Detach(id, shm.PID(pid)); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}

// sysMessageSendByPID implements message_send_by_pid (S3): parameter
// 0 is the target pid, parameter 1 the type tag. The type tag shares
// its namespace with internal/rpcwire's Tag enum for messages
// addressed to a VFS/mount-style RPC server, so sends route through
// SendRPCRequest instead of poking TypeTag directly. No body travels
// with the syscall-level send: this hosted kernel has no
// byte-addressable physical memory to copy a user buffer out of, so a
// caller expecting to exchange data attaches and writes a shared
// segment first (S3's PING/PONG pattern) and uses the message purely
// as a notification.
func (k *Kernel) sysMessageSendByPID(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	target := proc.PID(syscall.GetParameter(ctx, 0))
	tag := rpcwire.Tag(syscall.GetParameter(ctx, 1))
	id := k.IPC.SendRPCRequest(ipc.PID(pid), ipc.PID(target), tag, nil)
	if id == 0 {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "target has no message queue"))
		return
	}
	syscall.PopulateSuccess(ctx, uint32(id))
}

// sysMessageReceive implements message_receive: pops the caller's
// oldest queued message, classifies its tag against the RPC wire tag
// table, and returns the tag, populating Again if nothing is queued
// so the caller can retry after blocking.
func (k *Kernel) sysMessageReceive(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	_, tag, ok := k.IPC.ReceiveRPCRequest(ipc.PID(pid))
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.Again, "no message queued"))
		return
	}
	syscall.PopulateSuccess(ctx, uint32(tag))
}

// sysInterruptAcquire implements interrupt_acquire: parameter 0 is
// the IRQ number. The RPC-handler-bound requirement is satisfied by
// the caller already having at least one RPC handler registered.
func (k *Kernel) sysInterruptAcquire(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	irq := intc.IRQ(syscall.GetParameter(ctx, 0))
	if err := k.Intc.Acquire(intc.PID(pid), irq, k.RPC.HasHandlers(ipc.PID(pid))); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}

// sysInterruptRelease implements interrupt_release: parameter 0 is
// the IRQ number.
func (k *Kernel) sysInterruptRelease(ctx *syscall.Context) {
	pid, ok := k.CurrentPID()
	if !ok {
		syscall.PopulateError(ctx, kerr.New(kerr.NotFound, "no current process"))
		return
	}
	irq := intc.IRQ(syscall.GetParameter(ctx, 0))
	if err := k.Intc.Release(intc.PID(pid), irq); err != nil {
		syscall.PopulateError(ctx, err)
		return
	}
	syscall.PopulateSuccess(ctx, 0)
}
