package syscall

import (
	"pikernel/internal/kerr"
	"pikernel/internal/vm"
)

// AddressSpace is the narrow view syscall handlers need of a virtual
// address space to validate a user pointer before touching it.
// *vm.Engine satisfies it directly.
type AddressSpace interface {
	IsMappedRange(handle vm.Handle, virt, length uint64) bool
}

// CopyFromUser validates that [virt, virt+len) lies entirely within
// mapped memory of space/handle before copying len bytes out
// of backing into dst. No syscall handler may dereference a user
// pointer directly; every copy goes through here so a bad pointer
// reports kerr.InvalidArgument instead of faulting the kernel.
func CopyFromUser(space AddressSpace, handle vm.Handle, backing []byte, virt uint64, length int) ([]byte, error) {
	if length < 0 {
		return nil, kerr.New(kerr.InvalidArgument, "negative length")
	}
	if !space.IsMappedRange(handle, virt, uint64(length)) {
		return nil, kerr.New(kerr.InvalidArgument, "user pointer not mapped")
	}
	if length == 0 {
		return nil, nil
	}
	out := make([]byte, length)
	copy(out, backing)
	return out, nil
}

// CopyToUser validates [virt, virt+len(src)) before copying src into
// backing, the kernel's view of the mapped frame's bytes.
func CopyToUser(space AddressSpace, handle vm.Handle, backing []byte, virt uint64, src []byte) error {
	if !space.IsMappedRange(handle, virt, uint64(len(src))) {
		return kerr.New(kerr.InvalidArgument, "user pointer not mapped")
	}
	copy(backing, src)
	return nil
}
