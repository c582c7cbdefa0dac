package syscall

import (
	"testing"

	"pikernel/internal/kerr"
	"pikernel/internal/vm"
)

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	tbl := NewTable()
	tbl.Register(KernelPutc, func(ctx *Context) {
		PopulateSuccess(ctx, GetParameter(ctx, 0))
	})

	ctx := &Context{Number: KernelPutc, Parameters: [maxParameters]uint32{'A'}}
	tbl.Dispatch(ctx)

	if ctx.Result != 'A' {
		t.Fatalf("Result = %d, want %d", ctx.Result, 'A')
	}
}

func TestDispatchUnknownNumberPopulatesEinval(t *testing.T) {
	tbl := NewTable()
	ctx := &Context{Number: 9999}
	tbl.Dispatch(ctx)

	want := kerr.New(kerr.InvalidArgument, "").Negate()
	if ctx.Result != want {
		t.Fatalf("Result = %d, want %d (EINVAL)", ctx.Result, want)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	tbl := NewTable()
	tbl.Register(ProcessExit, func(*Context) {})
	tbl.Register(ProcessExit, func(*Context) {})
}

func TestPopulateErrorNegatesKerrKind(t *testing.T) {
	ctx := &Context{}
	PopulateError(ctx, kerr.New(kerr.NotFound, "no such process"))
	if ctx.Result != -2 { // ENOENT
		t.Fatalf("Result = %d, want -2", ctx.Result)
	}
}

func TestPopulateErrorDefaultsNonKerrToEIO(t *testing.T) {
	ctx := &Context{}
	PopulateError(ctx, errStr("boom"))
	if ctx.Result != -5 {
		t.Fatalf("Result = %d, want -5 (EIO)", ctx.Result)
	}
}

type errStr string

func (e errStr) Error() string { return string(e) }

type fakeSpace struct {
	mappedFrom, mappedTo uint64
}

func (f fakeSpace) IsMappedRange(handle vm.Handle, virt, length uint64) bool {
	return virt >= f.mappedFrom && virt+length <= f.mappedTo
}

func TestCopyFromUserRejectsUnmappedPointer(t *testing.T) {
	space := fakeSpace{mappedFrom: 0x1000, mappedTo: 0x2000}
	_, err := CopyFromUser(space, 0, make([]byte, 4096), 0x5000, 16)
	if !kerr.Is(err, kerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestCopyFromUserAcceptsMappedPointer(t *testing.T) {
	space := fakeSpace{mappedFrom: 0x1000, mappedTo: 0x2000}
	backing := []byte("hello world")
	out, err := CopyFromUser(space, 0, backing, 0x1000, len(backing))
	if err != nil {
		t.Fatalf("CopyFromUser: %v", err)
	}
	if string(out) != "hello world" {
		t.Fatalf("got %q", out)
	}
}

func TestCopyToUserRejectsUnmappedPointer(t *testing.T) {
	space := fakeSpace{mappedFrom: 0x1000, mappedTo: 0x1010}
	backing := make([]byte, 4096)
	err := CopyToUser(space, 0, backing, 0x2000, []byte("x"))
	if !kerr.Is(err, kerr.InvalidArgument) {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}
