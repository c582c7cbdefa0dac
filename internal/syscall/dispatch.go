package syscall

import "pikernel/internal/kerr"

const maxParameters = 6

// Context is the opaque saved-register parameter block a handler
// reads typed parameters from and writes its result into, mirroring
// the exception vector's saved context. Parameters occupy the first
// maxParameters general registers; Result carries the value
// populate_success/populate_error write back for return-from-
// exception delivery.
type Context struct {
	Number Number
	Parameters [maxParameters]uint32
	Result int32
}

// GetParameter reads the index'th syscall parameter out of ctx.
func GetParameter(ctx *Context, index int) uint32 {
	if index < 0 || index >= maxParameters {
		return 0
	}
	return ctx.Parameters[index]
}

// PopulateSuccess writes a non-negative success value into ctx's
// result register.
func PopulateSuccess(ctx *Context, value uint32) {
	ctx.Result = int32(value)
}

// PopulateError writes the negated errno for err into ctx's result
// register wire convention. Non-kerr errors
// populate EIO.
func PopulateError(ctx *Context, err error) {
	if ke, ok := err.(*kerr.Error); ok {
		ctx.Result = ke.Negate()
		return
	}
	ctx.Result = -5 // EIO
}

// Handler is the signature every syscall implementation has: it
// receives the saved context and mutates it in place via
// PopulateSuccess/PopulateError.
type Handler func(ctx *Context)

// Table is the dispatch table: syscall number to handler.
type Table struct {
	handlers map[Number]Handler
}

// NewTable returns an empty dispatch table.
func NewTable() *Table {
	return &Table{handlers: make(map[Number]Handler)}
}

// Register binds a handler to a syscall number. Re-registering a
// number panics: the dispatch table is built once at boot and is a
// programmer error to mutate afterward.
func (t *Table) Register(n Number, h Handler) {
	if _, exists := t.handlers[n]; exists {
		panic("syscall: handler already registered for this number")
	}
	t.handlers[n] = h
}

// Dispatch looks up ctx.Number and invokes its handler. An unknown
// syscall number populates EINVAL rather than panicking: a user
// program trapping with a bogus number must not crash the kernel.
func (t *Table) Dispatch(ctx *Context) {
	h, ok := t.handlers[ctx.Number]
	if !ok {
		PopulateError(ctx, kerr.New(kerr.InvalidArgument, "unknown syscall number"))
		return
	}
	h(ctx)
}
