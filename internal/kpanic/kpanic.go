// Package kpanic implements the kernel's single unrecoverable-error
// path, generalizing the repeated print("FATAL:...\r\n"); for {} idiom
// seen across exceptions.go, mmu.go, and kernel.go into one helper
// every call site defers to instead of inlining its own halt loop.
package kpanic

import (
	"fmt"
)

// Halter is the narrow view of a uart.Device that Fatal needs to
// report before halting; production code passes the boot console,
// tests pass a fake that records the message instead of looping
// forever.
type Halter interface {
	Putc(c byte)
}

var haltFunc = func() { select {} }

// Fatal writes "FATAL: <message>\r\n" to dev and then halts the
// calling goroutine forever; it never returns.
func Fatal(dev Halter, format string, args...any) {
	msg := "FATAL: " + fmt.Sprintf(format, args...) + "\r\n"
	for i := 0; i < len(msg); i++ {
		dev.Putc(msg[i])
	}
	haltFunc()
}
