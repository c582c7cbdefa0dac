// Command pimonitor is a host-side serial console for a running
// kernel image, grounded on smoynes-elsie's tty.Console: put the
// local terminal in raw mode, then relay bytes between it and the
// target's serial line until either side closes or the context is
// cancelled.
package main

import (
	"context"
	"io"
)

// relay copies bytes in both directions between the local terminal
// (in/out) and the target's serial connection (target) until ctx is
// cancelled or either copy returns. It is the pure, test-driven core
// of the monitor loop; main wires term.MakeRaw/Restore and the TCP
// connection to the target around it.
func relay(ctx context.Context, target io.ReadWriter, in io.Reader, out io.Writer) error {
	errCh := make(chan error, 2)

	go func() {
		_, err := io.Copy(target, in)
		errCh <- err
	}()
	go func() {
		_, err := io.Copy(out, target)
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
