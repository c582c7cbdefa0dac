package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"

	"golang.org/x/term"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: pimonitor <host:port>\n")
		fmt.Fprintf(os.Stderr, "Connects to a running kernel's serial console (e.g. QEMU's -serial tcp:host:port,server).\n")
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "pimonitor: %v\n", err)
		os.Exit(1)
	}
}

func run(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return relayBlocking(conn, os.Stdin, os.Stdout)
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("entering raw mode: %w", err)
	}
	defer term.Restore(fd, state)

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		cancel()
	}()

	return relay(ctx, conn, os.Stdin, os.Stdout)
}

// relayBlocking is the non-interactive fallback used when stdin is
// not a terminal (e.g. piped input in tests or scripted use), copying
// once in each direction without raw-mode cancellation semantics.
func relayBlocking(conn net.Conn, in *os.File, out *os.File) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	return relay(ctx, conn, in, out)
}
