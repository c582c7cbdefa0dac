package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	path := flag.String("config", "pikernel-config.yaml", "path to the boot config manifest")
	flag.Parse()

	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pikernel-config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := parseConfig(raw)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pikernel-config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(cfg.CommandLine())
}
