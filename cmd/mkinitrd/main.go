package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	manifestPath := flag.String("manifest", "mkinitrd.yaml", "path to the ramdisk manifest")
	srcRoot := flag.String("root", ".", "directory manifest src paths are relative to")
	outPath := flag.String("out", "initrd.img", "output ramdisk image path")
	flag.Parse()

	if err := run(*manifestPath, *srcRoot, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "mkinitrd: %v\n", err)
		os.Exit(1)
	}
}

func run(manifestPath, srcRoot, outPath string) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading manifest: %w", err)
	}
	manifest, err := parseManifest(raw)
	if err != nil {
		return err
	}
	image, err := Build(manifest, srcRoot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, image, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	fmt.Printf("wrote %s (%d bytes, %d files)\n", outPath, len(image), len(manifest.Files))
	return nil
}
