package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Build reads every manifest entry relative to srcRoot and produces a
// gzip+tar ramdisk image matching what internal/initrd.Extract
// expects. Symlinks are rejected rather than followed or preserved,
// since the in-kernel VFS servers have no notion of host symlinks and
// silently following one could stage a file from outside srcRoot.
func Build(m *Manifest, srcRoot string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for _, f := range m.Files {
		full := filepath.Join(srcRoot, f.Src)

		var st unix.Stat_t
		if err := unix.Lstat(full, &st); err != nil {
			return nil, fmt.Errorf("stat %s: %w", f.Src, err)
		}
		if st.Mode&unix.S_IFMT == unix.S_IFLNK {
			return nil, fmt.Errorf("%s: symlinks are not supported in the ramdisk", f.Src)
		}

		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f.Src, err)
		}

		hdr := &tar.Header{
			Name:     f.Dest,
			Mode:     int64(f.Mode),
			Size:     int64(len(data)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing header for %s: %w", f.Dest, err)
		}
		if _, err := tw.Write(data); err != nil {
			return nil, fmt.Errorf("writing data for %s: %w", f.Dest, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
