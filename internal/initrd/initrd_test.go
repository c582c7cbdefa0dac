package initrd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"
)

func buildRamdisk(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, content := range files {
		hdr := &tar.Header{
			Name:     name,
			Mode:     0755,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("WriteHeader: %v", err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	tw.Close()
	gz.Close()
	return buf.Bytes()
}

func TestExtractAndLookup(t *testing.T) {
	raw := buildRamdisk(t, map[string]string{
		"init":      "elf-bytes-here",
		"etc/fstab": "root /",
	})
	img, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	data, ok := img.Lookup("etc/fstab")
	if !ok || string(data) != "root /" {
		t.Fatalf("Lookup(etc/fstab) = %q, %v", data, ok)
	}
}

func TestInitFoundAtRoot(t *testing.T) {
	raw := buildRamdisk(t, map[string]string{"init": "payload"})
	img, err := Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	data, err := img.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("Init() = %q", data)
	}
}

func TestInitMissingReportsNotFound(t *testing.T) {
	raw := buildRamdisk(t, map[string]string{"readme.txt": "x"})
	img, _ := Extract(raw)
	if _, err := img.Init(); err == nil {
		t.Fatalf("expected NotFound when init is missing")
	}
}

func TestExtractRejectsNonGzipInput(t *testing.T) {
	if _, err := Extract([]byte("not gzip")); err == nil {
		t.Fatalf("expected error for non-gzip input")
	}
}
