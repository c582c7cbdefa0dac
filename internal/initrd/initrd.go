// Package initrd extracts the gzip+tar boot ramdisk and locates the
// init binary, the idiomatic stdlib equivalent of a hand-rolled USTAR
// walk (bolthur/server/boot/ramdisk/extract.c): archive/tar is the
// ecosystem-canonical reader for this container format, so the walk
// itself uses it while init-lookup and staging remain bespoke.
package initrd

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"path"

	"pikernel/internal/kerr"
)

// File is one extracted ramdisk entry.
type File struct {
	Name string
	Data []byte
	Mode int64
}

// Image is the fully extracted ramdisk contents, indexed by path.
type Image struct {
	Files []File
	byName map[string]*File
}

// Extract decompresses and untars raw into an in-memory Image.
func Extract(raw []byte) (*Image, error) {
	gz, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, kerr.New(kerr.InvalidArgument, "ramdisk is not gzip-compressed")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	img := &Image{byName: make(map[string]*File)}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, kerr.New(kerr.IOError, "malformed ramdisk archive")
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, kerr.New(kerr.IOError, "truncated ramdisk entry")
		}
		f := File{Name: path.Clean(hdr.Name), Data: data, Mode: hdr.Mode}
		img.Files = append(img.Files, f)
	}
	for i := range img.Files {
		img.byName[img.Files[i].Name] = &img.Files[i]
	}
	return img, nil
}

// Lookup returns the named entry's bytes.
func (img *Image) Lookup(name string) ([]byte, bool) {
	f, ok := img.byName[path.Clean(name)]
	if !ok {
		return nil, false
	}
	return f.Data, true
}

// Init returns the bytes of the "init" binary expected at the
// ramdisk's root, the file the kernel loads and runs as PID 1.
func (img *Image) Init() ([]byte, error) {
	data, ok := img.Lookup("init")
	if !ok {
		return nil, kerr.New(kerr.NotFound, "ramdisk does not contain an init binary")
	}
	return data, nil
}
