// Package elfload validates the init ELF32 binary extracted from the
// ramdisk, using debug/elf for the container format the way
// tinyrange-cc's arm64 assembler package does for ELF emission; this
// repo validates rather than emits.
package elfload

import (
	"bytes"
	"debug/elf"

	"pikernel/internal/kerr"
)

// Image is the validated view of a loadable ELF32 binary: its entry
// point and the loadable segments to map into the new address space.
type Image struct {
	Entry uint32
	Segments []Segment
}

// Segment is one PT_LOAD program header, trimmed to what the mapper
// needs: destination virtual address, file bytes, and total memory
// size (≥ len(Data), the remainder zero-filled for.bss).
type Segment struct {
	Virt uint32
	Data []byte
	MemSize uint32
	Writable bool
	Execute bool
}

// Validate parses raw as an ELF32 little-endian ARM executable,
// rejecting anything that does not match the exact class/
// endianness/machine requirements, and returns its loadable image.
func Validate(raw []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, kerr.New(kerr.InvalidArgument, "not a valid ELF file")
	}
	defer f.Close()

	if f.Class != elf.ELFCLASS32 {
		return nil, kerr.New(kerr.InvalidArgument, "expected ELF32")
	}
	if f.Data != elf.ELFDATA2LSB {
		return nil, kerr.New(kerr.InvalidArgument, "expected little-endian ELF")
	}
	if f.Machine != elf.EM_ARM {
		return nil, kerr.New(kerr.InvalidArgument, "expected ARM machine type")
	}
	if f.Type != elf.ET_EXEC {
		return nil, kerr.New(kerr.InvalidArgument, "expected a statically linked executable")
	}

	img := &Image{Entry: uint32(f.Entry)}
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := prog.ReadAt(data, 0); err != nil {
			return nil, kerr.New(kerr.IOError, "failed to read program segment")
		}
		img.Segments = append(img.Segments, Segment{
			Virt: uint32(prog.Vaddr),
			Data: data,
			MemSize: uint32(prog.Memsz),
			Writable: prog.Flags&elf.PF_W != 0,
			Execute: prog.Flags&elf.PF_X != 0,
		})
	}
	if len(img.Segments) == 0 {
		return nil, kerr.New(kerr.InvalidArgument, "no loadable segments")
	}
	return img, nil
}
