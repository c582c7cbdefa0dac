package elfload

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"
)

// buildMinimalELF32 hand-assembles the smallest valid ELF32 little-
// endian ARM executable with one loadable segment, since the standard
// library offers a reader but no writer.
func buildMinimalELF32(t *testing.T, machine elf.Machine, class elf.Class, typ elf.Type) []byte {
	t.Helper()

	const ehsize = 52
	const phsize = 32
	payload := []byte("hello-init")

	var buf bytes.Buffer
	// e_ident
	buf.WriteString(elf.ELFMAG)
	buf.WriteByte(byte(class))
	buf.WriteByte(byte(elf.ELFDATA2LSB))
	buf.WriteByte(1) // EI_VERSION
	buf.Write(make([]byte, 9))

	le := binary.LittleEndian
	write16 := func(v uint16) { var b [2]byte; le.PutUint16(b[:], v); buf.Write(b[:]) }
	write32 := func(v uint32) { var b [4]byte; le.PutUint32(b[:], v); buf.Write(b[:]) }

	write16(uint16(typ))     // e_type
	write16(uint16(machine)) // e_machine
	write32(1)               // e_version
	write32(0x8000)          // e_entry
	write32(ehsize)          // e_phoff
	write32(0)                // e_shoff
	write32(0)                // e_flags
	write16(ehsize)            // e_ehsize
	write16(phsize)            // e_phentsize
	write16(1)                 // e_phnum
	write16(0)                 // e_shentsize
	write16(0)                 // e_shnum
	write16(0)                 // e_shstrndx

	// program header
	offset := uint32(ehsize + phsize)
	write32(uint32(elf.PT_LOAD))               // p_type
	write32(offset)                            // p_offset
	write32(0x8000)                            // p_vaddr
	write32(0x8000)                            // p_paddr
	write32(uint32(len(payload)))              // p_filesz
	write32(uint32(len(payload)) + 16)         // p_memsz (extra for bss)
	write32(uint32(elf.PF_R | elf.PF_X))       // p_flags
	write32(4)                                  // p_align

	buf.Write(payload)
	return buf.Bytes()
}

func TestValidateAcceptsWellFormedARMExecutable(t *testing.T) {
	raw := buildMinimalELF32(t, elf.EM_ARM, elf.ELFCLASS32, elf.ET_EXEC)
	img, err := Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if img.Entry != 0x8000 {
		t.Fatalf("Entry = %#x, want 0x8000", img.Entry)
	}
	if len(img.Segments) != 1 {
		t.Fatalf("expected 1 loadable segment, got %d", len(img.Segments))
	}
	if string(img.Segments[0].Data) != "hello-init" {
		t.Fatalf("segment data mismatch: %q", img.Segments[0].Data)
	}
	if img.Segments[0].MemSize <= uint32(len(img.Segments[0].Data)) {
		t.Fatalf("expected memsz > filesz for bss")
	}
}

func TestValidateRejectsWrongMachine(t *testing.T) {
	raw := buildMinimalELF32(t, elf.EM_X86_64, elf.ELFCLASS32, elf.ET_EXEC)
	if _, err := Validate(raw); err == nil {
		t.Fatalf("expected rejection of non-ARM machine")
	}
}

func TestValidateRejectsWrongClass(t *testing.T) {
	raw := buildMinimalELF32(t, elf.EM_ARM, elf.ELFCLASS64, elf.ET_EXEC)
	if _, err := Validate(raw); err == nil {
		t.Fatalf("expected rejection of ELF64")
	}
}

func TestValidateRejectsNonExecutableType(t *testing.T) {
	raw := buildMinimalELF32(t, elf.EM_ARM, elf.ELFCLASS32, elf.ET_REL)
	if _, err := Validate(raw); err == nil {
		t.Fatalf("expected rejection of non-ET_EXEC file")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	if _, err := Validate([]byte("not an elf file")); err == nil {
		t.Fatalf("expected rejection of garbage input")
	}
}
