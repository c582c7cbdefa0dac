// Package bootcfg parses the boot parameter block the bootloader
// hands off in r1/r2 (machine id, ATAG or FDT pointer) into a typed
// Config, generalizing a getMemSize-style pointer-walk over ATAG_MEM
// into a byte-slice parser so it is testable without unsafe.Pointer,
// plus an FDT path for bootloaders that hand a device tree instead of
// ATAGs.
package bootcfg

import (
	"encoding/binary"

	"pikernel/internal/kerr"
)

// Config is the kernel's entire configuration surface: no config
// file exists, everything arrives through the boot parameter block.
type Config struct {
	MemorySizeBytes uint64
	InitrdStart uint64
	InitrdEnd uint64
	CommandLine string
	LogVerbosity int
	TimerFrequency uint32
}

const (
	atagNone = 0x00000000
	atagCore = 0x54410001
	atagMem = 0x54410002
	atagInitrd2 = 0x54420005
	atagCmdline = 0x54410009
)

// ParseATAGs walks the classic ARM boot-tag list: little-endian u32
// size/tag pairs followed by tag-specific payload words.
func ParseATAGs(raw []byte) (*Config, error) {
	cfg := &Config{TimerFrequency: 62_500_000}
	off := 0
	for off+8 <= len(raw) {
		sizeWords := binary.LittleEndian.Uint32(raw[off:])
		tag := binary.LittleEndian.Uint32(raw[off+4:])
		if tag == atagNone {
			break
		}
		byteLen := int(sizeWords) * 4
		if byteLen < 8 || off+byteLen > len(raw) {
			return nil, kerr.New(kerr.InvalidArgument, "malformed ATAG entry")
		}
		payload := raw[off+8 : off+byteLen]

		switch tag {
		case atagMem:
			if len(payload) >= 8 {
				size := binary.LittleEndian.Uint32(payload[0:])
				cfg.MemorySizeBytes += uint64(size)
			}
		case atagInitrd2:
			if len(payload) >= 8 {
				start := binary.LittleEndian.Uint32(payload[0:])
				size := binary.LittleEndian.Uint32(payload[4:])
				cfg.InitrdStart = uint64(start)
				cfg.InitrdEnd = uint64(start) + uint64(size)
			}
		case atagCmdline:
			end := len(payload)
			for i, b := range payload {
				if b == 0 {
					end = i
					break
				}
			}
			cfg.CommandLine = string(payload[:end])
		case atagCore:
			// no fields this kernel consumes
		}
		off += byteLen
	}
	if cfg.MemorySizeBytes == 0 {
		return nil, kerr.New(kerr.NotFound, "no ATAG_MEM entry found")
	}
	applyCommandLine(cfg)
	return cfg, nil
}

// applyCommandLine extracts "loglevel=N" from the parsed command
// line, the only kernel-recognized argument beyond memory/initrd.
func applyCommandLine(cfg *Config) {
	const key = "loglevel="
	idx := indexOf(cfg.CommandLine, key)
	if idx < 0 {
		return
	}
	rest := cfg.CommandLine[idx+len(key):]
	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == 0 {
		return
	}
	level := 0
	for _, c := range rest[:n] {
		level = level*10 + int(c-'0')
	}
	cfg.LogVerbosity = level
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
