package bootcfg

import (
	"encoding/binary"

	"pikernel/internal/kerr"
)

// Flattened device tree structure-block tokens, per the devicetree
// spec: enough of the format to walk /memory and /chosen without a
// full FDT library, the way this kernel's boot path needs only two
// properties out of the tree.
const (
	fdtMagic = 0xD00DFEED
	fdtBeginNode = 0x00000001
	fdtEndNode = 0x00000002
	fdtProp = 0x00000003
	fdtNop = 0x00000004
	fdtEnd = 0x00000009
)

type fdtHeader struct {
	Magic uint32
	TotalSize uint32
	OffDTStruct uint32
	OffDTStrings uint32
	OffMemRsvmap uint32
	Version uint32
	LastCompVers uint32
	BootCPUIDPhys uint32
	SizeDTStrings uint32
	SizeDTStruct uint32
}

// ParseFDT walks a flattened device tree blob for /memory's reg
// property and /chosen's bootargs, the fallback path for bootloaders
// that hand a device tree instead of ATAGs (QEMU's Pi 4 machine does
// exactly this).
func ParseFDT(raw []byte) (*Config, error) {
	if len(raw) < 40 {
		return nil, kerr.New(kerr.InvalidArgument, "FDT blob too small")
	}
	be := binary.BigEndian
	hdr := fdtHeader{
		Magic: be.Uint32(raw[0:]),
		TotalSize: be.Uint32(raw[4:]),
		OffDTStruct: be.Uint32(raw[8:]),
		OffDTStrings: be.Uint32(raw[12:]),
	}
	if hdr.Magic != fdtMagic {
		return nil, kerr.New(kerr.InvalidArgument, "not an FDT blob")
	}
	if int(hdr.TotalSize) > len(raw) {
		return nil, kerr.New(kerr.InvalidArgument, "truncated FDT blob")
	}

	cfg := &Config{TimerFrequency: 62_500_000}
	strings := raw[hdr.OffDTStrings:]
	pos := int(hdr.OffDTStruct)
	var path []string

	for pos+4 <= len(raw) {
		token := be.Uint32(raw[pos:])
		pos += 4
		switch token {
		case fdtBeginNode:
			name, next := readCString(raw, pos)
			pos = align4(next)
			path = append(path, name)
		case fdtEndNode:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		case fdtProp:
			if pos+8 > len(raw) {
				return nil, kerr.New(kerr.InvalidArgument, "malformed FDT property")
			}
			length := be.Uint32(raw[pos:])
			nameOff := be.Uint32(raw[pos+4:])
			pos += 8
			if pos+int(length) > len(raw) {
				return nil, kerr.New(kerr.InvalidArgument, "malformed FDT property")
			}
			value := raw[pos : pos+int(length)]
			pos = align4(pos + int(length))

			propName, _ := readCString(strings, int(nameOff))
			applyFDTProperty(cfg, path, propName, value)
		case fdtNop:
		case fdtEnd:
			pos = len(raw)
		default:
			pos = len(raw)
		}
	}
	if cfg.MemorySizeBytes == 0 {
		return nil, kerr.New(kerr.NotFound, "no /memory reg property found")
	}
	applyCommandLine(cfg)
	return cfg, nil
}

func applyFDTProperty(cfg *Config, path []string, name string, value []byte) {
	if len(path) == 0 {
		return
	}
	switch {
	case len(path) >= 1 && hasPrefix(path[len(path)-1], "memory") && name == "reg" && len(value) >= 8:
		cfg.MemorySizeBytes = uint64(binary.BigEndian.Uint32(value[4:8]))
	case path[len(path)-1] == "chosen" && name == "bootargs":
		end := len(value)
		for i, b := range value {
			if b == 0 {
				end = i
				break
			}
		}
		cfg.CommandLine = string(value[:end])
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func readCString(b []byte, off int) (string, int) {
	end := off
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[off:end]), end + 1
}

func align4(n int) int {
	return (n + 3) &^ 3
}
