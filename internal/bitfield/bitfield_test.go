package bitfield

import (
	"fmt"
	"testing"
)

type pageFlags struct {
	Allocated  bool   `bitfield:",1"`
	KernelPage bool   `bitfield:",1"`
	Reserved   uint32 `bitfield:",30"`
}

func TestPackPageFlags(t *testing.T) {
	tests := []struct {
		name     string
		flags    pageFlags
		expected uint64
	}{
		{"all flags false", pageFlags{}, 0x00000000},
		{"only allocated", pageFlags{Allocated: true}, 0x00000001},
		{"only kernel page", pageFlags{KernelPage: true}, 0x00000002},
		{"both allocated and kernel", pageFlags{Allocated: true, KernelPage: true}, 0x00000003},
		{
			"with reserved bits",
			pageFlags{Allocated: true, Reserved: 0x12345678},
			0x48D159E1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := Pack(tt.flags, &Config{NumBits: 32})
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if packed != tt.expected {
				t.Errorf("Pack() = 0x%08x, want 0x%08x", packed, tt.expected)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	cases := []pageFlags{
		{},
		{Allocated: true},
		{KernelPage: true},
		{Allocated: true, KernelPage: true},
		{Allocated: true, Reserved: 0x12345678 & 0x3FFFFFFF},
		{KernelPage: true, Reserved: 0x3FFFFFFF},
	}

	for i, original := range cases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			packed, err := Pack(original, &Config{NumBits: 32})
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			var got pageFlags
			if err := Unpack(packed, &got); err != nil {
				t.Fatalf("Unpack() error = %v", err)
			}
			if got != original {
				t.Errorf("round trip: got %+v, want %+v", got, original)
			}
		})
	}
}

func TestPackOverflow(t *testing.T) {
	type tooSmall struct {
		V uint32 `bitfield:",2"`
	}
	_, err := Pack(tooSmall{V: 7}, nil)
	if err == nil {
		t.Fatalf("expected overflow error")
	}
}
