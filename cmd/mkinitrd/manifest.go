// Command mkinitrd builds the gzip+tar boot ramdisk internal/initrd
// extracts, from a YAML manifest listing the files to stage — the
// host-side counterpart to internal/initrd, grounded on
// tinyrange-cc's bundle.Metadata manifest style.
package main

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Manifest is the mkinitrd.yaml input: every file the ramdisk should
// carry, named relative to the ramdisk root.
type Manifest struct {
	Files []FileEntry `yaml:"files"`
}

// FileEntry stages one host file into the ramdisk at Dest with mode
// Mode (defaulting to 0644, 0755 for the distinguished "init" entry).
type FileEntry struct {
	Src  string `yaml:"src"`
	Dest string `yaml:"dest"`
	Mode uint32 `yaml:"mode,omitempty"`
}

func (m *Manifest) normalize() error {
	if len(m.Files) == 0 {
		return fmt.Errorf("manifest has no files")
	}
	haveInit := false
	for i := range m.Files {
		f := &m.Files[i]
		if f.Src == "" || f.Dest == "" {
			return fmt.Errorf("file entry %d missing src or dest", i)
		}
		if f.Dest == "init" {
			haveInit = true
		}
		if f.Mode == 0 {
			if f.Dest == "init" {
				f.Mode = 0755
			} else {
				f.Mode = 0644
			}
		}
	}
	if !haveInit {
		return fmt.Errorf("manifest has no entry for dest=init")
	}
	return nil
}

func parseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return &m, nil
}
