// Command pikernel-config renders a YAML boot-configuration manifest
// into the command-line string internal/bootcfg parses out of
// ATAG_CMDLINE/the FDT "chosen" node, the same manifest-to-flat-config
// shape tinyrange-cc uses for its own VM manifests.
package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the pikernel-config.yaml input.
type Config struct {
	LogLevel  int      `yaml:"logLevel"`
	ExtraArgs []string `yaml:"extraArgs,omitempty"`
}

func parseConfig(raw []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if c.LogLevel < 0 || c.LogLevel > 3 {
		return nil, fmt.Errorf("logLevel %d out of range [0,3]", c.LogLevel)
	}
	return &c, nil
}

// CommandLine renders c into the flat "key=value key=value" string
// internal/bootcfg.applyCommandLine expects embedded in ATAG_CMDLINE
// or the FDT "chosen" node's bootargs property.
func (c *Config) CommandLine() string {
	parts := []string{fmt.Sprintf("loglevel=%d", c.LogLevel)}
	parts = append(parts, c.ExtraArgs...)
	return strings.Join(parts, " ")
}
