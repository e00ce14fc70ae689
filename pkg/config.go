// Package pkg wires the /dev/fs device into a runnable session: configuration,
// guest memory, the mounted disc and scripted request replay.
package pkg

import (
	"fmt"
	"os"

	"github.com/hansbonini/wiifs/pkg/common"
	"github.com/hansbonini/wiifs/pkg/ipc"
	"github.com/hansbonini/wiifs/pkg/wii"
	"gopkg.in/yaml.v3"
)

// Defaults applied before a config file is read
const (
	DefaultNANDRoot = "./User/Wii"
	DefaultDeviceID = 0x00000003
)

// minMemorySize leaves room for the request scratch area
const minMemorySize = sessionScratchBase + ipc.ClientScratchSize

// Config holds the settings of one emulated NAND session
type Config struct {
	NANDRoot   string `yaml:"nand_root"`
	DiscImage  string `yaml:"disc_image"`
	DeviceID   uint32 `yaml:"device_id"`
	MemorySize uint32 `yaml:"memory_size"`
	Verbose    bool   `yaml:"verbose"`
}

// DefaultConfig returns the settings used when no file is given
func DefaultConfig() Config {
	return Config{
		NANDRoot:   DefaultNANDRoot,
		DeviceID:   DefaultDeviceID,
		MemorySize: wii.DefaultMemorySize,
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty filename
// returns the defaults.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, common.FormatError(common.ErrFailedToReadConfig, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, common.FormatError(common.ErrFailedToParseConfig, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports settings a session cannot start with
func (c Config) Validate() error {
	if c.NANDRoot == "" {
		return fmt.Errorf("nand_root must not be empty")
	}
	if c.MemorySize < minMemorySize {
		return fmt.Errorf("memory_size 0x%X is below the minimum 0x%X", c.MemorySize, minMemorySize)
	}
	return nil
}
