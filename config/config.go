// Package config loads the runtime configuration from a TOML file.
// Everything has a sensible default, so no file is required; values
// from a file overlay the defaults and CLI flags override both.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Engine names for the execution back ends.
const (
	EngineEval = "eval"
	EngineVM   = "vm"
)

// Config is the full runtime configuration.
type Config struct {
	// Virtual machine capacities
	VM struct {
		StackSize   int `toml:"stack_size"`
		GlobalsSize int `toml:"globals_size"`
		MaxFrames   int `toml:"max_frames"`
	} `toml:"vm"`

	// Interactive session settings
	REPL struct {
		Prompt       string `toml:"prompt"`
		ColorOutput  bool   `toml:"color_output"`
		HistoryFile  string `toml:"history_file"`
		ShowBytecode bool   `toml:"show_bytecode"`
	} `toml:"repl"`

	// Script execution settings
	Run struct {
		Engine string `toml:"engine"` // eval or vm
	} `toml:"run"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.VM.StackSize = 2048
	cfg.VM.GlobalsSize = 65536
	cfg.VM.MaxFrames = 1024

	cfg.REPL.Prompt = ">>> "
	cfg.REPL.ColorOutput = true
	cfg.REPL.HistoryFile = defaultHistoryFile()
	cfg.REPL.ShowBytecode = false

	cfg.Run.Engine = EngineVM

	return cfg
}

func defaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + string(os.PathSeparator) + ".tarn_history"
}

// Load reads path into a config on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the VM cannot honor.
func (c *Config) Validate() error {
	if c.VM.StackSize <= 0 {
		return fmt.Errorf("vm.stack_size must be positive, got %d", c.VM.StackSize)
	}
	if c.VM.GlobalsSize <= 0 {
		return fmt.Errorf("vm.globals_size must be positive, got %d", c.VM.GlobalsSize)
	}
	if c.VM.MaxFrames <= 0 {
		return fmt.Errorf("vm.max_frames must be positive, got %d", c.VM.MaxFrames)
	}
	if c.Run.Engine != EngineEval && c.Run.Engine != EngineVM {
		return fmt.Errorf("run.engine must be %q or %q, got %q", EngineEval, EngineVM, c.Run.Engine)
	}
	return nil
}
