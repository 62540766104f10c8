package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/lookbusy1344/aluvm/core"
)

// Config represents the VM tool configuration
type Config struct {
	// Execution settings
	Execution struct {
		Halt          bool   `toml:"halt_on_fail"`
		ComplexityLim uint64 `toml:"complexity_limit"` // 0 means unlimited
		CallStackSize uint16 `toml:"call_stack_size"`
		FieldOrder    string `toml:"field_order"` // M31, F1137119, F1289 or a number
		EnableTrace   bool   `toml:"enable_trace"`
	} `toml:"execution"`

	// Debugger settings
	Debugger struct {
		HistorySize   int  `toml:"history_size"`
		ShowRegisters bool `toml:"show_registers"`
		ShowDisasm    bool `toml:"show_disasm"`
	} `toml:"debugger"`

	// Display settings
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		NumberFormat string `toml:"number_format"` // hex, dec, both
	} `toml:"display"`

	// Trace settings
	Trace struct {
		OutputFile string `toml:"output_file"`
		MaxEntries uint64 `toml:"max_entries"`
	} `toml:"trace"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Execution defaults mirror core.DefaultConfig
	cfg.Execution.Halt = true
	cfg.Execution.ComplexityLim = 0
	cfg.Execution.CallStackSize = core.CallStackSizeMax
	cfg.Execution.FieldOrder = "F1137119"
	cfg.Execution.EnableTrace = false

	// Debugger defaults
	cfg.Debugger.HistorySize = 1000
	cfg.Debugger.ShowRegisters = true
	cfg.Debugger.ShowDisasm = true

	// Display defaults
	cfg.Display.ColorOutput = true
	cfg.Display.NumberFormat = "hex"

	// Trace defaults
	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.MaxEntries = 100000

	return cfg
}

// CoreConfig converts the execution section into a core configuration.
func (c *Config) CoreConfig() (core.CoreConfig, error) {
	cfg := core.DefaultConfig()
	cfg.Halt = c.Execution.Halt
	if c.Execution.ComplexityLim > 0 {
		lim := c.Execution.ComplexityLim
		cfg.ComplexityLim = &lim
	}
	if c.Execution.CallStackSize > 0 {
		cfg.CallStackSize = c.Execution.CallStackSize
	}
	if c.Execution.FieldOrder != "" {
		fq, err := core.ParseFq(c.Execution.FieldOrder)
		if err != nil {
			return cfg, fmt.Errorf("invalid field_order: %w", err)
		}
		cfg.FieldOrder = fq
	}
	return cfg, nil
}

// GetConfigPath returns the platform-specific config file path
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\aluvm\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "aluvm")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/aluvm/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "aluvm")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
