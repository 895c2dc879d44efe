package pcmtest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FillMode selects how capture substreams fill the DMA area.
type FillMode int

const (
	// FillModeRandom fills the DMA area with pseudo-random bytes. Nothing can be verified.
	FillModeRandom FillMode = 0
	// FillModePattern fills the DMA area with the looped pattern.
	FillModePattern FillMode = 1
)

func (m FillMode) String() string {
	switch m {
	case FillModeRandom:
		return "rand"
	case FillModePattern:
		return "pattern"
	default:
		return "FillMode(" + strconv.Itoa(int(m)) + ")"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m FillMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts "rand", "random", "pattern", "pat" or the numeric values 0 and 1.
func (m *FillMode) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "rand", "random", "0":
		*m = FillModeRandom
	case "pattern", "pat", "1":
		*m = FillModePattern
	default:
		return fmt.Errorf("invalid fill mode %q", text)
	}

	return nil
}

const (
	// DefaultTicksPerSecond is the timer frequency of the simulated hardware.
	DefaultTicksPerSecond = 5
	// MaxTicksPerSecond is the fastest timer the device accepts.
	MaxTicksPerSecond = 100
)

// Params holds the device parameters. Index, ID and TicksPerSecond are fixed when the device is
// created, the remaining fields can be changed at runtime with Device.SetParams.
type Params struct {
	Index int    `yaml:"index" toml:"index"` // Card index, -1 for the first free slot.
	ID    string `yaml:"id" toml:"id"`

	FillMode FillMode `yaml:"fill_mode" toml:"fill_mode"`
	// Pattern seeds the fill pattern; later uploads go through Device.Pattern.
	Pattern string `yaml:"fill_pattern" toml:"fill_pattern"`

	// InjectDelay is added to every timer period.
	InjectDelay       time.Duration `yaml:"inject_delay" toml:"inject_delay"`
	InjectHwParamsErr bool          `yaml:"inject_hwpars_err" toml:"inject_hwpars_err"`
	InjectPrepareErr  bool          `yaml:"inject_prepare_err" toml:"inject_prepare_err"`
	InjectTriggerErr  bool          `yaml:"inject_trigger_err" toml:"inject_trigger_err"`

	TicksPerSecond int `yaml:"ticks_per_second" toml:"ticks_per_second"`
}

// DefaultParams returns the parameters a device uses when none are given.
func DefaultParams() Params {
	return Params{
		Index:          -1,
		ID:             "pcmtest",
		FillMode:       FillModePattern,
		Pattern:        DefaultPattern,
		TicksPerSecond: DefaultTicksPerSecond,
	}
}

// Validate checks the parameters and fills in defaults for unset fields.
func Validate(p *Params) error {
	if p.ID == "" {
		p.ID = "pcmtest"
	}
	if p.Pattern == "" {
		p.Pattern = DefaultPattern
	}
	if p.TicksPerSecond == 0 {
		p.TicksPerSecond = DefaultTicksPerSecond
	}

	if p.Index < -1 {
		return fmt.Errorf("index must be >= -1, got %d", p.Index)
	}
	if p.FillMode != FillModeRandom && p.FillMode != FillModePattern {
		return fmt.Errorf("invalid fill mode %d", int(p.FillMode))
	}
	if p.TicksPerSecond < 0 || p.TicksPerSecond > MaxTicksPerSecond {
		return fmt.Errorf("ticks_per_second must be in 1..%d, got %d", MaxTicksPerSecond, p.TicksPerSecond)
	}
	if p.InjectDelay < 0 {
		return fmt.Errorf("inject_delay must not be negative, got %v", p.InjectDelay)
	}

	return nil
}

// TickInterval returns the timer period without injected delay.
func (p Params) TickInterval() time.Duration {
	return time.Second / time.Duration(p.TicksPerSecond)
}

// LoadParams reads device parameters from a YAML (.yaml, .yml) or TOML (.toml) file. Keys missing
// from the file keep their DefaultParams value.
func LoadParams(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read params file: %w", err)
	}

	p := DefaultParams()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse params: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse params: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported params file extension %q", ext)
	}

	if err := Validate(&p); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}

	return &p, nil
}
