// Package config loads EnvironmentParams-shaped configuration from TOML or
// YAML files, with environment-variable overrides applied on top — the
// same feeder/override layering used throughout the rest of this
// framework's configuration stack.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"gopkg.in/yaml.v3"
)

// EngineParams mirrors the timer engine tunables sobj.EnvironmentParams
// exposes.
type EngineParams struct {
	Kind             string `toml:"kind" yaml:"kind"`
	WheelSize        int    `toml:"wheel_size" yaml:"wheel_size"`
	WheelGranularity string `toml:"wheel_granularity" yaml:"wheel_granularity"`
	HeapCapacity     int    `toml:"heap_capacity" yaml:"heap_capacity"`
	Threaded         bool   `toml:"threaded" yaml:"threaded"`
}

// ChainDefaults mirrors the capacity/overflow fields every chain needs a
// value for when the application doesn't specify one explicitly.
type ChainDefaults struct {
	Unbounded     bool   `toml:"unbounded" yaml:"unbounded"`
	Size          int    `toml:"size" yaml:"size"`
	Preallocated  bool   `toml:"preallocated" yaml:"preallocated"`
	Overflow      string `toml:"overflow" yaml:"overflow"`
	WaitTimeout   string `toml:"wait_timeout" yaml:"wait_timeout"`
	MultiConsumer bool   `toml:"multi_consumer" yaml:"multi_consumer"`
}

// EnvironmentConfig is the on-disk shape this package loads. Use
// ResolvedGranularity/ResolvedWaitTimeout to turn its duration strings into
// the time.Duration values sobj consumes.
type EnvironmentConfig struct {
	Engine EngineParams  `toml:"engine" yaml:"engine"`
	Chain  ChainDefaults `toml:"chain" yaml:"chain"`
}

// DefaultEnvironmentConfig returns the documented defaults:
// wheel engine, wheel-size 1000, granularity 10ms, heap capacity 64.
func DefaultEnvironmentConfig() EnvironmentConfig {
	return EnvironmentConfig{
		Engine: EngineParams{
			Kind:             "wheel",
			WheelSize:        1000,
			WheelGranularity: "10ms",
			HeapCapacity:     64,
		},
		Chain: ChainDefaults{
			Unbounded: true,
			Overflow:  "drop_newest",
		},
	}
}

// Feeder is the minimal configuration-source contract this package's
// loaders satisfy, matching the shape used across this framework's other
// feeders.
type Feeder interface {
	Feed(structure any) error
}

// TomlFeeder loads an EnvironmentConfig from a TOML file.
type TomlFeeder struct{ Path string }

// NewTomlFeeder builds a TomlFeeder reading from path.
func NewTomlFeeder(path string) *TomlFeeder { return &TomlFeeder{Path: path} }

// Feed decodes the TOML file at f.Path into structure.
func (f *TomlFeeder) Feed(structure any) error {
	_, err := toml.DecodeFile(f.Path, structure)
	if err != nil {
		return fmt.Errorf("config: decoding toml %s: %w", f.Path, err)
	}
	return nil
}

// YamlFeeder loads an EnvironmentConfig from a YAML file.
type YamlFeeder struct{ Path string }

// NewYamlFeeder builds a YamlFeeder reading from path.
func NewYamlFeeder(path string) *YamlFeeder { return &YamlFeeder{Path: path} }

// Feed decodes the YAML file at f.Path into structure.
func (f *YamlFeeder) Feed(structure any) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return fmt.Errorf("config: reading yaml %s: %w", f.Path, err)
	}
	if err := yaml.Unmarshal(data, structure); err != nil {
		return fmt.Errorf("config: decoding yaml %s: %w", f.Path, err)
	}
	return nil
}

// EnvOverrides applies SOBJ_-prefixed environment variables on top of an
// already-loaded EnvironmentConfig, using golobby/cast for the
// string-to-typed conversions (the same conversion helper the rest of
// this framework's env feeder uses).
type EnvOverrides struct{ Prefix string }

// NewEnvOverrides builds an EnvOverrides reading variables named
// prefix+"_"+FIELD (e.g. prefix "SOBJ" reads SOBJ_ENGINE_KIND).
func NewEnvOverrides(prefix string) *EnvOverrides { return &EnvOverrides{Prefix: prefix} }

// Apply mutates cfg in place from any recognised environment variables.
func (e *EnvOverrides) Apply(cfg *EnvironmentConfig) error {
	if v, ok := e.lookup("ENGINE_KIND"); ok {
		cfg.Engine.Kind = v
	}
	if v, ok := e.lookup("ENGINE_WHEEL_SIZE"); ok {
		raw, err := cast.FromString(v, cast.Int)
		if err != nil {
			return fmt.Errorf("config: %s_ENGINE_WHEEL_SIZE: %w", e.Prefix, err)
		}
		cfg.Engine.WheelSize = raw.(int)
	}
	if v, ok := e.lookup("ENGINE_HEAP_CAPACITY"); ok {
		raw, err := cast.FromString(v, cast.Int)
		if err != nil {
			return fmt.Errorf("config: %s_ENGINE_HEAP_CAPACITY: %w", e.Prefix, err)
		}
		cfg.Engine.HeapCapacity = raw.(int)
	}
	if v, ok := e.lookup("ENGINE_THREADED"); ok {
		raw, err := cast.FromString(v, cast.Bool)
		if err != nil {
			return fmt.Errorf("config: %s_ENGINE_THREADED: %w", e.Prefix, err)
		}
		cfg.Engine.Threaded = raw.(bool)
	}
	if v, ok := e.lookup("CHAIN_SIZE"); ok {
		raw, err := cast.FromString(v, cast.Int)
		if err != nil {
			return fmt.Errorf("config: %s_CHAIN_SIZE: %w", e.Prefix, err)
		}
		cfg.Chain.Size = raw.(int)
		cfg.Chain.Unbounded = false
	}
	return nil
}

func (e *EnvOverrides) lookup(suffix string) (string, bool) {
	key := strings.ToUpper(e.Prefix) + "_" + suffix
	v, ok := os.LookupEnv(key)
	return v, ok
}

// ResolvedGranularity converts the on-disk duration string into a
// time.Duration, applying DefaultEnvironmentConfig's granularity if
// WheelGranularity is empty or unparsable.
func (c EnvironmentConfig) ResolvedGranularity() time.Duration {
	d, err := time.ParseDuration(c.Engine.WheelGranularity)
	if err != nil || d <= 0 {
		return 10 * time.Millisecond
	}
	return d
}

// ResolvedWaitTimeout parses Chain.WaitTimeout, returning zero (wait
// indefinitely) if unset or unparsable.
func (c EnvironmentConfig) ResolvedWaitTimeout() time.Duration {
	d, err := time.ParseDuration(c.Chain.WaitTimeout)
	if err != nil {
		return 0
	}
	return d
}
