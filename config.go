package edmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/viper"
)

// SchedulerKind selects the global event sorter implementation.
type SchedulerKind string

const (
	SchedulerCBT      SchedulerKind = "CBT"
	SchedulerBoundedPQ SchedulerKind = "BoundedPQ"
)

// NeighbourKind selects the neighbour structure implementation.
type NeighbourKind string

const (
	NeighbourPlain    NeighbourKind = "Plain"
	NeighbourMorton   NeighbourKind = "Morton"
	NeighbourShearing NeighbourKind = "Shearing"
)

// Config is the opaque settings object handed to the core at construction
// time. It covers scheduler/neighbour selection and tuning, plus the
// ambient knobs (logging, delayed-state flush cadence) needed to actually
// run the core.
type Config struct {
	Scheduler struct {
		Kind SchedulerKind `mapstructure:"kind"`
		BPQ  struct {
			Lists int `mapstructure:"lists"` // bucket count; 0 = 64 (the bucket width is auto-tuned at init())
		} `mapstructure:"bpq"`
	} `mapstructure:"scheduler"`

	Neighbour struct {
		Kind     NeighbourKind `mapstructure:"kind"`
		Overlink int           `mapstructure:"overlink"`
		Oversize float64       `mapstructure:"oversize"`
		Lambda   float64       `mapstructure:"lambda"`
	} `mapstructure:"neighbour"`

	Simulation struct {
		MaxEvents     uint64 `mapstructure:"max_events"`
		PrintInterval uint64 `mapstructure:"print_interval"`
	} `mapstructure:"simulation"`

	Logging struct {
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"logging"`

	DelayedState struct {
		// StreamFreq overrides the default 10*N flush cadence when non-zero.
		// Mostly useful for tests that want to force a flush on every call.
		StreamFreq int `mapstructure:"stream_freq"`
	} `mapstructure:"delayedstate"`
}

// DefaultConfig returns the configuration the demo harness and tests use
// when no file is supplied: CBT scheduler, plain cells, no sleep/wake.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Scheduler.Kind = SchedulerCBT
	cfg.Neighbour.Kind = NeighbourPlain
	cfg.Neighbour.Overlink = 1
	cfg.Neighbour.Oversize = 1.0
	cfg.Neighbour.Lambda = 0.0
	cfg.Simulation.MaxEvents = 1_000_000
	cfg.Simulation.PrintInterval = 10_000
	return cfg
}

// LoadConfig reads a YAML/TOML/JSON configuration file (format inferred from
// extension) the way niceyeti-tabular's reinforcement.FromYaml loads a
// TrainingConfig: a fresh viper instance per call, so loading several
// configs in the same process never shares state.
func LoadConfig(path string) (*Config, error) {
	vp := viper.New()
	vp.SetConfigFile(path)

	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("edmd: reading config %q: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("edmd: decoding config %q: %w", path, err)
	}
	return cfg, validateConfig(cfg)
}

// LoadConfigBytes decodes configuration from an in-memory buffer of the
// given format ("yaml", "json", "toml", ...). Used by tests that would
// otherwise need a throwaway file on disk.
func LoadConfigBytes(format string, data []byte) (*Config, error) {
	vp := viper.New()
	vp.SetConfigType(format)

	if err := vp.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("edmd: reading inline config: %w", err)
	}

	cfg := DefaultConfig()
	if err := vp.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("edmd: decoding inline config: %w", err)
	}
	return cfg, validateConfig(cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.Scheduler.Kind != SchedulerCBT && cfg.Scheduler.Kind != SchedulerBoundedPQ {
		return fmt.Errorf("edmd: unknown scheduler.kind %q", cfg.Scheduler.Kind)
	}
	switch cfg.Neighbour.Kind {
	case NeighbourPlain, NeighbourMorton, NeighbourShearing:
	default:
		return fmt.Errorf("edmd: unknown neighbour.kind %q", cfg.Neighbour.Kind)
	}
	if cfg.Neighbour.Overlink < 1 {
		return fmt.Errorf("edmd: neighbour.overlink must be >= 1, got %d", cfg.Neighbour.Overlink)
	}
	if cfg.Neighbour.Oversize < 1.0 {
		return fmt.Errorf("edmd: neighbour.oversize must be >= 1.0, got %f", cfg.Neighbour.Oversize)
	}
	if cfg.Neighbour.Lambda < 0.0 || cfg.Neighbour.Lambda > 1.0 {
		return fmt.Errorf("edmd: neighbour.lambda must be in [0,1], got %f", cfg.Neighbour.Lambda)
	}
	return nil
}
