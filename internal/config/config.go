// internal/config/config.go

package config

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"memsched/internal/job"
	"memsched/internal/memory"
	"memsched/internal/sched"
)

// Config mirrors config.yml
type Config struct {
	TickMS    int        `yaml:"tick_ms"` // 0 runs on the virtual clock
	Quantum   int        `yaml:"quantum"` // 2 (by default)
	Mode      sched.Mode `yaml:"mode"`    // fcfs (by default) or round-robin
	Seed      int64      `yaml:"seed"`    // identifier seed, 0 = wall clock
	Blocks    []int      `yaml:"blocks"`
	Processes []job.Spec `yaml:"processes"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		TickMS:    0,
		Quantum:   sched.DefaultQuantum,
		Mode:      sched.ModeFCFS,
		Blocks:    append([]int(nil), memory.DefaultBlocks...),
		Processes: job.DefaultWorkload(),
	}
}

// Load reads YAML over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate reports every problem found, not just the first.
func (c Config) Validate() error {
	var errs error
	if c.TickMS < 0 {
		errs = multierr.Append(errs, fmt.Errorf("tick_ms must not be negative, got %d", c.TickMS))
	}
	if c.Quantum < 1 {
		errs = multierr.Append(errs, fmt.Errorf("quantum must be at least 1, got %d", c.Quantum))
	}
	if !c.Mode.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("unknown mode %q", c.Mode))
	}
	for i, b := range c.Blocks {
		if b < 0 {
			errs = multierr.Append(errs, fmt.Errorf("blocks[%d] is negative: %d", i, b))
		}
	}
	for i, p := range c.Processes {
		if p.Priority < 0 || p.Arrival < 0 || p.Burst < 0 || p.Memory < 0 {
			errs = multierr.Append(errs, fmt.Errorf("processes[%d] has a negative field: %+v", i, p))
		}
	}
	return errs
}
