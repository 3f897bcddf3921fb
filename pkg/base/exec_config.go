// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package base holds the configuration shared by the execution engine and
// the tools built on it.
package base

import (
	"io"
	"os"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/sql/colexecerror"
	"github.com/cockroachdb/hashjoin/pkg/util/humanizeutil"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// ExecConfig configures the execution of tasks.
type ExecConfig struct {
	// NumWorkers is the number of drivers that may run concurrently.
	NumWorkers int `yaml:"num_workers"`
	// Quantum is the time slice of a driver.
	Quantum time.Duration `yaml:"quantum"`
	// BatchSize is the maximum number of rows of produced batches.
	BatchSize int `yaml:"batch_size"`
	// BuildMaxRows bounds the rows of a hash build; zero is unbounded.
	BuildMaxRows int64 `yaml:"build_max_rows"`
	// BuildMemoryBudget bounds the bytes retained by a hash build; zero is
	// unbounded.
	BuildMemoryBudget humanizeutil.Bytes `yaml:"build_memory_budget"`
	// TaskMemoryLimit bounds the bytes reserved by all the drivers of a task;
	// zero is unbounded.
	TaskMemoryLimit humanizeutil.Bytes `yaml:"task_memory_limit"`
	// HashEnabled inserts a hash projection in front of the hash builder and
	// the lookup join, so that row hashes are computed once.
	HashEnabled bool `yaml:"hash_enabled"`
}

// DefaultExecConfig returns the default configuration.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		// We use GOMAXPROCS instead of NumCPU because the former could be
		// adjusted based on cgroup limits.
		NumWorkers:   runtime.GOMAXPROCS(0),
		Quantum:      DefaultQuantum,
		BatchSize:    DefaultBatchSize,
		BuildMaxRows: DefaultBuildMaxRows,
		HashEnabled:  true,
	}
}

// Validate returns a ConfigurationError describing the first invalid
// setting.
func (c *ExecConfig) Validate() error {
	switch {
	case c.NumWorkers < 1:
		return colexecerror.NewConfigurationErrorf("num_workers must be positive, got %d", c.NumWorkers)
	case c.Quantum <= 0:
		return colexecerror.NewConfigurationErrorf("quantum must be positive, got %s", c.Quantum)
	case c.BatchSize < 1 || c.BatchSize > MaxBatchSize:
		return colexecerror.NewConfigurationErrorf(
			"batch_size must be in [1, %d], got %d", MaxBatchSize, c.BatchSize)
	case c.BuildMaxRows < 0:
		return colexecerror.NewConfigurationErrorf("build_max_rows must not be negative")
	case c.BuildMemoryBudget < 0:
		return colexecerror.NewConfigurationErrorf("build_memory_budget must not be negative")
	case c.TaskMemoryLimit < 0:
		return colexecerror.NewConfigurationErrorf("task_memory_limit must not be negative")
	}
	return nil
}

// ReadExecConfig overlays the YAML document read from r on the defaults.
// Unknown fields are rejected.
func ReadExecConfig(r io.Reader) (ExecConfig, error) {
	cfg := DefaultExecConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return ExecConfig{}, errors.Mark(errors.Wrap(err, "parsing exec config"), colexecerror.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return ExecConfig{}, err
	}
	return cfg, nil
}

// LoadExecConfig reads the YAML file at path. An empty path yields the
// defaults.
func LoadExecConfig(path string) (ExecConfig, error) {
	if path == "" {
		cfg := DefaultExecConfig()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return ExecConfig{}, errors.Mark(errors.Wrap(err, "opening exec config"), colexecerror.ErrConfiguration)
	}
	defer f.Close()
	return ReadExecConfig(f)
}

// RegisterFlags binds the settings to flags of fs. Flags override whatever
// the struct holds when they are parsed.
func (c *ExecConfig) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.NumWorkers, "workers", c.NumWorkers, "number of drivers that may run concurrently")
	fs.DurationVar(&c.Quantum, "quantum", c.Quantum, "time slice of a driver")
	fs.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "maximum number of rows per batch")
	fs.Int64Var(&c.BuildMaxRows, "build-max-rows", c.BuildMaxRows, "row capacity of the hash build (0 for unbounded)")
	fs.Var(&c.BuildMemoryBudget, "build-memory-budget",
		"bytes the hash build may retain (0 for unbounded)")
	fs.Var(&c.TaskMemoryLimit, "task-memory-limit",
		"bytes all drivers of a task may reserve (0 for unbounded)")
	fs.BoolVar(&c.HashEnabled, "hash", c.HashEnabled, "precompute row hashes with a hash projection")
}

// MergeFile overlays the settings of the YAML file at path on c, except for
// those whose flag was set on fs, which keep their value. fs must have been
// set up with c.RegisterFlags.
func (c *ExecConfig) MergeFile(fs *pflag.FlagSet, path string) error {
	file, err := LoadExecConfig(path)
	if err != nil {
		return err
	}
	for _, s := range []struct {
		flag  string
		apply func()
	}{
		{"workers", func() { c.NumWorkers = file.NumWorkers }},
		{"quantum", func() { c.Quantum = file.Quantum }},
		{"batch-size", func() { c.BatchSize = file.BatchSize }},
		{"build-max-rows", func() { c.BuildMaxRows = file.BuildMaxRows }},
		{"build-memory-budget", func() { c.BuildMemoryBudget = file.BuildMemoryBudget }},
		{"task-memory-limit", func() { c.TaskMemoryLimit = file.TaskMemoryLimit }},
		{"hash", func() { c.HashEnabled = file.HashEnabled }},
	} {
		if !fs.Changed(s.flag) {
			s.apply()
		}
	}
	return c.Validate()
}

// String renders the configuration as YAML.
func (c ExecConfig) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return err.Error()
	}
	return string(out)
}
