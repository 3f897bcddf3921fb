// Copyright 2026 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/hashjoin/pkg/base"
	"github.com/cockroachdb/hashjoin/pkg/bench/hashjoinbench"
	"github.com/cockroachdb/hashjoin/pkg/col/coldata"
	"github.com/cockroachdb/hashjoin/pkg/sql/colflow"
	"github.com/cockroachdb/hashjoin/pkg/util/log"
	"github.com/cockroachdb/hashjoin/pkg/workload/tpch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func makeHashJoinCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "hashjoin [command] (flags)",
		Short: "hashjoin runs the hash build-and-join benchmark on generated TPC-H data.",
		Long: `hashjoin runs the hash build-and-join benchmark on generated TPC-H data:

    SELECT orderkey, quantity, totalprice
    FROM lineitem JOIN orders USING (orderkey)

Typical usage:
    hashjoin run --scale-factor=1
        Run the benchmark with and without precomputed hashes.

    hashjoin run --hash=false --workers=1 --stats
        Run the benchmark without precomputed hashes on a single worker and
        print the operator statistics of the last iteration.

    hashjoin explain
        Print the pipelines of the benchmark.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	command.AddCommand(makeRunCommand())
	command.AddCommand(makeExplainCommand())
	return command
}

// execFlags are the flags shared by the subcommands.
type execFlags struct {
	exec       base.ExecConfig
	configPath string
}

func (f *execFlags) register(fs *pflag.FlagSet) {
	f.exec = base.DefaultExecConfig()
	f.exec.RegisterFlags(fs)
	fs.StringVar(&f.configPath, "config", "", "YAML file with execution settings; flags take precedence")
}

// load returns the execution settings after overlaying the config file.
func (f *execFlags) load(fs *pflag.FlagSet) (base.ExecConfig, error) {
	cfg := f.exec
	if f.configPath != "" {
		if err := cfg.MergeFile(fs, f.configPath); err != nil {
			return base.ExecConfig{}, err
		}
	} else if err := cfg.Validate(); err != nil {
		return base.ExecConfig{}, err
	}
	return cfg, nil
}

type runConfig struct {
	execFlags
	scaleFactor  float64
	seed         uint64
	warmup       int
	iterations   int
	printStats   bool
	printMetrics bool
	verbosity    int32
	logFormat    string
}

func makeRunCommand() *cobra.Command {
	def := hashjoinbench.DefaultConfig()
	config := runConfig{
		scaleFactor: 0.1,
		seed:        tpch.DefaultSeed,
		warmup:      def.WarmupIterations,
		iterations:  def.MeasuredIterations,
		logFormat:   log.DefaultFormat,
	}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark.",
		Long: `Run the benchmark and print one result line per hash setting.

Unless --hash or a config file selects a setting, the benchmark is run first
without and then with precomputed hashes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return runBenchmark(ctx, cmd, &config)
		},
	}
	config.register(cmd.Flags())
	cmd.Flags().Float64Var(&config.scaleFactor, "scale-factor", config.scaleFactor, "TPC-H scale factor of the generated tables")
	cmd.Flags().Uint64Var(&config.seed, "seed", config.seed, "seed of the data generator")
	cmd.Flags().IntVar(&config.warmup, "warmup", config.warmup, "number of unmeasured iterations")
	cmd.Flags().IntVar(&config.iterations, "iterations", config.iterations, "number of measured iterations")
	cmd.Flags().BoolVar(&config.printStats, "stats", config.printStats, "print the operator statistics of the last iteration")
	cmd.Flags().BoolVar(&config.printMetrics, "metrics", config.printMetrics, "print the scheduler metrics when done")
	cmd.Flags().Int32VarP(&config.verbosity, "verbosity", "v", config.verbosity, "log verbosity")
	cmd.Flags().StringVar(&config.logFormat, "log-format", config.logFormat,
		fmt.Sprintf("format of the log entries written to stderr (%s)", strings.Join(log.FormatNames(), ", ")))
	return cmd
}

func runBenchmark(ctx context.Context, cmd *cobra.Command, config *runConfig) error {
	exec, err := config.load(cmd.Flags())
	if err != nil {
		return err
	}
	if err := coldata.SetBatchSize(exec.BatchSize); err != nil {
		return err
	}
	if err := log.SetFormat(config.logFormat); err != nil {
		return err
	}
	log.SetVModule(config.verbosity)
	log.VEventf(ctx, 1, "exec config:\n%s", exec)

	hashSettings := []bool{exec.HashEnabled}
	if !cmd.Flags().Changed("hash") && config.configPath == "" {
		hashSettings = []bool{false, true}
	}

	reg := prometheus.NewRegistry()
	metrics := colflow.NewMetrics()
	if err := metrics.Register(reg); err != nil {
		return err
	}
	sched := colflow.NewScheduler(&exec, metrics)
	sched.Start(ctx)
	defer sched.Stop(ctx)

	sources, err := hashjoinbench.TPCHSources(config.scaleFactor, config.seed, exec.BatchSize)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, hashEnabled := range hashSettings {
		benchCfg := hashjoinbench.Config{
			Exec:               exec,
			WarmupIterations:   config.warmup,
			MeasuredIterations: config.iterations,
		}
		benchCfg.Exec.HashEnabled = hashEnabled
		res, err := hashjoinbench.Run(ctx, sched, benchCfg, sources)
		if err != nil {
			return errors.Wrapf(err, "running %s", hashjoinbench.Name(hashEnabled))
		}
		fmt.Fprintln(out, res)
		if config.printStats {
			writeStatsTable(out, res.LastStats)
		}
	}
	if config.printMetrics {
		return writeMetrics(out, reg)
	}
	return nil
}

func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}

func makeExplainCommand() *cobra.Command {
	var config execFlags
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Print the pipelines of the benchmark.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exec, err := config.load(cmd.Flags())
			if err != nil {
				return err
			}
			// The sources are never scanned.
			sources, err := hashjoinbench.TPCHSources(1, tpch.DefaultSeed, exec.BatchSize)
			if err != nil {
				return err
			}
			p, err := hashjoinbench.NewPipelines(&exec, sources)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), colflow.ExplainPipelines(p.Build, p.Probe))
			return nil
		},
	}
	config.register(cmd.Flags())
	return cmd
}
