package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	cfgpkg "expsplit/internal/config"
	"expsplit/internal/diag"
	"expsplit/internal/pipeline"
)

func newRunCmd(c *cli) *cobra.Command {
	var (
		status      bool
		metricsFile string
	)
	cmd := &cobra.Command{
		Use:   "run [inputs...]",
		Short: "Split input grids and write one CSV artifact per sub-experiment",
		Long: `Reads each input grid (files, directories of .csv files, or "-" for stdin),
partitions it and writes {prefix}{index}.csv artifacts under the output directory.
With several inputs, each input gets a subdirectory named after its file stem.
Written artifact paths are printed to stdout, one per line.`,
		Example: `  expsplit run design.csv --coord0 3:5 --coord1 4:5 --nsub0 2 --nsub1 3
  expsplit run grids/ --config expsplit.yaml --concurrency 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.run(cmd, args, status)
			if metricsFile != "" {
				if merr := diag.WriteMetrics(metricsFile); merr != nil && err == nil {
					err = fmt.Errorf("write metrics: %w", merr)
				}
			}
			return err
		},
	}
	c.addPartitionFlags(cmd)
	cmd.Flags().BoolVar(&status, "status", true, "terminal status on stderr (TTY refreshes in place)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write run counters in Prometheus text format to this file")
	return cmd
}

func (c *cli) run(cmd *cobra.Command, args []string, status bool) error {
	start := time.Now()
	cfg, err := c.resolve(cmd, args)
	if err != nil {
		return err
	}
	logger := c.logger(cfg)
	defer func() { _ = logger.Sync() }()
	c.effective(logger, cfg)

	if cfg.Components.Writer == "fs" {
		if err := cfgpkg.PreflightOutputDir(cfg.OutputDir); err != nil {
			logger.Error("pipeline", string(diag.Classify(err)), "preflight failed", &start)
			return configErr("output dir not writable: %w", err)
		}
	}
	comp, set, err := cfgpkg.Assemble(cfg)
	if err != nil {
		logger.Error("pipeline", string(diag.Classify(err)), "assemble failed", &start)
		return configErr("assemble: %w", err)
	}

	term := diag.NewTerminal(c.stderr, status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)
	term.RunStart(cfg.Concurrency, len(cfg.Inputs))

	t := logger.Start("pipeline", "run")
	results, err := pipeline.Run(cmd.Context(), comp, set, logger)
	// 失败时也输出已写出的工件，便于调用方清理或续跑
	written := 0
	for _, r := range results {
		for _, a := range r.Artifacts {
			_, _ = fmt.Fprintln(c.stdout, a.Location)
			written++
		}
	}
	if err != nil {
		code := diag.Classify(err)
		logger.Error("pipeline", string(code), "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("pipeline", string(code))
		}
		term.RunFinish(false, time.Since(start))
		return err
	}
	t.Finish("run", int64(written))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())
	term.RunFinish(true, time.Since(start))
	return nil
}
