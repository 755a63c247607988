package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "expsplit/internal/config"
	"expsplit/internal/diag"
)

// cli 保存全部命令共享的状态与标志值。
type cli struct {
	stdout io.Writer
	stderr io.Writer
	corrID string

	configPath string
	logLevel   string
	logDir     string

	// 覆盖项（仅当标志被显式设置时生效）
	over  cfgpkg.Config
	strip bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, corrID: uuid.NewString()}
	root := &cobra.Command{
		Use:   "expsplit",
		Short: "Partition an experiment design grid into sub-experiments",
		Long: `expsplit reads a CSV experiment grid in which two designated cells each hold a
delimiter-separated list of candidate values, and splits it into a series of
sub-experiment grids with at most nsub0 options on axis 0 and nsub1 on axis 1.

Configuration precedence: flags > EXPSPLIT_* environment (.env) > config file > defaults.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "config file (.json/.yaml); default ./expsplit.{json,yaml,yml} if present")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&c.logDir, "log-dir", "", "directory for the rotating log file")

	root.AddCommand(newRunCmd(c), newPlanCmd(c), newInitCmd(c))
	return root
}

// addPartitionFlags 注册 run/plan 共用的划分与输出标志。
func (c *cli) addPartitionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	p := &c.over.Partition
	f.StringVar(&p.Coord0, "coord0", "", "axis-0 cell coordinate, e.g. 3:5")
	f.StringVar(&p.Coord1, "coord1", "", "axis-1 cell coordinate")
	f.IntVar(&p.Nsub0, "nsub0", 0, "max options per batch on axis 0")
	f.IntVar(&p.Nsub1, "nsub1", 0, "max options per batch on axis 1")
	f.StringVar(&p.ItemDelimiter, "item-delimiter", "", "delimiter between options in a cell (default \";\")")
	f.StringVar(&p.CoordSeparator, "coord-separator", "", "row/column separator in coordinates (default \":\")")
	f.BoolVar(&c.strip, "strip-whitespace", true, "remove all whitespace from designated cells before splitting")
	f.StringVar(&c.over.OutputDir, "output-dir", "", "artifact output directory (default \"out\")")
	f.StringVar(&c.over.Prefix, "prefix", "", "artifact filename prefix (default \"sub_\")")
	f.IntVar(&c.over.Concurrency, "concurrency", 0, "parallel artifact writes")
}

// resolve 按优先级合并：Defaults → 配置文件/EXPSPLIT_CONFIG_JSON → ENV → CLI。
func (c *cli) resolve(cmd *cobra.Command, args []string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := c.configPath
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	raw := os.Getenv(cfgpkg.EnvPrefix + "CONFIG_JSON")
	if path == "" && raw == "" {
		path = cfgpkg.DiscoverFile(".")
	}
	var (
		base cfgpkg.Config
		err  error
	)
	switch {
	case raw != "":
		base, err = cfgpkg.LoadJSON("", []byte(raw))
	case path != "":
		base, err = cfgpkg.LoadFile(path)
	}
	if err != nil {
		return cfg, configErr("config: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, base)

	env, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, configErr("environment: %w", err)
	}
	cfg = cfgpkg.Merge(cfg, env)

	over := c.over
	over.Inputs = args
	over.Logging = cfgpkg.Logging{Level: c.logLevel, Dir: c.logDir}
	if f := cmd.Flags().Lookup("strip-whitespace"); f != nil && f.Changed {
		over.Partition.StripWhitespace = cfgpkg.BoolPtr(c.strip)
	}
	cfg = cfgpkg.Merge(cfg, over)

	if err := cfgpkg.Validate(cfg); err != nil {
		return cfg, configErr("%w", err)
	}
	return cfg, nil
}

// logger 按最终配置创建日志器。
func (c *cli) logger(cfg cfgpkg.Config) *diag.Logger {
	return diag.NewLogger(c.corrID, cfg.Logging.Level, cfg.Logging.Dir)
}

// effective 以 debug 级别记录生效配置摘要。
func (c *cli) effective(logger *diag.Logger, cfg cfgpkg.Config) {
	logger.DebugStart("config", "effective", "", "", map[string]string{
		"inputs":      strings.Join(cfg.Inputs, ","),
		"concurrency": fmt.Sprint(cfg.Concurrency),
		"output_dir":  cfg.OutputDir,
		"prefix":      cfg.Prefix,
		"coord0":      cfg.Partition.Coord0,
		"coord1":      cfg.Partition.Coord1,
		"nsub0":       fmt.Sprint(cfg.Partition.Nsub0),
		"nsub1":       fmt.Sprint(cfg.Partition.Nsub1),
		"reader":      cfg.Components.Reader,
		"decoder":     cfg.Components.Decoder,
		"encoder":     cfg.Components.Encoder,
		"writer":      cfg.Components.Writer,
	})
}
