package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"expsplit/internal/pipeline"
	"expsplit/pkg/contract"
	"expsplit/pkg/partition"
	"expsplit/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if cfg.Concurrency < 1 {
		return errors.New("config: concurrency must be >= 1")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		return errors.New("config: output_dir empty")
	}
	if strings.ContainsAny(cfg.Prefix, `/\`) {
		return fmt.Errorf("config: prefix %q must not contain path separators", cfg.Prefix)
	}
	if _, err := request(cfg.Partition); err != nil {
		return err
	}
	d := Defaults().Components
	if name := effName(cfg.Components.Reader, d.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered (have %v)", name, registry.Names(registry.Reader))
	}
	if name := effName(cfg.Components.Decoder, d.Decoder); registry.Decoder[name] == nil {
		return fmt.Errorf("config: decoder %q not registered (have %v)", name, registry.Names(registry.Decoder))
	}
	if name := effName(cfg.Components.Encoder, d.Encoder); registry.Encoder[name] == nil {
		return fmt.Errorf("config: encoder %q not registered (have %v)", name, registry.Names(registry.Encoder))
	}
	if name := effName(cfg.Components.Writer, d.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered (have %v)", name, registry.Names(registry.Writer))
	}
	return nil
}

// request 将 Partition 配置转换为划分请求（坐标解析 + 参数边界）。
func request(p Partition) (partition.Request, error) {
	if p.ItemDelimiter == "" {
		return partition.Request{}, fmt.Errorf("config: partition.item_delimiter empty: %w", contract.ErrInvalidInput)
	}
	if p.CoordSeparator == "" {
		return partition.Request{}, fmt.Errorf("config: partition.coord_separator empty: %w", contract.ErrInvalidInput)
	}
	if p.Coord0 == "" || p.Coord1 == "" {
		return partition.Request{}, fmt.Errorf("config: partition.coord0 and partition.coord1 are required: %w", contract.ErrInvalidInput)
	}
	if p.Nsub0 < 1 || p.Nsub1 < 1 {
		return partition.Request{}, fmt.Errorf("config: partition.nsub0/nsub1 must be >= 1 (got %d/%d): %w", p.Nsub0, p.Nsub1, contract.ErrInvalidPartitionSize)
	}
	c0, err := contract.ParseCoordinate(p.Coord0, p.CoordSeparator)
	if err != nil {
		return partition.Request{}, fmt.Errorf("config: partition.coord0: %w", err)
	}
	c1, err := contract.ParseCoordinate(p.Coord1, p.CoordSeparator)
	if err != nil {
		return partition.Request{}, fmt.Errorf("config: partition.coord1: %w", err)
	}
	strip := true
	if p.StripWhitespace != nil {
		strip = *p.StripWhitespace
	}
	return partition.Request{
		Coord0: c0,
		Coord1: c1,
		Nsub0:  p.Nsub0,
		Nsub1:  p.Nsub1,
		Syntax: partition.Syntax{ItemDelimiter: p.ItemDelimiter, StripWhitespace: strip},
	}, nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
// fs writer 的 output_dir 以顶层 output_dir 为准（注入覆盖）。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	req, err := request(cfg.Partition)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}

	d := Defaults().Components
	rn := effName(cfg.Components.Reader, d.Reader)
	dn := effName(cfg.Components.Decoder, d.Decoder)
	en := effName(cfg.Components.Encoder, d.Encoder)
	wn := effName(cfg.Components.Writer, d.Writer)

	r, err := registry.Reader[rn](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: reader %q: %w", rn, err)
	}
	dec, err := registry.Decoder[dn](cfg.Options.Decoder)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: decoder %q: %w", dn, err)
	}
	enc, err := registry.Encoder[en](cfg.Options.Encoder)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: encoder %q: %w", en, err)
	}
	wraw := cfg.Options.Writer
	if wn == "fs" {
		if wraw, err = injectOutputDir(wraw, cfg.OutputDir); err != nil {
			return pipeline.Components{}, pipeline.Settings{}, err
		}
	}
	w, err := registry.Writer[wn](wraw)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("config: writer %q: %w", wn, err)
	}

	comp := pipeline.Components{Reader: r, Decoder: dec, Encoder: enc, Writer: w}
	set := pipeline.Settings{
		Inputs:      cloneStrings(cfg.Inputs),
		Concurrency: cfg.Concurrency,
		Prefix:      cfg.Prefix,
		Request:     req,
	}
	return comp, set, nil
}

func injectOutputDir(raw json.RawMessage, dir string) (json.RawMessage, error) {
	m := map[string]json.RawMessage{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("config: options.writer: %w", err)
		}
	}
	b, err := json.Marshal(dir)
	if err != nil {
		return nil, err
	}
	m["output_dir"] = b
	return json.Marshal(m)
}

// PreflightOutputDir 启动前检查输出目录可写性。
// - 目录已存在：尝试创建并删除临时文件；
// - 目录不存在：沿父路径找到最近的已存在目录，检查其可写。
func PreflightOutputDir(dir string) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return errors.New("output dir empty")
	}
	st, err := os.Stat(dir)
	switch {
	case err == nil && st.IsDir():
		f, err := os.CreateTemp(dir, ".wcheck-*")
		if err != nil {
			return err
		}
		name := f.Name()
		_ = f.Close()
		return os.Remove(name)
	case err == nil:
		return fmt.Errorf("path exists but is not a directory: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	parent := filepath.Dir(filepath.Clean(dir))
	if parent == dir {
		return fmt.Errorf("cannot determine parent directory: %s", dir)
	}
	return PreflightOutputDir(parent)
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
