package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 为全部环境变量覆盖项的前缀。
const EnvPrefix = "EXPSPLIT_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：坐标与 nsub 不设默认（必须由文件/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		Concurrency: 1,
		OutputDir:   "out",
		Prefix:      "sub_",
		Partition: Partition{
			ItemDelimiter:   ";",
			CoordSeparator:  ":",
			StripWhitespace: BoolPtr(true),
		},
		Logging: Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:  "fs",
			Decoder: "csv",
			Encoder: "csv",
			Writer:  "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	switch {
	case len(raw) > 0:
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		raw = b
	default:
		return cfg, errors.New("no config source provided")
	}
	return decodeStrict(raw)
}

// LoadYAML 解析 YAML 配置：先归一为 JSON，再走与 LoadJSON 相同的严格解码。
func LoadYAML(raw []byte) (Config, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if doc == nil {
		return Config{}, nil
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return Config{}, fmt.Errorf("yaml to json: %w", err)
	}
	return decodeStrict(j)
}

// LoadFile 按扩展名选择解码方式：.yaml/.yml 走 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg, err := LoadYAML(b)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	default:
		return LoadJSON(path, nil)
	}
}

// DiscoverFile 返回工作目录 dir 下第一个存在的默认配置文件；均不存在时返回空串。
func DiscoverFile(dir string) string {
	for _, name := range []string{"expsplit.json", "expsplit.yaml", "expsplit.yml"} {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func decodeStrict(raw []byte) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 规则：
// - 非零值覆盖，零值视为未设置；
// - 切片与原样 JSON 整体替换，不做深度合并；
// - 路径/坐标/级别类字段先去首尾空白（前缀与分隔符允许空白，原样保留）；
// - strip_whitespace 以指针区分“未设置”与显式 false。
func Merge(base, over Config) Config {
	out := base
	out.Partition.StripWhitespace = nil
	o := over
	o.OutputDir = strings.TrimSpace(o.OutputDir)
	o.Partition.Coord0 = strings.TrimSpace(o.Partition.Coord0)
	o.Partition.Coord1 = strings.TrimSpace(o.Partition.Coord1)
	o.Partition.StripWhitespace = nil
	o.Logging.Level = strings.TrimSpace(o.Logging.Level)
	o.Logging.Dir = strings.TrimSpace(o.Logging.Dir)
	// 同类型结构体合并只会因类型不符失败
	_ = mergo.Merge(&out, o, mergo.WithOverride)

	out.Inputs = cloneStrings(out.Inputs)
	out.Options.Reader = cloneRaw(out.Options.Reader)
	out.Options.Decoder = cloneRaw(out.Options.Decoder)
	out.Options.Encoder = cloneRaw(out.Options.Encoder)
	out.Options.Writer = cloneRaw(out.Options.Writer)
	switch {
	case over.Partition.StripWhitespace != nil:
		out.Partition.StripWhitespace = BoolPtr(*over.Partition.StripWhitespace)
	case base.Partition.StripWhitespace != nil:
		out.Partition.StripWhitespace = BoolPtr(*base.Partition.StripWhitespace)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 EXPSPLIT_；集合外的键忽略；数值/布尔解析失败返回错误。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := kv[eq+1:]
		if strings.TrimSpace(val) == "" {
			continue
		}
		var err error
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "CONCURRENCY":
			over.Concurrency, err = atoi(val)
		case "OUTPUT_DIR":
			over.OutputDir = strings.TrimSpace(val)
		case "PREFIX":
			over.Prefix = val
		case "COORD0":
			over.Partition.Coord0 = strings.TrimSpace(val)
		case "COORD1":
			over.Partition.Coord1 = strings.TrimSpace(val)
		case "NSUB0":
			over.Partition.Nsub0, err = atoi(val)
		case "NSUB1":
			over.Partition.Nsub1, err = atoi(val)
		case "ITEM_DELIMITER":
			over.Partition.ItemDelimiter = val
		case "COORD_SEPARATOR":
			over.Partition.CoordSeparator = val
		case "STRIP_WHITESPACE":
			var b bool
			if b, err = strconv.ParseBool(strings.TrimSpace(val)); err == nil {
				over.Partition.StripWhitespace = BoolPtr(b)
			}
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOG_DIR":
			over.Logging.Dir = strings.TrimSpace(val)
		case "COMPONENTS_READER":
			over.Components.Reader = strings.TrimSpace(val)
		case "COMPONENTS_DECODER":
			over.Components.Decoder = strings.TrimSpace(val)
		case "COMPONENTS_ENCODER":
			over.Components.Encoder = strings.TrimSpace(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = strings.TrimSpace(val)
		case "OPTIONS_READER_JSON":
			over.Options.Reader = json.RawMessage(val)
		case "OPTIONS_DECODER_JSON":
			over.Options.Decoder = json.RawMessage(val)
		case "OPTIONS_ENCODER_JSON":
			over.Options.Encoder = json.RawMessage(val)
		case "OPTIONS_WRITER_JSON":
			over.Options.Writer = json.RawMessage(val)
		default:
			// 配置源（CONFIG_FILE/CONFIG_JSON）由 CLI 处理；其余忽略。
		}
		if err != nil {
			return Config{}, fmt.Errorf("env %s%s: %w", EnvPrefix, key, err)
		}
	}
	return over, nil
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func atoi(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}
