package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultTemplateConfig 返回一个完整的默认配置模板：
// - 输入为 input.csv，工件写入 ./out；
// - 坐标与 nsub 给出示例值，需按实际网格修改；
// - 选项包含全部键，值为中性默认。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := d
	cfg.Inputs = []string{"input.csv"}
	cfg.Partition.Coord0 = "0:1"
	cfg.Partition.Coord1 = "1:1"
	cfg.Partition.Nsub0 = 1
	cfg.Partition.Nsub1 = 1
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "extensions": [".csv"],
  "exclude_dir_names": [".git", "out"]
}`)
	cfg.Options.Decoder = json.RawMessage(`{
  "comma": ",",
  "infer_types": false,
  "lazy_quotes": false
}`)
	cfg.Options.Encoder = json.RawMessage(`{
  "comma": ",",
  "use_crlf": false,
  "ext": "csv"
}`)
	// output_dir 由顶层注入
	cfg.Options.Writer = json.RawMessage(`{
  "atomic": true,
  "flat": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536,
  "rename_attempts": 3
}`)
	return cfg
}

// Marshal 以 format（json|yaml）序列化配置。
func Marshal(c Config, format string) ([]byte, error) {
	j, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(format) {
	case "", "json":
		return append(j, '\n'), nil
	case "yaml", "yml":
		var doc any
		if err := json.Unmarshal(j, &doc); err != nil {
			return nil, err
		}
		return yaml.Marshal(doc)
	default:
		return nil, fmt.Errorf("config: unknown format %q", format)
	}
}

// WriteTemplates 在 dir 下生成 expsplit.<format> 与 .env 模板，返回实际新建的文件。
// 已存在的文件跳过，不覆盖。
func WriteTemplates(dir, format string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	ext := strings.ToLower(format)
	if ext == "" {
		ext = "json"
	}
	b, err := Marshal(DefaultTemplateConfig(), ext)
	if err != nil {
		return nil, err
	}
	var created []string
	cfgPath := filepath.Join(dir, "expsplit."+ext)
	ok, err := writeExclusive(cfgPath, b)
	if err != nil {
		return created, err
	}
	if ok {
		created = append(created, cfgPath)
	}
	envPath := filepath.Join(dir, ".env")
	ok, err = writeExclusive(envPath, []byte(DotEnvTemplate()))
	if err != nil {
		return created, err
	}
	if ok {
		created = append(created, envPath)
	}
	return created, nil
}

// writeExclusive 仅在文件不存在时写入；已存在返回 (false, nil)。
func writeExclusive(path string, b []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return false, err
	}
	return true, f.Close()
}

// DotEnvTemplate 返回 .env 模板内容：列出全部支持的覆盖项，值为空。
func DotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# expsplit .env 模板（由 expsplit init 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源（可二选一）\n")
	b.WriteString(EnvPrefix + "CONFIG_FILE=\n")
	b.WriteString(EnvPrefix + "CONFIG_JSON=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"INPUTS", "CONCURRENCY", "OUTPUT_DIR", "PREFIX", "LOG_LEVEL", "LOG_DIR"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 划分参数\n")
	for _, k := range []string{"COORD0", "COORD1", "NSUB0", "NSUB1", "ITEM_DELIMITER", "COORD_SEPARATOR", "STRIP_WHITESPACE"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择与选项（原样 JSON）\n")
	for _, c := range []string{"READER", "DECODER", "ENCODER", "WRITER"} {
		b.WriteString(EnvPrefix + "COMPONENTS_" + c + "=\n")
	}
	for _, c := range []string{"READER", "DECODER", "ENCODER", "WRITER"} {
		b.WriteString(EnvPrefix + "OPTIONS_" + c + "_JSON=\n")
	}
	return b.String()
}
