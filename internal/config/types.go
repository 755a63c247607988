package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs      []string `json:"inputs"`
	Concurrency int      `json:"concurrency"`
	// OutputDir: 工件输出根目录；装配时注入 fs writer 的 output_dir。
	OutputDir string `json:"output_dir"`
	// Prefix: 工件文件名前缀，例如 "sub_" → sub_0.csv。
	Prefix    string    `json:"prefix"`
	Partition Partition `json:"partition"`
	Logging   Logging   `json:"logging"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Partition: 划分参数。
type Partition struct {
	// Coord0/Coord1: 两个指定单元的坐标文本，例如 "3:5"。
	Coord0 string `json:"coord0"`
	Coord1 string `json:"coord1"`
	Nsub0  int    `json:"nsub0"`
	Nsub1  int    `json:"nsub1"`
	// ItemDelimiter: 单元内候选项分隔符；同时用于拼接批次值。
	ItemDelimiter string `json:"item_delimiter"`
	// CoordSeparator: 坐标文本的行列分隔符。
	CoordSeparator string `json:"coord_separator"`
	// StripWhitespace: 拆分前移除全部空白；nil 表示未设置（沿用默认 true）。
	StripWhitespace *bool `json:"strip_whitespace,omitempty"`
}

// Logging: 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir,omitempty"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader  string `json:"reader"`
	Decoder string `json:"decoder"`
	Encoder string `json:"encoder"`
	Writer  string `json:"writer"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Reader  json.RawMessage `json:"reader,omitempty"`
	Decoder json.RawMessage `json:"decoder,omitempty"`
	Encoder json.RawMessage `json:"encoder,omitempty"`
	Writer  json.RawMessage `json:"writer,omitempty"`
}

// BoolPtr 返回 b 的指针，便于构造覆盖项。
func BoolPtr(b bool) *bool { return &b }
