package csv

import (
	"bytes"
	"context"
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"expsplit/pkg/contract"
)

// Options 为 CSV 编解码的最小必要选项。
type Options struct {
	// Comma: 字段分隔符（单个字符）。默认 ","。
	Comma string `json:"comma,omitempty"`
	// InferTypes: 按列推断标量类型（整数/浮点/布尔），空单元解码为 nil。
	// 默认 false：全部单元保持字符串，未改动单元逐字节写回。
	// 开启后非指定单元经类型值重新格式化写出，文本可能与源不同
	// （"1.50" -> "1.5"，"007" -> "7"，"TRUE" -> "True"）；需保留原文时勿开启。
	InferTypes bool `json:"infer_types,omitempty"`
	// LazyQuotes: 允许字段中出现不规范引号。
	LazyQuotes bool `json:"lazy_quotes,omitempty"`
	// UseCRLF: 编码时使用 \r\n 作为行尾。
	UseCRLF bool `json:"use_crlf,omitempty"`
	// Ext: 工件扩展名（不含点）。默认 "csv"。
	Ext string `json:"ext,omitempty"`
}

// Codec 同时实现 contract.GridDecoder 与 contract.Encoder。
type Codec struct {
	comma rune
	infer bool
	lazy  bool
	crlf  bool
	ext   string
}

var (
	_ contract.GridDecoder = (*Codec)(nil)
	_ contract.Encoder     = (*Codec)(nil)
)

// New 创建 CSV Codec。
func New(opts *Options) (*Codec, error) {
	c := &Codec{comma: ',', ext: "csv"}
	if opts == nil {
		return c, nil
	}
	if opts.Comma != "" {
		r, size := utf8.DecodeRuneInString(opts.Comma)
		if size != len(opts.Comma) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
			return nil, fmt.Errorf("%w: csv comma %q", contract.ErrInvalidInput, opts.Comma)
		}
		c.comma = r
	}
	if ext := strings.TrimPrefix(strings.TrimSpace(opts.Ext), "."); ext != "" {
		c.ext = ext
	}
	c.infer = opts.InferTypes
	c.lazy = opts.LazyQuotes
	c.crlf = opts.UseCRLF
	return c, nil
}

// Ext 返回工件扩展名。
func (c *Codec) Ext() string { return c.ext }

// Decode 读取整个 CSV：首行为表头，其余为数据行；行宽必须与表头一致。
func (c *Codec) Decode(ctx context.Context, fileID contract.FileID, r io.Reader) (contract.Grid, error) {
	select {
	case <-ctx.Done():
		return contract.Grid{}, ctx.Err()
	default:
	}
	cr := stdcsv.NewReader(r)
	cr.Comma = c.comma
	cr.LazyQuotes = c.lazy
	records, err := cr.ReadAll()
	if err != nil {
		return contract.Grid{}, fmt.Errorf("%w: csv %s: %v", contract.ErrInvalidInput, fileID, err)
	}
	if len(records) == 0 {
		return contract.Grid{}, fmt.Errorf("%w: csv %s: missing header", contract.ErrInvalidInput, fileID)
	}
	header := records[0]
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	g := contract.Grid{Columns: header, Rows: make([][]contract.Cell, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make([]contract.Cell, len(rec))
		for i, s := range rec {
			row[i] = s
		}
		g.Rows = append(g.Rows, row)
	}
	if c.infer {
		inferColumns(g)
	}
	return g, nil
}

// Encode 输出表头与全部数据行（不含行号列）。
func (c *Codec) Encode(ctx context.Context, g contract.Grid) (io.Reader, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	var buf bytes.Buffer
	cw := stdcsv.NewWriter(&buf)
	cw.Comma = c.comma
	cw.UseCRLF = c.crlf
	if len(g.Columns) > 0 {
		if err := cw.Write(g.Columns); err != nil {
			return nil, err
		}
	}
	rec := make([]string, 0, len(g.Columns))
	for _, row := range g.Rows {
		rec = rec[:0]
		for _, v := range row {
			s, err := FormatCell(v)
			if err != nil {
				return nil, err
			}
			rec = append(rec, s)
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return &buf, nil
}

// FormatCell 将标量格式化为单元文本：浮点整数值保留 ".0"，布尔为 True/False，nil 为空。
func FormatCell(v contract.Cell) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case int:
		return strconv.Itoa(x), nil
	case float64:
		if math.IsNaN(x) {
			return "", nil
		}
		if x == math.Trunc(x) && math.Abs(x) < 1e16 {
			return strconv.FormatFloat(x, 'f', 1, 64), nil
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		if x {
			return "True", nil
		}
		return "False", nil
	default:
		return "", fmt.Errorf("%w: unsupported cell type %T", contract.ErrInvalidInput, v)
	}
}

type kind int

const (
	kindUnset kind = iota
	kindInt
	kindFloat
	kindBool
	kindString
)

// inferColumns 逐列推断类型：整列（忽略空单元）可解析为同一类型时才转换。
// 整数与浮点混合时按浮点处理；其余混合保持字符串。
func inferColumns(g contract.Grid) {
	_, cols := g.Shape()
	for col := 0; col < cols; col++ {
		k := kindUnset
		for _, row := range g.Rows {
			s, _ := row[col].(string)
			if s == "" {
				continue
			}
			k = widen(k, classify(s))
			if k == kindString {
				break
			}
		}
		for _, row := range g.Rows {
			s, _ := row[col].(string)
			if s == "" {
				row[col] = nil
				continue
			}
			row[col] = convert(k, s)
		}
	}
}

func classify(s string) kind {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return kindInt
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return kindFloat
	}
	if _, ok := parseBool(s); ok {
		return kindBool
	}
	return kindString
}

func widen(cur, next kind) kind {
	switch {
	case cur == kindUnset || cur == next:
		return next
	case (cur == kindInt && next == kindFloat) || (cur == kindFloat && next == kindInt):
		return kindFloat
	default:
		return kindString
	}
}

func convert(k kind, s string) contract.Cell {
	switch k {
	case kindInt:
		v, _ := strconv.ParseInt(s, 10, 64)
		return v
	case kindFloat:
		v, _ := strconv.ParseFloat(s, 64)
		return v
	case kindBool:
		v, _ := parseBool(s)
		return v
	default:
		return s
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
