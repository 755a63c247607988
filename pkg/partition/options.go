package partition

import (
	"fmt"
	"strings"
	"unicode"

	"expsplit/pkg/contract"
)

// Syntax 描述单元内候选项的书写方式。
type Syntax struct {
	// ItemDelimiter: 候选项分隔符（必需，非空）。
	ItemDelimiter string
	// StripWhitespace: 拆分前移除单元内全部空白字符。
	StripWhitespace bool
}

// ParseOptions 读取 at 处单元并拆分为 OptionSet。
// 约束：
//  1. 单元必须为字符串，否则返回 ErrUnparsableCell；
//  2. 采用 strings.Split 语义："" 得到 [""]（单个空候选项），调用方需自行处理；
//  3. 不校验候选项的业务含义。
func ParseOptions(g contract.Grid, at contract.Coordinate, syn Syntax) (contract.OptionSet, error) {
	if syn.ItemDelimiter == "" {
		return nil, fmt.Errorf("%w: empty item delimiter", contract.ErrInvalidInput)
	}
	v, err := g.At(at)
	if err != nil {
		return nil, err
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: cell (%d,%d) holds %T", contract.ErrUnparsableCell, at.Row, at.Col, v)
	}
	if syn.StripWhitespace {
		s = stripSpace(s)
	}
	return contract.OptionSet(strings.Split(s, syn.ItemDelimiter)), nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
