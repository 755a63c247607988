package contract

import (
	"fmt"
	"strconv"
	"strings"
)

// Coordinate: 单元坐标 (Row, Col)，均为 0 起且不含表头。
type Coordinate struct {
	Row int
	Col int
}

// ParseCoordinate 解析形如 "3:5" 的坐标文本（sep 为行列分隔符）。
// 规则：
//  1. 必须恰好两段，两段均为十进制整数（允许首尾空白）；
//  2. 负数视为越界，返回 ErrCoordinateOutOfBounds；
//  3. 其余格式问题返回 ErrInvalidInput。
func ParseCoordinate(s, sep string) (Coordinate, error) {
	if sep == "" {
		return Coordinate{}, fmt.Errorf("%w: empty coordinate separator", ErrInvalidInput)
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: coordinate %q must be <row>%s<col>", ErrInvalidInput, s, sep)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: coordinate %q row: %v", ErrInvalidInput, s, err)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: coordinate %q col: %v", ErrInvalidInput, s, err)
	}
	if row < 0 || col < 0 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrCoordinateOutOfBounds, s)
	}
	return Coordinate{Row: row, Col: col}, nil
}

// String 以 sep 连接行列，ParseCoordinate 的逆操作。
func (c Coordinate) String(sep string) string {
	return strconv.Itoa(c.Row) + sep + strconv.Itoa(c.Col)
}

// Shape 返回 (行数, 列数)。列数以表头为准；无表头时取首行宽度。
func (g Grid) Shape() (int, int) {
	cols := len(g.Columns)
	if cols == 0 && len(g.Rows) > 0 {
		cols = len(g.Rows[0])
	}
	return len(g.Rows), cols
}

// Contains 判断坐标是否指向有效单元。
func (g Grid) Contains(c Coordinate) bool {
	if c.Row < 0 || c.Row >= len(g.Rows) {
		return false
	}
	return c.Col >= 0 && c.Col < len(g.Rows[c.Row])
}

// At 读取单元；越界返回 ErrCoordinateOutOfBounds。
func (g Grid) At(c Coordinate) (Cell, error) {
	if !g.Contains(c) {
		return nil, g.outOfBounds(c)
	}
	return g.Rows[c.Row][c.Col], nil
}

// Set 原地写入单元；越界返回 ErrCoordinateOutOfBounds。
// 仅应作用于 Clone 得到的副本。
func (g Grid) Set(c Coordinate, v Cell) error {
	if !g.Contains(c) {
		return g.outOfBounds(c)
	}
	g.Rows[c.Row][c.Col] = v
	return nil
}

// Clone 深拷贝表头与全部行，副本与源之间无任何切片共享。
func (g Grid) Clone() Grid {
	out := Grid{}
	if g.Columns != nil {
		out.Columns = make([]string, len(g.Columns))
		copy(out.Columns, g.Columns)
	}
	if g.Rows != nil {
		out.Rows = make([][]Cell, len(g.Rows))
		for i, row := range g.Rows {
			if row == nil {
				continue
			}
			r := make([]Cell, len(row))
			copy(r, row)
			out.Rows[i] = r
		}
	}
	return out
}

func (g Grid) outOfBounds(c Coordinate) error {
	rows, cols := g.Shape()
	return fmt.Errorf("%w: (%d,%d) not in %dx%d grid", ErrCoordinateOutOfBounds, c.Row, c.Col, rows, cols)
}
