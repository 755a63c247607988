package contract

import (
	"context"
	"io"
)

// GridDecoder: 将单个输入字节流解码为 Grid。
// 约束：
//  1. 首行为表头（列标签），其余为数据行；
//  2. 结果为矩形（每行宽度等于表头宽度）；
//  3. 纯解码，不做业务校验。
type GridDecoder interface {
	Decode(ctx context.Context, fileID FileID, r io.Reader) (Grid, error)
}

// Encoder: 将 Grid 序列化为工件字节流。
// 约束：表头原样输出；同一 Grid 多次编码结果逐字节一致。
type Encoder interface {
	Encode(ctx context.Context, g Grid) (io.Reader, error)
	// Ext: 工件扩展名（不含点），例如 "csv"。
	Ext() string
}
