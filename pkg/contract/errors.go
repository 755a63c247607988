package contract

import (
	"errors"
	"fmt"
)

// 划分引擎的最小错误分类。各阶段在发现问题时立即返回，调用方以 errors.Is 判定。
var (
	// ErrInvalidPartitionSize: 每批上限 nsub <= 0。
	ErrInvalidPartitionSize = errors.New("invalid partition size")
	// ErrInvalidRange: 待切分的数量为负。
	ErrInvalidRange = errors.New("invalid range")
	// ErrUnparsableCell: 指定单元不是字符串，无法拆分为候选项。
	ErrUnparsableCell = errors.New("unparsable cell")
	// ErrCoordinateOutOfBounds: 坐标超出网格范围。
	ErrCoordinateOutOfBounds = errors.New("coordinate out of bounds")
	// ErrWriteFailure: 工件序列化或写入失败。
	ErrWriteFailure = errors.New("write failure")
	// ErrInvalidInput: 输入格式不合法（坐标文本、分隔符等）。
	ErrInvalidInput = errors.New("invalid input")
	// ErrPathInvalid: 工件标识映射为无效/越界路径（例如绝对路径或 '..' 逃逸）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrChunkCoverage: 区段未能连续、无重叠地覆盖 [0, n)。属内部不变量被破坏。
	ErrChunkCoverage = errors.New("chunk coverage broken")
)

// WriteError 描述工件写出阶段的首个失败。
// 失败前已写出的工件不回滚；Written 为成功写出的数量。
// Index < 0 表示在写出任何工件前准备输出位置失败。
type WriteError struct {
	Index   int
	ID      ArtifactID
	Written int
	Err     error
}

func (e *WriteError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("prepare output %q: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("write artifact %d (%s): %v (%d written)", e.Index, e.ID, e.Err, e.Written)
}

// Unwrap 同时暴露 ErrWriteFailure 与底层原因，便于 errors.Is/As 判定。
func (e *WriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrWriteFailure}
	}
	return []error{ErrWriteFailure, e.Err}
}
