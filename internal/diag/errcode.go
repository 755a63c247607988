package diag

import (
	"context"
	"errors"
	"os"
	"time"

	"expsplit/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeInput     Code = "input"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 说明：仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	// 取消/超时优先
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	// 写出失败整体归为 I/O（即使底层为编码错误）
	if errors.Is(err, contract.ErrWriteFailure) {
		return CodeIO
	}
	// 调用方输入问题
	if errors.Is(err, contract.ErrInvalidPartitionSize) ||
		errors.Is(err, contract.ErrInvalidRange) ||
		errors.Is(err, contract.ErrUnparsableCell) ||
		errors.Is(err, contract.ErrCoordinateOutOfBounds) ||
		errors.Is(err, contract.ErrInvalidInput) {
		return CodeInput
	}
	if errors.Is(err, contract.ErrPathInvalid) || errors.Is(err, contract.ErrChunkCoverage) {
		return CodeInvariant
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
