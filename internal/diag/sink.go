package diag

import (
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogFileName 为日志目录下的当前日志文件名；轮转后为 expsplit-<时间戳>.log。
const LogFileName = "expsplit.log"

// NewFileSink 返回按大小轮转的日志文件（实现 io.WriteCloser）。
// maxMB<=0 时默认 10MiB；保留最近 5 个轮转文件。
func NewFileSink(dir string, maxMB int) *lumberjack.Logger {
	if maxMB <= 0 {
		maxMB = 10
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, LogFileName),
		MaxSize:    maxMB,
		MaxBackups: 5,
	}
}
