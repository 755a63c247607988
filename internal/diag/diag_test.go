package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expsplit/pkg/contract"
)

func TestFileSink(t *testing.T) {
	dir := t.TempDir()
	w := NewFileSink(dir, 0)
	assert.Equal(t, 10, w.MaxSize)
	line := []byte(strings.Repeat("x", 40) + "\n")
	for i := 0; i < 3; i++ {
		_, err := w.Write(line)
		require.NoError(t, err)
		if i < 2 {
			require.NoError(t, w.Rotate())
			// 轮转文件名精确到毫秒
			time.Sleep(5 * time.Millisecond)
		}
	}
	require.NoError(t, w.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var current, rotated int
	for _, e := range entries {
		if e.Name() == LogFileName {
			current++
		} else if strings.HasPrefix(e.Name(), "expsplit-") && strings.HasSuffix(e.Name(), ".log") {
			rotated++
		}
	}
	assert.Equal(t, 1, current)
	assert.Equal(t, 2, rotated)
	b, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Equal(t, string(line), string(b))
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), CodeCancel},
		{contract.ErrInvalidPartitionSize, CodeInput},
		{contract.ErrInvalidRange, CodeInput},
		{fmt.Errorf("axis 0: %w", contract.ErrUnparsableCell), CodeInput},
		{contract.ErrCoordinateOutOfBounds, CodeInput},
		{contract.ErrInvalidInput, CodeInput},
		{contract.ErrPathInvalid, CodeInvariant},
		{fmt.Errorf("axis 1: %w", contract.ErrChunkCoverage), CodeInvariant},
		{&contract.WriteError{Index: 1, Err: contract.ErrInvalidInput}, CodeIO},
		{&os.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.err), "%v", c.err)
	}
	assert.NotEmpty(t, NowUTC())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, ln := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(ln), &m), ln)
		out = append(out, m)
	}
	return out
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "corr-1", "info")
	tm := l.StartWith("partition", "split", "grid.csv", "")
	tm.Finish("split done", 4)
	start := time.Now().Add(-5 * time.Millisecond)
	l.ErrorWithKV("artifact", string(CodeIO), "write failed", &start, "grid.csv", "sub_1.csv", map[string]string{"err": "boom"})
	l.DebugStart("partition", "filtered", "", "", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "start", lines[0]["stage"])
	assert.Equal(t, "corr-1", lines[0]["corr_id"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "grid.csv", lines[0]["file_id"])
	assert.Equal(t, "finish", lines[1]["stage"])
	assert.EqualValues(t, 4, lines[1]["count"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "io", lines[2]["code"])
	assert.Equal(t, "sub_1.csv", lines[2]["batch_id"])
	assert.Equal(t, map[string]any{"err": "boom"}, lines[2]["kv"])
	_, err := time.Parse(time.RFC3339, lines[0]["ts"].(string))
	assert.NoError(t, err)
}

func TestLoggerLevelsAndFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "c", "debug")
	l.DebugStart("comp", "dbg", "f", "b", map[string]string{"k": "v"})
	l.Warn("comp", "careful", "f", nil)
	l.InfoFinish("comp", "fin", time.Now(), 2)
	assert.Len(t, decodeLines(t, &buf), 3)

	buf.Reset()
	l = NewLoggerTo(&buf, "c", "warn")
	l.Start("comp", "hidden").Finish("hidden", 0)
	l.Error("comp", "input", "shown", nil)
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])

	assert.Equal(t, "info", ParseLevel("bogus").String())
	assert.Equal(t, "error", ParseLevel(" ERROR ").String())
}

func TestLoggerNilSafe(t *testing.T) {
	var l *Logger
	tm := l.Start("c", "m")
	assert.Nil(t, tm)
	tm.Finish("x", 0)
	assert.Nil(t, tm.Since())
	l.Error("c", "code", "m", nil)
	l.InfoFinish("c", "m", time.Now(), 0)
	assert.NoError(t, l.Sync())
	assert.NotNil(t, l.Zap())
	(&Timer{}).Finish("x", 0)

	n := Nop()
	n.Start("c", "m").Finish("m", 1)
	assert.NoError(t, n.Sync())
}

func TestLoggerWithSink(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger("corr", "info", dir)
	l.Start("comp", "msg").Finish("ok", 1)
	l.Error("comp", "code", "msg", nil)
	require.NoError(t, l.Sync())
	b, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(b), "\n"))
}

func TestMetrics(t *testing.T) {
	ResetMetrics()
	t.Cleanup(ResetMetrics)
	IncOp("artifact", "write", "success")
	IncOp("artifact", "write", "success")
	IncError("artifact", "io")
	ObserveDuration("artifact", "write", 7)
	snap := Snapshot()
	assert.Equal(t, int64(2), snap["op_total{comp=artifact,stage=write,result=success}"])
	assert.Equal(t, int64(1), snap["error_total{comp=artifact,code=io}"])
	assert.Equal(t, int64(7), snap["op_duration_ms{comp=artifact,stage=write}"])
	keys := SnapshotKeys(snap)
	assert.IsIncreasing(t, keys)

	snap["x"] = 1
	_, leaked := Snapshot()["x"]
	assert.False(t, leaked)

	p := filepath.Join(t.TempDir(), "m.prom")
	require.NoError(t, WriteMetrics(p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), `error_total{code="io",comp="artifact"} 1`)

	ResetMetrics()
	assert.Empty(t, Snapshot())
}

func TestTerminalNonTTYFlow(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	require.False(t, term.isTTY)
	term.RunStart(4, 1)
	term.FileStart("data/grid.csv", 12)
	term.ArtifactDone()
	term.FileProgress(12, 12)
	term.FileFinish(true, 5100*time.Millisecond)
	term.RunFinish(true, 41300*time.Millisecond)

	out := sb.String()
	assert.NotContains(t, out, "\r")
	assert.Contains(t, out, "[run] 并发=4 | 输入=1")
	assert.Contains(t, out, "[file] grid.csv | 子实验=12")
	assert.Contains(t, out, "[done] grid.csv | 工件 12/12 | 用时 5.1s")
	assert.Contains(t, out, "[ok] 全部完成 | 输入 1/1 | 总用时 41.3s")
}

func TestTerminalTTYProgressThrottleAndClear(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.isTTY = true
	term.RunStart(2, 1)
	term.FileStart("/a/b/c/longfilename.csv", 3)

	term.ArtifactDone()
	first := sb.String()
	assert.Contains(t, first, "\r[file] longfilename.csv | 进度 1/3")
	term.ArtifactDone()
	assert.Equal(t, first, sb.String(), "throttled")
	time.Sleep(120 * time.Millisecond)
	term.ArtifactDone()
	third := sb.String()
	assert.Greater(t, len(third), len(first))

	term.FileFinish(false, 2200*time.Millisecond)
	final := sb.String()
	idx := strings.LastIndex(final, "[fail]")
	require.GreaterOrEqual(t, idx, 0)
	seg := final[:idx]
	cr := strings.LastIndex(seg, "\r")
	require.GreaterOrEqual(t, cr, 0)
	assert.Contains(t, seg[cr+1:], " ")
	assert.Contains(t, final, "[fail] longfilename.csv | 工件 3/3 | 用时 2.2s")
}

type flakyWriter struct{ fail bool }

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fail {
		w.fail = false
		return 0, fmt.Errorf("boom")
	}
	return len(p), nil
}

func TestTerminalDisableOnWriteError(t *testing.T) {
	term := NewTerminal(&flakyWriter{fail: true}, true)
	term.RunStart(1, 1)
	assert.False(t, term.enabled)
	term.FileStart("a", 0)
	term.ArtifactDone()
	term.FileFinish(true, 0)
	term.RunFinish(true, 0)

	term = NewTerminal(&flakyWriter{fail: true}, true)
	term.isTTY = true
	term.FileStart("f.csv", 2)
	term.FileProgress(1, 2)
	assert.False(t, term.enabled)
}

func TestNewTerminalEnv(t *testing.T) {
	assert.NotNil(t, NewTerminal(nil, false))
	t.Setenv("CI", "true")
	assert.False(t, NewTerminal(os.Stderr, true).isTTY)
}

func TestTerminalNilReceiverNoop(t *testing.T) {
	var tn *Terminal
	tn.RunStart(1, 1)
	tn.FileStart("a", 1)
	tn.ArtifactDone()
	tn.FileProgress(0, 0)
	tn.FileFinish(true, 0)
	tn.RunFinish(true, 0)

	SetTerminal(nil)
	assert.Nil(t, GetTerminal())
	SetTerminal(NewTerminal(os.Stderr, false))
	assert.NotNil(t, GetTerminal())
	SetTerminal(nil)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "", shortenBase("x", 0))
	s := shortenBase("/x/y/这是一个很长的文件名用于截断测试abcdefghijk.csv", 10)
	assert.LessOrEqual(t, visLen(s), 10)
	assert.True(t, strings.HasPrefix(s, "这是"))
	assert.True(t, strings.HasSuffix(s, "…"))
	assert.Equal(t, "grid.csv", shortenBase("data/grid.csv", 48))
	assert.Equal(t, 4, visLen("中文"))
	assert.Equal(t, "a b c", safe("a\nb\rc"))
	assert.Equal(t, "0ms", formatDur(0))
	assert.Equal(t, "0ms", formatDur(-time.Second))
	assert.Equal(t, "1.5s", formatDur(1500*time.Millisecond))
}
