package filesystem

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expsplit/pkg/contract"
)

func collect(t *testing.T, r *FileSystem, roots ...string) ([]string, error) {
	t.Helper()
	var ids []string
	err := r.Iterate(context.Background(), roots, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		ids = append(ids, string(id))
		return nil
	})
	return ids, err
}

func write(t *testing.T, p, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
}

// TestIterateSingleFile 单文件 root 不受扩展名过滤
func TestIterateSingleFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "design.txt")
	write(t, fp, "a,b\n1,2\n")
	var got string
	err := New(nil).Iterate(context.Background(), []string{fp}, func(id contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		b, err := io.ReadAll(rc)
		got = string(b)
		assert.Equal(t, contract.NormalizeFileID(fp), id)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", got)
}

// TestWalkDirOrderAndFilter 目录按字典序、先子目录后文件，且仅接受指定扩展名
func TestWalkDirOrderAndFilter(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "b.csv"), "x")
	write(t, filepath.Join(dir, "a.CSV"), "x")
	write(t, filepath.Join(dir, "notes.md"), "x")
	write(t, filepath.Join(dir, "z", "c.csv"), "x")
	write(t, filepath.Join(dir, "skip", "d.csv"), "x")

	ids, err := collect(t, New(&Options{ExcludeDirNames: []string{"SKIP"}}), dir)
	require.NoError(t, err)
	var names []string
	for _, id := range ids {
		names = append(names, filepath.Base(id))
	}
	assert.Equal(t, []string{"c.csv", "a.CSV", "b.csv"}, names)

	ids, err = collect(t, New(&Options{Extensions: []string{"md"}}), dir)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "notes.md", filepath.Base(ids[0]))
}

// TestIterateDashMix 混用 '-' 返回错误
func TestIterateDashMix(t *testing.T) {
	_, err := collect(t, New(nil), "-", "a.csv")
	assert.Error(t, err)
}

func TestIterateMissing(t *testing.T) {
	_, err := collect(t, New(nil), filepath.Join(t.TempDir(), "none.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestYieldErrorStops yield 出错时立即停止遍历
func TestYieldErrorStops(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.csv"), "x")
	write(t, filepath.Join(dir, "b.csv"), "x")
	boom := errors.New("boom")
	n := 0
	err := New(nil).Iterate(context.Background(), []string{dir}, func(contract.FileID, io.ReadCloser) error {
		n++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestIterateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(nil).Iterate(ctx, []string{t.TempDir()}, func(contract.FileID, io.ReadCloser) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
