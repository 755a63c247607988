package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"expsplit/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出根目录（必需）。
	OutputDir string `json:"output_dir"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `json:"atomic,omitempty"`
	// Flat: 是否扁平化输出（仅保留文件名，不保留目录层级）。
	// 默认 false：多输入运行时每个输入占用一个子目录。
	// 扁平化后若两个不同工件落到同一文件，第二次写入返回 ErrPathInvalid。
	Flat *bool `json:"flat,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现/平台默认。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty"`
	// RenameAttempts: 原子写最后一步 rename 的尝试次数；<=0 使用默认 3。
	// 目标被其他进程短暂占用（常见于 Windows 杀毒/索引）时重试。
	RenameAttempts int `json:"rename_attempts,omitempty"`
}

type FS struct {
	root    string
	atomic  bool
	flat    bool
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
	renames uint
	replace func(tmpPath, dest string) error

	// claimed: 目标路径 -> 首个写入它的工件标识（本实例生命周期内）。
	mu      sync.Mutex
	claimed map[string]contract.ArtifactID
}

// New 创建文件系统 Writer 实现。
func New(opts *Options) (*FS, error) {
	if opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, os.ErrInvalid
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 32 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	flat := false
	if opts.Flat != nil {
		flat = *opts.Flat
	}
	atomic := true
	if opts.Atomic != nil {
		atomic = *opts.Atomic
	}
	renames := uint(3)
	if opts.RenameAttempts > 0 {
		renames = uint(opts.RenameAttempts)
	}
	return &FS{
		root: opts.OutputDir, atomic: atomic, flat: flat,
		permF: pf, permD: pd, bufSize: bsz,
		renames: renames, replace: osReplace,
		claimed: map[string]contract.ArtifactID{},
	}, nil
}

var (
	_ contract.Writer           = (*FS)(nil)
	_ contract.LocationPreparer = (*FS)(nil)
)

// Root 返回输出根目录。
func (w *FS) Root() string { return w.root }

// Prepare 创建 dir（相对输出根；空串或 "." 表示根本身），已存在时不报错。
func (w *FS) Prepare(ctx context.Context, dir contract.ArtifactID) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	dest := w.root
	if d := strings.TrimSpace(string(dir)); d != "" && d != "." && !w.flat {
		p, err := w.mapPath(dir)
		if err != nil {
			return "", err
		}
		dest = p
	}
	if err := os.MkdirAll(dest, w.permD); err != nil {
		return "", err
	}
	return dest, nil
}

// Write 将 r 的全部字节写入到基于 id 映射的目标路径，返回该路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	dest, err := w.mapPath(id)
	if err != nil {
		return "", err
	}
	if err := w.claim(dest, id); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return "", err
	}

	if w.atomic {
		err = w.writeAtomic(ctx, dest, r)
	} else {
		err = w.writeOverwrite(ctx, dest, r)
	}
	if err != nil {
		return "", err
	}
	return dest, nil
}

// claim 登记 dest 的写入者。不同工件映射到同一目标（扁平化后同名）时返回 ErrPathInvalid；
// 同一工件重复写入视为覆盖，允许。
func (w *FS) claim(dest string, id contract.ArtifactID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.claimed[dest]; ok && prev != id {
		return fmt.Errorf("%w: %q and %q both map to %s", contract.ErrPathInvalid, prev, id, dest)
	}
	w.claimed[dest] = id
	return nil
}

// mapPath: Clean + Join + 越界校验。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(string(id)))
	// Flat 优先：若扁平化，则仅保留文件名并在此后校验名称合法
	if w.flat {
		rel = filepath.Base(rel)
		if rel == "." || rel == ".." || rel == "" || rel == string(filepath.Separator) {
			return "", contract.ErrPathInvalid
		}
		return filepath.Join(w.root, rel), nil
	}
	// 非扁平：禁止绝对路径、父级逃逸、Windows 卷名
	if rel == "." || rel == "" {
		return "", contract.ErrPathInvalid
	}
	if filepath.IsAbs(rel) || strings.HasPrefix(rel, string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", contract.ErrPathInvalid
	}
	if vol := filepath.VolumeName(rel); vol != "" {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, r io.Reader) error {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	// 目标权限：尽量与期望一致
	_ = os.Chmod(tmpPath, w.permF)

	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err := io.Copy(bw, readerWithCtx(ctx, r)); err != nil {
		_ = bw.Flush()
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := w.rename(ctx, tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	// 最佳努力：在部分平台同步父目录，提升崩溃安全性
	_ = syncDir(dir)
	return nil
}

// rename: 带有限重试的替换；ctx 取消或临时文件消失时立即停止。
func (w *FS) rename(ctx context.Context, tmpPath, dest string) error {
	return retry.Do(
		func() error { return w.replace(tmpPath, dest) },
		retry.Context(ctx),
		retry.Attempts(w.renames),
		retry.Delay(20*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, os.ErrNotExist) && !errors.Is(err, os.ErrInvalid)
		}),
	)
}

// readerWithCtx: 在每次 Read 前检查 ctx 是否已取消。
func readerWithCtx(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *ctxReader) Read(p []byte) (int, error) {
	select {
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	default:
	}
	return cr.r.Read(p)
}
