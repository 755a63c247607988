package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"expsplit/pkg/contract"
)

// 工件写出：
// - 命名：{prefix}{index:0{width}d}.{ext}，width 为 count-1 的十进制位数，保证字典序即生成序；
// - 序号由子实验在列表中的位置决定，与写出完成顺序无关；
// - 首错即停：返回 *contract.WriteError（含已成功写出数量），不回滚已写出的工件。

// Options 为工件写出的可选配置。
type Options struct {
	// Concurrency: 并行写出的上限。<=1 时顺序写出。
	Concurrency int `json:"concurrency"`
}

// Writer 组合 Encoder 与底层 contract.Writer，负责编号、命名与写出。
type Writer struct {
	enc         contract.Encoder
	w           contract.Writer
	concurrency int

	// OnWritten: 可选回调，每个工件写出成功后调用；并行写出时可能被并发调用。
	OnWritten func(contract.Artifact)
}

// New 创建工件 Writer。
func New(enc contract.Encoder, w contract.Writer, opts *Options) (*Writer, error) {
	if enc == nil || w == nil {
		return nil, fmt.Errorf("%w: artifact writer needs encoder and writer", contract.ErrInvalidInput)
	}
	n := 1
	if opts != nil && opts.Concurrency > 1 {
		n = opts.Concurrency
	}
	return &Writer{enc: enc, w: w, concurrency: n}, nil
}

// Width 返回 count-1 的十进制位数（count<=1 时为 1）。
func Width(count int) int {
	if count <= 1 {
		return 1
	}
	return len(strconv.Itoa(count - 1))
}

// Name 生成单个工件文件名。
func Name(prefix string, index, width int, ext string) string {
	return fmt.Sprintf("%s%0*d.%s", prefix, width, index, ext)
}

// IDs 返回全部工件标识（dir 为相对输出根的子目录，空表示根）。
func IDs(count int, dir, prefix, ext string) []contract.ArtifactID {
	width := Width(count)
	out := make([]contract.ArtifactID, count)
	for i := range out {
		name := Name(prefix, i, width, ext)
		if dir != "" && dir != "." {
			name = path.Join(dir, name)
		}
		out[i] = contract.ArtifactID(name)
	}
	return out
}

// WriteAll 确保输出位置存在，然后按序号写出全部子实验。
// 成功时返回与 subs 等长、按序号排列的工件列表；
// 失败时返回已成功写出的工件（按序号排列）与首个错误。
func (a *Writer) WriteAll(ctx context.Context, subs []contract.SubExperiment, dir, prefix string) ([]contract.Artifact, error) {
	if p, ok := a.w.(contract.LocationPreparer); ok {
		if _, err := p.Prepare(ctx, contract.ArtifactID(dir)); err != nil {
			return nil, &contract.WriteError{Index: -1, ID: contract.ArtifactID(dir), Err: err}
		}
	}
	ids := IDs(len(subs), dir, prefix, a.enc.Ext())
	if a.concurrency <= 1 || len(subs) <= 1 {
		return a.writeSeq(ctx, subs, ids)
	}
	return a.writePar(ctx, subs, ids)
}

func (a *Writer) writeSeq(ctx context.Context, subs []contract.SubExperiment, ids []contract.ArtifactID) ([]contract.Artifact, error) {
	out := make([]contract.Artifact, 0, len(subs))
	for i := range subs {
		art, err := a.writeOne(ctx, i, ids[i], subs[i].Grid)
		if err != nil {
			err.Written = len(out)
			return out, err
		}
		out = append(out, art)
	}
	return out, nil
}

func (a *Writer) writePar(ctx context.Context, subs []contract.SubExperiment, ids []contract.ArtifactID) ([]contract.Artifact, error) {
	slots := make([]contract.Artifact, len(subs))
	done := make([]bool, len(subs))
	var written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i := range subs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			art, werr := a.writeOne(gctx, i, ids[i], subs[i].Grid)
			if werr != nil {
				return werr
			}
			// 各 goroutine 仅写自己的槽位，Wait 之后统一读取。
			slots[i] = art
			done[i] = true
			written.Add(1)
			return nil
		})
	}
	err := g.Wait()

	out := make([]contract.Artifact, 0, len(subs))
	for i, ok := range done {
		if ok {
			out = append(out, slots[i])
		}
	}
	if err != nil {
		var werr *contract.WriteError
		if errors.As(err, &werr) {
			werr.Written = int(written.Load())
		}
		return out, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return out, cerr
	}
	return out, nil
}

func (a *Writer) writeOne(ctx context.Context, index int, id contract.ArtifactID, g contract.Grid) (contract.Artifact, *contract.WriteError) {
	r, err := a.enc.Encode(ctx, g)
	if err != nil {
		return contract.Artifact{}, &contract.WriteError{Index: index, ID: id, Err: fmt.Errorf("encode: %w", err)}
	}
	loc, err := a.w.Write(ctx, id, r)
	if err != nil {
		return contract.Artifact{}, &contract.WriteError{Index: index, ID: id, Err: err}
	}
	art := contract.Artifact{Index: index, ID: id, Location: loc}
	if a.OnWritten != nil {
		a.OnWritten(art)
	}
	return art, nil
}
