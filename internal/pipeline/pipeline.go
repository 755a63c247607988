package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"expsplit/internal/artifact"
	"expsplit/internal/diag"
	"expsplit/pkg/contract"
	"expsplit/pkg/partition"
)

// - 输入逐文件读取并完整解码为 Grid，划分本身为同步纯计算；
// - 并发仅出现在工件写出阶段（artifact.Writer，受 Concurrency 约束）；
// - 首错即停：任一输入失败立即返回，已写出的工件保留。

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader  contract.Reader
	Decoder contract.GridDecoder
	Encoder contract.Encoder
	Writer  contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// 输入根（输出根由 Writer 的 options 决定）
	Inputs      []string
	Concurrency int
	// Prefix: 工件文件名前缀。
	Prefix  string
	Request partition.Request
}

// Input 为一个已解码的输入网格及其工件子目录。
type Input struct {
	FileID contract.FileID
	// Dir: 工件相对输出根的子目录；仅一个输入时为空（直接写入根）。
	Dir  string
	Grid contract.Grid
}

// FileResult 为单个输入的写出结果。
type FileResult struct {
	FileID    contract.FileID
	Dir       string
	Artifacts []contract.Artifact
}

// FilePlan 为单个输入的划分预览（不写出）。
type FilePlan struct {
	FileID contract.FileID
	Dir    string
	Layout partition.Layout
}

// Run 执行完整流水线：Reader → Decoder → Split → Encoder → Writer。
// 返回已完成输入的结果；失败时结果包含失败输入已写出的部分。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) ([]FileResult, error) {
	if err := sanity(comp, set, true); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	inputs, err := Load(ctx, comp, set, logger)
	if err != nil {
		return nil, err
	}
	aw, err := artifact.New(comp.Encoder, comp.Writer, &artifact.Options{Concurrency: set.Concurrency})
	if err != nil {
		return nil, err
	}
	term := diag.GetTerminal()
	aw.OnWritten = func(a contract.Artifact) {
		term.ArtifactDone()
		if logger != nil {
			logger.DebugStart("artifact", "written", "", string(a.ID), map[string]string{"location": a.Location})
		}
	}

	results := make([]FileResult, 0, len(inputs))
	for _, in := range inputs {
		res, err := runOne(ctx, aw, in, set, logger, term)
		if res.FileID != "" {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func runOne(ctx context.Context, aw *artifact.Writer, in Input, set Settings, logger *diag.Logger, term *diag.Terminal) (FileResult, error) {
	fid := string(in.FileID)
	ptimer := logger.StartWith("partition", "split", fid, "")
	subs, err := partition.Split(in.Grid, set.Request)
	if err != nil {
		report(logger, "partition", "split failed", fid, "", err)
		return FileResult{}, fmt.Errorf("%s: %w", fid, err)
	}
	ptimer.Finish("split", int64(len(subs)))
	diag.IncOp("partition", "finish", "success")

	term.FileStart(fid, len(subs))
	fileStart := time.Now()
	wtimer := logger.StartWithKV("artifact", "write", fid, "", map[string]string{
		"dir":   in.Dir,
		"count": strconv.Itoa(len(subs)),
	})
	arts, err := aw.WriteAll(ctx, subs, in.Dir, set.Prefix)
	term.FileFinish(err == nil, time.Since(fileStart))
	res := FileResult{FileID: in.FileID, Dir: in.Dir, Artifacts: arts}
	if err != nil {
		batch := ""
		var werr *contract.WriteError
		if errors.As(err, &werr) {
			batch = string(werr.ID)
		}
		report(logger, "artifact", "write failed", fid, batch, err)
		return res, fmt.Errorf("%s: %w", fid, err)
	}
	wtimer.Finish("write", int64(len(arts)))
	diag.IncOp("artifact", "finish", "success")
	diag.ObserveDuration("artifact", "write", time.Since(fileStart).Milliseconds())
	return res, nil
}

// Plan 读取并解码全部输入，仅计算划分预览，不实例化、不写出。
func Plan(ctx context.Context, comp Components, set Settings, logger *diag.Logger) ([]FilePlan, error) {
	if err := sanity(comp, set, false); err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	inputs, err := Load(ctx, comp, set, logger)
	if err != nil {
		return nil, err
	}
	out := make([]FilePlan, 0, len(inputs))
	for _, in := range inputs {
		lay, err := partition.Plan(in.Grid, set.Request)
		if err != nil {
			report(logger, "partition", "plan failed", string(in.FileID), "", err)
			return out, fmt.Errorf("%s: %w", in.FileID, err)
		}
		out = append(out, FilePlan{FileID: in.FileID, Dir: in.Dir, Layout: lay})
	}
	return out, nil
}

// Load 遍历全部输入并解码为 Grid，按读取顺序返回；多输入时为每个输入分配子目录。
func Load(ctx context.Context, comp Components, set Settings, logger *diag.Logger) ([]Input, error) {
	var inputs []Input
	rtimer := logger.Start("reader", "iterate")
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		dtimer := logger.StartWith("decoder", "decode", string(fid), "")
		g, err := comp.Decoder.Decode(ctx, fid, rc)
		if err != nil {
			report(logger, "decoder", "decode failed", string(fid), "", err)
			return fmt.Errorf("decode %s: %w", fid, err)
		}
		rows, cols := g.Shape()
		dtimer.Finish("decode", int64(rows))
		logger.DebugStart("decoder", "shape", string(fid), "", map[string]string{
			"rows": strconv.Itoa(rows),
			"cols": strconv.Itoa(cols),
		})
		diag.IncOp("decoder", "finish", "success")
		inputs = append(inputs, Input{FileID: fid, Grid: g})
		return nil
	})
	if err != nil {
		report(logger, "reader", "iterate failed", "", "", err)
		return nil, fmt.Errorf("reader iterate: %w", err)
	}
	rtimer.Finish("iterate", int64(len(inputs)))
	diag.IncOp("reader", "finish", "success")
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no input grids found in %v", contract.ErrInvalidInput, set.Inputs)
	}
	assignDirs(inputs)
	return inputs, nil
}

// assignDirs: 多输入时以输入基名（去扩展名）作为子目录；
// 重名时追加 -<序号>，直到与任何已分配的目录（含带序号者）都不冲突。
func assignDirs(inputs []Input) {
	if len(inputs) < 2 {
		return
	}
	used := make(map[string]bool, len(inputs))
	for i := range inputs {
		stem := inputs[i].FileID.Stem()
		cand := stem
		for n := 1; used[cand]; {
			n++
			cand = fmt.Sprintf("%s-%d", stem, n)
		}
		used[cand] = true
		inputs[i].Dir = cand
	}
}

// report 记录错误事件并累加错误指标。
func report(logger *diag.Logger, comp, msg, fileID, batch string, err error) {
	code := diag.Classify(err)
	logger.ErrorWithKV(comp, string(code), msg, nil, fileID, batch, map[string]string{"err": err.Error()})
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}

func sanity(c Components, s Settings, write bool) error {
	if c.Reader == nil || c.Decoder == nil {
		return errors.New("pipeline: missing components")
	}
	if write && (c.Encoder == nil || c.Writer == nil) {
		return errors.New("pipeline: missing components")
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
