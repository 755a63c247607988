package partition

import (
	"slices"
	"strings"

	"github.com/samber/lo"

	"expsplit/pkg/contract"
)

// BuildPlans 计算两轴 Chunk 的笛卡尔积，每对 (chunk0, chunk1) 生成一个 BatchPlan。
// 顺序：轴0 外层、轴1 内层（轴1 变化最快）；Index 按发出顺序 0..N-1。
// 取值串按 Chunk 中的原始顺序取候选项并以 delim 拼接。
// 切分失败时不返回任何部分结果。
func BuildPlans(o0, o1 contract.OptionSet, nsub0, nsub1 int, delim string) ([]contract.BatchPlan, error) {
	c0, err := Chunks(len(o0), nsub0)
	if err != nil {
		return nil, err
	}
	c1, err := Chunks(len(o1), nsub1)
	if err != nil {
		return nil, err
	}
	plans := make([]contract.BatchPlan, 0, len(c0)*len(c1))
	for _, a := range c0 {
		v0 := joinChunk(o0, a, delim)
		for _, b := range c1 {
			plans = append(plans, contract.BatchPlan{
				Index:  len(plans),
				Chunk0: slices.Clone(a),
				Chunk1: slices.Clone(b),
				Value0: v0,
				Value1: joinChunk(o1, b, delim),
			})
		}
	}
	return plans, nil
}

func joinChunk(opts contract.OptionSet, c contract.Chunk, delim string) string {
	return strings.Join(lo.Map(c, func(i int, _ int) string { return opts[i] }), delim)
}
