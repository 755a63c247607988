package partition

import (
	"fmt"

	"expsplit/pkg/contract"
)

// Request 为一次划分调用的全部参数。
type Request struct {
	Coord0 contract.Coordinate
	Coord1 contract.Coordinate
	// Nsub0/Nsub1: 每批在轴0/轴1 上的最大候选项数（>= 1）。
	Nsub0 int
	Nsub1 int
	Syntax
}

// Layout 为划分的中间结果（不含网格副本），用于预览。
type Layout struct {
	Options0 contract.OptionSet
	Options1 contract.OptionSet
	Plans    []contract.BatchPlan
}

// Plan 解析两个指定单元并生成全部 BatchPlan，不实例化网格。
func Plan(g contract.Grid, req Request) (Layout, error) {
	o0, err := ParseOptions(g, req.Coord0, req.Syntax)
	if err != nil {
		return Layout{}, fmt.Errorf("axis 0: %w", err)
	}
	o1, err := ParseOptions(g, req.Coord1, req.Syntax)
	if err != nil {
		return Layout{}, fmt.Errorf("axis 1: %w", err)
	}
	plans, err := BuildPlans(o0, o1, req.Nsub0, req.Nsub1, req.ItemDelimiter)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Options0: o0, Options1: o1, Plans: plans}, nil
}

// Split 执行完整划分：Parse → Chunk → Plan → Instantiate × N。
// 返回的子实验按 BatchPlan.Index 排序，彼此之间及与 g 之间均无共享。
func Split(g contract.Grid, req Request) ([]contract.SubExperiment, error) {
	lay, err := Plan(g, req)
	if err != nil {
		return nil, err
	}
	subs := make([]contract.SubExperiment, 0, len(lay.Plans))
	for _, p := range lay.Plans {
		sg, err := Instantiate(g, req.Coord0, req.Coord1, p)
		if err != nil {
			return nil, fmt.Errorf("instantiate batch %d: %w", p.Index, err)
		}
		subs = append(subs, contract.SubExperiment{Index: p.Index, Plan: p, Grid: sg})
	}
	return subs, nil
}
