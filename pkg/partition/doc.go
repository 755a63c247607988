// Package partition 将实验设计网格按两条候选项轴切分为若干子实验。
//
// 流程为直线型：ParseOptions → Chunks → BuildPlans → Instantiate × N，
// 各阶段纯计算、无 I/O、无内部并发；调用方的 Grid 从不被修改。
// 批次顺序固定为轴0 外层、轴1 内层，下游工件编号依赖该顺序。
package partition
