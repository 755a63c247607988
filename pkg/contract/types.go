package contract

// FileID: 逻辑输入ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Cell: 网格单元的标量值。
// 允许的动态类型：string、int64、float64、bool、nil（空单元）。
// 仅 string 可被解析为候选项列表。
type Cell any

// Grid: 实验设计配置表（二维）。
// 约束：
//   - Columns 为表头标签，不计入行坐标；
//   - Rows 为数据行，按 (row, col) 寻址，均为 0 起；
//   - 引擎从不修改调用方的 Grid，所有变换均基于 Clone 的副本。
type Grid struct {
	Columns []string
	Rows    [][]Cell
}

// OptionSet: 指定单元拆分得到的有序候选项。顺序决定与 Chunk 的索引对应关系。
type OptionSet []string

// Chunk: OptionSet 的连续升序索引切片，长度 <= 该轴上限（最后一个可更短）。
type Chunk []int

// BatchPlan: 一次子实验的划分单元（每轴一个 Chunk）及其拼接后的取值串。
type BatchPlan struct {
	// Index: 在嵌套迭代（轴0 外层、轴1 内层）中的序号，0..N-1。
	Index  int
	Chunk0 Chunk
	Chunk1 Chunk
	// Value0/Value1: 以条目分隔符拼接的候选项串，写回对应坐标。
	Value0 string
	Value1 string
}

// SubExperiment: 由 BatchPlan 实例化得到的完整配置表。
type SubExperiment struct {
	Index int
	Plan  BatchPlan
	Grid  Grid
}

// Artifact: 已持久化的子实验（序号 + 工件标识 + 实际写入位置）。
type Artifact struct {
	Index    int
	ID       ArtifactID
	Location string
}
