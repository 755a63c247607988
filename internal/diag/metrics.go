package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// 进程内指标（prometheus 计数器，独立 Registry），名称约定：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}（累计毫秒）

var (
	opTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "op_total", Help: "operations by component, stage and result",
	}, []string{"comp", "stage", "result"})
	errorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "error_total", Help: "errors by component and classified code",
	}, []string{"comp", "code"})
	opDuration = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "op_duration_ms", Help: "accumulated stage duration in milliseconds",
	}, []string{"comp", "stage"})

	registry = prometheus.NewRegistry()
	// 标签输出顺序与定义一致（Gather 按名字排序）
	labelOrder = map[string][]string{
		"op_total":       {"comp", "stage", "result"},
		"error_total":    {"comp", "code"},
		"op_duration_ms": {"comp", "stage"},
	}
)

func init() {
	registry.MustRegister(opTotal, errorTotal, opDuration)
}

// WriteMetrics 以 Prometheus 文本格式原子写出全部计数器（textfile collector 可直接采集）。
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 累加阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	if durMS < 0 {
		return
	}
	opDuration.WithLabelValues(comp, stage).Add(float64(durMS))
}

// Snapshot 返回当前全部计数器的拷贝，键形如 op_total{comp=x,stage=y,result=z}。
func Snapshot() map[string]int64 {
	out := map[string]int64{}
	mfs, err := registry.Gather()
	if err != nil {
		return out
	}
	for _, mf := range mfs {
		name := mf.GetName()
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			parts := make([]string, 0, len(labels))
			for _, k := range labelOrder[name] {
				parts = append(parts, fmt.Sprintf("%s=%s", k, labels[k]))
			}
			out[name+"{"+strings.Join(parts, ",")+"}"] = int64(m.GetCounter().GetValue())
		}
	}
	return out
}

// SnapshotKeys 返回排序后的计数器名（用于稳定输出）。
func SnapshotKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ResetMetrics 清空全部计数器。
func ResetMetrics() {
	opTotal.Reset()
	errorTotal.Reset()
	opDuration.Reset()
}
