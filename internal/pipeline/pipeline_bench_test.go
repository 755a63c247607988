package pipeline

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"testing"

	"expsplit/pkg/contract"
	"expsplit/pkg/partition"
	csvcodec "expsplit/plugins/codec/csv"
)

// discardWriter 丢弃所有输出，避免磁盘开销。
type discardWriter struct{}

func (discardWriter) Write(_ context.Context, id contract.ArtifactID, r io.Reader) (string, error) {
	_, err := io.Copy(io.Discard, r)
	return string(id), err
}

// benchGrid 生成两轴各含 n 个候选项、共 rows 行的网格。
func benchGrid(n, rows int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("v%d", i)
	}
	var b strings.Builder
	b.WriteString("name,levels,note\n")
	fmt.Fprintf(&b, "a,\"%s\",x\n", strings.Join(items, ";"))
	fmt.Fprintf(&b, "b,\"%s\",y\n", strings.Join(items, ";"))
	for i := 2; i < rows; i++ {
		fmt.Fprintf(&b, "r%d,%d,z\n", i, i)
	}
	return b.String()
}

// BenchmarkPipeline 测试完整流水线的性能。
func BenchmarkPipeline(b *testing.B) {
	body := benchGrid(64, 100)
	for _, c := range []int{1, runtime.NumCPU()} {
		b.Run(fmt.Sprintf("C=%d", c), func(b *testing.B) {
			codec, err := csvcodec.New(nil)
			if err != nil {
				b.Fatal(err)
			}
			comp := Components{
				Reader:  stubReader{files: []memFile{{id: "bench.csv", body: body}}},
				Decoder: codec,
				Encoder: codec,
				Writer:  discardWriter{},
			}
			set := Settings{
				Inputs:      []string{"bench.csv"},
				Concurrency: c,
				Prefix:      "sub_",
				Request: partition.Request{
					Coord0: contract.Coordinate{Row: 0, Col: 1},
					Coord1: contract.Coordinate{Row: 1, Col: 1},
					Nsub0:  8,
					Nsub1:  8,
					Syntax: partition.Syntax{ItemDelimiter: ";", StripWhitespace: true},
				},
			}
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := Run(context.Background(), comp, set, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
