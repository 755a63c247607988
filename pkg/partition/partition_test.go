package partition

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expsplit/pkg/contract"
)

// plateGrid: 4×4 网格，(1,2) 为三档浓度，(2,3) 为两档重复数。
func plateGrid() contract.Grid {
	return contract.Grid{
		Columns: []string{"c0", "c1", "c2", "c3"},
		Rows: [][]contract.Cell{
			{"r0c0", "r0c1", "r0c2", "r0c3"},
			{"r1c0", int64(7), "low;medium;high", 1.5},
			{"r2c0", true, nil, "10;20"},
			{"r3c0", "r3c1", "r3c2", "r3c3"},
		},
	}
}

func plateRequest() Request {
	return Request{
		Coord0: contract.Coordinate{Row: 1, Col: 2},
		Coord1: contract.Coordinate{Row: 2, Col: 3},
		Nsub0:  2,
		Nsub1:  2,
		Syntax: Syntax{ItemDelimiter: ";", StripWhitespace: true},
	}
}

func TestSplitTwoAxes(t *testing.T) {
	src := plateGrid()
	subs, err := Split(src, plateRequest())
	require.NoError(t, err)
	require.Len(t, subs, 2)

	assert.Equal(t, "low;medium", subs[0].Grid.Rows[1][2])
	assert.Equal(t, "10;20", subs[0].Grid.Rows[2][3])
	assert.Equal(t, "high", subs[1].Grid.Rows[1][2])
	assert.Equal(t, "10;20", subs[1].Grid.Rows[2][3])

	// 其余 14 个单元与源一致
	for i, s := range subs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, i, s.Plan.Index)
		rows, cols := s.Grid.Shape()
		require.Equal(t, 4, rows)
		require.Equal(t, 4, cols)
		same := 0
		for r := 0; r < rows; r++ {
			for c := 0; c < cols; c++ {
				if (r == 1 && c == 2) || (r == 2 && c == 3) {
					continue
				}
				assert.Equal(t, src.Rows[r][c], s.Grid.Rows[r][c])
				same++
			}
		}
		assert.Equal(t, 14, same)
	}
	assert.Equal(t, "low;medium;high", src.Rows[1][2])
}

// TestSplitIdempotent 相同输入两次运行结果一致。
func TestSplitIdempotent(t *testing.T) {
	a, err := Split(plateGrid(), plateRequest())
	require.NoError(t, err)
	b, err := Split(plateGrid(), plateRequest())
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("split not deterministic (-a +b):\n%s", diff)
	}
}

// TestSplitNoAliasing 修改任一子实验不影响源与其他子实验。
func TestSplitNoAliasing(t *testing.T) {
	src := plateGrid()
	before := src.Clone()
	subs, err := Split(src, plateRequest())
	require.NoError(t, err)

	subs[0].Grid.Rows[0][0] = "mutated"
	subs[0].Grid.Columns[0] = "mutated"
	assert.Equal(t, "r0c0", subs[1].Grid.Rows[0][0])
	assert.Equal(t, "c0", subs[1].Grid.Columns[0])
	if diff := cmp.Diff(before, src); diff != "" {
		t.Fatalf("source mutated (-want +got):\n%s", diff)
	}
}

func TestPlanLayout(t *testing.T) {
	lay, err := Plan(plateGrid(), plateRequest())
	require.NoError(t, err)
	assert.Equal(t, contract.OptionSet{"low", "medium", "high"}, lay.Options0)
	assert.Equal(t, contract.OptionSet{"10", "20"}, lay.Options1)
	assert.Len(t, lay.Plans, 2)
}

func TestSplitErrors(t *testing.T) {
	req := plateRequest()
	req.Coord0 = contract.Coordinate{Row: 1, Col: 1}
	_, err := Split(plateGrid(), req)
	assert.ErrorIs(t, err, contract.ErrUnparsableCell)

	req = plateRequest()
	req.Coord1 = contract.Coordinate{Row: 4, Col: 0}
	_, err = Split(plateGrid(), req)
	assert.ErrorIs(t, err, contract.ErrCoordinateOutOfBounds)

	req = plateRequest()
	req.Nsub1 = 0
	subs, err := Split(plateGrid(), req)
	assert.ErrorIs(t, err, contract.ErrInvalidPartitionSize)
	assert.Nil(t, subs)
}
