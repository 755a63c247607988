package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expsplit/pkg/contract"
)

func optionGrid() contract.Grid {
	return contract.Grid{
		Columns: []string{"step", "conc", "reps"},
		Rows: [][]contract.Cell{
			{"sample", " low ; medium;\thigh ", "1;2"},
			{"conjugate", "", int64(3)},
			{"wash", "a b;c", nil},
		},
	}
}

func TestParseOptions(t *testing.T) {
	g := optionGrid()
	syn := Syntax{ItemDelimiter: ";", StripWhitespace: true}

	got, err := ParseOptions(g, contract.Coordinate{Row: 0, Col: 1}, syn)
	require.NoError(t, err)
	assert.Equal(t, contract.OptionSet{"low", "medium", "high"}, got)

	// 内部空白同样被移除
	got, err = ParseOptions(g, contract.Coordinate{Row: 2, Col: 1}, syn)
	require.NoError(t, err)
	assert.Equal(t, contract.OptionSet{"ab", "c"}, got)

	// 不移除空白时原样拆分
	got, err = ParseOptions(g, contract.Coordinate{Row: 0, Col: 1}, Syntax{ItemDelimiter: ";"})
	require.NoError(t, err)
	assert.Equal(t, contract.OptionSet{" low ", " medium", "\thigh "}, got)
}

// TestParseOptionsEmptyCell 空串得到单个空候选项（split 语义的边界情况）。
func TestParseOptionsEmptyCell(t *testing.T) {
	got, err := ParseOptions(optionGrid(), contract.Coordinate{Row: 1, Col: 1}, Syntax{ItemDelimiter: ";", StripWhitespace: true})
	require.NoError(t, err)
	assert.Equal(t, contract.OptionSet{""}, got)
}

func TestParseOptionsErrors(t *testing.T) {
	g := optionGrid()
	syn := Syntax{ItemDelimiter: ";"}

	_, err := ParseOptions(g, contract.Coordinate{Row: 1, Col: 2}, syn)
	assert.ErrorIs(t, err, contract.ErrUnparsableCell)
	_, err = ParseOptions(g, contract.Coordinate{Row: 2, Col: 2}, syn)
	assert.ErrorIs(t, err, contract.ErrUnparsableCell)
	_, err = ParseOptions(g, contract.Coordinate{Row: 3, Col: 0}, syn)
	assert.ErrorIs(t, err, contract.ErrCoordinateOutOfBounds)
	_, err = ParseOptions(g, contract.Coordinate{Row: 0, Col: 1}, Syntax{})
	assert.ErrorIs(t, err, contract.ErrInvalidInput)
}
