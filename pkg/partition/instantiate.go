package partition

import (
	"expsplit/pkg/contract"
)

// Instantiate 深拷贝 src，并将 c0、c1 处单元分别替换为 p.Value0、p.Value1。
// src 不被修改；其余单元与源逐字节一致。c0 == c1 时以 Value1 为准。
func Instantiate(src contract.Grid, c0, c1 contract.Coordinate, p contract.BatchPlan) (contract.Grid, error) {
	out := src.Clone()
	if err := out.Set(c0, p.Value0); err != nil {
		return contract.Grid{}, err
	}
	if err := out.Set(c1, p.Value1); err != nil {
		return contract.Grid{}, err
	}
	return out, nil
}
