package partition

import (
	"fmt"

	"github.com/samber/lo"

	"expsplit/pkg/contract"
)

// Chunks 将 [0, n) 切分为有序的连续区段，每段长度为 nsub，最后一段承载余数。
// n == 0 时返回空列表；段数恒为 ceil(n/nsub)。
func Chunks(n, nsub int) ([]contract.Chunk, error) {
	if nsub <= 0 {
		return nil, fmt.Errorf("%w: nsub=%d", contract.ErrInvalidPartitionSize, nsub)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: n=%d", contract.ErrInvalidRange, n)
	}
	if n == 0 {
		return nil, nil
	}
	parts := lo.Chunk(lo.Range(n), nsub)
	out := make([]contract.Chunk, len(parts))
	for i, p := range parts {
		out[i] = contract.Chunk(p)
	}
	if err := contract.ValidateChunks(out, n, nsub); err != nil {
		return nil, err
	}
	return out, nil
}

// ChunkCount 返回 ceil(n/nsub)，参数非法时返回 0。
func ChunkCount(n, nsub int) int {
	if n <= 0 || nsub <= 0 {
		return 0
	}
	return (n + nsub - 1) / nsub
}
