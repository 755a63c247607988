package contract

import "fmt"

// ValidateChunks 校验区段列表恰好覆盖 [0, n)：
// - 各段非空、段内连续且升序，段与段首尾相接；
// - 除最后一段外长度均为 nsub，最后一段长度在 [1, nsub]；
// - 段数为 ceil(n/nsub)，n == 0 时必须为空。
// 纯函数，无 I/O；违反时返回包装 ErrChunkCoverage 的错误。
func ValidateChunks(chunks []Chunk, n, nsub int) error {
	if nsub <= 0 {
		return fmt.Errorf("%w: nsub=%d", ErrInvalidPartitionSize, nsub)
	}
	if n < 0 {
		return fmt.Errorf("%w: n=%d", ErrInvalidRange, n)
	}
	if want := (n + nsub - 1) / nsub; len(chunks) != want {
		return fmt.Errorf("%w: %d chunks, want %d", ErrChunkCoverage, len(chunks), want)
	}
	expect := 0
	for i, c := range chunks {
		if len(c) == 0 || len(c) > nsub {
			return fmt.Errorf("%w: chunk %d has %d members", ErrChunkCoverage, i, len(c))
		}
		if i < len(chunks)-1 && len(c) != nsub {
			return fmt.Errorf("%w: chunk %d has %d members before the last chunk", ErrChunkCoverage, i, len(c))
		}
		for _, v := range c {
			if v != expect {
				return fmt.Errorf("%w: chunk %d holds %d, want %d", ErrChunkCoverage, i, v, expect)
			}
			expect++
		}
	}
	if expect != n {
		return fmt.Errorf("%w: covered %d of %d", ErrChunkCoverage, expect, n)
	}
	return nil
}
