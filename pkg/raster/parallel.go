package raster

import (
	"github.com/kovidgoyal/go-parallel"
)

// RowFunc processes the half-open row range [y0, y1).
type RowFunc func(y0, y1 int)

// EachRow splits the buffer's rows into ranges and runs f over them
// across all CPUs, returning once every range is done. Ranges never
// overlap, so f may mutate its own rows without locking.
func EachRow(buf *Buffer, f RowFunc) error {
	return ParallelRange(buf.Height, f)
}

// ParallelRange is EachRow for callers without a Buffer.
func ParallelRange(n int, f RowFunc) error {
	if n <= 0 {
		return nil
	}
	return parallel.Run_in_parallel_over_range(0, func(start, limit int) { f(start, limit) }, 0, n)
}
