package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn abstracts a backend's bulk insert. It inserts rows (aligned to
// columns) and returns how many rows the backend reports as written.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches slices rows into batches of batchSize and calls copyFn for
// each. It returns the running total and the first error. The context is
// checked between batches.
//
// Logging: every successful flush after the first emits a progress line with
// running totals and rows/sec.
func LoadBatches(
	ctx context.Context,
	table string,
	columns []string,
	rows [][]any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total   int64
		batches int
		start   = time.Now()
	)
	for lo := 0; lo < len(rows); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(rows))
		n, err := copyFn(ctx, columns, rows[lo:hi])
		total += n
		if err != nil {
			log.Printf("loader: table=%s copy failed batch=%d total=%d err=%v", table, batches+1, total, err)
			return total, err
		}
		batches++
		if batches > 1 {
			el := time.Since(start)
			rps := float64(0)
			if el > 0 {
				rps = float64(total) / el.Seconds()
			}
			log.Printf("loader: table=%s batch=%d rows=%d total=%d rps=%.0f", table, batches, n, total, rps)
		}
	}
	return total, nil
}
