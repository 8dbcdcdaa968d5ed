package filesink

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/natefinch/atomic"

	"tkexport/internal/tabular"
)

// writeCSV renders a header row plus one line per row (nil as an empty cell,
// datetimes as "YYYY-MM-DD HH:MM:SS") and swaps the file in atomically. A
// buffer without columns produces an empty file.
func writeCSV(path string, buf *tabular.Buffer) error {
	var b bytes.Buffer
	if buf.NumColumns() > 0 {
		w := csv.NewWriter(&b)
		if err := w.Write(buf.Columns()); err != nil {
			return fmt.Errorf("csv header: %w", err)
		}
		rec := make([]string, buf.NumColumns())
		for _, row := range buf.Rows() {
			for i, v := range row {
				rec[i] = tabular.FormatValue(v)
			}
			if err := w.Write(rec); err != nil {
				return fmt.Errorf("csv row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("csv flush: %w", err)
		}
	}
	if err := atomic.WriteFile(path, &b); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
