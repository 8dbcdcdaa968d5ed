package validate

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

const utf8BOM = "\uFEFF"

// decode returns the file body as UTF-8 plus the encoding it was read as.
// UTF-16 needs a BOM; anything else that is not valid UTF-8 is read as
// Windows-1252, which every byte sequence decodes under.
func decode(raw []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}), bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		out, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(raw)
		return out, "utf-16", err
	case utf8.Valid(raw):
		return bytes.TrimPrefix(raw, []byte(utf8BOM)), "utf-8", nil
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		return out, "windows-1252", err
	}
}

// readCSV reads path, hands the header to onHeader and every row to onRow.
// Rows whose width differs from the header are reported through onError and
// skipped. An empty file has no header and no rows.
func readCSV(ctx context.Context, path string, onHeader func([]string), onRow func(line int, rec []string), onError func(line int, err error)) (enc string, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	body, enc, err := decode(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}

	cr := csv.NewReader(bytes.NewReader(body))
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return enc, nil
	}
	if err != nil {
		return enc, fmt.Errorf("read csv header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	onHeader(header)

	line := 1
	for {
		if err := ctx.Err(); err != nil {
			return enc, err
		}
		rec, err := cr.Read()
		if err == io.EOF {
			return enc, nil
		}
		line++
		if err != nil {
			onError(line, fmt.Errorf("parse: %w", err))
			continue
		}
		if len(rec) != len(header) {
			onError(line, fmt.Errorf("incorrect number of fields: expected %d, got %d", len(header), len(rec)))
			continue
		}
		onRow(line, rec)
	}
}
