// Package sections pulls small tab-delimited tables out of free-text
// reports. A table is a header line followed by a fixed number of rows:
// the column labels, then one or more value rows.
package sections

import (
	"fmt"
	"strings"

	"github.com/Doomsbay/QCKit/internal/qcerr"
)

// Block is one captured table. Rows[0] holds the column labels.
type Block struct {
	Header string
	Rows   [][]string
}

// Labels returns the column label row.
func (b Block) Labels() []string {
	if len(b.Rows) == 0 {
		return nil
	}
	return b.Rows[0]
}

// Values returns the n-th value row (0-based, after the labels).
func (b Block) Values(n int) []string {
	if n+1 >= len(b.Rows) {
		return nil
	}
	return b.Rows[n+1]
}

// Width is the number of columns.
func (b Block) Width() int {
	return len(b.Labels())
}

// Extract scans lines for headerPrefix and captures the next rowCount
// lines as tab-split rows. The scan always runs to the end: when the
// header recurs, the last occurrence wins.
func Extract(lines []string, headerPrefix string, rowCount int) (Block, error) {
	if headerPrefix == "" {
		return Block{}, qcerr.SectionNotFound(headerPrefix, "empty header prefix")
	}
	if rowCount < 2 {
		return Block{}, fmt.Errorf("extract %q: row count %d, need at least 2", headerPrefix, rowCount)
	}

	var (
		rows    [][]string
		pending int
		seen    bool
	)
	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, headerPrefix) {
			seen = true
			pending = rowCount
			rows = make([][]string, 0, rowCount)
			continue
		}
		if pending > 0 {
			rows = append(rows, splitRow(line))
			pending--
		}
	}

	if !seen {
		return Block{}, qcerr.SectionNotFound(headerPrefix, "")
	}
	if len(rows) < rowCount {
		return Block{}, qcerr.SectionNotFound(headerPrefix, fmt.Sprintf("truncated after %d of %d rows", len(rows), rowCount))
	}
	width := len(rows[0])
	for _, row := range rows[1:] {
		if len(row) != width {
			return Block{}, qcerr.ColumnCountMismatch(headerPrefix, width, len(row))
		}
	}
	return Block{Header: headerPrefix, Rows: rows}, nil
}

func splitRow(line string) []string {
	fields := strings.Split(line, "\t")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// SplitLines breaks report content into lines once so every extractor
// can scan the same slice.
func SplitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
