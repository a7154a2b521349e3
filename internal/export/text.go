package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Doomsbay/QCKit/internal/tables"
)

// jsonFormat writes one {row: {column: value}} file per table. Missing
// values are written as "NA".
type jsonFormat struct{}

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Write(dir string, batch Batch, force bool) ([]string, error) {
	var files []string
	for _, t := range batch.Tables {
		path := filepath.Join(dir, safeTag(t.ID)+".json")
		if err := writeJSONTable(path, t, force); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeJSONTable(path string, t tables.Table, force bool) error {
	data := make(map[string]map[string]any, len(t.Rows))
	for _, r := range t.Rows {
		rec := t.Record(r)
		for k, v := range rec {
			if v == nil {
				rec[k] = "NA"
			}
		}
		data[r.Key] = rec
	}
	f, err := create(path, force)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// tsvFormat writes one tab-separated file per table, row key first.
type tsvFormat struct{}

func (tsvFormat) Name() string { return "tsv" }

func (tsvFormat) Write(dir string, batch Batch, force bool) ([]string, error) {
	var files []string
	for _, t := range batch.Tables {
		path := filepath.Join(dir, safeTag(t.ID)+".tsv")
		if err := writeTSVTable(path, t, force); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func writeTSVTable(path string, t tables.Table, force bool) error {
	f, err := create(path, force)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	w := bufio.NewWriterSize(f, writerBufferSize)

	header := make([]string, 0, len(t.Columns)+1)
	header = append(header, tsvField(rowHeader(t)))
	for _, c := range t.Columns {
		header = append(header, tsvField(c.Key))
	}
	if _, err := w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return fmt.Errorf("write %s header: %w", path, err)
	}
	for _, r := range t.Rows {
		fields := make([]string, 0, len(r.Values)+1)
		fields = append(fields, tsvField(r.Key))
		for _, v := range r.Values {
			fields = append(fields, tsvField(tables.Format(v)))
		}
		if _, err := w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
			return fmt.Errorf("write %s row: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

func rowHeader(t tables.Table) string {
	if t.RowHeader == "" {
		return "Sample"
	}
	return t.RowHeader
}

func tsvField(value string) string {
	value = strings.ReplaceAll(value, "\t", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	return value
}
