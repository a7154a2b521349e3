package export

import (
	"fmt"
	"path/filepath"

	"github.com/Doomsbay/QCKit/internal/tables"
	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
)

// parquetFormat writes one snappy-compressed parquet file per table. The
// row key is the first column; every value column is nullable.
type parquetFormat struct{}

func (parquetFormat) Name() string { return "parquet" }

func (parquetFormat) Write(dir string, batch Batch, force bool) ([]string, error) {
	var files []string
	for _, t := range batch.Tables {
		path := filepath.Join(dir, safeTag(t.ID)+".parquet")
		if err := writeParquetTable(path, t, batch.ID, force); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

func arrowType(k tables.Kind) arrow.DataType {
	switch k {
	case tables.KindInt:
		return arrow.PrimitiveTypes.Int64
	case tables.KindFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func parquetSchema(t tables.Table, batchID string) *arrow.Schema {
	fields := make([]arrow.Field, 0, len(t.Columns)+1)
	fields = append(fields, arrow.Field{Name: "key", Type: arrow.BinaryTypes.String})
	for _, c := range t.Columns {
		fields = append(fields, arrow.Field{Name: c.Key, Type: arrowType(c.Kind), Nullable: true})
	}
	md := arrow.NewMetadata(
		[]string{"qckit.table", "qckit.title", "qckit.batch_id"},
		[]string{t.ID, t.Title, batchID},
	)
	return arrow.NewSchema(fields, &md)
}

func writeParquetTable(path string, t tables.Table, batchID string, force bool) error {
	schema := parquetSchema(t, batchID)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	keys := b.Field(0).(*array.StringBuilder)
	for _, r := range t.Rows {
		keys.Append(r.Key)
		for i, v := range r.Values {
			if err := appendValue(b.Field(i+1), v); err != nil {
				return fmt.Errorf("table %s column %s: %w", t.ID, t.Columns[i].Key, err)
			}
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	f, err := create(path, force)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	w, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("parquet writer %s: %w", path, err)
	}
	if err := w.Write(rec); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch fb := b.(type) {
	case *array.Int64Builder:
		n, ok := v.(int64)
		if !ok {
			return fmt.Errorf("want int64, got %T", v)
		}
		fb.Append(n)
	case *array.Float64Builder:
		n, ok := v.(float64)
		if !ok {
			return fmt.Errorf("want float64, got %T", v)
		}
		fb.Append(n)
	case *array.StringBuilder:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("want string, got %T", v)
		}
		fb.Append(s)
	default:
		return fmt.Errorf("unsupported builder %T", b)
	}
	return nil
}

