package export

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Doomsbay/QCKit/internal/tables"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteFile = "qckit.sqlite"

// sqliteFormat writes every table into one database. Each SQL table has a
// key column, a batch_id column and one column per table column.
type sqliteFormat struct{}

func (sqliteFormat) Name() string { return "sqlite" }

func (sqliteFormat) Write(dir string, batch Batch, force bool) ([]string, error) {
	path := filepath.Join(dir, sqliteFile)
	if err := removeExisting(path, force); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	for _, t := range batch.Tables {
		if err := writeSQLTable(ctx, tx, t, batch.ID); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if err := db.Close(); err != nil {
		return nil, fmt.Errorf("close sqlite: %w", err)
	}
	return []string{path}, nil
}

func sqlType(k tables.Kind) string {
	switch k {
	case tables.KindInt:
		return "INTEGER"
	case tables.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeSQLTable(ctx context.Context, tx *sql.Tx, t tables.Table, batchID string) error {
	cols := []string{`"key" TEXT NOT NULL`, `"batch_id" TEXT NOT NULL`}
	names := []string{`"key"`, `"batch_id"`}
	for _, c := range t.Columns {
		cols = append(cols, quoteIdent(c.Key)+" "+sqlType(c.Kind))
		names = append(names, quoteIdent(c.Key))
	}
	table := quoteIdent(t.ID)
	create := fmt.Sprintf("CREATE TABLE %s (%s, PRIMARY KEY (\"key\"))", table, strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", t.ID, err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", t.ID, err)
	}
	defer func() {
		_ = stmt.Close()
	}()
	for _, r := range t.Rows {
		args := make([]any, 0, len(names))
		args = append(args, r.Key, batchID)
		args = append(args, r.Values...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert %s row %s: %w", t.ID, r.Key, err)
		}
	}
	return nil
}
