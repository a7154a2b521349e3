package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Doomsbay/QCKit/internal/tables"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTables() []tables.Table {
	return []tables.Table{
		{
			ID:        "demux_lane",
			Title:     "Lane Statistics",
			RowHeader: "Run ID - Lane",
			Columns: []tables.Column{
				{Key: "total", Title: "Clusters", Kind: tables.KindInt, Counted: true},
				{Key: "percent_Q30", Title: "% Q30", Kind: tables.KindFloat},
				{Key: "undetermined", Title: "Undetermined", Kind: tables.KindInt, Hidden: true},
			},
			Rows: []tables.Row{
				{Key: "RUN1 - L1", Values: []any{int64(2000000), 80.0, nil}},
				{Key: "RUN1 - L2", Values: []any{int64(0), 0.0, int64(5)}},
			},
		},
		{
			ID:      "kmer_stats",
			Title:   "K-mer Statistics",
			Columns: []tables.Column{{Key: "note", Title: "Note", Kind: tables.KindString}},
			Rows:    []tables.Row{{Key: "S1", Values: []any{"tab\there"}}},
		},
	}
}

func exportAll(t *testing.T) (string, Result) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "out")
	res, err := Export(sampleTables(), Options{
		Dir:       dir,
		Formats:   Names(),
		Units:     tables.DefaultUnits(),
		Checksums: true,
		Manifest:  true,
	})
	require.NoError(t, err)
	return dir, res
}

func TestExportWritesEveryFormat(t *testing.T) {
	dir, res := exportAll(t)
	var names []string
	for _, f := range res.Files {
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{
		"demux_lane.json", "kmer_stats.json",
		"demux_lane.tsv", "kmer_stats.tsv",
		"demux_lane.parquet", "kmer_stats.parquet",
		"qckit.sqlite", "qckit.xlsx",
	}, names)
	assert.NotEmpty(t, res.BatchID)

	sums, err := os.ReadFile(filepath.Join(dir, ChecksumsFile))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(sums)), "\n")
	assert.Len(t, lines, len(res.Files))
	assert.Regexp(t, `^[0-9a-f]{64}  demux_lane\.json$`, lines[0])

	var m manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, res.BatchID, m.BatchID)
	assert.Equal(t, "M", m.BasePrefix)
	require.Len(t, m.Tables, 2)
	assert.Equal(t, 2, m.Tables[0].Rows)
}

func TestJSONAndTSVContent(t *testing.T) {
	dir, _ := exportAll(t)

	var data map[string]map[string]any
	raw, err := os.ReadFile(filepath.Join(dir, "demux_lane.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, "NA", data["RUN1 - L1"]["undetermined"])
	assert.EqualValues(t, 2000000, data["RUN1 - L1"]["total"])

	tsv, err := os.ReadFile(filepath.Join(dir, "demux_lane.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "Run ID - Lane\ttotal\tpercent_Q30\tundetermined\n"+
		"RUN1 - L1\t2000000\t80\tNA\n"+
		"RUN1 - L2\t0\t0\t5\n", string(tsv))

	kmer, err := os.ReadFile(filepath.Join(dir, "kmer_stats.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(kmer), "S1\ttab here\n")
}

func TestParquetContent(t *testing.T) {
	dir, res := exportAll(t)
	f, err := os.Open(filepath.Join(dir, "demux_lane.parquet"))
	require.NoError(t, err)
	defer f.Close()

	tbl, err := pqarrow.ReadTable(context.Background(), f, parquet.NewReaderProperties(memory.DefaultAllocator), pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	defer tbl.Release()
	assert.Equal(t, int64(2), tbl.NumRows())
	assert.Equal(t, int64(4), tbl.NumCols())
	assert.Equal(t, "key", tbl.Schema().Field(0).Name)
	batchID, ok := tbl.Schema().Metadata().GetValue("qckit.batch_id")
	if ok {
		assert.Equal(t, res.BatchID, batchID)
	}
}

func TestSQLiteContent(t *testing.T) {
	dir, res := exportAll(t)
	db, err := sql.Open("sqlite", filepath.Join(dir, sqliteFile))
	require.NoError(t, err)
	defer db.Close()

	var total int64
	var undetermined sql.NullInt64
	var batch string
	err = db.QueryRow(`SELECT "total", "undetermined", "batch_id" FROM "demux_lane" WHERE "key" = ?`, "RUN1 - L1").
		Scan(&total, &undetermined, &batch)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), total)
	assert.False(t, undetermined.Valid)
	assert.Equal(t, res.BatchID, batch)
}

func TestXLSXContent(t *testing.T) {
	dir, _ := exportAll(t)
	f, err := excelize.OpenFile(filepath.Join(dir, xlsxFile))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"demux_lane", "kmer_stats"}, f.GetSheetList())
	rows, err := f.GetRows("demux_lane")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, []string{"Run ID - Lane", "Clusters (M)", "% Q30", "Undetermined"}, rows[0])
	assert.Equal(t, "2", rows[1][1])

	visible, err := f.GetColVisible("demux_lane", "D")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestExportRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Dir: dir, Formats: []string{"json", "sqlite"}}
	_, err := Export(sampleTables(), opts)
	require.NoError(t, err)

	_, err = Export(sampleTables(), opts)
	assert.ErrorIs(t, err, ErrExists)

	opts.Force = true
	_, err = Export(sampleTables(), opts)
	assert.NoError(t, err)
}

func TestExportRejectsBadInput(t *testing.T) {
	_, err := Export(sampleTables(), Options{Dir: t.TempDir(), Formats: []string{"csv"}})
	assert.ErrorContains(t, err, "unknown export format")

	bad := []tables.Table{{ID: "x", Columns: []tables.Column{{Key: "n", Kind: tables.KindInt}}, Rows: []tables.Row{{Key: "a", Values: []any{"s"}}}}}
	_, err = Export(bad, Options{Dir: t.TempDir(), Formats: []string{"json"}})
	assert.Error(t, err)
}

func TestSafeTag(t *testing.T) {
	assert.Equal(t, "a_b-c.d", safeTag("a/b-c.d"))
	assert.Equal(t, "RUN1_-_L1", safeTag("RUN1 - L1"))
}
