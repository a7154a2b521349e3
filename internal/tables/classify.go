package tables

import (
	"github.com/Doomsbay/QCKit/internal/classify"
	"github.com/Doomsbay/QCKit/internal/taxonomy"
)

// Classify lays out the per-sample summary, lineage, kingdom, rank-hit and
// top-N tables.
func Classify(records map[string]classify.Record) []Table {
	names := sortedKeys(records)
	return []Table{
		classifySummary(names, records),
		lineageTable("classify_classified_lineage", "Classified Taxon Lineage", names, records,
			func(r classify.Record) classify.LineageSeries { return r.ClassifiedLineage }),
		lineageTable("classify_expected_lineage", "Expected Taxon Lineage", names, records,
			func(r classify.Record) classify.LineageSeries { return r.ExpectedLineage }),
		lineageTable("classify_rank_hits", "Hits by Rank", names, records,
			func(r classify.Record) classify.LineageSeries { return r.RankHits }),
		kingdomTable(names, records),
		topNTable("classify_top5_species", "Top 5 Species", names, records,
			func(r classify.Record) classify.TopN { return r.Top5Species }),
		topNTable("classify_top5_class", "Top 5 Class", names, records,
			func(r classify.Record) classify.TopN { return r.Top5Class }),
	}
}

func classifySummary(names []string, records map[string]classify.Record) Table {
	t := Table{
		ID:          "classify_summary",
		Title:       "Classification Summary",
		Description: "Classified, expected and most recent common ancestor taxa",
		RowHeader:   "Sample",
		Columns: []Column{
			counted(intCol("total_hits", "Total Hits", "Reads with at least one hit")),
			strCol("actual_taxon", "Classified Taxon", "Name (taxon id) of the classified taxon"),
			strCol("actual_rank", "Classified Rank", "Rank of the classified taxon"),
			floatCol("actual_level", "Classified Rank Level", "Ordinal level of the classified rank"),
			strCol("expected_taxon", "Expected Taxon", "Name (taxon id) of the expected taxon"),
			strCol("expected_rank", "Expected Rank", "Rank of the expected taxon"),
			floatCol("expected_level", "Expected Rank Level", "Ordinal level of the expected rank"),
			strCol("mrca_taxon", "MRCA Taxon", "Most recent common ancestor of classified and expected"),
			strCol("mrca_rank", "MRCA Rank", "Rank of the common ancestor"),
			floatCol("mrca_level", "MRCA Rank Level", "Ordinal level of the common ancestor rank"),
		},
	}
	for _, name := range names {
		r := records[name]
		values := []any{r.TotalHits}
		values = append(values, descriptorValues(r.Classified)...)
		values = append(values, descriptorValues(r.Expected)...)
		values = append(values, descriptorValues(r.MRCA)...)
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

// descriptorValues fills the taxon, rank and level columns; nil leaves
// them empty.
func descriptorValues(d *taxonomy.Descriptor) []any {
	if d == nil {
		return []any{nil, nil, nil}
	}
	return []any{d.Display(), d.Rank.Name(), d.Rank.Level()}
}

func lineageTable(id, title string, names []string, records map[string]classify.Record, pick func(classify.Record) classify.LineageSeries) Table {
	t := Table{
		ID:          id,
		Title:       title,
		Description: "Hits attributed to each rank",
		RowHeader:   "Sample",
	}
	for _, r := range taxonomy.PrincipalRanks {
		t.Columns = append(t.Columns, counted(intCol(r.Name(), taxonomy.CapitalizeName(r.Name()), "Hits assigned at rank "+r.Name())))
	}
	for _, name := range names {
		series := pick(records[name])
		values := make([]any, len(taxonomy.PrincipalRanks))
		for i, r := range taxonomy.PrincipalRanks {
			if p, ok := series.Get(r); ok {
				values[i] = p.Count
			} else {
				values[i] = int64(0)
			}
		}
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

func kingdomTable(names []string, records map[string]classify.Record) Table {
	var kingdoms []string
	seen := make(map[string]struct{})
	for _, name := range names {
		for _, c := range records[name].KingdomHits.Items() {
			if _, ok := seen[c.Name]; !ok {
				seen[c.Name] = struct{}{}
				kingdoms = append(kingdoms, c.Name)
			}
		}
	}
	t := Table{
		ID:          "classify_kingdoms",
		Title:       "Hits by Kingdom",
		Description: "Hits per kingdom",
		RowHeader:   "Sample",
	}
	for _, k := range kingdoms {
		t.Columns = append(t.Columns, counted(intCol(k, taxonomy.CapitalizeName(k), "Hits assigned to "+k)))
	}
	for _, name := range names {
		hits := records[name].KingdomHits
		values := make([]any, len(kingdoms))
		for i, k := range kingdoms {
			n, _ := hits.Get(k)
			values[i] = n
		}
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

func topNTable(id, title string, names []string, records map[string]classify.Record, pick func(classify.Record) classify.TopN) Table {
	t := Table{ID: id, Title: title, Description: "Most abundant taxa by hit percentage", RowHeader: "Sample"}
	for i, o := range classify.Ordinals {
		c := strCol(o+"_name", o+" taxon", "Taxon ranked "+o)
		m := floatCol(o+"_count", o+" %", "Hit percentage of the taxon ranked "+o)
		if i >= 3 {
			c, m = hidden(c), hidden(m)
		}
		t.Columns = append(t.Columns, c, m)
	}
	for _, name := range names {
		top := pick(records[name])
		values := make([]any, 0, 2*classify.TopNSize)
		for _, e := range top {
			values = append(values, e.Name, e.Metric)
		}
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}
