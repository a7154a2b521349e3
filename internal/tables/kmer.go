package tables

import "github.com/Doomsbay/QCKit/internal/kmer"

// Kmer lays out one row of k-mer statistics per sample.
func Kmer(records map[string]kmer.Stats) []Table {
	t := Table{
		ID:          "kmer_stats",
		Title:       "K-mer Statistics",
		Description: "K-mer spectrum and GC distribution summary",
		RowHeader:   "Sample",
		Columns: []Column{
			intCol("kmer_peaks", "K-mer Peaks", "Peaks in the k-mer frequency spectrum"),
			intCol("gc_peaks", "GC Peaks", "Peaks in the GC distribution"),
			counted(intCol("est_genome_size", "Genome Size", "Estimated genome size in bases")),
			floatCol("mean_kmer_freq", "Mean K-mer Frequency", "Mean k-mer coverage"),
		},
	}
	for _, name := range sortedKeys(records) {
		s := records[name]
		t.Rows = append(t.Rows, Row{Key: name, Values: []any{
			optional(s.KmerPeaks), optional(s.GCPeaks), optional(s.EstGenomeSize), optional(s.MeanKmerFreq),
		}})
	}
	return []Table{t}
}

func optional[T int64 | float64](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
