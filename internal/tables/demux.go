package tables

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Doomsbay/QCKit/internal/demux"
)

var demuxCountColumns = []Column{
	counted(intCol("total", "Clusters", "Total number of reads")),
	counted(intCol("total_yield", "Yield", "Total number of bases")),
	counted(intCol("perfectIndex", "Perfect Index Reads", "Reads whose index matched with zero mismatches")),
	counted(intCol("yieldQ30", "Yield >= Q30", "Bases with a quality score of 30 or higher")),
	hidden(intCol("qscore_sum", "Quality Score Sum", "Sum of base quality scores")),
	floatCol("percent_Q30", "% bases >= Q30", "Percentage of bases with a quality score of 30 or higher"),
	floatCol("percent_perfectIndex", "% Perfect Index", "Percentage of reads with a perfect index match"),
	floatCol("mean_qscore", "Mean Quality Score", "Average base quality score"),
}

func countValues(c demux.Counts, d demux.Derived) []any {
	return []any{c.Total, c.TotalYield, c.PerfectIndex, c.YieldQ30, c.QscoreSum, d.PercentQ30, d.PercentPerfectIndex, d.MeanQscore}
}

// Demux lays out the lane, sample, per-lane read, undetermined barcode
// and general statistics views.
func Demux(v demux.Views) []Table {
	return []Table{
		demuxByLane(v),
		demuxBySample(v),
		demuxBySampleLane(v),
		demuxUndetermined(v),
		demuxGeneral(v),
	}
}

func demuxByLane(v demux.Views) Table {
	cols := append([]Column{
		strCol("run_id", "Run ID", "Run or flow cell identifier"),
		strCol("lane", "Lane", "Lane within the run"),
	}, demuxCountColumns...)
	cols = append(cols, counted(intCol("undetermined", "Undetermined Reads", "Reads not assigned to any sample")))

	t := Table{
		ID:          "demux_lane",
		Title:       "Lane Statistics",
		Description: "Demultiplexing statistics per run and lane",
		RowHeader:   "Run ID - Lane",
		Columns:     cols,
	}
	for _, name := range v.LaneNames() {
		l := v.ByLane[name]
		values := append([]any{l.RunID, l.Lane}, countValues(l.Counts, l.Derived)...)
		if l.Undetermined.Valid {
			values = append(values, l.Undetermined.Value)
		} else {
			values = append(values, nil)
		}
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

func demuxBySample(v demux.Views) Table {
	cols := append([]Column{strCol("barcode", "Barcode", "Sample index sequence")}, demuxCountColumns...)
	cols = append(cols, strCol("source_files", "Source Files", "Reports the sample was read from"))
	t := Table{
		ID:          "demux_sample",
		Title:       "Sample Statistics",
		Description: "Demultiplexing statistics per sample summed over lanes and runs",
		RowHeader:   "Sample",
		Columns:     cols,
	}
	for _, name := range v.SampleNames() {
		s := v.BySample[name]
		values := append([]any{s.Barcode}, countValues(s.Counts, s.Derived)...)
		values = append(values, strings.Join(v.SourceFiles[name], ","))
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

func demuxBySampleLane(v demux.Views) Table {
	laneSet := make(map[string]struct{})
	for _, lanes := range v.BySampleLane {
		for id := range lanes {
			laneSet[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(laneSet))
	for id := range laneSet {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return laneNumber(ids[i]) < laneNumber(ids[j]) })

	t := Table{
		ID:          "demux_sample_lane",
		Title:       "Clusters by Sample and Lane",
		Description: "Reads per sample in each lane",
		RowHeader:   "Sample",
	}
	for _, id := range ids {
		t.Columns = append(t.Columns, counted(intCol(id, id, "Reads in lane "+id)))
	}
	for _, name := range v.SampleNames() {
		lanes := v.BySampleLane[name]
		values := make([]any, len(ids))
		for i, id := range ids {
			values[i] = lanes[id]
		}
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

func laneNumber(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "L"))
	if err != nil {
		return 0
	}
	return n
}

func demuxUndetermined(v demux.Views) Table {
	t := Table{
		ID:          "demux_undetermined",
		Title:       "Undetermined Barcodes",
		Description: "The undetermined barcodes from each lane with the highest counts",
		RowHeader:   "Run ID - Lane",
	}
	var ub demux.UnknownBarcodes
	for i, key := range ub.Columns() {
		rank := i/2 + 1
		if i%2 == 0 {
			c := strCol(key, "Barcode "+strconv.Itoa(rank), "Unknown barcode ranked "+strconv.Itoa(rank))
			c.Hidden = rank > 3
			t.Columns = append(t.Columns, c)
			continue
		}
		c := intCol(key, "Count "+strconv.Itoa(rank), "Reads with unknown barcode ranked "+strconv.Itoa(rank))
		c.Hidden = rank > 3
		t.Columns = append(t.Columns, c)
	}
	for _, name := range sortedKeys(v.Undetermined) {
		values := make([]any, 0, 2*demux.TopBarcodes)
		for _, bc := range v.Undetermined[name] {
			values = append(values, bc.Barcode, bc.Count)
		}
		t.Rows = append(t.Rows, Row{Key: name, Values: values})
	}
	return t
}

func demuxGeneral(v demux.Views) Table {
	stats := v.GeneralStats()
	t := Table{
		ID:          "demux_general",
		Title:       "General Statistics",
		Description: "Per-sample demultiplexing summary",
		RowHeader:   "Sample",
		Columns: []Column{
			counted(intCol("total", "Clusters", "Total number of reads")),
			counted(intCol("yieldQ30", "Yield >= Q30", "Bases with a quality score of 30 or higher")),
			strCol("perfectPercent", "% Perfect Index", "Percentage of reads with a perfect index match"),
			strCol("barcode", "Barcode", "Sample index sequence"),
		},
	}
	for _, name := range sortedKeys(stats) {
		s := stats[name]
		t.Rows = append(t.Rows, Row{Key: name, Values: []any{s.Total, s.YieldQ30, s.PerfectPercent, s.Barcode}})
	}
	return t
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DemuxBars lays out the perfect/imperfect index split for lanes and
// samples.
func DemuxBars(v demux.Views) []Table {
	cols := []Column{
		counted(intCol("perfect", "Perfect Index", "Reads with a perfect index match")),
		counted(intCol("imperfect", "Mismatched Index", "Reads with one or more index mismatches")),
		counted(intCol("undetermined", "Undetermined", "Reads not assigned to any sample")),
	}
	lanes := Table{ID: "demux_lane_bars", Title: "Clusters by Lane", RowHeader: "Run ID - Lane", Columns: cols}
	bars := v.LaneBars()
	for _, name := range sortedKeys(bars) {
		b := bars[name]
		var undet any
		if b.Undetermined != nil && b.Undetermined.Valid {
			undet = b.Undetermined.Value
		}
		lanes.Rows = append(lanes.Rows, Row{Key: name, Values: []any{b.Perfect, b.Imperfect, undet}})
	}

	samples := Table{ID: "demux_sample_bars", Title: "Clusters by Sample", RowHeader: "Sample", Columns: cols[:2]}
	sbars := v.SampleBars()
	for _, name := range sortedKeys(sbars) {
		b := sbars[name]
		samples.Rows = append(samples.Rows, Row{Key: name, Values: []any{b.Perfect, b.Imperfect}})
	}
	return []Table{lanes, samples}
}
