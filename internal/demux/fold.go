package demux

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/Doomsbay/QCKit/internal/ratio"
)

// OptionalCount is a count that may be unavailable; it marshals as "NA"
// when absent.
type OptionalCount struct {
	Value int64
	Valid bool
}

func (o OptionalCount) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte(`"NA"`), nil
	}
	return []byte(strconv.FormatInt(o.Value, 10)), nil
}

func (o OptionalCount) String() string {
	if !o.Valid {
		return "NA"
	}
	return strconv.FormatInt(o.Value, 10)
}

// Derived holds the percentages computed from a Counts.
type Derived struct {
	PercentQ30          float64 `json:"percent_Q30"`
	PercentPerfectIndex float64 `json:"percent_perfectIndex"`
	MeanQscore          float64 `json:"mean_qscore"`
}

func derive(c Counts) Derived {
	return Derived{
		PercentQ30:          ratio.Percent(c.YieldQ30, c.TotalYield),
		PercentPerfectIndex: ratio.Percent(c.PerfectIndex, c.Total),
		MeanQscore:          ratio.Mean(c.QscoreSum, c.TotalYield),
	}
}

// LaneRecord is one row of the by-lane view.
type LaneRecord struct {
	RunID        string        `json:"run_id"`
	Lane         string        `json:"lane"`
	Undetermined OptionalCount `json:"undetermined"`
	Counts
	Derived
	Unknown [TopBarcodes]BarcodeCount `json:"-"`
}

// SampleRecord is one row of the by-sample view.
type SampleRecord struct {
	Name    string `json:"-"`
	Barcode string `json:"barcode"`
	Counts
	Derived
	PerLaneReads map[string]int64 `json:"-"`
}

// UnknownBarcodes flattens a lane's top barcodes to
// {"first_barcode": ..., "first_count": ...}.
type UnknownBarcodes [TopBarcodes]BarcodeCount

var ordinals = [TopBarcodes]string{"first", "second", "third", "fourth", "fifth"}

func (u UnknownBarcodes) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 2*TopBarcodes)
	for i, bc := range u {
		m[ordinals[i]+"_barcode"] = bc.Barcode
		m[ordinals[i]+"_count"] = bc.Count
	}
	return json.Marshal(m)
}

// Columns returns the flattened column names in ordinal order.
func (UnknownBarcodes) Columns() []string {
	cols := make([]string, 0, 2*TopBarcodes)
	for _, o := range ordinals {
		cols = append(cols, o+"_barcode", o+"_count")
	}
	return cols
}

// Views are the folded outputs of an Aggregator.
type Views struct {
	ByLane       map[string]LaneRecord
	Undetermined map[string]UnknownBarcodes
	BySample     map[string]SampleRecord
	// BySampleLane is sample -> lane ID -> reads, summed over runs that
	// share a lane ID.
	BySampleLane map[string]map[string]int64
	SourceFiles  map[string][]string
}

// Fold walks run -> lane -> sample once and builds every view. Sample
// totals are sums over all lanes and runs sharing the sample name;
// derived percentages are computed from the final sums.
func (a *Aggregator) Fold() Views {
	v := Views{
		ByLane:       make(map[string]LaneRecord),
		Undetermined: make(map[string]UnknownBarcodes),
		BySample:     make(map[string]SampleRecord),
		BySampleLane: make(map[string]map[string]int64),
		SourceFiles:  make(map[string][]string),
	}
	sums := make(map[string]*SampleRecord)
	sources := make(map[string]map[string]struct{})

	for _, runID := range a.RunIDs() {
		run := a.runs[runID]
		for _, id := range run.LaneIDs() {
			lane := run.Lanes[id]
			name := LaneName(runID, id)
			undet, ok := lane.Undetermined()
			v.ByLane[name] = LaneRecord{
				RunID:        runID,
				Lane:         id,
				Undetermined: OptionalCount{Value: undet, Valid: ok},
				Counts:       lane.Counts,
				Derived:      derive(lane.Counts),
				Unknown:      lane.Unknown,
			}
			v.Undetermined[name] = UnknownBarcodes(lane.Unknown)

			for _, sname := range lane.SampleNames() {
				s := lane.Samples[sname]
				rec, ok := sums[sname]
				if !ok {
					rec = &SampleRecord{Name: sname, PerLaneReads: make(map[string]int64)}
					sums[sname] = rec
				}
				rec.add(s.Counts)
				if s.Barcode != "" {
					rec.Barcode = s.Barcode
				}
				rec.PerLaneReads[id] += s.Total
				if sname != UndeterminedSample {
					if sources[sname] == nil {
						sources[sname] = make(map[string]struct{})
					}
					sources[sname][s.Source] = struct{}{}
				}
			}
		}
	}

	for name, rec := range sums {
		rec.Derived = derive(rec.Counts)
		v.BySample[name] = *rec
		v.BySampleLane[name] = rec.PerLaneReads
	}
	for name, set := range sources {
		files := make([]string, 0, len(set))
		for f := range set {
			files = append(files, f)
		}
		sort.Strings(files)
		v.SourceFiles[name] = files
	}
	return v
}

// Filter drops lanes and samples whose key keep rejects.
func (v Views) Filter(keep func(name string) bool) Views {
	out := Views{
		ByLane:       make(map[string]LaneRecord),
		Undetermined: make(map[string]UnknownBarcodes),
		BySample:     make(map[string]SampleRecord),
		BySampleLane: make(map[string]map[string]int64),
		SourceFiles:  make(map[string][]string),
	}
	for k, r := range v.ByLane {
		if keep(k) {
			out.ByLane[k] = r
		}
	}
	for k, r := range v.Undetermined {
		if keep(k) {
			out.Undetermined[k] = r
		}
	}
	for k, r := range v.BySample {
		if keep(k) {
			out.BySample[k] = r
		}
	}
	for k, r := range v.BySampleLane {
		if keep(k) {
			out.BySampleLane[k] = r
		}
	}
	for k, r := range v.SourceFiles {
		if keep(k) {
			out.SourceFiles[k] = r
		}
	}
	return out
}

// Empty reports whether nothing survived folding and filtering.
func (v Views) Empty() bool {
	return len(v.ByLane) == 0 && len(v.BySample) == 0
}

// LaneNames returns ByLane keys sorted.
func (v Views) LaneNames() []string {
	return sortedKeys(v.ByLane)
}

// SampleNames returns BySample keys sorted.
func (v Views) SampleNames() []string {
	return sortedKeys(v.BySample)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GeneralStat is the per-sample summary row used in cross-tool tables.
type GeneralStat struct {
	YieldQ30       int64  `json:"yieldQ30"`
	Total          int64  `json:"total"`
	PerfectPercent string `json:"perfectPercent"`
	Barcode        string `json:"barcode"`
}

func (v Views) GeneralStats() map[string]GeneralStat {
	out := make(map[string]GeneralStat, len(v.BySample))
	for name, s := range v.BySample {
		out[name] = GeneralStat{
			YieldQ30:       s.YieldQ30,
			Total:          s.Total,
			PerfectPercent: fmt.Sprintf("%.1f", ratio.Percent(s.PerfectIndex, s.Total)),
			Barcode:        s.Barcode,
		}
	}
	return out
}

// Bar splits a read total into perfect and imperfect index matches.
type Bar struct {
	Perfect      int64          `json:"perfect"`
	Imperfect    int64          `json:"imperfect"`
	Undetermined *OptionalCount `json:"undetermined,omitempty"`
}

// LaneBars returns per-lane bar segments including undetermined reads.
func (v Views) LaneBars() map[string]Bar {
	out := make(map[string]Bar, len(v.ByLane))
	for name, l := range v.ByLane {
		undet := l.Undetermined
		out[name] = Bar{
			Perfect:      l.PerfectIndex,
			Imperfect:    l.Total - l.PerfectIndex,
			Undetermined: &undet,
		}
	}
	return out
}

// SampleBars returns per-sample bar segments.
func (v Views) SampleBars() map[string]Bar {
	out := make(map[string]Bar, len(v.BySample))
	for name, s := range v.BySample {
		out[name] = Bar{Perfect: s.PerfectIndex, Imperfect: s.Total - s.PerfectIndex}
	}
	return out
}
