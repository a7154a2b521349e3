// Package demux aggregates demultiplexer Stats.json reports into per-lane
// and per-sample read counts.
package demux

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/Doomsbay/QCKit/internal/qcerr"
	"go.uber.org/zap"
)

const (
	// UndeterminedSample is the synthetic sample holding reads that matched
	// no barcode in a lane.
	UndeterminedSample = "undetermined"
	// BarcodePlaceholder fills unused unknown-barcode slots.
	BarcodePlaceholder = "N/A"
	// TopBarcodes is the number of unknown barcodes kept per lane.
	TopBarcodes = 5
)

var ErrMissingRunID = errors.New("report has neither RunId nor Flowcell")

// Counts are the raw accumulators shared by lanes and samples.
type Counts struct {
	Total        int64 `json:"total"`
	TotalYield   int64 `json:"total_yield"`
	PerfectIndex int64 `json:"perfectIndex"`
	YieldQ30     int64 `json:"yieldQ30"`
	QscoreSum    int64 `json:"qscore_sum"`
}

func (c *Counts) add(o Counts) {
	c.Total += o.Total
	c.TotalYield += o.TotalYield
	c.PerfectIndex += o.PerfectIndex
	c.YieldQ30 += o.YieldQ30
	c.QscoreSum += o.QscoreSum
}

// BarcodeCount is one unknown barcode and its read count.
type BarcodeCount struct {
	Barcode string `json:"barcode"`
	Count   int64  `json:"count"`
}

// Sample is one sample's counts within a single lane.
type Sample struct {
	Name    string
	Barcode string
	Source  string
	Counts
}

// Lane is the aggregate of one lane of one run.
type Lane struct {
	Number  int
	Samples map[string]*Sample
	Unknown [TopBarcodes]BarcodeCount
	Counts
}

// ID is the lane key inside a run, e.g. "L1".
func (l *Lane) ID() string {
	return laneID(l.Number)
}

// SampleNames lists the lane's samples in sorted order.
func (l *Lane) SampleNames() []string {
	names := make([]string, 0, len(l.Samples))
	for name := range l.Samples {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Undetermined returns the undetermined read count, if the lane reported one.
func (l *Lane) Undetermined() (int64, bool) {
	s, ok := l.Samples[UndeterminedSample]
	if !ok {
		return 0, false
	}
	return s.Total, true
}

// Run holds the lanes of one flow cell run keyed by lane ID.
type Run struct {
	ID    string
	Lanes map[string]*Lane
}

// LaneIDs lists lanes ordered by lane number.
func (r *Run) LaneIDs() []string {
	lanes := make([]*Lane, 0, len(r.Lanes))
	for _, l := range r.Lanes {
		lanes = append(lanes, l)
	}
	sort.Slice(lanes, func(i, j int) bool { return lanes[i].Number < lanes[j].Number })
	ids := make([]string, len(lanes))
	for i, l := range lanes {
		ids[i] = l.ID()
	}
	return ids
}

func laneID(n int) string {
	return fmt.Sprintf("L%d", n)
}

// LaneName is the globally unique lane key "<run> - L<n>".
func LaneName(runID, laneID string) string {
	return runID + " - " + laneID
}

func newLane(n int) *Lane {
	l := &Lane{Number: n, Samples: make(map[string]*Sample)}
	for i := range l.Unknown {
		l.Unknown[i] = BarcodeCount{Barcode: BarcodePlaceholder}
	}
	return l
}

// Aggregator accumulates runs across many report files. It is not safe
// for concurrent use; callers parse in parallel and Add sequentially.
type Aggregator struct {
	runs   map[string]*Run
	logger *zap.Logger
}

func NewAggregator(logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{runs: make(map[string]*Run), logger: logger}
}

// Parse decodes one Stats.json document. source is recorded on every
// sample for source-file attribution.
func Parse(doc []byte, source string, logger *zap.Logger) (*Run, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var stats statsDoc
	if err := json.Unmarshal(doc, &stats); err != nil {
		return nil, &qcerr.DecodeError{Source: source, Err: err}
	}
	runID := stats.RunID
	if runID == "" {
		runID = stats.Flowcell
	}
	if runID == "" {
		return nil, fmt.Errorf("%s: %w", source, ErrMissingRunID)
	}

	run := &Run{ID: runID, Lanes: make(map[string]*Lane)}
	for _, cr := range stats.ConversionResults {
		lane := newLane(cr.LaneNumber)
		if _, dup := run.Lanes[lane.ID()]; dup {
			logger.Debug("duplicate run/lane, overwriting",
				zap.String("lane", LaneName(runID, lane.ID())),
				zap.String("source", source))
		}
		run.Lanes[lane.ID()] = lane

		for _, dr := range cr.DemuxResults {
			s := sampleFromResult(dr, source)
			if _, dup := lane.Samples[s.Name]; dup {
				logger.Debug("duplicate run/lane/sample, overwriting",
					zap.String("lane", LaneName(runID, lane.ID())),
					zap.String("sample", s.Name))
			}
			lane.Samples[s.Name] = s
			lane.add(s.Counts)
		}
		if u := cr.Undetermined; u != nil {
			s := &Sample{Name: UndeterminedSample, Source: source}
			s.Total = u.NumberReads
			s.TotalYield = u.Yield
			for _, rm := range u.ReadMetrics {
				s.YieldQ30 += rm.YieldQ30
				s.QscoreSum += rm.QualityScoreSum
			}
			lane.Samples[UndeterminedSample] = s
		}
	}

	for _, ub := range stats.UnknownBarcodes {
		lane, ok := run.Lanes[laneID(ub.Lane)]
		if !ok {
			logger.Warn("unknown barcodes for a lane without conversion results",
				zap.String("lane", LaneName(runID, laneID(ub.Lane))),
				zap.String("source", source))
			continue
		}
		for i, bc := range ub.Barcodes {
			if i == TopBarcodes {
				break
			}
			lane.Unknown[i] = bc
		}
	}
	return run, nil
}

func sampleFromResult(dr demuxResult, source string) *Sample {
	s := &Sample{Name: dr.SampleName, Source: source}
	s.Total = dr.NumberReads
	s.TotalYield = dr.Yield
	for _, im := range dr.IndexMetrics {
		if s.Barcode == "" {
			s.Barcode = im.IndexSequence
		}
		s.PerfectIndex += im.MismatchCounts["0"]
	}
	for _, rm := range dr.ReadMetrics {
		s.YieldQ30 += rm.YieldQ30
		s.QscoreSum += rm.QualityScoreSum
	}
	return s
}

// Add merges a parsed run. A lane already present for the same run is
// replaced wholesale.
func (a *Aggregator) Add(run *Run) {
	existing, ok := a.runs[run.ID]
	if !ok {
		a.runs[run.ID] = run
		return
	}
	for id, lane := range run.Lanes {
		if _, dup := existing.Lanes[id]; dup {
			a.logger.Debug("duplicate run/lane across reports, overwriting",
				zap.String("lane", LaneName(run.ID, id)))
		}
		existing.Lanes[id] = lane
	}
}

// Runs returns the merged runs keyed by run ID.
func (a *Aggregator) Runs() map[string]*Run {
	return a.runs
}

// RunIDs lists run IDs in sorted order.
func (a *Aggregator) RunIDs() []string {
	ids := make([]string, 0, len(a.runs))
	for id := range a.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *Aggregator) Len() int {
	return len(a.runs)
}
