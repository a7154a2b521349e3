package classify

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/Doomsbay/QCKit/internal/sections"
	"github.com/Doomsbay/QCKit/internal/taxonomy"
)

// LineagePoint is the hit delta attributed to one rank.
type LineagePoint struct {
	Rank    taxonomy.Rank `json:"rank"`
	Count   int64         `json:"count"`
	Percent float64       `json:"percent"`
}

// LineageSeries maps rank -> delta in report column order. A repeated rank
// keeps its first position and takes the later value.
type LineageSeries struct {
	points []LineagePoint
}

func (s *LineageSeries) Set(p LineagePoint) {
	for i := range s.points {
		if s.points[i].Rank == p.Rank {
			s.points[i] = p
			return
		}
	}
	s.points = append(s.points, p)
}

func (s LineageSeries) Points() []LineagePoint {
	out := make([]LineagePoint, len(s.points))
	copy(out, s.points)
	return out
}

func (s LineageSeries) Get(r taxonomy.Rank) (LineagePoint, bool) {
	for _, p := range s.points {
		if p.Rank == r {
			return p, true
		}
	}
	return LineagePoint{}, false
}

func (s LineageSeries) Len() int {
	return len(s.points)
}

// Counts returns the count deltas keyed by rank name.
func (s LineageSeries) Counts() map[string]int64 {
	out := make(map[string]int64, len(s.points))
	for _, p := range s.points {
		out[p.Rank.Name()] = p.Count
	}
	return out
}

// MarshalJSON writes {"root": count, ...} keeping column order.
func (s LineageSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range s.points {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(p.Rank.Name())
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(p.Count, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Deltas turns a cumulative series into per-position increments: the first
// value is kept, every later value has its predecessor subtracted.
func Deltas[T int64 | float64](cumulative []T) []T {
	out := make([]T, len(cumulative))
	for i, v := range cumulative {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = v - cumulative[i-1]
	}
	return out
}

// absentLineage is the placeholder used when no expected taxon was given:
// every principal rank is zero except the configured one.
func absentLineage(at taxonomy.Rank) LineageSeries {
	var s LineageSeries
	for _, r := range taxonomy.PrincipalRanks {
		p := LineagePoint{Rank: r}
		if r == at {
			p.Count = 100
			p.Percent = 100.0
		}
		s.Set(p)
	}
	return s
}

// lineageFromBlock reads a labels/percent/count block whose labels use the
// full descriptor grammar.
func lineageFromBlock(block sections.Block) (LineageSeries, error) {
	labels := block.Labels()
	percents, err := parseFloats(block.Header, block.Values(0))
	if err != nil {
		return LineageSeries{}, err
	}
	counts, err := parseInts(block.Header, block.Values(1))
	if err != nil {
		return LineageSeries{}, err
	}
	countDeltas := Deltas(counts)
	percentDeltas := Deltas(percents)

	var s LineageSeries
	for i, label := range labels {
		d, err := taxonomy.ParseFull(label)
		if err != nil {
			return LineageSeries{}, err
		}
		s.Set(LineagePoint{Rank: d.Rank, Count: countDeltas[i], Percent: percentDeltas[i]})
	}
	return s, nil
}

func parseInts(section string, fields []string) ([]int64, error) {
	out := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return nil, qcerr.MalformedValue(section, f)
		}
		out[i] = v
	}
	return out, nil
}

func parseFloats(section string, fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, qcerr.MalformedValue(section, f)
		}
		out[i] = v
	}
	return out, nil
}
