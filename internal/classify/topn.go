package classify

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/Doomsbay/QCKit/internal/sections"
	"github.com/Doomsbay/QCKit/internal/taxonomy"
)

const (
	// TopNSize is the fixed length of every top-N table.
	TopNSize = 5
	// Placeholder fills unused top-N slots.
	Placeholder = "N/A"
)

// Ordinals name the top-N positions in exported tables.
var Ordinals = [TopNSize]string{"first", "second", "third", "fourth", "fifth"}

// TopNEntry is one row of a top-N table; Metric is the hit percentage.
type TopNEntry struct {
	Name   string  `json:"name"`
	Metric float64 `json:"metric"`
	Count  int64   `json:"count"`
}

// TopN always has TopNSize entries, padded with Placeholder.
type TopN [TopNSize]TopNEntry

func emptyTopN() TopN {
	var t TopN
	for i := range t {
		t[i] = TopNEntry{Name: Placeholder}
	}
	return t
}

// Filled counts the non-placeholder entries.
func (t TopN) Filled() int {
	n := 0
	for _, e := range t {
		if e.Name != Placeholder {
			n++
		}
	}
	return n
}

// MarshalJSON flattens to {"first_name": ..., "first_count": ...}.
func (t TopN) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"` + Ordinals[i] + `_name":`)
		buf.Write(name)
		buf.WriteString(`,"` + Ordinals[i] + `_count":`)
		buf.WriteString(strconv.FormatFloat(e.Metric, 'f', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// topNFromBlock reads up to TopNSize columns; labels use the short grammar
// with the rank fixed by the block.
func topNFromBlock(block sections.Block, rank taxonomy.Rank) (TopN, error) {
	out := emptyTopN()
	labels := block.Labels()
	percents, err := parseFloats(block.Header, block.Values(0))
	if err != nil {
		return out, err
	}
	var counts []int64
	if row := block.Values(1); row != nil {
		if counts, err = parseInts(block.Header, row); err != nil {
			return out, err
		}
	}
	for i, label := range labels {
		if i == TopNSize {
			break
		}
		if label == "" {
			continue
		}
		if _, err := taxonomy.ParseWithFixedRank(label, rank); err != nil {
			return out, err
		}
		out[i] = TopNEntry{Name: label, Metric: percents[i]}
		if counts != nil {
			out[i].Count = counts[i]
		}
	}
	return out, nil
}
