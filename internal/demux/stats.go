package demux

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Wire types for the demultiplexer's Stats.json. Only the fields used by
// the aggregator are declared; absent arrays decode as nil and contribute
// nothing.

type statsDoc struct {
	Flowcell          string             `json:"Flowcell"`
	RunNumber         int                `json:"RunNumber"`
	RunID             string             `json:"RunId"`
	ConversionResults []conversionResult `json:"ConversionResults"`
	UnknownBarcodes   []unknownBarcodes  `json:"UnknownBarcodes"`
}

type conversionResult struct {
	LaneNumber       int           `json:"LaneNumber"`
	TotalClustersRaw int64         `json:"TotalClustersRaw"`
	TotalClustersPF  int64         `json:"TotalClustersPF"`
	Yield            int64         `json:"Yield"`
	DemuxResults     []demuxResult `json:"DemuxResults"`
	Undetermined     *undetermined `json:"Undetermined"`
}

type demuxResult struct {
	SampleID     string        `json:"SampleId"`
	SampleName   string        `json:"SampleName"`
	IndexMetrics []indexMetric `json:"IndexMetrics"`
	NumberReads  int64         `json:"NumberReads"`
	Yield        int64         `json:"Yield"`
	ReadMetrics  []readMetric  `json:"ReadMetrics"`
}

type indexMetric struct {
	IndexSequence  string           `json:"IndexSequence"`
	MismatchCounts map[string]int64 `json:"MismatchCounts"`
}

type readMetric struct {
	ReadNumber      int   `json:"ReadNumber"`
	Yield           int64 `json:"Yield"`
	YieldQ30        int64 `json:"YieldQ30"`
	QualityScoreSum int64 `json:"QualityScoreSum"`
	TrimmedBases    int64 `json:"TrimmedBases"`
}

type undetermined struct {
	NumberReads int64        `json:"NumberReads"`
	Yield       int64        `json:"Yield"`
	ReadMetrics []readMetric `json:"ReadMetrics"`
}

type unknownBarcodes struct {
	Lane     int         `json:"Lane"`
	Barcodes barcodeList `json:"Barcodes"`
}

// barcodeList keeps the object's key order; the demultiplexer writes the
// unknown barcodes sorted by descending count.
type barcodeList []BarcodeCount

func (l *barcodeList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*l = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("unknown barcodes: expected object, got %v", tok)
	}
	var out barcodeList
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unknown barcodes: expected key, got %v", keyTok)
		}
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("unknown barcodes %s: %w", key, err)
		}
		f, err := n.Float64()
		if err != nil {
			return fmt.Errorf("unknown barcodes %s: %w", key, err)
		}
		out = append(out, BarcodeCount{Barcode: key, Count: int64(math.Trunc(f))})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}
