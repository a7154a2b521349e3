package demux

import (
	"encoding/json"
	"testing"

	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const singleLane = `{
  "Flowcell": "FC1",
  "RunId": "RUN1",
  "ConversionResults": [
    {
      "LaneNumber": 1,
      "DemuxResults": [
        {
          "SampleName": "S1",
          "NumberReads": 100,
          "Yield": 1000,
          "IndexMetrics": [{"IndexSequence": "ACGT", "MismatchCounts": {"0": 90, "1": 10}}],
          "ReadMetrics": [{"ReadNumber": 1, "Yield": 1000, "YieldQ30": 800, "QualityScoreSum": 3000}]
        }
      ]
    }
  ]
}`

func TestParseSingleLaneEndToEnd(t *testing.T) {
	run, err := Parse([]byte(singleLane), "runs/Stats.json", nil)
	require.NoError(t, err)
	agg := NewAggregator(nil)
	agg.Add(run)
	v := agg.Fold()

	lane, ok := v.ByLane["RUN1 - L1"]
	require.True(t, ok)
	assert.Equal(t, int64(100), lane.Total)
	assert.InDelta(t, 90.0, lane.PercentPerfectIndex, 1e-9)
	assert.InDelta(t, 80.0, lane.PercentQ30, 1e-9)
	assert.InDelta(t, 3.0, lane.MeanQscore, 1e-9)
	assert.False(t, lane.Undetermined.Valid)

	s1, ok := v.BySample["S1"]
	require.True(t, ok)
	assert.Equal(t, int64(100), s1.Total)
	assert.Equal(t, "ACGT", s1.Barcode)
	assert.Equal(t, map[string]int64{"L1": 100}, v.BySampleLane["S1"])
	assert.Equal(t, []string{"runs/Stats.json"}, v.SourceFiles["S1"])
}

func TestParseUndeterminedAndUnknownBarcodes(t *testing.T) {
	doc := `{
  "RunId": "RUN2",
  "ConversionResults": [
    {
      "LaneNumber": 2,
      "DemuxResults": [
        {"SampleName": "A", "NumberReads": 40, "Yield": 400},
        {"SampleName": "B", "NumberReads": 60, "Yield": 600, "IndexMetrics": [
          {"IndexSequence": "", "MismatchCounts": {"0": 10}},
          {"IndexSequence": "TTTT", "MismatchCounts": {"0": 50}}
        ]}
      ],
      "Undetermined": {"NumberReads": 7, "Yield": 70, "ReadMetrics": [{"YieldQ30": 35, "QualityScoreSum": 140}]}
    }
  ],
  "UnknownBarcodes": [
    {"Lane": 2, "Barcodes": {"GGGG": 5, "CCCC": 3, "AAAA": 1}},
    {"Lane": 9, "Barcodes": {"TTTT": 1}}
  ]
}`
	run, err := Parse([]byte(doc), "b.json", zap.NewNop())
	require.NoError(t, err)
	lane := run.Lanes["L2"]
	require.NotNil(t, lane)

	// undetermined reads are not added to the lane totals
	assert.Equal(t, int64(100), lane.Total)
	assert.Equal(t, int64(60), lane.PerfectIndex)
	undet, ok := lane.Undetermined()
	require.True(t, ok)
	assert.Equal(t, int64(7), undet)
	assert.Equal(t, "TTTT", lane.Samples["B"].Barcode)

	assert.Equal(t, BarcodeCount{Barcode: "GGGG", Count: 5}, lane.Unknown[0])
	assert.Equal(t, BarcodeCount{Barcode: "AAAA", Count: 1}, lane.Unknown[2])
	assert.Equal(t, BarcodeCount{Barcode: BarcodePlaceholder}, lane.Unknown[3])
	assert.Equal(t, BarcodeCount{Barcode: BarcodePlaceholder}, lane.Unknown[4])

	agg := NewAggregator(nil)
	agg.Add(run)
	v := agg.Fold()
	assert.Equal(t, OptionalCount{Value: 7, Valid: true}, v.ByLane["RUN2 - L2"].Undetermined)
	assert.NotContains(t, v.SourceFiles, UndeterminedSample)
	assert.Contains(t, v.BySample, UndeterminedSample)
}

func TestUnknownBarcodesTruncatedToFive(t *testing.T) {
	doc := `{"RunId": "R", "ConversionResults": [{"LaneNumber": 1}],
  "UnknownBarcodes": [{"Lane": 1, "Barcodes": {"A": 9, "C": 8, "G": 7, "T": 6, "N": 5, "AA": 4}}]}`
	run, err := Parse([]byte(doc), "x.json", nil)
	require.NoError(t, err)
	got := run.Lanes["L1"].Unknown
	assert.Equal(t, "N", got[4].Barcode)
	assert.Equal(t, int64(5), got[4].Count)
}

func TestDuplicateLaneOverwrites(t *testing.T) {
	doc := `{"RunId": "RUN1", "ConversionResults": [
    {"LaneNumber": 1, "DemuxResults": [{"SampleName": "S1", "NumberReads": 100, "Yield": 1000}]},
    {"LaneNumber": 1, "DemuxResults": [{"SampleName": "S2", "NumberReads": 5, "Yield": 50}]}
  ]}`
	core, logs := observer.New(zapcore.DebugLevel)
	run, err := Parse([]byte(doc), "dup.json", zap.New(core))
	require.NoError(t, err)

	lane := run.Lanes["L1"]
	assert.Equal(t, int64(5), lane.Total)
	assert.NotContains(t, lane.Samples, "S1")
	assert.Equal(t, 1, logs.FilterMessage("duplicate run/lane, overwriting").Len())
}

func TestAggregatorMergesRunsAcrossFiles(t *testing.T) {
	first := `{"RunId": "RUN1", "ConversionResults": [{"LaneNumber": 1, "DemuxResults": [{"SampleName": "S1", "NumberReads": 10, "Yield": 100}]}]}`
	second := `{"RunId": "RUN1", "ConversionResults": [{"LaneNumber": 2, "DemuxResults": [{"SampleName": "S1", "NumberReads": 30, "Yield": 300}]}]}`
	other := `{"Flowcell": "FC9", "ConversionResults": [{"LaneNumber": 1, "DemuxResults": [{"SampleName": "S1", "NumberReads": 5, "Yield": 50}]}]}`

	agg := NewAggregator(nil)
	for i, doc := range []string{first, second, other} {
		run, err := Parse([]byte(doc), []string{"a", "b", "c"}[i], nil)
		require.NoError(t, err)
		agg.Add(run)
	}
	assert.Equal(t, []string{"FC9", "RUN1"}, agg.RunIDs())

	v := agg.Fold()
	assert.Equal(t, []string{"FC9 - L1", "RUN1 - L1", "RUN1 - L2"}, v.LaneNames())
	assert.Equal(t, int64(45), v.BySample["S1"].Total)
	assert.Equal(t, map[string]int64{"L1": 15, "L2": 30}, v.BySampleLane["S1"])
	assert.Equal(t, []string{"a", "b", "c"}, v.SourceFiles["S1"])
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "invalid json", doc: `{"RunId": `},
		{name: "no run id", doc: `{"ConversionResults": []}`, want: ErrMissingRunID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc), "bad.json", nil)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
				return
			}
			var de *qcerr.DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestEmptyLaneUsesZeroRatios(t *testing.T) {
	run, err := Parse([]byte(`{"RunId": "R", "ConversionResults": [{"LaneNumber": 3}]}`), "z.json", nil)
	require.NoError(t, err)
	agg := NewAggregator(nil)
	agg.Add(run)
	lane := agg.Fold().ByLane["R - L3"]
	assert.Zero(t, lane.PercentQ30)
	assert.Zero(t, lane.PercentPerfectIndex)
	assert.Zero(t, lane.MeanQscore)
}

func TestViewsFilterAndDerivedTables(t *testing.T) {
	run, err := Parse([]byte(singleLane), "s.json", nil)
	require.NoError(t, err)
	agg := NewAggregator(nil)
	agg.Add(run)
	v := agg.Fold()

	gs := v.GeneralStats()["S1"]
	assert.Equal(t, "90.0", gs.PerfectPercent)
	assert.Equal(t, int64(800), gs.YieldQ30)

	bars := v.LaneBars()["RUN1 - L1"]
	assert.Equal(t, int64(90), bars.Perfect)
	assert.Equal(t, int64(10), bars.Imperfect)

	filtered := v.Filter(func(name string) bool { return name != "S1" })
	assert.NotContains(t, filtered.BySample, "S1")
	assert.Contains(t, filtered.ByLane, "RUN1 - L1")
	assert.True(t, v.Filter(func(string) bool { return false }).Empty())
}

func TestLaneRecordJSON(t *testing.T) {
	rec := LaneRecord{RunID: "R", Lane: "L1", Counts: Counts{Total: 4}}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "NA", m["undetermined"])
	assert.EqualValues(t, 4, m["total"])
	assert.Contains(t, m, "percent_perfectIndex")
	assert.NotContains(t, m, "Unknown")

	ub, err := json.Marshal(UnknownBarcodes{{Barcode: "AC", Count: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_barcode":"AC","first_count":2,"second_barcode":"","second_count":0,
		"third_barcode":"","third_count":0,"fourth_barcode":"","fourth_count":0,"fifth_barcode":"","fifth_count":0}`, string(ub))
}
