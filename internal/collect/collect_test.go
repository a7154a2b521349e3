package collect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Doomsbay/QCKit/internal/classify"
	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type suffixNamer struct{}

func (suffixNamer) Clean(hint, _ string) string {
	return strings.TrimSuffix(strings.TrimSuffix(hint, ".json"), ".txt")
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	samples  map[string]int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{outcomes: map[string]int{}, samples: map[string]int{}}
}

func (o *countingObserver) Report(tool, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes[tool+"/"+outcome]++
}

func (o *countingObserver) Samples(tool string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.samples[tool] = n
}

func TestParseAllKeepsInputOrder(t *testing.T) {
	var inputs []Input
	for i := 0; i < 50; i++ {
		inputs = append(inputs, Input{Path: fmt.Sprintf("f%02d", i)})
	}
	var calls atomic.Int64
	results, err := parseAll(context.Background(), inputs, 4, func(in Input) (string, error) {
		if in.Path == "f07" {
			return "", errors.New("boom")
		}
		return in.Path + "!", nil
	}, func(string, error) { calls.Add(1) })
	require.NoError(t, err)
	require.Len(t, results, 50)
	assert.Equal(t, int64(50), calls.Load())
	assert.Equal(t, "f00!", results[0].value)
	assert.Equal(t, "f49!", results[49].value)
	assert.Error(t, results[7].err)
}

func TestParseAllCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := parseAll(ctx, []Input{{Path: "a"}}, 1, func(Input) (int, error) { return 1, nil }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseAllSucceedsWithLiveContext(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		n       int
	}{
		{name: "single worker single input", workers: 1, n: 1},
		{name: "more workers than inputs", workers: 8, n: 3},
		{name: "no inputs", workers: 2, n: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inputs := make([]Input, tc.n)
			results, err := parseAll(context.Background(), inputs, tc.workers, func(Input) (int, error) { return 1, nil }, nil)
			require.NoError(t, err)
			assert.Len(t, results, tc.n)
		})
	}

	records, _, err := Kmers(context.Background(), []Input{
		{Path: "a.txt", SampleHint: "a", Content: []byte("Estimated genome size: 1.5 Mbp\n")},
	}, Options{Workers: 1})
	require.NoError(t, err)
	require.Contains(t, records, "a")
	assert.Equal(t, int64(1500000), *records["a"].EstGenomeSize)
}

const demuxDoc = `{"RunId": "%s", "ConversionResults": [{"LaneNumber": 1, "DemuxResults": [
  {"SampleName": "%s", "NumberReads": 100, "Yield": 1000,
   "IndexMetrics": [{"IndexSequence": "AC", "MismatchCounts": {"0": 90}}],
   "ReadMetrics": [{"YieldQ30": 800, "QualityScoreSum": 3000}]}]}]}`

func TestDemuxSkipsBadFilesAndFilters(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	filter, err := NewGlobFilter([]string{"ignored*"})
	require.NoError(t, err)
	obs := newCountingObserver()

	inputs := []Input{
		{Path: "c.json", Content: []byte(fmt.Sprintf(demuxDoc, "RUN2", "ignored_1"))},
		{Path: "a.json", Content: []byte(fmt.Sprintf(demuxDoc, "RUN1", "S1"))},
		{Path: "b.json", Content: []byte(`{not json`)},
	}
	views, failures, err := Demux(context.Background(), inputs, Options{
		Workers:  2,
		Filter:   filter,
		Logger:   zap.New(core),
		Observer: obs,
	})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "b.json", failures[0].Path)
	var de *qcerr.DecodeError
	assert.ErrorAs(t, failures[0].Err, &de)

	assert.Equal(t, []string{"S1"}, views.SampleNames())
	assert.Equal(t, []string{"RUN1 - L1", "RUN2 - L1"}, views.LaneNames())
	assert.InDelta(t, 90.0, views.ByLane["RUN1 - L1"].PercentPerfectIndex, 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("skipping report").Len())
	assert.Equal(t, 2, obs.outcomes["demux/parsed"])
	assert.Equal(t, 1, obs.outcomes["demux/failed"])
	assert.Equal(t, 1, obs.samples["demux"])
}

func TestDemuxNoData(t *testing.T) {
	_, failures, err := Demux(context.Background(), []Input{{Path: "x.json", Content: []byte("[]")}}, Options{})
	assert.ErrorIs(t, err, qcerr.ErrNoData)
	assert.Len(t, failures, 1)
}

const classifyDoc = "Total hits: %d\n" +
	"Classified Taxon: Escherichia coli (id:562; rank:species)\n" +
	"Classified Taxon's Lineage\n" +
	"Root (id:1; rank:root)\tEscherichia coli (id:562; rank:species)\n" +
	"50.0\t100.0\n" +
	"5\t10\n" +
	"Kingdom Perc\n" +
	"Bacteria (taxid 2)\n" +
	"100.0\n" +
	"10\n" +
	"Rank Perc\n" +
	"Root (id:1; rank:root)\tEscherichia coli (id:562; rank:species)\n" +
	"50.0\t100.0\n" +
	"5\t10\n" +
	"Top 5 Species\n" +
	"Escherichia coli (taxid 562)\n" +
	"100.0\n" +
	"10\n"

func TestClassificationsDuplicateSampleOverwrites(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	inputs := []Input{
		{Path: "run2/S1.txt", SampleHint: "S1.txt", Content: []byte(fmt.Sprintf(classifyDoc, 20))},
		{Path: "run1/S1.txt", SampleHint: "S1.txt", Content: []byte(fmt.Sprintf(classifyDoc, 10))},
		{Path: "run1/S2.txt", SampleHint: "S2.txt", Content: []byte("garbage")},
	}
	records, failures, err := Classifications(context.Background(), inputs, classify.DefaultOptions(), Options{
		Namer:  suffixNamer{},
		Logger: zap.New(core),
	})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures[0].Err, qcerr.ErrSectionNotFound)

	require.Contains(t, records, "S1")
	// run2 sorts after run1, so it wins
	assert.Equal(t, int64(20), records["S1"].TotalHits)
	assert.Equal(t, 1, logs.FilterMessage("duplicate sample name, overwriting").Len())
}

func TestKmersSkipsEmpty(t *testing.T) {
	log := "Estimated genome size: 2.5 Mbp\n"
	records, _, err := Kmers(context.Background(), []Input{
		{Path: "a.dist_analysis.txt", SampleHint: "a.txt", Content: []byte(log)},
		{Path: "b.dist_analysis.txt", SampleHint: "b.txt", Content: []byte("nothing here\n")},
	}, Options{Namer: suffixNamer{}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, SortedKeys(records))
	require.NotNil(t, records["a"].EstGenomeSize)
	assert.Equal(t, int64(2500000), *records["a"].EstGenomeSize)

	_, _, err = Kmers(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, qcerr.ErrNoData)
}

func TestGlobFilter(t *testing.T) {
	f, err := NewGlobFilter([]string{"neg_*", "", "blank"})
	require.NoError(t, err)
	got := Apply(f, map[string]int{"neg_1": 1, "S1": 2, "blank": 3})
	assert.Equal(t, map[string]int{"S1": 2}, got)

	_, err = NewGlobFilter([]string{"[x"})
	assert.Error(t, err)
}
