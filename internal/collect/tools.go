package collect

import (
	"context"
	"fmt"

	"github.com/Doomsbay/QCKit/internal/classify"
	"github.com/Doomsbay/QCKit/internal/demux"
	"github.com/Doomsbay/QCKit/internal/kmer"
	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/Doomsbay/QCKit/internal/sections"
	"go.uber.org/zap"
)

const (
	ToolDemux    = "demux"
	ToolClassify = "classify"
	ToolKmer     = "kmer"
)

// Classifications parses classifier summary reports into records keyed by
// sample name. A later file with the same sample name replaces the earlier
// one.
func Classifications(ctx context.Context, inputs []Input, copts classify.Options, opts Options) (map[string]classify.Record, []Failure, error) {
	opts = opts.normalized()
	inputs = sortInputs(inputs)
	results, err := parseAll(ctx, inputs, opts.Workers, func(in Input) (classify.Record, error) {
		return classify.Parse(sections.SplitLines(string(in.Content)), copts)
	}, opts.OnParsed)
	if err != nil {
		return nil, nil, err
	}

	records := make(map[string]classify.Record)
	var failures []Failure
	for i, r := range results {
		in := inputs[i]
		if r.err != nil {
			failures = append(failures, opts.fail(ToolClassify, in.Path, r.err))
			continue
		}
		opts.report(ToolClassify, OutcomeParsed)
		name := opts.Namer.Clean(in.SampleHint, in.Root)
		if _, dup := records[name]; dup {
			opts.Logger.Debug("duplicate sample name, overwriting",
				zap.String("tool", ToolClassify),
				zap.String("sample", name),
				zap.String("path", in.Path))
		}
		records[name] = r.value
	}
	records = Apply(opts.Filter, records)
	return finish(opts, ToolClassify, records, failures)
}

// Kmers parses k-mer analysis logs. Logs without any recognised section
// are skipped.
func Kmers(ctx context.Context, inputs []Input, opts Options) (map[string]kmer.Stats, []Failure, error) {
	opts = opts.normalized()
	inputs = sortInputs(inputs)
	results, err := parseAll(ctx, inputs, opts.Workers, func(in Input) (kmer.Stats, error) {
		return kmer.Parse(sections.SplitLines(string(in.Content))), nil
	}, opts.OnParsed)
	if err != nil {
		return nil, nil, err
	}

	records := make(map[string]kmer.Stats)
	for i, r := range results {
		in := inputs[i]
		if r.value.Empty() {
			opts.report(ToolKmer, OutcomeSkipped)
			opts.Logger.Debug("no k-mer statistics found", zap.String("path", in.Path))
			continue
		}
		opts.report(ToolKmer, OutcomeParsed)
		name := opts.Namer.Clean(in.SampleHint, in.Root)
		if _, dup := records[name]; dup {
			opts.Logger.Debug("duplicate sample name, overwriting",
				zap.String("tool", ToolKmer),
				zap.String("sample", name),
				zap.String("path", in.Path))
		}
		records[name] = r.value
	}
	records = Apply(opts.Filter, records)
	return finish(opts, ToolKmer, records, nil)
}

// Demux parses Stats.json reports concurrently, merges them in path order
// and folds the result into lane and sample views.
func Demux(ctx context.Context, inputs []Input, opts Options) (demux.Views, []Failure, error) {
	opts = opts.normalized()
	inputs = sortInputs(inputs)
	results, err := parseAll(ctx, inputs, opts.Workers, func(in Input) (*demux.Run, error) {
		return demux.Parse(in.Content, in.Path, opts.Logger)
	}, opts.OnParsed)
	if err != nil {
		return demux.Views{}, nil, err
	}

	agg := demux.NewAggregator(opts.Logger)
	var failures []Failure
	parsed := 0
	for i, r := range results {
		if r.err != nil {
			failures = append(failures, opts.fail(ToolDemux, inputs[i].Path, r.err))
			continue
		}
		opts.report(ToolDemux, OutcomeParsed)
		agg.Add(r.value)
		parsed++
	}

	views := agg.Fold().Filter(opts.Filter.Keep)
	if views.Empty() {
		opts.Observer.Samples(ToolDemux, 0)
		return views, failures, qcerr.ErrNoData
	}
	opts.Observer.Samples(ToolDemux, len(views.BySample))
	opts.Logger.Info(fmt.Sprintf("Found %d reports", parsed), zap.String("tool", ToolDemux))
	return views, failures, nil
}

func (o Options) fail(tool, path string, err error) Failure {
	o.report(tool, OutcomeFailed)
	o.Logger.Warn("skipping report", zap.String("tool", tool), zap.String("path", path), zap.Error(err))
	return Failure{Path: path, Err: err}
}

func finish[T any](opts Options, tool string, records map[string]T, failures []Failure) (map[string]T, []Failure, error) {
	opts.Observer.Samples(tool, len(records))
	if len(records) == 0 {
		return records, failures, qcerr.ErrNoData
	}
	opts.Logger.Info(fmt.Sprintf("Found %d reports", len(records)), zap.String("tool", tool))
	return records, failures, nil
}
