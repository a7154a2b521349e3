// Package collect runs the report parsers over many inputs and merges the
// per-file records into sample-keyed mappings.
package collect

import (
	"context"
	"runtime"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Input is one loaded report.
type Input struct {
	Path       string
	Root       string
	SampleHint string
	Content    []byte
}

// Namer maps a file name hint to a canonical sample name.
type Namer interface {
	Clean(hint, root string) string
}

// Observer receives per-file outcomes; telemetry implements it.
type Observer interface {
	Report(tool, outcome string)
	Samples(tool string, n int)
}

const (
	OutcomeParsed  = "parsed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Failure is an input that produced no record.
type Failure struct {
	Path string
	Err  error
}

// Options are shared by all collectors.
type Options struct {
	// Workers bounds parser goroutines; <=0 uses GOMAXPROCS.
	Workers  int
	Namer    Namer
	Filter   GlobFilter
	Logger   *zap.Logger
	Observer Observer
	// OnParsed is called once per input after parsing, from worker
	// goroutines.
	OnParsed func(path string, err error)
}

func (o Options) normalized() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Namer == nil {
		o.Namer = baseName{}
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

func (o Options) report(tool, outcome string) {
	o.Observer.Report(tool, outcome)
}

type baseName struct{}

func (baseName) Clean(hint, _ string) string { return hint }

type nopObserver struct{}

func (nopObserver) Report(string, string) {}
func (nopObserver) Samples(string, int)   {}

type result[T any] struct {
	value T
	err   error
}

// parseAll runs fn over every input with at most workers in flight. Each
// result lands in the slot of its input, so merge order never depends on
// completion order. Parse errors stay in the slots; only context
// cancellation fails the call.
func parseAll[T any](ctx context.Context, inputs []Input, workers int, fn func(Input) (T, error), onParsed func(string, error)) ([]result[T], error) {
	out := make([]result[T], len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range inputs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			v, err := fn(inputs[i])
			out[i] = result[T]{value: v, err: err}
			if onParsed != nil {
				onParsed(inputs[i].Path, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// gctx is always done after Wait; only the caller's ctx matters here.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// sortInputs orders inputs by path so that later duplicates are stable.
func sortInputs(inputs []Input) []Input {
	sorted := append([]Input(nil), inputs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	return sorted
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
