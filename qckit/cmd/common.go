package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Doomsbay/QCKit/internal/collect"
	"github.com/Doomsbay/QCKit/internal/config"
	"github.com/Doomsbay/QCKit/internal/discover"
	"github.com/Doomsbay/QCKit/internal/export"
	"github.com/Doomsbay/QCKit/internal/logging"
	"github.com/Doomsbay/QCKit/internal/qcerr"
	"github.com/Doomsbay/QCKit/internal/tables"
	"github.com/Doomsbay/QCKit/internal/telemetry"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

var sugar = zap.NewNop().Sugar()

func logf(format string, args ...any) {
	sugar.Infof(format, args...)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[qckit] "+format+"\n", args...)
	_ = sugar.Sync()
	os.Exit(1)
}

// commonFlags are shared by every subcommand. Only flags given on the
// command line override the config file and environment.
type commonFlags struct {
	config   *string
	root     *string
	input    *string
	out      *string
	formats  *string
	ignore   *string
	logLevel *string
	metrics  *string
	workers  *int
	progress *bool
	verbose  *bool
	force    *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:   fs.String("config", "", "YAML config file"),
		root:     fs.String("root", ".", "Directory searched for reports"),
		input:    fs.String("input", "", "Comma-separated report glob patterns (default: from config)"),
		out:      fs.String("out", "qckit_data", "Output directory"),
		formats:  fs.String("formats", "json,tsv", "Export formats ("+strings.Join(export.Names(), ",")+")"),
		ignore:   fs.String("ignore-samples", "", "Comma-separated sample name globs to drop"),
		logLevel: fs.String("log-level", "info", "Log level (debug,info,warn,error)"),
		metrics:  fs.String("metrics-file", "", "Write Prometheus textfile metrics here"),
		workers:  fs.Int("workers", 0, "Parser worker goroutines (<=0 defaults to GOMAXPROCS)"),
		progress: fs.Bool("progress", true, "Show progress bar"),
		verbose:  fs.Bool("verbose", false, "Debug logging"),
		force:    fs.Bool("force", false, "Overwrite existing outputs"),
	}
}

// load resolves defaults < config file < QCKIT_* env < explicit flags.
// tool selects which tool's patterns -input overrides; empty means none.
func (f *commonFlags) load(fs *flag.FlagSet, tool string) (config.Config, error) {
	cfg, err := config.Load(*f.config)
	if err != nil {
		return config.Config{}, err
	}
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "root":
			cfg.Root = *f.root
		case "input":
			patterns := splitList(*f.input)
			switch tool {
			case collect.ToolDemux:
				cfg.Demux.Patterns = patterns
			case collect.ToolClassify:
				cfg.Classify.Patterns = patterns
			case collect.ToolKmer:
				cfg.Kmer.Patterns = patterns
			}
		case "out":
			cfg.Output.Dir = *f.out
		case "formats":
			cfg.Output.Formats = splitList(*f.formats)
		case "ignore-samples":
			cfg.IgnoreSamples = splitList(*f.ignore)
		case "log-level":
			cfg.LogLevel = *f.logLevel
		case "metrics-file":
			cfg.MetricsFile = *f.metrics
		case "workers":
			cfg.Workers = *f.workers
		case "progress":
			cfg.Progress = *f.progress
		case "force":
			cfg.Output.Force = *f.force
		}
	})
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// session carries what one command invocation shares across tools.
type session struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *telemetry.Recorder
	filter  collect.GlobFilter
}

func newSession(cfg config.Config, verbose bool) (*session, error) {
	logger, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}
	sugar = logger.Sugar()
	filter, err := collect.NewGlobFilter(cfg.IgnoreSamples)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, metrics: telemetry.NewRecorder(), filter: filter}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// load finds and reads a tool's reports. Unreadable files are logged and
// skipped.
func (s *session) load(tool string, tc config.ToolConfig) ([]collect.Input, error) {
	paths, err := discover.Find(tc.Patterns, s.cfg.Root)
	if err != nil {
		return nil, err
	}
	inputs := make([]collect.Input, 0, len(paths))
	for _, p := range paths {
		in, err := discover.Load(p)
		if err != nil {
			s.metrics.Report(tool, collect.OutcomeFailed)
			s.logger.Warn("skipping unreadable report", zap.String("tool", tool), zap.String("path", p), zap.Error(err))
			continue
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func (s *session) options(tool string, tc config.ToolConfig, total int) (collect.Options, func()) {
	opts := collect.Options{
		Workers:  s.cfg.Workers,
		Namer:    discover.Cleaner{Suffixes: tc.Suffixes},
		Filter:   s.filter,
		Logger:   s.logger,
		Observer: s.metrics,
	}
	if !s.cfg.Progress || total == 0 {
		return opts, func() {}
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(tool),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	opts.OnParsed = func(string, error) {
		_ = bar.Add(1)
	}
	return opts, func() { _ = bar.Finish() }
}

// tool ties a report type to its collector and table layout.
type tool struct {
	name     string
	settings func(config.Config) config.ToolConfig
	build    func(ctx context.Context, s *session, inputs []collect.Input, opts collect.Options) ([]tables.Table, []collect.Failure, error)
}

// collect runs one tool. A tool with nothing to report returns
// qcerr.ErrNoData.
func (s *session) collect(ctx context.Context, t tool) ([]tables.Table, error) {
	tc := t.settings(s.cfg)
	inputs, err := s.load(t.name, tc)
	if err != nil {
		return nil, fmt.Errorf("%s: find reports: %w", t.name, err)
	}
	opts, done := s.options(t.name, tc, len(inputs))
	tbls, failures, err := t.build(ctx, s, inputs, opts)
	done()
	if len(failures) > 0 {
		logf("%s: %d of %d reports skipped", t.name, len(failures), len(inputs))
	}
	if err != nil {
		return nil, err
	}
	return tbls, nil
}

func (s *session) export(tbls []tables.Table) error {
	res, err := export.Export(tbls, export.Options{
		Dir:       s.cfg.Output.Dir,
		Formats:   s.cfg.Output.Formats,
		Units:     tables.Units{Prefix: s.cfg.Output.BasePrefix, Multiplier: s.cfg.Output.BaseMultiplier},
		Checksums: s.cfg.Output.Checksums,
		Manifest:  s.cfg.Output.Manifest,
		Force:     s.cfg.Output.Force,
		Logger:    s.logger,
	})
	if err != nil {
		return err
	}
	logf("export %s: %d files -> %s", res.BatchID, len(res.Files), s.cfg.Output.Dir)
	return nil
}

func (s *session) writeMetrics() {
	if s.cfg.MetricsFile == "" {
		return
	}
	if err := s.metrics.WriteTextfile(s.cfg.MetricsFile); err != nil {
		s.logger.Warn("metrics not written", zap.Error(err))
	}
}

// runTools parses the shared flags and runs the tools.
func runTools(name string, args []string, tools ...tool) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}
	if err := aggregate(fs, flags, tools...); err != nil {
		fatalf("%s failed: %v", name, err)
	}
}

// aggregate collects every tool and exports what was found in one batch.
// Tools without reports are skipped; if none had any, nothing is written.
func aggregate(fs *flag.FlagSet, flags *commonFlags, tools ...tool) error {
	toolName := ""
	if len(tools) == 1 {
		toolName = tools[0].name
	}
	cfg, err := flags.load(fs, toolName)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	s, err := newSession(cfg, *flags.verbose)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer s.close()

	ctx := context.Background()
	var all []tables.Table
	for _, t := range tools {
		tbls, err := s.collect(ctx, t)
		if errors.Is(err, qcerr.ErrNoData) {
			logf("%s: no reports found", t.name)
			continue
		}
		if err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		all = append(all, tbls...)
	}
	s.writeMetrics()
	if len(all) == 0 {
		logf("nothing to report")
		return nil
	}
	if err := s.export(all); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}
