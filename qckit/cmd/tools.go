package cmd

import (
	"context"

	"github.com/Doomsbay/QCKit/internal/collect"
	"github.com/Doomsbay/QCKit/internal/config"
	"github.com/Doomsbay/QCKit/internal/tables"
)

var (
	demuxTool = tool{
		name:     collect.ToolDemux,
		settings: func(c config.Config) config.ToolConfig { return c.Demux },
		build: func(ctx context.Context, _ *session, inputs []collect.Input, opts collect.Options) ([]tables.Table, []collect.Failure, error) {
			views, failures, err := collect.Demux(ctx, inputs, opts)
			if err != nil {
				return nil, failures, err
			}
			return append(tables.Demux(views), tables.DemuxBars(views)...), failures, nil
		},
	}

	classifyTool = tool{
		name:     collect.ToolClassify,
		settings: func(c config.Config) config.ToolConfig { return c.Classify.ToolConfig },
		build: func(ctx context.Context, s *session, inputs []collect.Input, opts collect.Options) ([]tables.Table, []collect.Failure, error) {
			records, failures, err := collect.Classifications(ctx, inputs, s.cfg.ClassifyOptions(), opts)
			if err != nil {
				return nil, failures, err
			}
			return tables.Classify(records), failures, nil
		},
	}

	kmerTool = tool{
		name:     collect.ToolKmer,
		settings: func(c config.Config) config.ToolConfig { return c.Kmer },
		build: func(ctx context.Context, _ *session, inputs []collect.Input, opts collect.Options) ([]tables.Table, []collect.Failure, error) {
			records, failures, err := collect.Kmers(ctx, inputs, opts)
			if err != nil {
				return nil, failures, err
			}
			return tables.Kmer(records), failures, nil
		},
	}
)

func runDemux(args []string) {
	runTools("demux", args, demuxTool)
}

func runClassify(args []string) {
	runTools("classify", args, classifyTool)
}

func runKmer(args []string) {
	runTools("kmer", args, kmerTool)
}

func runAll(args []string) {
	runTools("run", args, demuxTool, classifyTool, kmerTool)
}
