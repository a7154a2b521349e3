package cmd

import (
	"fmt"
	"os"
)

func Execute(args []string) {
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "demux":
		runDemux(args[1:])
	case "classify":
		runClassify(args[1:])
	case "kmer":
		runKmer(args[1:])
	case "run":
		runAll(args[1:])
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown subcommand: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "QCKit - sequencing QC report aggregation")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  qckit <command> [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  demux      Aggregate demultiplexer Stats.json reports by lane and sample")
	fmt.Fprintln(os.Stderr, "  classify   Parse classifier summary reports per sample")
	fmt.Fprintln(os.Stderr, "  kmer       Parse k-mer spectrum analysis logs per sample")
	fmt.Fprintln(os.Stderr, "  run        All of the above into one export batch")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Run 'qckit <command> -h' for command-specific options.")
}
