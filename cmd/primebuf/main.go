// Command primebuf pushes the first N primes from every producer through a shared
// monitor buffer and prints them from a pool of consumers.
//
//	primebuf [flags] <items-per-producer> <producers> <consumers>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/fukaraca/monitorbuf"
	"github.com/fukaraca/monitorbuf/internal/logging"
	"github.com/fukaraca/monitorbuf/internal/primes"
)

const (
	exitFatal = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts := NewOptions()
	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: %s [flags] <items-per-producer> <producers> <consumers>\n", args[0])
		fs.PrintDefaults()
	}
	opts.AddFlags(fs)

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	if err := opts.Complete(fs.Args()); err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return exitUsage
	}
	if err := opts.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		fs.Usage()
		return exitUsage
	}

	logger, err := logging.NewLogger(opts.LogVerbosity, opts.Development)
	if err != nil {
		fmt.Fprintf(stderr, "failed to create logger: %v\n", err)
		return exitFatal
	}
	defer func() { _ = logging.Sync(logger) }()
	setupLog := logger.WithName("setup")

	reg := prometheus.NewRegistry()
	metrics := monitorbuf.NewMetrics()
	metrics.Register(reg)

	var sink monitorbuf.Sink[int] = monitorbuf.NewWriterSink[int](stdout)
	if opts.BusyWork {
		sink = monitorbuf.BusyWorkSink[int]{Next: sink}
	}

	coord, err := monitorbuf.NewCoordinator[int](primes.Source{}, sink,
		monitorbuf.WithLogger(logger),
		monitorbuf.WithMetrics(metrics))
	if err != nil {
		setupLog.Error(err, "Failed to create coordinator")
		return exitFatal
	}

	report, err := coord.Run(monitorbuf.RunConfig{
		ItemsPerProducer: opts.ItemsPerProducer,
		Producers:        opts.Producers,
		Consumers:        opts.Consumers,
	})
	if opts.MetricsFile != "" {
		if werr := prometheus.WriteToTextfile(opts.MetricsFile, reg); werr != nil {
			setupLog.Error(werr, "Failed to write metrics", "path", opts.MetricsFile)
		}
	}
	if err != nil {
		setupLog.Error(err, "Run failed")
		return exitFatal
	}

	fmt.Fprintf(stdout, "all %d producers and %d consumers finished: %d items pushed, %d processed\n",
		opts.Producers, opts.Consumers, report.Pushed, report.Processed)
	return 0
}
