package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/fukaraca/monitorbuf/internal/logging"
)

var errUsage = errors.New("usage error")

// Options contains the command-line configuration for primebuf.
type Options struct {
	//
	// Run sizes, from the positional arguments.
	//
	ItemsPerProducer int // Primes generated and pushed by every producer.
	Producers        int // Number of producer goroutines.
	Consumers        int // Number of consumer goroutines.
	//
	// Behaviour.
	//
	BusyWork bool // Burn value square roots of CPU per consumed item.
	//
	// Diagnostics.
	//
	LogVerbosity int    // Number for the log level verbosity.
	Development  bool   // Human readable console logs.
	MetricsFile  string // Write prometheus text metrics here after the run.
}

// NewOptions returns a new Options struct initialized with default values.
func NewOptions() *Options {
	return &Options{
		LogVerbosity: logging.DEFAULT,
	}
}

// AddFlags binds the Options fields to command-line flags on the given FlagSet.
func (opts *Options) AddFlags(fs *pflag.FlagSet) {
	if fs == nil {
		fs = pflag.CommandLine
	}
	fs.BoolVar(&opts.BusyWork, "busy-work", opts.BusyWork,
		"Burn one square root per unit of item value in every consumer before printing it.")
	fs.IntVarP(&opts.LogVerbosity, "v", "v", opts.LogVerbosity,
		"Number for the log level verbosity.")
	fs.BoolVar(&opts.Development, "zap-devel", opts.Development,
		"Use the human readable console log encoder.")
	fs.StringVar(&opts.MetricsFile, "metrics-file", opts.MetricsFile,
		"Write the run metrics in prometheus text format to this file.")
}

// Complete fills the run sizes from the positional arguments left after flag parsing.
func (opts *Options) Complete(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("%w: expected 3 positional arguments, got %d", errUsage, len(args))
	}
	targets := []struct {
		name string
		dst  *int
	}{
		{"items-per-producer", &opts.ItemsPerProducer},
		{"producers", &opts.Producers},
		{"consumers", &opts.Consumers},
	}
	for i, t := range targets {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return fmt.Errorf("%w: invalid value %q for %s: must be an integer", errUsage, args[i], t.name)
		}
		*t.dst = n
	}
	return nil
}

// Validate checks the Options for invalid or conflicting values.
func (opts *Options) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"items-per-producer", opts.ItemsPerProducer},
		{"producers", opts.Producers},
		{"consumers", opts.Consumers},
	} {
		if v.value < 1 {
			return fmt.Errorf("%w: invalid value %d for %s: must be a positive integer", errUsage, v.value, v.name)
		}
	}
	if opts.LogVerbosity < 0 || opts.LogVerbosity > logging.MaxVerbosity {
		return fmt.Errorf("%w: invalid value %d for flag %q: must be between 0 and %d",
			errUsage, opts.LogVerbosity, "v", logging.MaxVerbosity)
	}
	return nil
}
