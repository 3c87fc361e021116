package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/peregrine-sdr/peregrine/internal/pipeline"
	"github.com/peregrine-sdr/peregrine/internal/samples"
)

// cliOptions is the parsed command line.
type cliOptions struct {
	Source    string
	ConfigDir string
	Pipeline  pipeline.Options
}

// flagBindings maps flags that override configuration to their viper keys.
var flagBindings = map[string]string{
	"log-level":        "logLevel",
	"checkpoint-store": "checkpoint.store",
	"plot-dir":         "plot.dir",
	"ms":               "receiver.msToProcess",
}

func newFlagSet(out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("peregrine", pflag.ContinueOnError)
	fs.SetOutput(out)
	fs.Usage = func() {
		fmt.Fprintf(out, "Usage: peregrine [flags] <sample file>\n\nFlags:\n")
		fs.PrintDefaults()
	}

	fs.BoolP("skip-acquisition", "a", false, "use previously saved acquisition results")
	fs.BoolP("skip-tracking", "t", false, "use previously saved tracking results")
	fs.BoolP("skip-navigation", "n", false, "do not compute navigation solutions")
	fs.StringP("file-format", "f", "", fmt.Sprintf("sample file format (%s)", strings.Join(samples.Formats(), ", ")))

	fs.String("config-dir", ".", "directory holding peregrine.cfg.json")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("checkpoint-store", "", "checkpoint backend (file, sqlite, postgres, memory)")
	fs.String("plot-dir", "", "write diagnostic plots into this directory")
	fs.Int("ms", 0, "milliseconds of signal to track")
	return fs
}

// parseFlags parses args (without the program name) and binds the
// configuration overrides into viper.
func parseFlags(args []string, out io.Writer) (cliOptions, error) {
	fs := newFlagSet(out)
	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return cliOptions{}, errors.New("exactly one sample file is required")
	}

	var opts cliOptions
	opts.Source = fs.Arg(0)
	opts.ConfigDir, _ = fs.GetString("config-dir")
	opts.Pipeline.SkipAcquisition, _ = fs.GetBool("skip-acquisition")
	opts.Pipeline.SkipTracking, _ = fs.GetBool("skip-tracking")
	opts.Pipeline.SkipNavigation, _ = fs.GetBool("skip-navigation")
	opts.Pipeline.Format, _ = fs.GetString("file-format")

	if f := opts.Pipeline.Format; f != "" && !slices.Contains(samples.Formats(), f) {
		return cliOptions{}, fmt.Errorf("%w: %q", samples.ErrUnknownFormat, f)
	}

	for flag, key := range flagBindings {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return cliOptions{}, fmt.Errorf("failed to bind --%s: %w", flag, err)
		}
	}
	return opts, nil
}
