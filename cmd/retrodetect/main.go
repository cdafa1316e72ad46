package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"retrodetect/pkg/config"
	"retrodetect/pkg/photo"
	"retrodetect/pkg/retrodetect"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `usage: retrodetect [flags] <imgpath>

Recursively searches imgpath for frame files. Every directory is a session
whose frames are processed in file name order; candidates are written to
<session>/<sourcename>/<frame>.json.

Flags:
`

type options struct {
	imgPath   string
	verbose   bool
	after     int
	before    int
	refresh   bool
	threshold float64
	source    string
	exts      []string
	params    *retrodetect.Params
	overlay   bool
	plot      bool
	dbPath    string
}

func main() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseArgs(args, stdout)
	if err != nil {
		return err
	}
	if opts == nil {
		return nil
	}

	a, err := newApp(opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.Run(ctx)
}

// parseArgs reads flags and the image path. Flags may follow the path. A nil
// options with a nil error means the invocation was fully handled (-version,
// -h).
func parseArgs(args []string, stdout io.Writer) (*options, error) {
	fs := flag.NewFlagSet("retrodetect", flag.ContinueOnError)
	fs.SetOutput(stdout)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}

	var (
		verbose, refresh, overlay, plot, version     bool
		after, before, source, exts, cfgPath, dbPath string
		threshold                                    float64
	)
	fs.BoolVar(&verbose, "v", false, "enable debug logging")
	fs.BoolVar(&verbose, "verbose", false, "enable debug logging")
	fs.StringVar(&after, "a", "00:00:00", "only process frames whose file name time is after `HH:MM:SS`")
	fs.StringVar(&after, "after", "00:00:00", "only process frames whose file name time is after `HH:MM:SS`")
	fs.StringVar(&before, "b", "23:59:59", "only process frames whose file name time is before `HH:MM:SS`")
	fs.StringVar(&before, "before", "23:59:59", "only process frames whose file name time is before `HH:MM:SS`")
	fs.BoolVar(&refresh, "r", false, "rewrite label files that already exist")
	fs.BoolVar(&refresh, "refreshcache", false, "rewrite label files that already exist")
	fs.Float64Var(&threshold, "t", 0, "minimum score of a written candidate")
	fs.Float64Var(&threshold, "threshold", 0, "minimum score of a written candidate")
	fs.StringVar(&source, "s", "retrodetect", "source name of the labels and their output directory")
	fs.StringVar(&source, "sourcename", "retrodetect", "source name of the labels and their output directory")
	fs.StringVar(&exts, "ext", strings.Join(photo.DefaultExtensions, ","), "comma separated frame file extensions")
	fs.StringVar(&cfgPath, "config", "", "JSON tuning `file`")
	fs.BoolVar(&overlay, "overlay", false, "write annotated overlay images")
	fs.BoolVar(&plot, "plot", false, "write a score histogram per session")
	fs.StringVar(&dbPath, "db", "", "also record detections in this SQLite `file`")
	fs.BoolVar(&version, "version", false, "print version information and exit")

	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, nil
			}
			return nil, err
		}
		if fs.NArg() == 0 {
			break
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}

	if version {
		fmt.Fprintf(stdout, "retrodetect %s\n", Version)
		fmt.Fprintf(stdout, "  Build time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "  Git commit: %s\n", GitCommit)
		return nil, nil
	}
	if len(positional) != 1 {
		fs.Usage()
		return nil, fmt.Errorf("expected one image path, got %d", len(positional))
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	isSet := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	opts := &options{
		imgPath:   positional[0],
		verbose:   verbose,
		refresh:   refresh,
		threshold: threshold,
		source:    source,
		overlay:   overlay,
		plot:      plot,
		dbPath:    dbPath,
		params:    retrodetect.NewParams(),
	}

	if cfgPath != "" {
		cfg, err := config.LoadTuningConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		cfg.ApplyTo(opts.params)
		if cfg.Threshold != nil && !isSet("t", "threshold") {
			opts.threshold = *cfg.Threshold
		}
		if cfg.SourceName != nil && !isSet("s", "sourcename") {
			opts.source = *cfg.SourceName
		}
		if cfg.After != nil && !isSet("a", "after") {
			after = *cfg.After
		}
		if cfg.Before != nil && !isSet("b", "before") {
			before = *cfg.Before
		}
		if cfg.Extensions != nil && !isSet("ext") {
			exts = *cfg.Extensions
		}
	}

	var err error
	if opts.after, err = photo.ParseClock(after); err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}
	if opts.before, err = photo.ParseClock(before); err != nil {
		return nil, fmt.Errorf("before: %w", err)
	}
	if opts.source == "" {
		return nil, fmt.Errorf("source name must not be empty")
	}
	opts.exts = photo.ParseExtensions(exts)
	if len(opts.exts) == 0 {
		return nil, fmt.Errorf("no frame extensions given")
	}
	return opts, nil
}
