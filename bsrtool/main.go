// Command bsrtool inspects, generates, captures, reduces and converts BSR
// recordings from the command line.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/itohio/gobsr/pkg/config"
	"github.com/itohio/gobsr/pkg/logging"
)

// errUsage is returned after printing usage for bad arguments.
var errUsage = errors.New("usage")

type command struct {
	name    string
	summary string
	run     func(t *tool, ctx context.Context, args []string) error
}

var commands = []command{
	{"info", "print summary and channel statistics", (*tool).info},
	{"gen", "write a synthetic recording from the mock device", (*tool).gen},
	{"capture", "record frames from a serial device", (*tool).capture},
	{"reduce", "print the downsampled view of a time window as CSV", (*tool).reduce},
	{"wav2bsr", "convert a PCM WAV file into a recording", (*tool).wav2bsr},
	{"bsr2wav", "export a recording or a time window as 32-bit WAV", (*tool).bsr2wav},
}

// tool carries what every subcommand needs.
type tool struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	errOut io.Writer
}

func main() {
	defaultConfig, err := config.DefaultPath()
	if err != nil {
		defaultConfig = "settings.yaml"
	}

	fs := flag.NewFlagSet("bsrtool", flag.ExitOnError)
	configFlag := fs.String("config", defaultConfig, "Settings file path")
	debugFlag := fs.Bool("debug", false, "Enable debug logging")
	fs.Usage = func() { usage(fs.Output(), fs) }
	_ = fs.Parse(os.Args[1:])

	logger, done, err := logging.Setup(*debugFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// context handler for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	t := &tool{
		cfg:    config.LoadOrDefault(*configFlag, logger),
		logger: logger,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	err = t.dispatch(ctx, fs.Args())
	stop()
	done()

	switch {
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		os.Exit(2)
	case err != nil:
		fmt.Fprintf(os.Stderr, "bsrtool: %v\n", err)
		os.Exit(1)
	}
}

// dispatch runs the subcommand named by args[0].
func (t *tool) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage(t.errOut, nil)
		return errUsage
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(t, ctx, args[1:])
		}
	}
	fmt.Fprintf(t.errOut, "unknown command %q\n\n", args[0])
	usage(t.errOut, nil)
	return errUsage
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: bsrtool [-config file] [-debug] <command> [flags] [args]")
	fmt.Fprintln(w, "\nCommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.summary)
	}
	if global != nil {
		fmt.Fprintln(w, "\nGlobal flags:")
		global.PrintDefaults()
	}
}

// flagSet returns a subcommand flag set that reports errors instead of
// exiting.
func (t *tool) flagSet(name, args string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(t.errOut)
	fs.Usage = func() {
		fmt.Fprintf(t.errOut, "Usage: bsrtool %s [flags] %s\n", name, args)
		fs.PrintDefaults()
	}
	return fs
}

// positional checks the number of positional arguments.
func positional(fs *flag.FlagSet, lo, hi int) error {
	if n := fs.NArg(); n < lo || (hi >= 0 && n > hi) {
		fs.Usage()
		return errUsage
	}
	return nil
}
