// Command galrt inspects an installation: its plugins, settings, saved
// records and configuration schema, and calls plugin methods directly.
package main

import (
	"context"
	stdErrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gal-dev/galrt"
	"github.com/gal-dev/galrt/application/config"
	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/domain/ports"
	"github.com/gal-dev/galrt/host/registry"
	"github.com/gal-dev/galrt/hostfuncs"
	wazeroengine "github.com/gal-dev/galrt/infrastructure/wazero"
	"github.com/gal-dev/galrt/log"
)

const defaultConfigPath = "galrt.yaml"

// errUsage is returned after usage was printed for a malformed command line.
var errUsage = stdErrors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		switch {
		case stdErrors.Is(err, flag.ErrHelp):
			return
		case stdErrors.Is(err, errUsage):
			if err != errUsage {
				fmt.Fprintln(os.Stderr, err)
			}
			os.Exit(2)
		}
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	stdout io.Writer
	stderr io.Writer

	// opts are appended to the App options built from the flags.
	opts []galrt.Option
}

type globalFlags struct {
	config   string
	logLevel string
	format   string
	trace    bool
}

func (c *cli) run(ctx context.Context, args []string) (err error) {
	var g globalFlags
	fs := flag.NewFlagSet("galrt", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.StringVar(&g.config, "config", defaultConfigPath, "configuration file")
	fs.StringVar(&g.logLevel, "log-level", "", "override the configured log level (trace, debug, info, warn, error)")
	fs.StringVar(&g.format, "log-format", string(log.FormatText), "log format (text or json)")
	fs.BoolVar(&g.trace, "trace", false, "log every host import a plugin calls")
	fs.Usage = func() { c.usage(fs) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		c.usage(fs)
		return errUsage
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "schema":
		return c.runSchema(rest)
	case "plugins", "call", "command", "settings", "records":
	default:
		fmt.Fprintf(c.stderr, "unknown command: %s\n\nRun 'galrt -h' for usage.\n", cmd)
		return errUsage
	}

	app, err := c.open(ctx, g)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = stdErrors.Join(err, cerr)
		}
	}()

	switch cmd {
	case "plugins":
		return c.runPlugins(app)
	case "call":
		return c.runCall(ctx, app, rest)
	case "command":
		return c.runCommand(ctx, app, rest)
	case "settings":
		return c.runSettings(ctx, app, rest)
	default:
		return c.runRecords(ctx, app)
	}
}

func (c *cli) open(ctx context.Context, g globalFlags) (*galrt.App, error) {
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}

	level := cfg.SlogLevel()
	if g.logLevel != "" {
		if level, err = log.ParseLevel(g.logLevel); err != nil {
			return nil, err
		}
	}
	logger := log.New(c.stderr, log.WithLevel(level), log.WithFormat(log.Format(g.format)))

	opts := []galrt.Option{
		galrt.WithLogger(logger),
		galrt.WithRegistryOptions(registry.WithProgress(func(s registry.LoadStatus) error {
			if p, ok := s.(registry.StatusLoadPlugin); ok {
				logger.Debug("loading plugin", "plugin", p.Name, "index", p.Index+1, "total", p.Total)
			}
			return nil
		})),
	}
	if g.trace {
		opts = append(opts, galrt.WithRegistryOptions(registry.WithEngineFactory(traceEngine)))
	}
	return galrt.Open(ctx, cfg, append(opts, c.opts...)...)
}

// traceEngine is the default engine with import logging enabled.
func traceEngine(ctx context.Context, logger *slog.Logger) (ports.Engine, error) {
	imports, err := hostfuncs.NewRegistry(
		hostfuncs.WithMiddleware(hostfuncs.PanicRecoveryMiddleware(), hostfuncs.LoggingMiddleware(logger)),
		hostfuncs.WithBundle(hostfuncs.AllBundles()),
	)
	if err != nil {
		return nil, err
	}
	return wazeroengine.NewEngine(ctx, wazeroengine.WithLogger(logger), wazeroengine.WithImports(imports))
}

func (c *cli) usage(fs *flag.FlagSet) {
	fmt.Fprint(c.stderr, `galrt - plugin runtime inspector

USAGE:
    galrt [FLAGS] <COMMAND> [ARGS]

COMMANDS:
    plugins                          List loaded plugins and their capabilities
    call <plugin> <method> [args]    Call a script method; args are YAML scalars
    command <name> [args]            Render a text command
    settings [-lang TAG]             Show or update the installation settings
    records                          List the saved records of the configured game
    schema [kind]                    List schema kinds or print one schema

FLAGS:
`)
	fs.PrintDefaults()
}

func printError(w io.Writer, err error) {
	d := errors.ToErrorDetail(err)
	if d.Code != "" {
		fmt.Fprintf(w, "error [%s/%s]: %s\n", d.Type, d.Code, d.Message)
		return
	}
	fmt.Fprintf(w, "error [%s]: %s\n", d.Type, d.Message)
}
