// Command sonido-coach runs voice analysis from the command line: offline
// calibration and comparison of recordings, a live coaching loop over raw PCM
// on stdin, and a microphone environment check.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/RyanBlaney/sonido-coach/config"
	"github.com/RyanBlaney/sonido-coach/logging"
)

const usage = `usage: sonido-coach [-config file] <command> [flags] [args]

commands:
  calibrate <recording>            build a baseline profile from a recording
  compare <baseline> <current>     compare two profiles (ids, .json files or recordings)
  profiles                         list saved profiles
  live                             coach over float32 LE PCM on stdin (or -file)
  diagnose                         score the input environment from stdin PCM
  serve-metrics                    expose the Prometheus /metrics endpoint
`

// command is a subcommand entry point
type command func(ctx context.Context, app *app, args []string) error

var commands = map[string]command{
	"calibrate":     runCalibrate,
	"compare":       runCompare,
	"profiles":      runProfiles,
	"live":          runLive,
	"diagnose":      runDiagnose,
	"serve-metrics": runServeMetrics,
}

// app carries what every subcommand needs
type app struct {
	cfg    *config.Config
	logger logging.Logger
	stdin  io.Reader
	stdout io.Writer
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet("sonido-coach", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	configPath := fs.String("config", "", "path to the YAML configuration file")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "sonido-coach: unknown command %q\n\n%s", name, usage)
		return 2
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sonido-coach: %v\n", err)
		return 1
	}

	logger := logging.NewSlogLogger(os.Stderr, logging.ParseLevel(string(cfg.Log.Level)), cfg.Log.JSON)
	logging.SetGlobalLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:    cfg,
		logger: logger.WithFields(logging.Fields{"command": name}),
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
	if err := cmd(ctx, a, fs.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		a.logger.Error(err, "Command failed")
		fmt.Fprintf(os.Stderr, "sonido-coach %s: %v\n", name, err)
		return 1
	}
	return 0
}

// loadConfig reads path, or returns the defaults when no path is given
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
