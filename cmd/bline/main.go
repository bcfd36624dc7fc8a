// Package main is the bline command: headless simulation of BLine path files.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.bline.dev/bline/pathio"
	"go.bline.dev/bline/pathwatch"
	"go.bline.dev/bline/simulation"
)

const (
	flagPath    = "path"
	flagConfig  = "config"
	flagDT      = "dt"
	flagControl = "control"
	flagSeed    = "heading-seed"
	flagOut     = "out"

	controlTrapezoid = "trapezoid"
	control2AD       = "2ad"

	seedRotation  = "rotation"
	seedDirection = "direction"
)

func main() {
	var logger golog.Logger

	app := &cli.App{
		Name:  "bline",
		Usage: "simulate robot motion along BLine path files",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				logger = golog.NewDebugLogger("bline")
			} else {
				logger = golog.NewLogger("bline")
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "simulate",
				Usage: "simulate a path file once and report the trace",
				Flags: append(simFlags(),
					&cli.StringFlag{
						Name:  flagOut,
						Usage: "write the full pose trace to `FILE` as JSON",
					},
				),
				Action: func(c *cli.Context) error {
					return runSimulate(c, logger)
				},
			},
			{
				Name:  "watch",
				Usage: "watch a path file and re-simulate on every change",
				Flags: simFlags(),
				Action: func(c *cli.Context) error {
					return runWatch(c, logger)
				},
			},
			{
				Name:      "init",
				Usage:     "create a project directory with a default config and example paths",
				ArgsUsage: "DIR",
				Action:    runInit,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func simFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     flagPath,
			Aliases:  []string{"p"},
			Usage:    "path JSON `FILE` to simulate",
			Required: true,
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "project config.json `FILE` with default constraints",
		},
		&cli.Float64Flag{
			Name:  flagDT,
			Usage: "integration time step in seconds",
			Value: simulation.DefaultDTSeconds,
		},
		&cli.StringFlag{
			Name:  flagControl,
			Usage: "rotation control law: trapezoid or 2ad",
			Value: controlTrapezoid,
		},
		&cli.StringFlag{
			Name:  flagSeed,
			Usage: "initial heading seed: rotation or direction",
			Value: seedRotation,
		},
	}
}

func simOptions(c *cli.Context, logger golog.Logger) (simulation.Options, error) {
	opts := simulation.Options{DTSeconds: c.Float64(flagDT), Logger: logger}

	switch c.String(flagControl) {
	case controlTrapezoid:
		opts.RotationControl = simulation.RotationControlTrapezoidal
	case control2AD:
		opts.RotationControl = simulation.RotationControl2AD
	default:
		return opts, errors.Errorf("unknown rotation control %q", c.String(flagControl))
	}

	switch c.String(flagSeed) {
	case seedRotation:
		opts.HeadingSeed = simulation.HeadingSeedFirstRotation
	case seedDirection:
		opts.HeadingSeed = simulation.HeadingSeedPathDirection
	default:
		return opts, errors.Errorf("unknown heading seed %q", c.String(flagSeed))
	}
	return opts, nil
}

func loadConfig(c *cli.Context) (simulation.Config, error) {
	filename := c.String(flagConfig)
	if filename == "" {
		return simulation.Config{}, nil
	}
	return pathio.LoadProjectConfig(filename)
}

func runSimulate(c *cli.Context, logger golog.Logger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := simOptions(c, logger)
	if err != nil {
		return err
	}

	path, err := pathio.ReadPathFile(c.String(flagPath), pathio.ConfigDefaultLookup(cfg))
	if err != nil {
		return err
	}
	result, err := simulation.SimulatePath(path, cfg, opts)
	if err != nil {
		return err
	}

	fmt.Printf("simulated %s: %.3f s over %d samples\n",
		c.String(flagPath), result.TotalTime, len(result.Times))
	if len(result.Times) > 0 {
		final := result.PosesByTime[result.Times[len(result.Times)-1]]
		fmt.Printf("final pose: x=%.3f m y=%.3f m theta=%.4f rad\n",
			final.Position.X, final.Position.Y, final.Theta)
	}

	if out := c.String(flagOut); out != "" {
		if err := writeTrace(out, result); err != nil {
			return err
		}
		fmt.Printf("trace written to %s\n", out)
	}
	return nil
}

func runWatch(c *cli.Context, logger golog.Logger) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := simOptions(c, logger)
	if err != nil {
		return err
	}

	watcher, err := pathwatch.New(c.String(flagPath), pathwatch.Options{
		Config:     cfg,
		Simulation: opts,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infow("watching path file", "file", c.String(flagPath))
	for {
		select {
		case <-ctx.Done():
			return watcher.Close()
		case result := <-watcher.Results():
			logger.Infow("simulation updated",
				"total_time_s", result.TotalTime,
				"samples", len(result.Times),
			)
		}
	}
}

func runInit(c *cli.Context) error {
	dir := c.Args().First()
	if dir == "" {
		return errors.New("init requires a project directory argument")
	}
	pathsDir := filepath.Join(dir, "paths")
	if err := os.MkdirAll(pathsDir, 0o755); err != nil {
		return errors.Wrapf(err, "cannot create project directory %q", dir)
	}
	if err := pathio.SaveProjectConfig(filepath.Join(dir, "config.json"), pathio.DefaultProjectConfig()); err != nil {
		return err
	}
	if err := pathio.WriteExamplePaths(pathsDir); err != nil {
		return err
	}
	fmt.Printf("initialized project in %s\n", dir)
	return nil
}

// traceSample is one row of an exported pose trace.
type traceSample struct {
	TimeS    float64 `json:"t_s"`
	XMeters  float64 `json:"x_m"`
	YMeters  float64 `json:"y_m"`
	ThetaRad float64 `json:"theta_rad"`
}

type traceJSON struct {
	TotalTimeS float64       `json:"total_time_s"`
	Samples    []traceSample `json:"samples"`
}

func writeTrace(filename string, result *simulation.Result) error {
	trace := traceJSON{TotalTimeS: result.TotalTime, Samples: make([]traceSample, 0, len(result.Times))}
	for _, tk := range result.Times {
		pose := result.PosesByTime[tk]
		trace.Samples = append(trace.Samples, traceSample{
			TimeS:    tk,
			XMeters:  pose.Position.X,
			YMeters:  pose.Position.Y,
			ThetaRad: pose.Theta,
		})
	}
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return err
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0o644), "cannot write trace file %q", filename)
}
