// Package main is the fingerspell command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/ayusman/fingerspell/internal/app"
	"github.com/ayusman/fingerspell/internal/config"
	"github.com/ayusman/fingerspell/internal/logging"
	"github.com/ayusman/fingerspell/internal/server"
	"github.com/ayusman/fingerspell/internal/store"
	"github.com/ayusman/fingerspell/internal/tray"
)

const (
	// Flags.
	flagConfig        = "config"
	flagLogLevel      = "log-level"
	flagLogFile       = "log-file"
	flagDataDir       = "data-dir"
	flagRoot          = "root"
	flagOut           = "out"
	flagWorkers       = "workers"
	flagNothing       = "nothing-label"
	flagSource        = "source"
	flagKind          = "kind"
	flagModel         = "model"
	flagLabels        = "labels"
	flagMinConfidence = "min-confidence"
	flagNoPreview     = "no-preview"
	flagNoMirror      = "no-mirror"
	flagServe         = "serve"
	flagAddr          = "addr"
	flagStaticDir     = "static-dir"
	flagPractice      = "practice"
)

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	flagLogLevel:      "log.level",
	flagLogFile:       "log.file",
	flagDataDir:       "data_dir",
	flagWorkers:       "dataset.workers",
	flagNothing:       "dataset.nothing_label",
	flagSource:        "inference.source",
	flagKind:          "classifier.kind",
	flagModel:         "classifier.model",
	flagLabels:        "classifier.labels",
	flagMinConfidence: "inference.min_confidence",
	flagAddr:          "server.addr",
	flagStaticDir:     "server.static_dir",
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	liveFlags := []cli.Flag{
		&cli.StringFlag{Name: flagSource, Aliases: []string{"s"}, Usage: "camera index or video `FILE`"},
		&cli.StringFlag{Name: flagKind, Usage: "classifier kind: tflite or centroid"},
		&cli.StringFlag{Name: flagModel, Aliases: []string{"m"}, Usage: "tflite model, or dataset CSV for the centroid classifier"},
		&cli.StringFlag{Name: flagLabels, Usage: "label file for the tflite model"},
		&cli.Float64Flag{Name: flagMinConfidence, Usage: "do not report decisions below this confidence"},
		&cli.BoolFlag{Name: flagNoMirror, Usage: "do not flip frames horizontally"},
		&cli.StringFlag{Name: flagPractice, Usage: "practice spelling `WORD`"},
	}

	cliApp := &cli.App{
		Name:  "fingerspell",
		Usage: "recognize fingerspelled letters from hand landmarks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "load configuration from `FILE`"},
			&cli.StringFlag{Name: flagLogLevel, Usage: "log level"},
			&cli.StringFlag{Name: flagLogFile, Usage: "also write logs to `FILE`"},
			&cli.StringFlag{Name: flagDataDir, Usage: "directory for the session database"},
		},
		Commands: []*cli.Command{
			{
				Name:      "dataset",
				Usage:     "extract landmark features from a labeled image directory into a CSV",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagRoot, Required: true, Usage: "image `DIR` with one subdirectory per label"},
					&cli.StringFlag{Name: flagOut, Required: true, Usage: "output CSV `FILE`"},
					&cli.IntFlag{Name: flagWorkers, Usage: "parallel image workers (0 = CPUs)"},
					&cli.StringFlag{Name: flagNothing, Usage: "label that stands for no sign"},
				},
				Action: datasetAction,
			},
			{
				Name:  "live",
				Usage: "recognize signs from a camera or video file",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{Name: flagNoPreview, Usage: "run without the preview window"},
					&cli.StringFlag{Name: flagServe, Usage: "also serve the HTTP API on `ADDR`"},
				}, liveFlags...),
				Action: liveAction,
			},
			{
				Name:  "serve",
				Usage: "serve dataset runs and session history over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagAddr, Usage: "listen `ADDR`"},
					&cli.StringFlag{Name: flagStaticDir, Usage: "serve static files from `DIR`"},
				},
				Action: serveAction,
			},
			{
				Name:   "tray",
				Usage:  "run headless recognition controlled from the system tray",
				Flags:  append([]cli.Flag{&cli.StringFlag{Name: flagAddr, Usage: "dashboard `ADDR`"}}, liveFlags...),
				Action: trayAction,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "fingerspell:", err)
		os.Exit(1)
	}
}

// setup loads the configuration, applying every flag the user set, and
// builds the logger.
func setup(c *cli.Context) (*config.Config, *logging.Logger, error) {
	overrides := make(map[string]interface{})
	for flag, key := range flagKeys {
		if c.IsSet(flag) {
			overrides[key] = c.Value(flag)
		}
	}
	if c.IsSet(flagPractice) {
		overrides["practice.targets"] = []string{c.String(flagPractice)}
	}
	if c.Bool(flagNoMirror) {
		overrides["inference.mirror"] = false
	}
	if c.Bool(flagNoPreview) {
		overrides["inference.preview"] = false
	}

	cfg, err := config.Load(c.String(flagConfig), overrides)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return nil, nil, err
	}
	if cfg.File != "" {
		log.WithField("file", cfg.File).Debug("configuration loaded")
	}
	return cfg, log, nil
}

func serveAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	staticDir := cfg.Server.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Logger:    log,
	})
	return srv.ListenAndServe(c.Context, cfg.Server.Addr)
}

func liveAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()

	a, err := app.New(cfg, app.Options{Logger: log, ServeAddr: c.String(flagServe)})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("failed to release resources")
		}
	}()

	return a.Run(c.Context)
}

func trayAction(c *cli.Context) error {
	cfg, log, err := setup(c)
	if err != nil {
		return err
	}
	defer log.Close()
	// The preview window needs the main thread, which the tray owns.
	cfg.Inference.Preview = false

	t := tray.New()
	a, err := app.New(cfg, app.Options{Logger: log, Tray: t, ServeAddr: cfg.Server.Addr})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Warn("failed to release resources")
		}
	}()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	t.OnQuit(cancel)
	t.OnOpen(func() {
		log.WithField("url", "http://"+cfg.Server.Addr).Info("dashboard")
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run(ctx)
		t.Quit()
	}()
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	cancel()
	return <-errCh
}

// findWebDir searches for the web directory in common locations.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".fingerspell", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}
