// Package main provides the device entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	apiconnect "github.com/osa030/vibebox/internal/api/connect"
	"github.com/osa030/vibebox/internal/app/device"
	"github.com/osa030/vibebox/internal/app/hooks"
	"github.com/osa030/vibebox/internal/app/notification"
	"github.com/osa030/vibebox/internal/app/runner"
	"github.com/osa030/vibebox/internal/domain/chart"
	"github.com/osa030/vibebox/internal/infra/config"
	"github.com/osa030/vibebox/internal/infra/input"
	"github.com/osa030/vibebox/internal/infra/logger"
	"github.com/osa030/vibebox/internal/ui"
)

var (
	app        = kingpin.New("vibebox", "vibebox beat-synced arrow controller")
	configPath = app.Flag("config", "Path to config file (built-in defaults when empty)").Envar("VIBEBOX_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stderr)").String()

	runCmd        = app.Command("run", "Run the device headless (default)").Default()
	tuiCmd        = app.Command("tui", "Run the device with the terminal view")
	listChartsCmd = app.Command("list-charts", "List charts and exit")
	listPortsCmd  = app.Command("list-midi-ports", "List MIDI input ports and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Level: "info", File: *logfile}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if command == tuiCmd.FullCommand() {
		loggerConfig.Quiet = true
	}
	closeLog, err := logger.Init(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if command == listPortsCmd.FullCommand() {
		defer gomidi.CloseDriver()
		fmt.Println("MIDI input ports:")
		for _, in := range gomidi.GetInPorts() {
			fmt.Printf("  %s\n", in.String())
		}
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	library, err := loadLibrary(cfg)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load charts: %v", err)
	}

	switch command {
	case listChartsCmd.FullCommand():
		printCharts(library)
		return
	case runCmd.FullCommand(), tuiCmd.FullCommand():
		if err := run(cfg, library, command == tuiCmd.FullCommand()); err != nil {
			zlog.Error().Msgf("Device error: %v", err)
			closeLog()
			os.Exit(1)
		}
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		zlog.Info().Msg("No config file given, using defaults")
		return config.Default(), nil
	}
	zlog.Info().Msgf("Loading config from %s", path)
	return config.Load(path)
}

func loadLibrary(cfg *config.Config) (*chart.Library, error) {
	if cfg.Charts.Dir == "" {
		return chart.NewLibrary(nil), nil
	}
	charts, err := chart.LoadDir(cfg.Charts.Dir)
	if err != nil {
		return nil, err
	}
	zlog.Info().Msgf("Loaded %d charts from %s", len(charts), cfg.Charts.Dir)
	return chart.NewLibrary(charts), nil
}

func printCharts(library *chart.Library) {
	fmt.Println("Charts:")
	for i, title := range library.Titles() {
		fmt.Printf("  %2d  %s\n", i+1, title)
	}
}

// run wires the device and blocks until shutdown. Using a separate function
// ensures defer statements are executed even when returning with an error.
func run(cfg *config.Config, library *chart.Library, withView bool) error {
	defer gomidi.CloseDriver()

	bindings, err := cfg.ParseBindings()
	if err != nil {
		return fmt.Errorf("invalid bindings: %w", err)
	}

	dev, err := device.New(device.Config{
		Button:   cfg.ButtonConfig(),
		Bindings: bindings,
	}, library)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	defer dev.Close()

	var keys *ui.KeyboardSource
	var source input.Source
	switch {
	case withView && (cfg.Input.Type == "none" || cfg.Input.Type == "keyboard"):
		keys = ui.NewKeyboardSource()
		source = keys
	case cfg.Input.Type == "keyboard":
		return fmt.Errorf("keyboard input requires the tui command")
	default:
		source, err = input.NewFromConfig(cfg.Input)
		if err != nil {
			return fmt.Errorf("failed to create input source: %w", err)
		}
	}
	defer source.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifyMgr := notification.NewManager()
	defer notifyMgr.Close()

	hookRunner := hooks.NewRunner(ctx, hooks.Config{
		OnStarted: cfg.Hooks.OnStarted,
		OnStopped: cfg.Hooks.OnStopped,
	})
	notifyMgr.Subscribe(hookRunner)
	defer hookRunner.Wait()

	tickRunner := runner.New(runner.Config{
		TickInterval:   cfg.TickInterval(),
		BroadcastEvery: cfg.BroadcastEvery(),
	}, dev, source, notifyMgr)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- tickRunner.Run(ctx)
	}()

	var server *http.Server
	serverErrCh := make(chan error, 1)
	if !cfg.API.Disabled {
		mux := http.NewServeMux()
		apiconnect.Register(mux, apiconnect.NewDeviceService(dev, notifyMgr, tickRunner.Done()), cfg.API.Token)

		// Create server with h2c (HTTP/2 cleartext) support
		server = &http.Server{
			Addr:    cfg.API.Addr,
			Handler: h2c.NewHandler(mux, &http2.Server{}),
		}
		go func() {
			zlog.Info().Msgf("Starting server: addr=%s", cfg.API.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrCh <- err
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	viewDone := make(chan error, 1)
	if withView {
		go func() {
			_, err := tea.NewProgram(ui.NewModel(dev, keys), tea.WithAltScreen()).Run()
			viewDone <- err
		}()
	}

	var result error
	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-viewDone:
		if err != nil {
			result = fmt.Errorf("terminal view: %w", err)
		}
	case err := <-runErrCh:
		if err != nil {
			result = fmt.Errorf("runner: %w", err)
		}
		zlog.Info().Msg("Input ended, shutting down...")
	case err := <-serverErrCh:
		result = fmt.Errorf("server error: %w", err)
	}

	cancel()
	<-tickRunner.Done()

	if server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Error().Msgf("Failed to shutdown server: %v", err)
		}
	}

	zlog.Info().Msg("Device stopped")
	return result
}
