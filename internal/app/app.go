package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/hotend/internal/config"
	"github.com/five82/hotend/internal/console"
	"github.com/five82/hotend/internal/dispatch"
	"github.com/five82/hotend/internal/logging"
	"github.com/five82/hotend/internal/moonraker"
	"github.com/five82/hotend/internal/notify"
	"github.com/five82/hotend/internal/prefs"
	"github.com/five82/hotend/internal/printer"
	"github.com/five82/hotend/internal/ui"
)

const clientName = "hotend"

// Options configure the hotend application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/hotend/prefs.toml
	Host       string // overrides the config file when set
	Port       int
	LogLevel   string
	Headless   bool
	Version    string
}

// Moonraker is the subset of *moonraker.Client the application drives.
type Moonraker interface {
	Connect()
	Retry()
	Close()
	State() moonraker.ConnState
	Session() string

	Identify(name, version string, cb moonraker.Callback) bool
	PrinterInfo(cb moonraker.Callback) bool
	ServerConfig(cb moonraker.Callback) bool
	TemperatureStore(cb moonraker.Callback) bool
	ObjectsList(cb moonraker.Callback) bool
	ObjectsQuery(objects []string, cb moonraker.Callback) bool
	Subscribe(objects json.Marshaler, cb moonraker.Callback) bool
	PowerDevices(cb moonraker.Callback) bool

	GcodeScript(script string, cb moonraker.Callback) bool
	EmergencyStop(cb moonraker.Callback) bool
	FirmwareRestart(cb moonraker.Callback) bool
	PrintPause(cb moonraker.Callback) bool
	PrintResume(cb moonraker.Callback) bool
	PrintCancel(cb moonraker.Callback) bool
	PowerOn(device string, cb moonraker.Callback) bool
	PowerOff(device string, cb moonraker.Callback) bool
}

// Scheduler runs tasks on the delivery goroutine.
type Scheduler interface {
	Post(fn func()) bool
	After(d time.Duration, fn func()) *dispatch.Timer
	Every(d time.Duration, fn func()) (stop func())
}

// Ensure the production types satisfy the interfaces at compile time.
var (
	_ Moonraker          = (*moonraker.Client)(nil)
	_ Scheduler          = (*dispatch.Queue)(nil)
	_ moonraker.Listener = (*App)(nil)
	_ ui.Backend         = (*App)(nil)
)

// App owns the printer mirror and everything that feeds it.
type App struct {
	cfg     config.Config
	version string
	log     zerolog.Logger
	sched   Scheduler
	client  Moonraker
	printer *printer.Printer
	notes   *notify.Center
	console *console.Buffer

	// Session state below is touched only on the delivery goroutine.
	initGen     int
	klippyTimer *dispatch.Timer
	stopSampler func()
	klippyState string
}

// Run boots hotend until the context is cancelled or the UI exits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.Host != "" {
		cfg.Host = opts.Host
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := logging.New(logging.Options{
		Path:   cfg.LogPath(),
		Level:  cfg.LogLevel,
		Stderr: opts.Headless,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queue := dispatch.New(logger)
	done := make(chan error, 1)
	go func() { done <- queue.Run(ctx) }()

	a, err := newWithQueue(cfg, opts.Version, queue, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Str("version", opts.Version).
		Str("moonraker", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)).
		Bool("headless", opts.Headless).
		Msg("hotend starting")

	a.Start()
	defer a.Stop()

	if opts.Headless {
		<-ctx.Done()
		return nil
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	userPrefs, err := prefs.Load(prefsPath)
	if err != nil {
		logger.Warn().Err(err).Msg("load preferences")
	}
	uiErr := ui.Run(ui.Options{
		Context:   ctx,
		Backend:   a,
		Notify:    a.notes,
		Console:   a.console,
		Config:    &cfg,
		Prefs:     userPrefs,
		PrefsPath: prefsPath,
	})
	cancel()
	<-done
	return uiErr
}

func newWithQueue(cfg config.Config, version string, queue *dispatch.Queue, log zerolog.Logger) (*App, error) {
	a := newApp(cfg, version, queue, log)
	client, err := moonraker.NewClient(moonraker.Options{
		Endpoint: moonraker.Endpoint{
			Host:        cfg.Host,
			Port:        cfg.Port,
			RoutePrefix: cfg.RoutePrefix,
			SecurePorts: cfg.SecurePorts,
		},
		APIKey:     cfg.APIKey,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Queue:      queue,
		Listener:   a,
		OnPush:     a.HandlePush,
		Waiting:    a.printer.Waiting,
		Warn:       func(msg string) { a.notes.Warn(msg) },
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("init moonraker client: %w", err)
	}
	a.client = client
	return a, nil
}

// newApp builds an App without a client; callers attach one.
func newApp(cfg config.Config, version string, sched Scheduler, log zerolog.Logger) *App {
	a := &App{
		cfg:     cfg,
		version: version,
		log:     log.With().Str("component", "app").Logger(),
		sched:   sched,
		printer: printer.New(sched, cfg.HistorySize, log),
		notes:   notify.New(notify.DefaultLimit),
		console: console.New(cfg.ConsoleLines),
	}
	a.registerStateCallbacks()
	return a
}

// Start begins connecting.
func (a *App) Start() {
	a.client.Connect()
}

// Stop closes the connection and halts the sampler.
func (a *App) Stop() {
	a.client.Close()
	a.sched.Post(a.endSession)
}

// Printer exposes the state mirror.
func (a *App) Printer() *printer.Printer { return a.printer }

// Notifications exposes the notification center.
func (a *App) Notifications() *notify.Center { return a.notes }

// Console exposes the console buffer.
func (a *App) Console() *console.Buffer { return a.console }

func (a *App) registerStateCallbacks() {
	a.printer.OnState(printer.StateShutdown, func() {
		msg := a.printer.Snapshot().StateMessage
		if msg == "" {
			msg = "Klipper has shut down"
		}
		a.notes.Error(msg)
	})
	a.printer.OnState(printer.StateError, func() {
		msg := a.printer.Snapshot().StateMessage
		if msg == "" {
			msg = "Klipper reported an error"
		}
		a.notes.Error(msg)
	})
	a.printer.OnState(printer.StateReady, func() {
		switch a.printer.PreviousState() {
		case printer.StatePrinting, printer.StatePaused:
			a.notes.Info("Print finished")
		}
	})
	a.printer.OnState(printer.StatePrinting, func() {
		if a.printer.PreviousState() == printer.StatePaused {
			a.notes.Info("Print resumed")
			return
		}
		job := a.printer.Snapshot().Job
		a.notes.Info("Printing " + job.Filename)
	})
	a.printer.OnState(printer.StatePaused, func() {
		a.notes.Info("Print paused")
	})
	a.printer.OnState(printer.StateDisconnected, func() {
		a.log.Debug().Msg("printer disconnected")
	})
}
