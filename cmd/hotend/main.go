package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/five82/hotend/internal/app"
)

var version = "dev"

type cli struct {
	Config   string           `help:"Config file (TOML or YAML)." type:"path" placeholder:"PATH"`
	Prefs    string           `help:"UI preferences file." type:"path" placeholder:"PATH"`
	Host     string           `help:"Moonraker host, overrides the config file." short:"H"`
	Port     int              `help:"Moonraker port, overrides the config file." short:"p"`
	LogLevel string           `help:"Log level (trace, debug, info, warn, error)."`
	Headless bool             `help:"Run without the terminal UI, logging to stderr."`
	Version  kong.VersionFlag `help:"Print version and exit."`
}

func main() {
	os.Exit(run())
}

func run() int {
	var args cli
	kong.Parse(&args,
		kong.Name("hotend"),
		kong.Description("Terminal console for Klipper printers via Moonraker."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: args.Config,
		PrefsPath:  args.Prefs,
		Host:       args.Host,
		Port:       args.Port,
		LogLevel:   args.LogLevel,
		Headless:   args.Headless,
		Version:    version,
	}
	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "hotend: %v\n", err)
		return 1
	}
	return 0
}
