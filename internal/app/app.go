package app

import (
	"context"
	"fmt"
	"time"

	"github.com/skein-net/skein/internal/bus"
	"github.com/skein-net/skein/internal/config"
	"github.com/skein-net/skein/internal/engine"
	"github.com/skein-net/skein/internal/prefs"
	"github.com/skein-net/skein/internal/tail"
	"github.com/skein-net/skein/internal/ui"
)

// Options configure the skein application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/skein/prefs.toml
	RedisAddr  string // overrides the configured daemon endpoint
	Stream     bool   // consume the daemon's Redis stream instead of tailing files
	PollEvery  int    // seconds; zero uses the tail default
	ThemeName  string
}

// Run boots the skein TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load skeind config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)
	theme := opts.ThemeName
	if theme == "" {
		theme = userPrefs.Theme
	}

	addr := opts.RedisAddr
	if addr == "" {
		addr = cfg.RedisAddr
	}

	poll := time.Duration(opts.PollEvery) * time.Second

	var (
		hub     *bus.Hub
		factory engine.SourceFactory
		history engine.HistoryFunc
	)
	if opts.Stream {
		transport := bus.NewRedisTransport(addr)
		if err := transport.Ping(ctx); err != nil {
			return fmt.Errorf("daemon endpoint %s: %w", addr, err)
		}
		hub = bus.New(ctx, transport)
		factory = func(mode bus.Mode) (tail.Source, error) {
			return transport.LogSource(mode), nil
		}
		history = transport.History
	} else {
		hub = bus.New(ctx, nil)
		factory = func(mode bus.Mode) (tail.Source, error) {
			switch mode {
			case bus.ModeClient:
				return tail.NewFileSource(cfg.ClientLogPath(), poll), nil
			case bus.ModeRelay:
				return tail.NewFileSource(cfg.RelayLogPath(), poll), nil
			default:
				return nil, fmt.Errorf("unknown mode %q", mode)
			}
		}
	}
	defer hub.Close()

	ctl := engine.New(hub, factory, history, cfg.ExpectedHops, cfg.HistoryLimit)
	defer func() {
		ctl.Pause(bus.ModeClient)
		ctl.Pause(bus.ModeRelay)
	}()

	return ui.Run(ui.Options{
		Context:     ctx,
		Hub:         hub,
		Controller:  ctl,
		ThemeName:   theme,
		PrefsPath:   opts.PrefsPath,
		InitialMode: bus.Mode(userPrefs.Mode),
	})
}
