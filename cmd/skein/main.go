package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/skein-net/skein/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override skeind config path (optional)")
	redisAddr := flag.String("redis", "", "override daemon Redis endpoint (optional)")
	stream := flag.Bool("stream", false, "consume the daemon's Redis stream instead of tailing log files")
	pollSeconds := flag.Int("poll", 0, "file tail fallback poll interval in seconds (optional, defaults to 1s)")
	theme := flag.String("theme", "", "color theme (optional)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{
		ConfigPath: *configPath,
		RedisAddr:  *redisAddr,
		Stream:     *stream,
		ThemeName:  *theme,
	}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = poll
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "skein: %v\n", err)
		return 1
	}
	return 0
}
