package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ngoexplorer/internal/capture"
	"ngoexplorer/internal/config"
	"ngoexplorer/internal/events"
	"ngoexplorer/internal/explorer"
	"ngoexplorer/internal/kv"
	"ngoexplorer/internal/kv/sqlite"
	appLog "ngoexplorer/internal/log"
	"ngoexplorer/internal/registration"
	"ngoexplorer/internal/web"
)

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath  string
	listen      string
	capturePath string
	debug       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	appLog.Info("ngoexplorer starting",
		"listen", conf.Listen,
		"endpoint", conf.Events.Endpoint,
		"limit", conf.Events.Limit,
		"storage_driver", conf.Storage.Driver,
		"storage_key", conf.Storage.Key,
		"on_malformed", conf.Storage.OnMalformed,
		"preview_cron", conf.Preview.Cron,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("ngoexplorer failed", err)
		os.Exit(1)
	}
	appLog.Info("ngoexplorer exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	store, closeStore, err := openStore(conf.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	reg, err := registration.Open(ctx, store, conf.Storage.Key, registration.MalformedPolicy(conf.Storage.OnMalformed))
	if err != nil {
		return err
	}

	baseDate, err := conf.BaseDate()
	if err != nil {
		return err
	}
	loader := events.NewLoader(events.Options{
		Endpoint: conf.Events.Endpoint,
		Limit:    conf.Events.Limit,
		BaseDate: baseDate,
		Timeout:  conf.Events.Timeout,
	})

	session, err := explorer.New(loader, reg)
	if err != nil {
		return err
	}
	defer session.Close()
	session.Start(ctx)

	server := web.NewServer(ctx, session, web.Options{
		Listen:      conf.Listen,
		PreviewPath: conf.Preview.Path,
	})

	captureOpts := capture.Options{
		URL:        pageURL(conf.Listen),
		OutputPath: conf.Preview.Path,
		Width:      conf.Preview.Width,
		Height:     conf.Preview.Height,
	}

	if flags.capturePath != "" {
		captureOpts.OutputPath = flags.capturePath
		return captureOnce(ctx, server, captureOpts)
	}

	if conf.Preview.Cron != "" {
		sched, err := capture.NewScheduler(conf.Preview.Cron, captureOpts, capture.PNG)
		if err != nil {
			return err
		}
		sched.Start(ctx)
	}

	return server.Run(ctx)
}

// openStore builds the configured kv.Store and a func releasing it.
func openStore(sc config.StorageConfig) (kv.Store, func(), error) {
	switch sc.Driver {
	case "memory":
		return kv.NewMemory(), func() {}, nil
	case "sqlite":
		s, err := sqlite.Open(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				appLog.Error("failed to close sqlite store", err)
			}
		}, nil
	case "file":
		s, err := kv.NewFile(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// captureOnce serves the page just long enough to screenshot it.
func captureOnce(ctx context.Context, server *web.Server, opts capture.Options) error {
	serveCtx, stopServer := context.WithCancel(ctx)
	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Run(serveCtx) }()

	if err := waitForHealth(ctx, opts.URL+"health", 5*time.Second); err != nil {
		stopServer()
		return errors.Join(err, <-serveErr)
	}

	err := capture.PNG(ctx, opts)
	stopServer()
	if runErr := <-serveErr; runErr != nil {
		return errors.Join(err, runErr)
	}
	if err != nil {
		return err
	}
	appLog.Info("preview captured", "path", opts.OutputPath)
	return nil
}

func waitForHealth(ctx context.Context, url string, limit time.Duration) error {
	deadline := time.Now().Add(limit)
	for {
		if err := checkHealth(ctx, url); err == nil {
			return nil
		} else if time.Now().After(deadline) {
			return fmt.Errorf("server not healthy after %s: %w", limit, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func checkHealth(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode)
	}
	return nil
}

// pageURL turns a listen address into a URL a local browser can open.
func pageURL(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "http://" + listen + "/"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/"
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./ngoexplorer.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.capturePath, "capture", "", "Capture one PNG preview of the page to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
