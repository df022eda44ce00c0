// Package app wires the room server, its event log and the HTTP monitor into
// one process.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/netip"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ArenasTI/Flappy-Bird/internal/config"
	"github.com/ArenasTI/Flappy-Bird/internal/monitor"
	"github.com/ArenasTI/Flappy-Bird/internal/server"
	"github.com/ArenasTI/Flappy-Bird/internal/telemetry"
	"github.com/ArenasTI/Flappy-Bird/logging"
	loggingSinks "github.com/ArenasTI/Flappy-Bird/logging/sinks"
)

const shutdownGrace = 5 * time.Second

// Info describes the endpoints of a started process.
type Info struct {
	UDP        netip.AddrPort
	Monitor    string
	LANAddress string
}

type Config struct {
	Settings config.Config
	Logger   telemetry.Logger
	// Console receives human readable events. Defaults to os.Stdout.
	Console io.Writer
	// Ready is called once every listener is bound.
	Ready func(Info)
}

// Run serves until ctx is done or a component fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	settings := cfg.Settings

	router, err := newRouter(settings, console)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	lan := server.LANAddress()
	publisher := logging.WithFields(router, map[string]any{"lanAddress": lan})

	serverCfg := server.DefaultConfig()
	serverCfg.Port = settings.UDPPort
	serverCfg.Seed = settings.Seed
	srv, err := server.Listen(serverCfg, server.Deps{Logger: telemetryLogger, Publisher: publisher})
	if err != nil {
		return err
	}

	info := Info{UDP: srv.Addr(), LANAddress: lan}

	var monitorLn net.Listener
	if settings.MonitorAddr != "" {
		monitorLn, err = net.Listen("tcp", settings.MonitorAddr)
		if err != nil {
			srv.Close()
			return fmt.Errorf("monitor listen: %w", err)
		}
		info.Monitor = monitorLn.Addr().String()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})

	if monitorLn != nil {
		handler := monitor.NewHandler(srv, monitor.HandlerConfig{
			Logger:     telemetryLogger,
			LANAddress: info.LANAddress,
		})
		httpSrv := &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		telemetryLogger.Printf("monitor listening on http://%s", info.Monitor)
		g.Go(func() error {
			if err := httpSrv.Serve(monitorLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("monitor failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancelShutdown()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	telemetryLogger.Printf("players on this network can join %s:%d", info.LANAddress, info.UDP.Port())
	if cfg.Ready != nil {
		cfg.Ready(info)
	}
	return g.Wait()
}

func newRouter(settings config.Config, console io.Writer) (*logging.Router, error) {
	logConfig := logging.DefaultConfig()
	logConfig.MinimumSeverity = settings.LogLevel
	logConfig.JSON.FilePath = settings.LogJSONPath

	sinks := []logging.NamedSink{{Name: "console", Sink: loggingSinks.NewConsole(console)}}
	if path := logConfig.JSON.FilePath; path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open event log: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	return router, nil
}
