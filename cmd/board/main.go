// Command board serves the mini-league leaderboard over HTTP and a chat
// command endpoint, refreshing it from the upstream fantasy API on a
// schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/fantasyboard/internal/adapters/chat"
	"github.com/okian/fantasyboard/internal/adapters/http/api"
	"github.com/okian/fantasyboard/internal/adapters/http/site"
	"github.com/okian/fantasyboard/internal/adapters/http/swagger"
	"github.com/okian/fantasyboard/internal/adapters/source"
	service "github.com/okian/fantasyboard/internal/app"
	"github.com/okian/fantasyboard/internal/config"
	"github.com/okian/fantasyboard/internal/domain/types"
	"github.com/okian/fantasyboard/pkg/logger"
	"github.com/okian/fantasyboard/pkg/metrics"
	"github.com/okian/fantasyboard/pkg/tracing"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 2 * time.Minute // a cold request waits for a full refresh
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

type flags struct {
	configPath string
	logLevel   string
	addr       string
	once       bool
}

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		// Use stderr directly; the logger may not be configured yet.
		os.Stderr.WriteString("board: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("board", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&f.configPath, "config", "c", "", "YAML config file (overrides BOARD_CONFIG)")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.addr, "addr", "", "HTTP listen address")
	fs.BoolVar(&f.once, "once", false, "refresh once, print the table and exit")
	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	return f, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	f, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}

	// Load configuration (defaults -> .env -> file -> env)
	cfg, err := config.Load(ctx, f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.addr != "" {
		cfg.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	logOpts := []logger.Option{}
	if f.once {
		logOpts = append(logOpts, logger.WithOutput(os.Stderr))
	}
	if err := logger.Init(logOpts...); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	metrics.Init(metrics.WithConstLabels(map[string]string{"service": cfg.ServiceName}))

	shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.TracingEndpoint)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn(flushCtx, "tracing shutdown failed", logger.Error(err))
		}
	}()

	svc, err := newService(cfg, log)
	if err != nil {
		return err
	}

	if f.once {
		return printOnce(ctx, svc, stdout)
	}
	return serve(ctx, cfg, svc, log)
}

// newService wires the upstream client, its resilience wrapper and the
// schedule from cfg.
func newService(cfg *config.Config, log logger.Logger) (*service.Service, error) {
	window, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	check, err := cfg.DailyCheck()
	if err != nil {
		return nil, err
	}
	predicate, err := cfg.Predicate()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	client := source.NewClient(
		source.WithBaseURL(cfg.SourceBaseURL),
		source.WithLogger(log.Named("source")),
	)
	upstream := source.NewResilient(client,
		source.WithRateLimit(cfg.SourceRatePerSecond, cfg.SourceBurst),
		source.WithCallTimeout(cfg.SourceRequestTimeout),
		source.WithBreaker(uint32(cfg.BreakerFailureThreshold), cfg.BreakerOpenTimeout),
		source.WithResilientLogger(log.Named("source")),
	)

	return service.New(upstream, cfg.Entities(),
		service.WithLogger(log.Named("service")),
		service.WithRefreshTimeout(cfg.RefreshTimeout),
		service.WithFetchConcurrency(cfg.FetchConcurrency),
		service.WithSchedule(
			service.WithDayPredicate(predicate),
			service.WithWindow(window),
			service.WithDailyCheck(check),
			service.WithIntervals(cfg.RefreshInterval(), cfg.IdlePollInterval()),
			service.WithLocation(loc),
		),
	), nil
}

func printOnce(ctx context.Context, svc *service.Service, stdout io.Writer) error {
	snap, err := svc.GetSnapshot(ctx)
	if err != nil {
		return err
	}
	return chat.WriteTable(stdout, types.LeaderboardFrom(snap, 0))
}

// newMux registers every HTTP surface on one mux.
func newMux(ctx context.Context, cfg *config.Config, svc *service.Service) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux, site.NewRootHandler(svc, ""))
	api.NewServer(svc,
		api.WithMaxLimit(cfg.MaxLeaderboardLimit),
		api.WithBot(chat.New(svc)),
	).Register(ctx, mux)
	return mux
}

func serve(ctx context.Context, cfg *config.Config, svc *service.Service, log logger.Logger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	if err := svc.Start(ctx); err != nil {
		_ = ln.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Handler:           newMux(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "server stopped")
	return nil
}

// startSystemMetricsUpdater refreshes process gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			metrics.UpdateSystemMemoryUsage(m.Alloc)
			metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
		}
	}
}
