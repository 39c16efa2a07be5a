// Command fakesource serves a simulated fantasy league API for local runs.
//
//	fakesource --teams 12 --period 5 --fail 1003=503
//	BOARD_SOURCE_BASE_URL=http://localhost:9090 BOARD_ENTITY_IDS=... board
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/okian/fantasyboard/internal/fakesource"
	"github.com/okian/fantasyboard/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		os.Stderr.WriteString("fakesource: " + err.Error() + "\n")
		os.Exit(1)
	}
}

type options struct {
	addr      string
	teams     int
	firstID   int
	period    int
	periods   int
	seed      int64
	fail      []string
	anonymous []string
}

func parseFlags(args []string) (options, []fakesource.Option, error) {
	var o options
	fs := pflag.NewFlagSet("fakesource", pflag.ContinueOnError)
	fs.StringVar(&o.addr, "addr", ":9090", "listen address")
	fs.IntVar(&o.teams, "teams", 10, "number of generated teams")
	fs.IntVar(&o.firstID, "first-id", 1001, "id of the first generated team")
	fs.IntVar(&o.period, "period", 1, "current period; 0 reports none")
	fs.IntVar(&o.periods, "periods", 38, "periods in the season")
	fs.Int64Var(&o.seed, "seed", 1, "generator seed")
	fs.StringSliceVar(&o.fail, "fail", nil, "entity=status pairs that fail, e.g. 1003=503")
	fs.StringSliceVar(&o.anonymous, "anonymous", nil, "entities whose profile has no name")
	if err := fs.Parse(args); err != nil {
		return options{}, nil, err
	}

	opts := []fakesource.Option{
		fakesource.WithPeriods(o.periods),
		fakesource.WithCurrentPeriod(o.period),
		fakesource.WithGeneratedTeams(o.teams, o.firstID, o.seed),
	}
	for _, pair := range o.fail {
		id, statusText, ok := strings.Cut(pair, "=")
		if !ok {
			statusText = strconv.Itoa(http.StatusServiceUnavailable)
		}
		status, err := strconv.Atoi(statusText)
		if err != nil || status < 400 || status > 599 {
			return options{}, nil, fmt.Errorf("invalid --fail %q: status must be 4xx or 5xx", pair)
		}
		opts = append(opts, fakesource.WithFailingEntity(strings.TrimSpace(id), status))
	}
	for _, id := range o.anonymous {
		opts = append(opts, fakesource.WithAnonymousEntity(strings.TrimSpace(id)))
	}
	return o, opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	o, opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	log := logger.Get().Named("fakesource")

	fake := fakesource.New(opts...)
	fmt.Fprintf(stdout, "BOARD_ENTITY_IDS=%s\n", strings.Join(fake.IDs(), ","))

	srv := &http.Server{
		Addr:              o.addr,
		Handler:           fake,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "serving fake league", logger.String("addr", o.addr), logger.Int("teams", o.teams), logger.Int("period", o.period))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info(shutdownCtx, "shutting down", logger.Int64("requests", fake.Requests()))
	return srv.Shutdown(shutdownCtx)
}
