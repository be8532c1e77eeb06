package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yacchi/sitetheme"
	"github.com/yacchi/sitetheme/internal/log"
	"github.com/yacchi/sitetheme/metrics"
	"github.com/yacchi/sitetheme/theme"
)

func newWatchCommand(opts *globalOptions) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow theme changes and print the custom properties after each one",
		Long: `Starts an engine on the selected store and prints the ":root" style block
every time the theme changes, until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), opts, metricsAddr, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	return cmd
}

func runWatch(ctx context.Context, opts *globalOptions, metricsAddr string, out io.Writer) error {
	logger := log.WithComponent("cli")

	st, err := opts.openStorage(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if metricsAddr != "" {
		srv := &http.Server{
			Addr:              metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("event", "metrics.serve_failed").Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	state := theme.NewState()
	var mu sync.Mutex
	emit := func(snap theme.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprint(out, snap.CSS())
	}
	unsubscribe := state.Subscribe(emit)
	defer unsubscribe()

	engine := sitetheme.NewEngine(state, st,
		sitetheme.WithLogger(log.WithComponent("engine")),
		sitetheme.WithMetrics(m),
	)
	if err := engine.Start(ctx); err != nil {
		return err
	}
	if state.Len() == 0 {
		emit(state.Snapshot())
	}

	logger.Info().
		Str("event", "config.watching").
		Str("storage", string(st.Type())).
		Msg("watching for configuration changes")

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return engine.Stop(stopCtx)
}
