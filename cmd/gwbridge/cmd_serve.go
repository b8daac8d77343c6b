package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/negotiation-bridge/internal/bridge"
	"github.com/kitbuilder587/negotiation-bridge/internal/geniusweb"
	"github.com/kitbuilder587/negotiation-bridge/internal/metrics"
	"github.com/kitbuilder587/negotiation-bridge/internal/party"
	"github.com/kitbuilder587/negotiation-bridge/internal/ratelimit"
)

var (
	serveParty    string
	serveAddr     string
	serveRateSess int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose a catalog party over websocket",
	Long: `Serves one catalog party on /party. Every websocket connection gets a
fresh party instance; "gwbridge run --agent ws://host:port/party" talks to it.
Metrics are served on /metrics of the same listener. New sessions from
one host are limited by --sessions-per-minute.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info, err := party.Default().Get(serveParty)
		if err != nil {
			return err
		}
		ln, err := net.Listen("tcp", serveAddr)
		if err != nil {
			return err
		}
		return servePartyOn(cmd.Context(), ln, info, serveOptions{
			TmpDir:            cfg.Bridge.TmpDir,
			SessionsPerMinute: serveRateSess,
		}, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveParty, "party", "boulware", "catalog party to serve")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8090", "listen address")
	serveCmd.Flags().IntVar(&serveRateSess, "sessions-per-minute", ratelimit.DefaultSessionsPerMinute, "new sessions allowed per client host")
}

type serveOptions struct {
	TmpDir            string
	SessionsPerMinute int
}

// servePartyOn обслуживает ln до отмены ctx
func servePartyOn(ctx context.Context, ln net.Listener, info party.Info, opts serveOptions, logger *zap.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	m := metrics.New(reg)

	factory := func() geniusweb.Party {
		return info.Factory(logger.Named(info.Name))
	}

	mux := http.NewServeMux()
	limiter := ratelimit.New(ctx, ratelimit.Config{SessionsPerMinute: opts.SessionsPerMinute, Recorder: m})
	server := bridge.NewPartyServer(factory, opts.TmpDir, logger, bridge.WithObserver(m))
	mux.Handle("/party", limiter.Middleware(server, logger))
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("serving party", zap.String("party", info.Name), zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
