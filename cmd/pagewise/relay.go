package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"pagewise/internal/channel"
	"pagewise/internal/config"
)

const defaultRelayAddr = "127.0.0.1:7420"

func newRelayCmd(opts *options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve channels to viewers and surfaces in other processes",
		Long: `Serve channels over websockets so a viewer started with --channel-url
and a surface process can exchange search commands.

Channels are served at ws://<addr>` + channel.PathPrefix + `<name>.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return serveRelay(ctx, addr, newRelayHandler(cfg))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", defaultRelayAddr, "address to listen on")
	return cmd
}

func newRelayHandler(cfg *config.Config) http.Handler {
	limit := rate.Inf
	if cfg.Channel.RateLimit > 0 {
		limit = rate.Limit(cfg.Channel.RateLimit)
	}
	mux := http.NewServeMux()
	mux.Handle(channel.PathPrefix, channel.NewRelay(channel.RelayOptions{
		Limit: limit,
		Burst: cfg.Channel.Burst,
	}))
	return mux
}

// serveRelay runs until ctx is canceled
func serveRelay(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Relay listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

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
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
