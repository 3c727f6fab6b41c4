package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bitfsorg/sharepool-go/host"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and read-only ledger views over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return withApp(v, func(a *app) error {
				return serve(ctx, a)
			})
		},
	}
	cmd.Flags().String("listen", "", "listen address (default from config)")
	bindFlags(v, cmd, "listen")
	return cmd
}

// newMux routes /metrics, /readyz, /v1/state and /v1/view/{method}. View
// arguments are passed as JSON in the args query parameter.
func newMux(a *app, log *slog.Logger) *http.ServeMux {
	sb := newSandbox(a)
	id := a.ledger.Config().ContractID

	writeJSON := func(w http.ResponseWriter, body []byte) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			log.Error("failed to write response", "error", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("failed to write readyz response", "error", err)
		}
	})
	mux.HandleFunc("GET /v1/state", func(w http.ResponseWriter, r *http.Request) {
		body, err := json.Marshal(a.ledger.State())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, body)
	})
	mux.HandleFunc("GET /v1/view/{method}", func(w http.ResponseWriter, r *http.Request) {
		var args []byte
		if q := r.URL.Query().Get("args"); q != "" {
			args = []byte(q)
		}
		body, err := sb.host.View(id, r.PathValue("method"), args)
		switch {
		case errors.Is(err, host.ErrMethodNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			writeJSON(w, body)
		}
	})
	return mux
}

func serve(ctx context.Context, a *app) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           newMux(a, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	a.log.Info("shutdown signal received, stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("error shutting down HTTP server", "error", err)
		return err
	}
	return nil
}
