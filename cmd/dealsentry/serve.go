package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dealsentry/dealsentry/internal/catalog"
	"github.com/dealsentry/dealsentry/internal/persistence/postgres"
	"github.com/dealsentry/dealsentry/internal/watch"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the selection API with the watch scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			d, err := buildDeps(reg)
			if err != nil {
				return err
			}
			defer closeDeps(d)
			return serve(d, reg)
		},
	}
}

func serve(d *deps, reg *prometheus.Registry) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runner *watch.Runner
	if d.db != nil {
		watches := postgres.NewWatchRepo(d.db, d.cfg.Postgres.QueryTimeout)
		prices := postgres.NewPriceHistoryRepo(d.db, d.cfg.Postgres.QueryTimeout)
		alerts := postgres.NewAlertRepo(d.db, d.cfg.Postgres.QueryTimeout)
		evaluator := watch.NewEvaluator(d.cfg.Watch.Config, d.adapter, watches, prices, alerts, d.metrics)
		runner = watch.NewRunner(evaluator, watches, d.cfg.Watch.Schedule, d.cfg.Watch.PerWatch)
		if err := runner.Start(ctx); err != nil {
			return err
		}
		defer runner.Stop()
	} else {
		log.Warn().Msg("no database configured, watch scheduler disabled")
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/v1/select", d.handleSelect).Methods(http.MethodPost)

	srv := &http.Server{
		Addr:              d.cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("serving")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}

type selectRequest struct {
	Query  catalog.Query `json:"query"`
	UserID int64         `json:"user_id"`
}

func (d *deps) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	result, err := d.pipeline.RunSelection(r.Context(), req.Query, req.UserID)
	if err != nil {
		writeSelectionError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// writeSelectionError maps the canonical error taxonomy to HTTP. A
// NoMatch is a successful empty outcome, not a server fault.
func writeSelectionError(w http.ResponseWriter, err error) {
	if reason, ok := catalog.AsNoMatch(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"no_match": string(reason)})
		return
	}
	switch {
	case errors.Is(err, catalog.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, catalog.ErrUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, catalog.ErrTransient):
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
