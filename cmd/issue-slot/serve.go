package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/config"
	"github.com/Sternrassler/gh-issue-slot/pkg/metrics"
	"github.com/Sternrassler/gh-issue-slot/pkg/pipeline"
	"github.com/Sternrassler/gh-issue-slot/pkg/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// pickTimeout bounds one HTTP pick, rate limit waits included.
const pickTimeout = 2 * time.Minute

func newServeCommand(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve selections over HTTP",
		Long: `Serve selections over HTTP:

  GET /pick/{strategy}?n=3&noun=prs&as=octocat
  GET /health
  GET /ready
  GET /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := &http.Server{
				Addr:              ":" + cfg.Server.Port,
				Handler:           a.routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info().Msg("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", a.readyHandler)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /pick/{strategy}", a.pickHandler)
	return mux
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// readyHandler checks the cache connection when the cache is enabled.
func (a *app) readyHandler(w http.ResponseWriter, r *http.Request) {
	if a.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// pickResponse is the JSON answer of /pick.
type pickResponse struct {
	RunID     string          `json:"run_id"`
	Title     string          `json:"title"`
	Requested int             `json:"requested"`
	Short     bool            `json:"short"`
	Items     []itemView      `json:"items"`
	Notices   []report.Notice `json:"notices"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *app) pickHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	count := pipeline.MaxCount
	if raw := q.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("n must be a number (got %q)", raw)})
			return
		}
		count = n
	}

	runID := uuid.NewString()
	ctx, cancel := context.WithTimeout(r.Context(), pickTimeout)
	defer cancel()

	notices := report.NewCollector(report.Log{Logger: a.logger.With().Str("run_id", runID).Logger()})
	inv, err := a.invocation(ctx, request{
		Strategy: r.PathValue("strategy"),
		Count:    count,
		Noun:     q.Get("noun"),
		Caller:   q.Get("as"),
	}, notices)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, pipeline.ErrUnknownStrategy) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	inv.ID = runID

	sel, err := a.runner.Run(ctx, inv, notices)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, pickResponse{
		RunID:     runID,
		Title:     sel.Title,
		Requested: sel.Requested,
		Short:     sel.Short,
		Items:     newItemViews(sel.Items),
		Notices:   notices.Notices(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}
