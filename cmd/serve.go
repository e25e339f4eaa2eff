package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/meeting-agent/internal/agent"
	"github.com/sells-group/meeting-agent/internal/model"
)

var servePort int

// runRegistry keeps finished run states in memory so review decisions can be
// applied later. Server restart loses pending reviews; notes must then be
// re-submitted.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*model.AgentState
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: map[string]*model.AgentState{}}
}

func (r *runRegistry) put(st *model.AgentState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[st.RunID] = st
}

func (r *runRegistry) get(id string) (*model.AgentState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.runs[id]
	return st, ok
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAgent(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		registry := newRunRegistry()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/api/notes", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Notes string `json:"notes"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.Notes == "" {
				writeError(w, http.StatusBadRequest, "notes are required")
				return
			}

			st, err := env.Agent.Run(req.Context(), body.Notes)
			if err != nil {
				var failure *agent.Failure
				if errors.As(err, &failure) {
					zap.L().Error("run failed",
						zap.String("run_id", st.RunID),
						zap.String("phase", failure.Phase),
						zap.Error(failure.Err))
					writeError(w, http.StatusBadGateway,
						fmt.Sprintf("pipeline failed in %s phase", failure.Phase))
					return
				}
				writeError(w, http.StatusInternalServerError, "pipeline failed")
				return
			}

			registry.put(st)
			writeJSON(w, http.StatusOK, agent.BuildResult(st))
		})

		r.Get("/api/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			st, ok := registry.get(chi.URLParam(req, "id"))
			if !ok {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			writeJSON(w, http.StatusOK, agent.BuildResult(st))
		})

		r.Post("/api/runs/{id}/resolutions", func(w http.ResponseWriter, req *http.Request) {
			st, ok := registry.get(chi.URLParam(req, "id"))
			if !ok {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}

			var body struct {
				Key      string `json:"key"`
				RecordID string `json:"record_id"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			if body.Key == "" || body.RecordID == "" {
				writeError(w, http.StatusBadRequest, "key and record_id are required")
				return
			}

			next, err := env.Agent.Resume(req.Context(), st, body.Key, body.RecordID)
			if err != nil {
				switch {
				case errors.Is(err, agent.ErrUnknownMention),
					errors.Is(err, agent.ErrNotReviewable),
					errors.Is(err, agent.ErrBadChoice):
					writeError(w, http.StatusUnprocessableEntity, err.Error())
				default:
					writeError(w, http.StatusInternalServerError, "resume failed")
				}
				return
			}

			registry.put(next)
			writeJSON(w, http.StatusOK, agent.BuildResult(next))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			_ = srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
