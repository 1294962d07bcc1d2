package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scout"
	"github.com/sells-group/sitescout/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the SSE server for interactive scouting",
	Long: `Serves the scout pipeline over Server-Sent Events. A new request on
an existing session supersedes the session's in-flight run; the superseded
run stops emitting immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		e, err := initSources(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &server{
			pipeline: newPipeline(e),
			sessions: scout.NewSessionManager(),
			store:    st,
		}

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/api/scout", srv.handleScout)
		r.Get("/api/discover", srv.handleDiscover)
		r.Post("/api/cancel", srv.handleCancel)
		r.Get("/api/runs", srv.handleRunsList)
		r.Get("/api/runs/{id}", srv.handleRunShow)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			httpSrv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type server struct {
	pipeline *scout.Pipeline
	sessions *scout.SessionManager
	store    *store.SQLiteStore
}

// handleScout streams a Tier-2 area search as SSE. Query params: session,
// bbox (west,south,east,north), mw, min_acres, top_n, summarize.
func (s *server) handleScout(w http.ResponseWriter, r *http.Request) {
	bbox, err := parseBBox(r.URL.Query().Get("bbox"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	req := scout.AreaRequest{
		BBox:      bbox,
		MWTarget:  queryFloat(r, "mw"),
		MinAcres:  queryFloat(r, "min_acres"),
		TopN:      int(queryFloat(r, "top_n")),
		Summarize: r.URL.Query().Get("summarize") == "true",
	}

	s.streamRun(w, r, model.RunKindArea, r.URL.Query().Get("bbox"),
		func(ctx context.Context, emit scout.EmitFunc) ([]model.RankedCandidate, []model.SubMarketCandidate, error) {
			cands, err := s.pipeline.ScoutArea(ctx, req, emit)
			return cands, nil, err
		})
}

// handleDiscover streams Tier-1 discovery as SSE. Query params: session, q,
// mw, max.
func (s *server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	req := scout.DiscoverRequest{
		Query:         query,
		MWTarget:      queryFloat(r, "mw"),
		MaxSubMarkets: int(queryFloat(r, "max")),
	}

	s.streamRun(w, r, model.RunKindDiscover, query,
		func(ctx context.Context, emit scout.EmitFunc) ([]model.RankedCandidate, []model.SubMarketCandidate, error) {
			subs, err := s.pipeline.Discover(ctx, req, emit)
			return nil, subs, err
		})
}

// streamRun is the shared SSE run loop: it binds the request to its
// session (superseding any in-flight run on the same session), records the
// run, executes the pipeline, and persists the outcome. The pipeline emits
// its own terminal done/error events; this function adds nothing after
// them.
func (s *server) streamRun(w http.ResponseWriter, r *http.Request, kind model.RunKind, query string,
	run func(ctx context.Context, emit scout.EmitFunc) ([]model.RankedCandidate, []model.SubMarketCandidate, error),
) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sw, err := newSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	ctx, release := s.sessions.Begin(r.Context(), sessionID)
	defer release()

	var runID string
	if rec, err := s.store.CreateRun(ctx, sessionID, kind, query); err != nil {
		zap.L().Warn("record run failed", zap.Error(err))
	} else {
		runID = rec.ID
	}

	cands, subs, runErr := run(ctx, sw.Emit)

	if runID == "" {
		return
	}
	// Persistence must survive session cancellation.
	persistCtx := context.WithoutCancel(ctx)
	switch {
	case ctx.Err() != nil:
		if err := s.store.FailRun(persistCtx, runID, "cancelled"); err != nil {
			zap.L().Debug("record cancellation failed", zap.Error(err))
		}
	case runErr != nil:
		if err := s.store.FailRun(persistCtx, runID, runErr.Error()); err != nil {
			zap.L().Warn("record run failure failed", zap.Error(err))
		}
	default:
		if err := s.store.CompleteRun(persistCtx, runID, cands, subs); err != nil {
			zap.L().Warn("record run completion failed", zap.Error(err))
		}
	}
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session is required"})
		return
	}
	s.sessions.Cancel(session)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *server) handleRunsList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	filter := store.RunFilter{
		SessionID: r.URL.Query().Get("session"),
		Status:    model.RunStatus(r.URL.Query().Get("status")),
		Kind:      model.RunKind(r.URL.Query().Get("kind")),
		Limit:     limit,
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleRunShow(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func queryFloat(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// sseWriter serializes pipeline events onto an SSE response.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, eris.New("serve: response writer does not support streaming")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return &sseWriter{w: w, flusher: flusher}, nil
}

// Emit writes one event. Serialization failures drop the event; the stream
// stays usable.
func (sw *sseWriter) Emit(ev scout.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		zap.L().Warn("sse: marshal event", zap.Error(err))
		return
	}
	fmt.Fprintf(sw.w, "event: %s\ndata: %s\n\n", ev.Type, data)
	sw.flusher.Flush()
}
