package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"ngoexplorer/internal/explorer"
	"ngoexplorer/internal/ics"
	appLog "ngoexplorer/internal/log"
	"ngoexplorer/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Options configures a Server.
type Options struct {
	// Listen is the HTTP listen address.
	Listen string
	// PreviewPath is the PNG served at /preview.png.
	PreviewPath string
	// StreamKeepAlive is the SSE comment interval; zero means 25s.
	StreamKeepAlive time.Duration
}

// Server renders one explorer session over HTTP.
type Server struct {
	session *explorer.Session
	opts    Options
	mux     *http.ServeMux

	// baseCtx outlives single requests; reloads run under it.
	baseCtx context.Context
}

// NewServer constructs a new Server. ctx bounds background work started
// by requests, such as reloads.
func NewServer(ctx context.Context, session *explorer.Session, opts Options) *Server {
	if opts.StreamKeepAlive <= 0 {
		opts.StreamKeepAlive = 25 * time.Second
	}
	s := &Server{
		session: session,
		opts:    opts,
		mux:     http.NewServeMux(),
		baseCtx: ctx,
	}
	s.registerRoutes()
	return s
}

// Handler returns the routed handler wrapped in request-id middleware.
func (s *Server) Handler() http.Handler {
	return requestIDMiddleware(s.mux)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.opts.Listen)
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
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handlePage)
	s.mux.HandleFunc("GET /grid", s.handleGrid)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/stream", s.handleStream)
	s.mux.HandleFunc("POST /api/registrations/{id}/toggle", s.handleToggle)
	s.mux.HandleFunc("GET /api/registrations.ics", s.handleCalendar)
	s.mux.HandleFunc("POST /api/events/reload", s.handleReload)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePage renders the full explorer page filtered by ?q=.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.session.SetQuery(q)
	s.render(w, "page", s.session.View(q))
}

// handleGrid renders only the card grid; the page swaps it in on every
// keystroke.
func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.session.SetQuery(q)
	s.render(w, "grid", s.session.View(q))
}

func (s *Server) render(w http.ResponseWriter, name string, st explorer.State) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplates.ExecuteTemplate(w, name, st); err != nil {
		appLog.Error("template render failed", err, "template", name)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStateResponse(s.session.View(r.URL.Query().Get("q"))))
}

// handleToggle flips one registration. JSON clients get the new state;
// plain form posts are redirected back to the page.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	if err := s.session.Toggle(r.Context(), id); err != nil {
		appLog.Error("registration toggle failed", err, "id", id, "request_id", requestID(r))
		writeError(w, http.StatusInternalServerError, "failed to save registration")
		return
	}

	q := r.URL.Query().Get("q")
	if r.Header.Get("Accept") != "application/json" {
		target := "/"
		if q != "" {
			target += "?q=" + url.QueryEscape(q)
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, toStateResponse(s.session.View(q)))
}

// handleReload starts a fresh load in the background. Progress is
// observable through /api/state and /api/stream.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	appLog.Info("event reload requested", "request_id", requestID(r))
	go s.session.Load(s.baseCtx)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "loading"})
}

func (s *Server) handleCalendar(w http.ResponseWriter, _ *http.Request) {
	st := s.session.Snapshot()
	body := ics.ExportRegistered(st.Events, st.Registrations, time.Now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="registrations.ics"`)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.opts.PreviewPath == "" {
		http.NotFound(w, r)
		return
	}
	// http.ServeFile answers 404 for a preview that was never captured.
	http.ServeFile(w, r, s.opts.PreviewPath)
}

// stateResponse is the JSON shape of /api/state and toggle responses.
type stateResponse struct {
	Loading         bool       `json:"loading"`
	Query           string     `json:"query"`
	Events          []eventDTO `json:"events"`
	Total           int        `json:"total"`
	Registered      []int      `json:"registered"`
	RegisteredCount int        `json:"registered_count"`
	Empty           bool       `json:"empty"`
	LoadError       string     `json:"load_error,omitempty"`
}

type eventDTO struct {
	model.Event
	Registered bool `json:"registered"`
}

func toStateResponse(st explorer.State) stateResponse {
	evs := make([]eventDTO, 0, len(st.Visible))
	for _, ev := range st.Visible {
		evs = append(evs, eventDTO{Event: ev, Registered: st.IsRegistered(ev.ID)})
	}
	return stateResponse{
		Loading:         st.Loading,
		Query:           st.Query,
		Events:          evs,
		Total:           len(st.Events),
		Registered:      st.Registrations.IDs(),
		RegisteredCount: st.RegisteredCount,
		Empty:           st.Empty,
		LoadError:       st.LoadErr,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

type requestIDKey struct{}

// requestIDMiddleware tags every request with an X-Request-ID, reusing
// the caller's when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "request_id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}
