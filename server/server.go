package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"pamong_newsroom/autopilot"
	"pamong_newsroom/generator"
	"pamong_newsroom/news"
	"pamong_newsroom/state"
)

const assistTimeout = 120 * time.Second

// Autopilot is the orchestrator surface the admin API drives.
type Autopilot interface {
	GetStatus(ctx context.Context) bool
	SetStatus(ctx context.Context, enabled bool) error
	BeginManualRun() (run func(ctx context.Context), err error)
	Logs() []state.LogEntry
	State() autopilot.State
	Subscribe(onStatus func(autopilot.Status), onLogs func([]state.LogEntry))
}

// Assistant backs the article editor's AI buttons.
type Assistant interface {
	EditorialLead(ctx context.Context, title, content string) (string, error)
	Continue(ctx context.Context, content string) (string, error)
	Improve(ctx context.Context, content string) (string, error)
	Ask(ctx context.Context, question, articleContext string) (string, error)
	DraftFromTopic(ctx context.Context, topic string) (generator.TopicDraft, error)
}

// Options configures the admin API. Autopilot and Articles are required.
type Options struct {
	Autopilot Autopilot
	Articles  news.Store
	Assistant Assistant
	Logger    *slog.Logger
	// BaseContext outlives requests; manual runs started over HTTP use it.
	BaseContext context.Context
}

type Server struct {
	autopilot Autopilot
	articles  news.Store
	assistant Assistant
	logger    *slog.Logger
	baseCtx   context.Context
	hub       *hub
	bg        sync.WaitGroup
}

func New(opts Options) (*Server, error) {
	if opts.Autopilot == nil {
		return nil, errors.New("autopilot required")
	}
	if opts.Articles == nil {
		return nil, errors.New("article store required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := opts.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Server{
		autopilot: opts.Autopilot,
		articles:  opts.Articles,
		assistant: opts.Assistant,
		logger:    logger.With("component", "server"),
		baseCtx:   ctx,
		hub:       newHub(),
	}
	s.autopilot.Subscribe(
		func(st autopilot.Status) { s.hub.publish("status", map[string]any{"status": st}) },
		func(logs []state.LogEntry) { s.hub.publish("logs", logs) },
	)
	return s, nil
}

// Wait blocks until manual runs started over HTTP have finished.
func (s *Server) Wait() {
	s.bg.Wait()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	mux.HandleFunc("GET /api/autopilot", s.handleAutopilotGet)
	mux.HandleFunc("POST /api/autopilot", s.handleAutopilotSet)
	mux.HandleFunc("POST /api/autopilot/run", s.handleAutopilotRun)
	mux.HandleFunc("GET /api/autopilot/events", s.handleAutopilotEvents)

	mux.HandleFunc("GET /api/articles", s.handleArticleList)
	mux.HandleFunc("POST /api/articles", s.handleArticleCreate)
	mux.HandleFunc("GET /api/articles/{slug}", s.handleArticleGet)
	mux.HandleFunc("DELETE /api/articles/{id}", s.handleArticleDelete)

	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("PUT /api/settings", s.handleSettingsPut)

	mux.HandleFunc("POST /api/assist/{action}", s.handleAssist)
	return logMiddleware(s.logger, mux)
}

// --- Autopilot ---

type autopilotResp struct {
	Enabled bool             `json:"enabled"`
	State   autopilot.State  `json:"state"`
	Logs    []state.LogEntry `json:"logs"`
}

type autopilotSetReq struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) autopilotSnapshot(ctx context.Context) autopilotResp {
	return autopilotResp{
		Enabled: s.autopilot.GetStatus(ctx),
		State:   s.autopilot.State(),
		Logs:    s.autopilot.Logs(),
	}
}

func (s *Server) handleAutopilotGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.autopilotSnapshot(r.Context()))
}

func (s *Server) handleAutopilotSet(w http.ResponseWriter, r *http.Request) {
	var req autopilotSetReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, errors.New(`"enabled" is required`))
		return
	}
	if err := s.autopilot.SetStatus(r.Context(), *req.Enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.autopilotSnapshot(r.Context()))
}

// handleAutopilotRun starts a manual cycle and returns at once; progress
// reaches the admin through the log stream. The latch is taken before the
// reply, so 202 always means the cycle runs.
func (s *Server) handleAutopilotRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.autopilot.BeginManualRun()
	if errors.Is(err, autopilot.ErrBusy) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		run(s.baseCtx)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleAutopilotEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events, cancel := s.hub.subscribe()
	defer cancel()

	snap := s.autopilotSnapshot(r.Context())
	status := autopilot.StatusIdle
	if snap.Enabled {
		status = autopilot.StatusActive
	}
	writeEvent(w, event{name: "status", data: mustJSON(map[string]any{"status": status})})
	writeEvent(w, event{name: "logs", data: mustJSON(snap.Logs)})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.baseCtx.Done():
			return
		case ev := <-events:
			writeEvent(w, ev)
			flusher.Flush()
		}
	}
}

// --- Articles ---

func (s *Server) handleArticleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	list, err := s.articles.ListArticles(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []news.Article{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleArticleGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.articles.ArticleBySlug(r.Context(), r.PathValue("slug"))
	if errors.Is(err, news.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("article not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleArticleCreate(w http.ResponseWriter, r *http.Request) {
	var req news.NewArticle
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a, err := s.articles.CreateArticle(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleArticleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.articles.DeleteArticle(r.Context(), r.PathValue("id"))
	if errors.Is(err, news.ErrNotFound) {
		writeError(w, http.StatusNotFound, errors.New("article not found"))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Settings ---

type settingsResp struct {
	news.Settings
	AIAPIKeySet bool `json:"aiApiKeySet"`
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.articles.Settings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, maskSettings(st))
}

// handleSettingsPut keeps the stored API key when the request leaves it empty.
func (s *Server) handleSettingsPut(w http.ResponseWriter, r *http.Request) {
	var req news.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.AIAPIKey == "" {
		current, err := s.articles.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		req.AIAPIKey = current.AIAPIKey
	}
	if err := s.articles.SaveSettings(r.Context(), req); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, maskSettings(req))
}

func maskSettings(st news.Settings) settingsResp {
	set := st.AIAPIKey != ""
	st.AIAPIKey = ""
	return settingsResp{Settings: st, AIAPIKeySet: set}
}

// --- Assistant ---

type assistReq struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Question string `json:"question"`
	Context  string `json:"context"`
	Topic    string `json:"topic"`
}

type assistResp struct {
	Text  string                `json:"text,omitempty"`
	Draft *generator.TopicDraft `json:"draft,omitempty"`
}

func (s *Server) handleAssist(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("ai assistant not configured"))
		return
	}
	var req assistReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), assistTimeout)
	defer cancel()

	var (
		resp assistResp
		err  error
	)
	switch r.PathValue("action") {
	case "lead":
		resp.Text, err = s.assistant.EditorialLead(ctx, req.Title, req.Content)
	case "continue":
		resp.Text, err = s.assistant.Continue(ctx, req.Content)
	case "improve":
		resp.Text, err = s.assistant.Improve(ctx, req.Content)
	case "ask":
		resp.Text, err = s.assistant.Ask(ctx, req.Question, req.Context)
	case "draft":
		var d generator.TopicDraft
		d, err = s.assistant.DraftFromTopic(ctx, req.Topic)
		if err == nil {
			resp.Draft = &d
		}
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the middleware.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if strings.HasSuffix(r.URL.Path, "/events") {
			return
		}
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
