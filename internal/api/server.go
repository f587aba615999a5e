package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"energy_dashboard/internal/metrics"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/simulator"
	"energy_dashboard/internal/store"
	"energy_dashboard/internal/thermal"
	"energy_dashboard/internal/ws"
)

const requestTimeout = 10 * time.Second

// Server exposes the simulation over REST, the WebSocket feed and Prometheus.
type Server struct {
	engine      *simulator.Engine
	ws          http.Handler
	metrics     *metrics.Metrics
	frontendDir string
	log         *slog.Logger
}

type Options struct {
	WS          http.Handler
	Metrics     *metrics.Metrics
	FrontendDir string
	Logger      *slog.Logger
}

func NewServer(engine *simulator.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		engine:      engine,
		ws:          opts.WS,
		metrics:     opts.Metrics,
		frontendDir: opts.FrontendDir,
		log:         opts.Logger.With("component", "api"),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	if s.ws != nil {
		r.Handle("/ws", s.ws)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		s.route(r, http.MethodGet, "/state", s.handleState)
		s.route(r, http.MethodGet, "/temperature", s.handleTemperature)
		s.route(r, http.MethodPost, "/weather", s.handleWeather)
		s.route(r, http.MethodPut, "/components/{component}", s.handleComponent)
		s.route(r, http.MethodPost, "/mode/toggle", s.handleToggleMode)
		s.route(r, http.MethodPut, "/target-grid", s.handleTargetGrid)
		s.route(r, http.MethodPost, "/sim/{action}", s.handleSim)
	})

	if s.frontendDir != "" {
		if _, err := os.Stat(s.frontendDir); err == nil {
			s.log.Info("serving frontend", "dir", s.frontendDir)
			r.Handle("/*", http.FileServer(http.Dir(s.frontendDir)))
		} else {
			s.log.Warn("frontend directory not found", "dir", s.frontendDir)
		}
	}

	return r
}

// route registers a handler and, when metrics are enabled, counts its requests.
func (s *Server) route(r chi.Router, method, pattern string, h http.HandlerFunc) {
	var handler http.Handler = h
	if s.metrics != nil {
		handler = s.metrics.WrapHandler(pattern, handler)
	}
	r.Method(method, pattern, handler)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type valueRequest struct {
	Value float64 `json:"value"`
}

type stateResponse struct {
	State   ws.SimStatePayload  `json:"state"`
	Flows   model.Flows         `json:"flows"`
	Summary ws.SummaryPayload   `json:"summary"`
	Edit    ws.EditStatePayload `json:"edit"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, stateResponse{
		State:   ws.SimStateFromEngine(s.engine.State()),
		Flows:   s.engine.Flows(),
		Summary: ws.SummaryFromEngine(s.engine.Summary()),
		Edit:    ws.EditFromEngine(s.engine.Edit()),
	})
}

func (s *Server) handleTemperature(w http.ResponseWriter, r *http.Request) {
	kw, err := strconv.ParseFloat(r.URL.Query().Get("kw"), 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "kw must be a number")
		return
	}
	temp, err := s.engine.EstimateTemperature(kw)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{
		"kw":            kw,
		"temperature_c": temp,
	})
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	var req ws.WeatherPayload
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := model.ParseWeatherMode(req.Mode)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	if err := s.engine.SetWeatherMode(mode); err != nil {
		s.respondErr(w, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	c, err := model.ParseComponent(chi.URLParam(r, "component"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.SetComponentValue(c, req.Value); err != nil {
		s.respondErr(w, err)
		return
	}
	s.handleState(w, r)
}

func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	auto := s.engine.ToggleAutoMode()
	respondJSON(w, http.StatusOK, map[string]bool{"auto_mode": auto})
}

func (s *Server) handleTargetGrid(w http.ResponseWriter, r *http.Request) {
	var req valueRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.engine.SetTargetGrid(req.Value); err != nil {
		s.respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{
		"target_grid_kw": s.engine.State().Controls.TargetGridKW,
	})
}

func (s *Server) handleSim(w http.ResponseWriter, r *http.Request) {
	switch action := chi.URLParam(r, "action"); action {
	case "start":
		s.engine.Start()
	case "pause":
		s.engine.Pause()
	case "step":
		if _, err := s.engine.Step(); err != nil {
			s.respondErr(w, err)
			return
		}
	default:
		respondError(w, http.StatusNotFound, "unknown action "+strconv.Quote(action))
		return
	}
	s.handleState(w, r)
}

// respondErr maps domain errors to HTTP status codes.
func (s *Server) respondErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, model.ErrUnknownComponent):
		status = http.StatusNotFound
	case errors.Is(err, simulator.ErrEditInProgress):
		status = http.StatusConflict
	case errors.Is(err, model.ErrNotEditable),
		errors.Is(err, model.ErrUnknownWeather),
		errors.Is(err, store.ErrInvalidValue),
		errors.Is(err, thermal.ErrInvalidPower):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	respondError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
