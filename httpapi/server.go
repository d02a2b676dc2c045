package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"go-recplay/engine"
	"go-recplay/metrics"
	"go-recplay/midi"
)

const shutdownTimeout = 5 * time.Second

// Controller is the part of engine.Session the HTTP surface drives
type Controller interface {
	StartRecording() error
	StopRecording() engine.Recording
	StartPlaying(rec engine.Recording, sink midi.Sink, loop bool) error
	StopPlaying()
	IsRecording() bool
	IsPlaying() bool
	Recording() engine.Recording
	CapturedLen() int
	Override() (uint8, bool)
}

// PortNames reports the currently opened input and output
type PortNames func() (in, out string)

// Handler exposes session controls over HTTP using go-chi.
type Handler struct {
	ctl     Controller
	hub     *Hub
	metrics *metrics.Metrics
	ports   PortNames
	log     *zap.Logger
}

// NewHandler returns a Handler. hub, m and ports may be nil.
func NewHandler(ctl Controller, hub *Hub, m *metrics.Metrics, ports PortNames, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{ctl: ctl, hub: hub, metrics: m, ports: ports, log: log}
}

// Router mounts every route on a chi router
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.log, h.metrics))

	r.Get("/status", h.Status)
	r.Get("/recording", h.GetRecording)
	r.Route("/record", func(r chi.Router) {
		r.Post("/start", h.StartRecording)
		r.Post("/stop", h.StopRecording)
	})
	r.Route("/play", func(r chi.Router) {
		r.Post("/start", h.StartPlaying)
		r.Post("/stop", h.StopPlaying)
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}
	if h.hub != nil {
		r.Get("/ws", h.hub.HandleWebSocket)
	}
	return r
}

// Status handles GET /status.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

func (h *Handler) status() StatusDTO {
	st := StatusDTO{
		Recording: h.ctl.IsRecording(),
		Playing:   h.ctl.IsPlaying(),
		Captured:  h.ctl.CapturedLen(),
		Events:    h.ctl.Recording().Len(),
	}
	if ch, ok := h.ctl.Override(); ok {
		st.Override = &ch
	}
	if h.ports != nil {
		st.Input, st.Output = h.ports()
	}
	if h.hub != nil {
		st.Clients = h.hub.ClientCount()
	}
	return st
}

// StartRecording handles POST /record/start.
func (h *Handler) StartRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.ctl.StartRecording(); err != nil {
		h.writeError(w, "start recording", err)
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

// StopRecording handles POST /record/stop. Stopping while idle returns the
// current recording.
func (h *Handler) StopRecording(w http.ResponseWriter, r *http.Request) {
	rec := h.ctl.StopRecording()
	writeJSON(w, http.StatusOK, newRecordingDTO(rec))
}

// StartPlaying handles POST /play/start?loop=true.
func (h *Handler) StartPlaying(w http.ResponseWriter, r *http.Request) {
	loop := false
	if s := r.URL.Query().Get("loop"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "loop must be a boolean"})
			return
		}
		loop = v
	}
	if err := h.ctl.StartPlaying(nil, nil, loop); err != nil {
		h.writeError(w, "start playing", err)
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

// StopPlaying handles POST /play/stop.
func (h *Handler) StopPlaying(w http.ResponseWriter, r *http.Request) {
	h.ctl.StopPlaying()
	writeJSON(w, http.StatusAccepted, h.status())
}

// GetRecording handles GET /recording.
func (h *Handler) GetRecording(w http.ResponseWriter, r *http.Request) {
	rec := h.ctl.Recording()
	if rec == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "nothing recorded yet"})
		return
	}
	writeJSON(w, http.StatusOK, newRecordingDTO(rec))
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps engine errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNoSourceConfigured), errors.Is(err, engine.ErrNoSinkConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, engine.ErrInvalidChannel):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.Error(op+" failed", zap.Error(err))
	} else {
		h.log.Info(op+" rejected", zap.Error(err))
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// Server runs the Handler on an http.Server
type Server struct {
	srv *http.Server
	hub *Hub
	log *zap.Logger
}

// NewServer wraps h in an http.Server listening on addr
func NewServer(addr string, h *Handler) *Server {
	return &Server{
		srv: &http.Server{Addr: addr, Handler: h.Router()},
		hub: h.hub,
		log: h.log,
	}
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutdown signal received, draining connections")
	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("http server stopped")
	return nil
}
