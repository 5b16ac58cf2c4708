package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/observability"
	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/timectrl"
)

// eventBuffer is the per-client notification buffer of the event stream.
const eventBuffer = 64

// Handler serves the JSON game API.
type Handler struct {
	ctl     *controller
	metrics *observability.GameCollector
	log     logging.Logger
}

// NewHandler builds the HTTP surface. tokens and metrics may be nil.
func NewHandler(rt *runtime.Runtime, clock timectrl.SimClock, tokens *TokenIssuer, metrics *observability.GameCollector, log logging.Logger) *Handler {
	if log == nil {
		log = logging.Noop()
	}
	return &Handler{
		ctl:     &controller{rt: rt, clock: clock, tokens: tokens, log: log},
		metrics: metrics,
		log:     log,
	}
}

// NewRouter wires the API routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(h.loggingMiddleware)

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(jsonMiddleware)

	api.HandleFunc("/snapshot", h.GetSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/events", h.StreamEvents).Methods(http.MethodGet)
	api.HandleFunc("/highscore", h.GetHighScore).Methods(http.MethodGet)

	// Game lifecycle
	api.HandleFunc("/game", h.StartNewGame).Methods(http.MethodPost)
	api.HandleFunc("/game/reset", h.Reset).Methods(http.MethodPost)
	api.HandleFunc("/game/pause", h.TogglePause).Methods(http.MethodPost)
	api.HandleFunc("/game/save", h.SaveGame).Methods(http.MethodPost)
	api.HandleFunc("/game/save", h.DeleteSave).Methods(http.MethodDelete)
	api.HandleFunc("/game/resume", h.ResumeGame).Methods(http.MethodPost)

	// Player commands
	api.HandleFunc("/flights/{flightId}/assign/{gateId}", h.AssignFlight).Methods(http.MethodPost)
	api.HandleFunc("/upgrades/{upgradeId}/purchase", h.PurchaseUpgrade).Methods(http.MethodPost)

	return r
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for logs and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if incoming := r.Header.Get(requestIDHeader); incoming != "" {
			ctx = logging.ContextWithRequestID(ctx, incoming)
		}
		ctx, reqLog := logging.WithRequestLogger(ctx, h.log.With(
			logging.String("http_method", r.Method),
			logging.String("path", r.URL.Path),
		))
		ctx = logging.ContextWithLogger(ctx, reqLog)
		w.Header().Set(requestIDHeader, logging.RequestIDFromContext(ctx))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		h.metrics.ObserveHTTP(route, r.Method, rec.status, elapsed)
		reqLog.Debug(ctx, "http request",
			logging.String("route", route),
			logging.Int("status", rec.status),
			logging.Duration("duration", elapsed),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult writes a command outcome; failures carry the mapped status
// and an ok=false body.
func writeResult(w http.ResponseWriter, res CommandResult, err error) {
	if err != nil {
		writeJSON(w, httpStatus(err), rejected(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// commandGeneration resolves the target generation from the bearer token or
// the optional generation query parameter.
func (h *Handler) commandGeneration(r *http.Request) (uint64, error) {
	var explicit uint64
	if raw := r.URL.Query().Get("generation"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: generation %q", ErrInvalidArgument, raw)
		}
		explicit = n
	}
	return h.ctl.authorize(r.Header.Get("Authorization"), explicit)
}

// HealthCheck reports liveness.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ctl.rt.Snapshot(h.ctl.clock.Now()))
}

func (h *Handler) GetHighScore(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctl.highScore(r.Context())
	writeResult(w, res, err)
}

func (h *Handler) StartNewGame(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctl.startNewGame(r.Context())
	writeResult(w, res, err)
}

func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctl.reset(r.Context())
	writeResult(w, res, err)
}

func (h *Handler) SaveGame(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctl.save(r.Context())
	writeResult(w, res, err)
}

func (h *Handler) DeleteSave(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctl.deleteSave(r.Context())
	writeResult(w, res, err)
}

func (h *Handler) ResumeGame(w http.ResponseWriter, r *http.Request) {
	res, err := h.ctl.resume(r.Context())
	writeResult(w, res, err)
}

func (h *Handler) TogglePause(w http.ResponseWriter, r *http.Request) {
	gen, err := h.commandGeneration(r)
	if err != nil {
		writeResult(w, CommandResult{}, err)
		return
	}
	res, err := h.ctl.togglePause(r.Context(), gen)
	writeResult(w, res, err)
}

func (h *Handler) AssignFlight(w http.ResponseWriter, r *http.Request) {
	gen, err := h.commandGeneration(r)
	if err != nil {
		writeResult(w, CommandResult{}, err)
		return
	}
	vars := mux.Vars(r)
	res, err := h.ctl.assign(r.Context(), gen, vars["flightId"], vars["gateId"])
	writeResult(w, res, err)
}

func (h *Handler) PurchaseUpgrade(w http.ResponseWriter, r *http.Request) {
	gen, err := h.commandGeneration(r)
	if err != nil {
		writeResult(w, CommandResult{}, err)
		return
	}
	res, err := h.ctl.purchase(r.Context(), gen, mux.Vars(r)["upgradeId"])
	writeResult(w, res, err)
}

// StreamEvents relays bus notifications as server-sent events until the
// client goes away.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, rejected(fmt.Errorf("streaming unsupported")))
		return
	}
	events, unsubscribe := h.ctl.rt.Bus().Channel(eventBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case n, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				logging.FromContext(ctx, h.log).Warn(ctx, "event not encoded", logging.Err(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", n.Kind, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
