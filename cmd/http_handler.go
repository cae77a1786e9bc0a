package cmd

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/streamgrab/streamgrab/internal/core"
	"github.com/streamgrab/streamgrab/internal/engine/events"
	"github.com/streamgrab/streamgrab/internal/worker"
)

// sseKeepAlive is how often an idle event stream gets a comment line.
const sseKeepAlive = 15 * time.Second

// jobCounter is implemented by bridges that run jobs in this process.
type jobCounter interface {
	ActiveJobs() int
}

// apiHandler serves the worker bridge over HTTP for RemoteBridge clients.
type apiHandler struct {
	bridge core.WorkerBridge
	token  string
	log    *logrus.Entry
}

func newAPIHandler(bridge core.WorkerBridge, token string) http.Handler {
	h := &apiHandler{
		bridge: bridge,
		token:  token,
		log:    logrus.WithField("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/enumerate", h.handleEnumerate)
	mux.HandleFunc("/start", h.handleStart)
	mux.HandleFunc("/events", h.handleEvents)
	return h.authMiddleware(mux)
}

func (h *apiHandler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || h.token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *apiHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	health := core.HealthResponse{Status: "ok", Version: Version}
	if jc, ok := h.bridge.(jobCounter); ok {
		health.ActiveJobs = jc.ActiveJobs()
	}
	writeJSON(w, http.StatusOK, health)
}

func (h *apiHandler) handleEnumerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req core.EnumerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SessionID == "" || strings.TrimSpace(req.URL) == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id and url are required")
		return
	}

	log := h.log.WithField("session", req.SessionID)
	log.Infof("enumerate %s", req.URL)
	if err := h.bridge.Enumerate(r.Context(), req.SessionID, req.URL, req.Headers); err != nil {
		h.writeBridgeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "session_id": req.SessionID})
}

func (h *apiHandler) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req core.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	// Clients never choose the executable the server runs.
	req.Options.BinaryPath = ""

	log := h.log.WithField("session", req.SessionID)
	log.Infof("start %q", req.Request.OutputName)
	if err := h.bridge.Start(r.Context(), req.SessionID, req.Request, req.Options); err != nil {
		h.writeBridgeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "session_id": req.SessionID})
}

// handleEvents streams every bus event as SSE. The initial comment tells
// the client that its subscription is live.
func (h *apiHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	stream, cleanup, err := h.bridge.StreamEvents(r.Context())
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer cleanup()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case msg, ok := <-stream:
			if !ok {
				return
			}
			topic, _, routable := events.Route(msg)
			if !routable {
				continue
			}
			data, err := json.Marshal(msg)
			if err != nil {
				h.log.WithError(err).Warnf("dropping %s event", topic)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeBridgeError maps worker rejections to 422 so clients can show the
// worker's own message.
func (h *apiHandler) writeBridgeError(w http.ResponseWriter, log *logrus.Entry, err error) {
	var rejected *worker.RejectedError
	if errors.As(err, &rejected) {
		log.WithError(err).Warn("worker rejected request")
		writeJSONError(w, http.StatusUnprocessableEntity, rejected.Message)
		return
	}
	log.WithError(err).Error("request failed")
	writeJSONError(w, http.StatusInternalServerError, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, core.ErrorResponse{Error: message})
}
