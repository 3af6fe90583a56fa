package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/STARREPORTS/internal/events"
	"github.com/STARREPORTS/internal/types"
	"github.com/STARREPORTS/internal/validation"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// maxJSONBody bounds request bodies other than uploads
const maxJSONBody = 1 << 20

// handleWebSocket upgrades to WebSocket and sends the current state
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{CheckOrigin: s.origins.check}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	data, err := json.Marshal(types.WSMessage{
		Type: types.WSTypeStateUpdate,
		Data: s.store.GetState(),
	})
	if err == nil {
		client.send <- data
	}

	s.hub.Register(client)
	go client.readPump()
	go client.writePump()
}

// handleHealthCheck reports liveness
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, map[string]interface{}{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
		"ws_clients": s.hub.ClientCount(),
	})
}

// handleGetState returns the whole state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, s.store.GetState())
}

// handleGetMetrics returns rewrite provider metrics
func (s *Server) handleGetMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Metrics are disabled")
		return
	}
	if r.URL.Query().Get("history") == "true" {
		s.respondJSON(w, s.metrics.GetHistory())
		return
	}
	s.respondJSON(w, s.metrics.GetAllMetrics())
}

// handleGetEvents returns the change audit log
func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Audit log is disabled")
		return
	}

	q := events.Query{EntityID: r.URL.Query().Get("entity_id"), Limit: 100}
	if v := r.URL.Query().Get("type"); v != "" {
		q.Types = []events.EventType{events.EventType(v)}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "since must be an RFC 3339 timestamp")
			return
		}
		q.Since = since
	}

	list, err := s.bus.History(q)
	if err != nil {
		log.Printf("[SERVER] Failed to read audit log: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read audit log")
		return
	}
	if list == nil {
		list = []*events.Event{}
	}
	s.respondJSON(w, list)
}

// handleGetSettings returns the app settings
func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, s.store.GetSettings())
}

// handleUpdateSettings merges a settings patch
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch types.AppSettingsPatch
	if !s.decodeAndValidate(w, r, &patch) {
		return
	}
	s.store.UpdateAppSettings(patch)
	s.respondJSON(w, s.store.GetSettings())
}

// handleGetBanner returns the operator banner
func (s *Server) handleGetBanner(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		s.respondJSON(w, map[string]bool{"visible": false})
		return
	}
	s.respondJSON(w, s.notifications.GetBannerState())
}

// handleClearBanner hides the operator banner
func (s *Server) handleClearBanner(w http.ResponseWriter, r *http.Request) {
	if s.notifications != nil {
		s.notifications.ClearAlert()
	}
	s.respondJSON(w, map[string]bool{"success": true})
}

// Helper functions

func (s *Server) respondJSON(w http.ResponseWriter, data interface{}) {
	s.respondStatus(w, http.StatusOK, data)
}

func (s *Server) respondStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondStatus(w, status, map[string]string{"error": message})
}

// respondInvalid writes a 422 listing the failing fields
func (s *Server) respondInvalid(w http.ResponseWriter, err error) {
	verr, ok := validation.AsError(err)
	if !ok {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondStatus(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  verr.Error(),
		"fields": verr.Fields,
	})
}

// invalidField builds a single-field validation error
func invalidField(field, message string) error {
	return validation.NewError(validation.ErrInvalid, validation.FieldError{Field: field, Error: message})
}

// decodeJSON reads a JSON body into v, writing a 400 on failure
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			s.respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			s.respondError(w, http.StatusBadRequest, "Request body is required")
		default:
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		}
		return false
	}
	return true
}

// decodeAndValidate decodes then validates v, writing 400 or 422 on failure
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if !s.decodeJSON(w, r, v) {
		return false
	}
	if err := s.validator.Struct(v); err != nil {
		s.respondInvalid(w, err)
		return false
	}
	return true
}

// yearParam returns the school_year_id query value, defaulting to the
// active year. "all" disables the filter.
func (s *Server) yearParam(r *http.Request, st *types.State) (string, bool) {
	switch v := r.URL.Query().Get("school_year_id"); v {
	case "all":
		return "", false
	case "":
		return st.ActiveSchoolYearID, st.ActiveSchoolYearID != ""
	default:
		return v, true
	}
}

func pathID(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
