package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/network"
	"github.com/hamsadev/ril/sms"
)

// Server handles HTTP requests against the modem session.
type Server struct {
	Logger  *slog.Logger
	Session *ril.Session
	SMS     *sms.Client
	Network *network.Client
}

// ServeHTTP implements the http.Handler interface for the Server struct.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /sms", s.handleSendSMS)
	mux.HandleFunc("GET /sms", s.handleListSMS)
	mux.HandleFunc("GET /signal", s.handleSignal)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.ServeHTTP(w, r)
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Message: message})
}

func (s *Server) sendJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleSendSMS processes POST /sms requests.
func (s *Server) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	type SMSRequest struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}

	var req SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.To == "" || req.Message == "" {
		s.sendError(w, "both 'to' and 'message' fields are required", http.StatusBadRequest)
		return
	}

	ref, err := s.SMS.Send(r.Context(), req.To, req.Message)
	if err != nil {
		s.Logger.Error("Failed to send SMS", "error", err, "to", req.To)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.Logger.Info("SMS sent", "to", req.To, "reference", ref, "message_length", len(req.Message))
	s.sendJSON(w, map[string]int{"reference": ref})
}

// handleListSMS processes GET /sms requests.
func (s *Server) handleListSMS(w http.ResponseWriter, r *http.Request) {
	filter := sms.All
	if r.URL.Query().Get("unread") == "1" {
		filter = sms.Unread
	}

	msgs, err := s.SMS.List(r.Context(), filter)
	if err != nil {
		s.Logger.Error("Failed to list SMS", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, msgs)
}

// handleSignal processes GET /signal requests.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := s.Network.SignalQuality(r.Context())
	if err != nil {
		s.Logger.Error("Failed to query signal", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.sendJSON(w, map[string]int{"rssi": sig.RSSI, "ber": sig.BER})
}

// handleStatus processes GET /status requests.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reg, err := s.Network.RegistrationStatus(r.Context())
	if err != nil {
		s.Logger.Error("Failed to query registration", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	operator, err := s.Network.Operator(r.Context())
	if err != nil {
		s.Logger.Error("Failed to query operator", "error", err)
		s.sendError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, map[string]any{
		"registration":     reg.String(),
		"registered":       reg.Registered(),
		"operator":         operator,
		"session_state":    s.Session.State().String(),
		"transport_errors": s.Session.TransportErrors(),
	})
}
