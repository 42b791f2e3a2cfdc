package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/arcanrun/arcane/approval"
	"github.com/arcanrun/arcane/bridge"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// keepAliveInterval is the §6.3 SSE keep-alive ping period.
const keepAliveInterval = 15 * time.Second

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	format := bridge.Format(r.URL.Query().Get("format"))
	b, err := bridge.New(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turn, err := s.Driver.Submit(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if format == bridge.FormatAISDKv6 {
		w.Header().Set("x-vercel-ai-ui-message-stream", "v1")
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, canFlush := w.(http.Flusher)

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-turn.Events:
			if !ok {
				s.writeFrames(w, b.Close())
				if canFlush {
					flusher.Flush()
				}
				return
			}
			frames, err := b.Translate(ev)
			if err != nil {
				s.Logger.Warn(r.Context(), "bridge translate failed", "error", err)
				continue
			}
			s.writeFrames(w, frames)
			if canFlush {
				flusher.Flush()
			}

		case <-ticker.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			if canFlush {
				flusher.Flush()
			}

		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeFrames(w http.ResponseWriter, frames []bridge.Frame) {
	for _, f := range frames {
		_, _ = w.Write(f.Data)
	}
}

type approveRequest struct {
	ApprovalID string `json:"approval_id"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ApprovalID == "" {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var outcome approval.Outcome
	switch req.Decision {
	case "approved":
		outcome = approval.Approved
	case "denied":
		outcome = approval.Denied
	default:
		writeError(w, http.StatusBadRequest, "decision must be \"approved\" or \"denied\"")
		return
	}

	if !s.Gate.Resolve(req.ApprovalID, approval.Decision{Outcome: outcome, Reason: req.Reason}) {
		writeError(w, http.StatusNotFound, "unknown approval_id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"resolved": true})
}

func (s *Server) handleApprovals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"pending": s.Gate.Pending()})
}
