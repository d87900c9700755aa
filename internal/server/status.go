package server

import (
	"encoding/json"
	"net/http"
	"time"

	"git.home.luguber.info/inful/jellsite/internal/rebuild"
	"git.home.luguber.info/inful/jellsite/internal/version"
)

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	rebuild.Status
	LastError string     `json:"last_error,omitempty"`
	BuiltAt   *time.Time `json:"built_at,omitempty"`
	Output    string     `json:"output,omitempty"`
	Version   string     `json:"version"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Status: s.ctrl.Status(), Version: version.Version}
	if f := resp.LastFailure; f != nil {
		resp.LastError = f.Message
	}
	if snap := s.ctrl.Snapshot(); snap != nil {
		builtAt := snap.BuiltAt
		resp.BuiltAt = &builtAt
		resp.Output = snap.Output
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
}
