package control

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lshknn/dlsh/pkg/options"
)

// submitRequest is the JSON body of POST /v1/jobs: the key-space-value
// options a worker fleet would otherwise receive on argv (spec §6),
// submitted instead through the control plane.
type submitRequest struct {
	Args []string `json:"args"`
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleSubmit handles POST /v1/jobs: parses the submitted options,
// registers a pending job, and returns its ID for later polling.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	opts, err := options.Parse(req.Args)
	if err != nil {
		writeError(w, "invalid options: "+err.Error(), http.StatusBadRequest)
		return
	}

	job := s.registry.Submit(opts)
	writeJSON(w, job, http.StatusCreated)
}

// handleList handles GET /v1/jobs.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.registry.List(), http.StatusOK)
}

// handleJob handles GET /v1/jobs/{id} and POST /v1/jobs/{id}/cancel.
func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	id, action, _ := strings.Cut(path, "/")
	if id == "" {
		writeError(w, "job id required", http.StatusBadRequest)
		return
	}

	if action == "cancel" {
		if r.Method != http.MethodPost {
			writeError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !s.registry.Cancel(id) {
			writeError(w, "job not found or already finished", http.StatusConflict)
			return
		}
		job, _ := s.registry.Get(id)
		writeJSON(w, job, http.StatusOK)
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	job, ok := s.registry.Get(id)
	if !ok {
		writeError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, job, http.StatusOK)
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}
