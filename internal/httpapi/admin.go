package httpapi

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/p-n-ai/diplomado/internal/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	users, err := s.portal.ListUsers(r.Context(), pr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	if !pr.IsAdmin() {
		writeError(w, r, auth.ErrForbidden)
		return
	}
	var req auth.NewUser
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	u, err := s.portal.CreateUser(r.Context(), pr, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleArchiveUser(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	if err := s.portal.ArchiveUser(r.Context(), pr, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReactivateUser(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	if err := s.portal.ReactivateUser(r.Context(), pr, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgressMatrix(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	m, err := s.portal.ProgressMatrix(r.Context(), pr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleExportProgress(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	// Buffered so a failure still produces a JSON error instead of a truncated file.
	var buf bytes.Buffer
	if err := s.portal.ExportProgress(r.Context(), pr, &buf); err != nil {
		writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("progreso-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleUserProgress(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	doc, err := s.portal.UserProgress(r.Context(), pr, mux.Vars(r)["userId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleToggleItem(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	vars := mux.Vars(r)
	completed, err := s.portal.ToggleItem(r.Context(), pr, vars["userId"], vars["moduleId"], vars["itemId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

func (s *Server) handleResetProgress(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	if err := s.portal.ResetProgress(r.Context(), pr, mux.Vars(r)["userId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetFinalAnalysis(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	if err := s.portal.ResetFinalAnalysis(r.Context(), pr, mux.Vars(r)["userId"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
