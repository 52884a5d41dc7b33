package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/quiz"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	sess, err := s.portal.Auth().Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		if err := s.portal.Auth().Logout(r.Context(), token); err != nil {
			writeError(w, r, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	writeJSON(w, http.StatusOK, pr)
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	writeJSON(w, http.StatusOK, map[string]any{
		"title": s.portal.Outline().Title(),
		"items": s.portal.Menu(pr),
	})
}

func (s *Server) handleViewItem(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	vars := mux.Vars(r)
	view, err := s.portal.ViewItem(r.Context(), pr, vars["moduleId"], vars["itemId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCompleteItem(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	vars := mux.Vars(r)
	if err := s.portal.CompleteItem(r.Context(), pr, vars["moduleId"], vars["itemId"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": true})
}

type evaluationRequest struct {
	Answers map[string]quiz.Answer `json:"answers"`
}

func (s *Server) handleSubmitEvaluation(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	var req evaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	vars := mux.Vars(r)
	sub, err := s.portal.SubmitEvaluation(r.Context(), pr, vars["moduleId"], vars["itemId"], req.Answers)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleFinalEvaluation(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	view, err := s.portal.FinalEvaluation(r.Context(), pr)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type finalEvaluationRequest struct {
	Dilemma  string `json:"dilemma"`
	Response string `json:"response"`
}

func (s *Server) handleSubmitFinalEvaluation(w http.ResponseWriter, r *http.Request, pr auth.Principal) {
	var req finalEvaluationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	analysis, err := s.portal.SubmitFinalEvaluation(r.Context(), pr, req.Dilemma, req.Response)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}
