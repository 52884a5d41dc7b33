package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/content"
	"github.com/p-n-ai/diplomado/internal/curriculum"
	"github.com/p-n-ai/diplomado/internal/evaluation"
	"github.com/p-n-ai/diplomado/internal/portal"
	"github.com/p-n-ai/diplomado/internal/progress"
	"github.com/p-n-ai/diplomado/internal/quiz"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("malformed request body")

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// apiError maps a domain error to its HTTP representation.
type apiError struct {
	target  error
	status  int
	code    string
	message string // used when auth.UserMessage has nothing for the error
}

var apiErrors = []apiError{
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials", ""},
	{auth.ErrNoSession, http.StatusUnauthorized, "unauthenticated", ""},
	{auth.ErrForbidden, http.StatusForbidden, "forbidden", ""},
	{auth.ErrUsernameTaken, http.StatusConflict, "username_taken", ""},
	{auth.ErrUserNotFound, http.StatusNotFound, "user_not_found", "El usuario no existe."},
	{curriculum.ErrUnknownItem, http.StatusNotFound, "unknown_item", "El contenido solicitado no existe."},
	{content.ErrNotFound, http.StatusNotFound, "content_not_found", "El contenido solicitado no existe."},
	{content.ErrUnknownContent, http.StatusBadRequest, "unknown_content", "Tipo de contenido no reconocido."},
	// Quiz errors arrive wrapped in content.ErrInvalidContent and must match first.
	{quiz.ErrNoGradableQuestions, http.StatusUnprocessableEntity, "no_gradable_questions", "La evaluación no tiene preguntas calificables."},
	{quiz.ErrInvalidQuiz, http.StatusInternalServerError, "invalid_evaluation", "La evaluación del módulo es inválida."},
	{content.ErrInvalidContent, http.StatusInternalServerError, "invalid_content", "El contenido del módulo es inválido."},
	{progress.ErrEvaluationItem, http.StatusUnprocessableEntity, "evaluation_item", "Las evaluaciones se completan enviando las respuestas."},
	{portal.ErrAlreadySubmitted, http.StatusConflict, "already_submitted", "Esta evaluación ya fue enviada."},
	{portal.ErrMissingDilemma, http.StatusBadRequest, "missing_dilemma", "Falta el dilema a responder."},
	{evaluation.ErrEmptyResponse, http.StatusBadRequest, "empty_response", "Por favor, escriba su respuesta al dilema."},
	{evaluation.ErrAlreadyCompleted, http.StatusConflict, "already_completed", "La evaluación final ya fue completada."},
	{evaluation.ErrGatewayUnavailable, http.StatusServiceUnavailable, "ai_unavailable", "El servicio de análisis no está disponible. Intente más tarde."},
	{errBadRequest, http.StatusBadRequest, "bad_request", "La solicitud es inválida."},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorBody{errorDetail{Message: auth.UserMessage(err), Code: "validation_failed"}})
		return
	}
	for _, e := range apiErrors {
		if !errors.Is(err, e.target) {
			continue
		}
		msg := auth.UserMessage(err)
		if msg == "" {
			msg = e.message
		}
		if e.status >= http.StatusInternalServerError {
			slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		}
		writeJSON(w, e.status, errorBody{errorDetail{Message: msg, Code: e.code}})
		return
	}

	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{errorDetail{Message: "Ocurrió un error inesperado.", Code: "internal"}})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
