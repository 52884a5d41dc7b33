package httpapi

import (
	"net/http"
	"strings"

	"github.com/p-n-ai/diplomado/internal/auth"
)

type principalHandler func(w http.ResponseWriter, r *http.Request, pr auth.Principal)

// authenticated resolves the bearer token to a principal before calling next.
func (s *Server) authenticated(next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, auth.ErrNoSession)
			return
		}
		pr, err := s.portal.Auth().CurrentUser(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r, pr)
	}
}

// bearerToken reads the Authorization header, falling back to the token
// query parameter for clients that cannot set headers (websockets).
func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return r.URL.Query().Get("token")
}
