package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/ai"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/content"
	"github.com/p-n-ai/diplomado/internal/curriculum"
	"github.com/p-n-ai/diplomado/internal/evaluation"
	"github.com/p-n-ai/diplomado/internal/httpapi"
	"github.com/p-n-ai/diplomado/internal/portal"
	"github.com/p-n-ai/diplomado/internal/progress"
)

const evaluationJSON = `{
  "title": "Evaluación del Módulo 0",
  "questions": [
    {"id": "q1", "question": "¿Qué es?", "type": "single-choice", "options": ["A", "B"], "correctAnswer": "B"},
    {"id": "q2", "question": "¿Cuáles?", "type": "multiple-choice", "options": ["X", "Y", "Z"], "correctAnswer": ["X", "Y"]}
  ]
}`

type testEnv struct {
	srv          *httptest.Server
	hub          *activity.Hub
	mock         *ai.MockProvider
	adminToken   string
	studentToken string
	studentID    string
}

func newTestEnv(t *testing.T, readiness map[string]httpapi.ReadinessCheck) testEnv {
	t.Helper()
	return newTestEnvWithContent(t, readiness, evaluationJSON)
}

func newTestEnvWithContent(t *testing.T, readiness map[string]httpapi.ReadinessCheck, evalJSON string) testEnv {
	t.Helper()
	ctx := context.Background()

	resolver, err := content.NewResolver(fstest.MapFS{
		"modulos/0/intro.mp4":       {Data: []byte("fake-video"), ModTime: time.Unix(1700000000, 0)},
		"modulos/0/contenido.html":  {Data: []byte("<h1>Fundamentos</h1>")},
		"modulos/0/evaluacion.json": {Data: []byte(evalJSON)},
	})
	require.NoError(t, err)

	authSvc := auth.NewService(auth.ServiceConfig{
		Tokens:     auth.NewTokenIssuer("secret", time.Hour),
		BcryptCost: bcrypt.MinCost,
	})
	_, err = authSvc.EnsureDefaultAdmin(ctx, "admin", "adminpassword")
	require.NoError(t, err)

	router := ai.NewRouter()
	mock := ai.NewMockProvider("<p>Dilema</p>")
	router.Register("mock", mock)

	hub := activity.NewHub(activity.NewMemoryEventLogger())
	p, err := portal.New(portal.Config{
		Outline:    curriculum.Default(),
		Content:    resolver,
		Progress:   progress.NewTracker(progress.NewMemoryStore()),
		Auth:       authSvc,
		Evaluation: evaluation.NewService(evaluation.ServiceConfig{AIRouter: router}),
		Events:     hub,
	})
	require.NoError(t, err)

	api, err := httpapi.New(httpapi.Config{
		Portal:         p,
		Assets:         resolver,
		Feed:           hub,
		AllowedOrigins: []string{"http://localhost:5173"},
		Readiness:      readiness,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	env := testEnv{srv: srv, hub: hub, mock: mock}
	env.adminToken = env.login(t, "admin", "adminpassword")

	resp := env.do(t, http.MethodPost, "/api/admin/users", env.adminToken,
		`{"personalData":{"fullName":"Ana Gómez","identificationNumber":"1020"},"username":"ana","password":"secreto"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var u auth.User
	decode(t, resp, &u)
	env.studentID = u.ID
	env.studentToken = env.login(t, "ana", "secreto")
	return env
}

func (e testEnv) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sess auth.Session
	decode(t, resp, &sess)
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func requireError(t *testing.T, resp *http.Response, status int, code string) errorEnvelope {
	t.Helper()
	require.Equal(t, status, resp.StatusCode)
	var env errorEnvelope
	decode(t, resp, &env)
	assert.Equal(t, code, env.Error.Code)
	assert.NotEmpty(t, env.Error.Message)
	return env
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestReadyz(t *testing.T) {
	ok := newTestEnv(t, map[string]httpapi.ReadinessCheck{
		"storage": func(context.Context) error { return nil },
	})
	assert.Equal(t, http.StatusOK, ok.do(t, http.MethodGet, "/readyz", "", "").StatusCode)

	failing := newTestEnv(t, map[string]httpapi.ReadinessCheck{
		"cache": func(context.Context) error { return io.ErrUnexpectedEOF },
	})
	resp := failing.do(t, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/api/login", "", `{"username":"admin","password":"wrong"}`)
	e := requireError(t, resp, http.StatusUnauthorized, "invalid_credentials")
	assert.Equal(t, "Usuario o contraseña incorrectos, o el usuario está inactivo.", e.Error.Message)
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/api/login", "", `{"username":`)
	requireError(t, resp, http.StatusBadRequest, "bad_request")
}

func TestMe_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)
	requireError(t, env.do(t, http.MethodGet, "/api/me", "", ""), http.StatusUnauthorized, "unauthenticated")
	requireError(t, env.do(t, http.MethodGet, "/api/me", "garbage", ""), http.StatusUnauthorized, "unauthenticated")

	resp := env.do(t, http.MethodGet, "/api/me", env.studentToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pr auth.Principal
	decode(t, resp, &pr)
	assert.Equal(t, "ana", pr.Username)
	assert.Equal(t, auth.RoleStudent, pr.Role)
}

func TestLogout_EndsSession(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodPost, "/api/logout", env.studentToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	requireError(t, env.do(t, http.MethodGet, "/api/me", env.studentToken, ""), http.StatusUnauthorized, "unauthenticated")
}

func TestMenu_HidesAdminPanelFromStudents(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/menu", env.studentToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "admin-panel")
	assert.Contains(t, string(body), "evaluacion-0")
}

func TestItemFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/modules/0/items/contenido-0", env.studentToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view portal.ItemView
	decode(t, resp, &view)
	assert.Equal(t, "<h1>Fundamentos</h1>", view.Content.HTML)

	resp = env.do(t, http.MethodPost, "/api/modules/0/items/contenido-0/complete", env.studentToken, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/modules/0/items/evaluacion-0/complete", env.studentToken, "")
	requireError(t, resp, http.StatusUnprocessableEntity, "evaluation_item")

	resp = env.do(t, http.MethodGet, "/api/modules/0/items/missing-0", env.studentToken, "")
	requireError(t, resp, http.StatusNotFound, "unknown_item")
}

func TestSubmitEvaluation(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `{"answers":{"q1":"B","q2":["Y","X"]}}`

	resp := env.do(t, http.MethodPost, "/api/modules/0/items/evaluacion-0/evaluation", env.studentToken, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got struct {
		Score    float64 `json:"score"`
		Approved bool    `json:"approved"`
	}
	decode(t, resp, &got)
	assert.InDelta(t, 100, got.Score, 1e-9)
	assert.True(t, got.Approved)

	resp = env.do(t, http.MethodPost, "/api/modules/0/items/evaluacion-0/evaluation", env.studentToken, body)
	requireError(t, resp, http.StatusConflict, "already_submitted")
}

func TestFinalEvaluation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/api/final-evaluation", env.studentToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view portal.FinalEvaluationView
	decode(t, resp, &view)
	assert.Equal(t, "<p>Dilema</p>", view.Dilemma)

	resp = env.do(t, http.MethodPost, "/api/final-evaluation", env.studentToken, `{"dilemma":"<p>Dilema</p>","response":""}`)
	requireError(t, resp, http.StatusBadRequest, "empty_response")

	env.mock.Err = io.ErrUnexpectedEOF
	resp = env.do(t, http.MethodPost, "/api/final-evaluation", env.studentToken, `{"dilemma":"<p>Dilema</p>","response":"Mi propuesta"}`)
	requireError(t, resp, http.StatusServiceUnavailable, "ai_unavailable")

	env.mock.Err = nil
	env.mock.Response = "<p>Análisis</p>"
	resp = env.do(t, http.MethodPost, "/api/final-evaluation", env.studentToken, `{"dilemma":"<p>Dilema</p>","response":"Mi propuesta"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var analysis progress.FinalAIAnalysis
	decode(t, resp, &analysis)
	assert.Equal(t, "<p>Análisis</p>", analysis.Analysis)

	resp = env.do(t, http.MethodPost, "/api/final-evaluation", env.studentToken, `{"dilemma":"<p>Dilema</p>","response":"Otra"}`)
	requireError(t, resp, http.StatusConflict, "already_completed")
}

func TestAdminRoutes_ForbiddenForStudents(t *testing.T) {
	env := newTestEnv(t, nil)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/admin/users"},
		{http.MethodGet, "/api/admin/progress"},
		{http.MethodGet, "/api/admin/progress/export"},
		{http.MethodGet, "/api/admin/progress/feed"},
		{http.MethodDelete, "/api/admin/progress/" + env.studentID},
		{http.MethodPost, "/api/admin/users/" + env.studentID + "/archive"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp := env.do(t, rt.method, rt.path, env.studentToken, "")
			requireError(t, resp, http.StatusForbidden, "forbidden")
		})
	}
}

func TestAdmin_CreateUserValidation(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/admin/users", env.adminToken, `{"username":"x"}`)
	e := requireError(t, resp, http.StatusBadRequest, "validation_failed")
	assert.Contains(t, e.Error.Message, "fullName")

	resp = env.do(t, http.MethodPost, "/api/admin/users", env.adminToken,
		`{"personalData":{"fullName":"Otra Ana","identificationNumber":"2"},"username":"ana","password":"x"}`)
	requireError(t, resp, http.StatusConflict, "username_taken")
}

func TestAdmin_ToggleAndReset(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/api/admin/progress/" + env.studentID

	resp := env.do(t, http.MethodPost, base+"/modules/0/items/intro-0/toggle", env.adminToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var toggled map[string]bool
	decode(t, resp, &toggled)
	assert.True(t, toggled["completed"])

	resp = env.do(t, http.MethodGet, base, env.adminToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "intro-0")

	resp = env.do(t, http.MethodDelete, base, env.adminToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, base+"/final-analysis", env.adminToken, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAdmin_ArchiveAndReactivate(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodPost, "/api/admin/users/"+env.studentID+"/archive", env.adminToken, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/login", "", `{"username":"ana","password":"secreto"}`)
	requireError(t, resp, http.StatusUnauthorized, "invalid_credentials")

	resp = env.do(t, http.MethodPost, "/api/admin/users/"+env.studentID+"/reactivate", env.adminToken, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	env.login(t, "ana", "secreto")

	resp = env.do(t, http.MethodPost, "/api/admin/users/nobody/archive", env.adminToken, "")
	requireError(t, resp, http.StatusNotFound, "user_not_found")
}

func TestAdmin_Export(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.do(t, http.MethodGet, "/api/admin/progress/export", env.adminToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")
}

func TestProgressFeed(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/api/admin/progress/feed?token=" + env.adminToken
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return env.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := env.do(t, http.MethodPost, "/api/modules/0/items/intro-0/complete", env.studentToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ev activity.Event
	require.NoError(t, wsjson.Read(ctx, conn, &ev))
	assert.Equal(t, activity.ItemCompleted, ev.EventType)
	assert.Equal(t, env.studentID, ev.UserID)
	assert.Equal(t, "intro-0", ev.ItemID)

	conn.Close(websocket.StatusNormalClosure, "")
	require.Eventually(t, func() bool { return env.hub.Subscribers() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestAssets(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.do(t, http.MethodGet, "/modulos/0/intro.mp4", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "fake-video", string(body))
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, "/modulos/0/missing.mp4", "", "")
	requireError(t, resp, http.StatusNotFound, "content_not_found")
}

func TestCORS_Preflight(t *testing.T) {
	env := newTestEnv(t, nil)
	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := env.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestItem_MisconfiguredEvaluation(t *testing.T) {
	tests := []struct {
		name       string
		evaluation string
		status     int
		code       string
	}{
		{
			name:       "only text questions",
			evaluation: `{"title": "Reflexión", "questions": [{"id": "q1", "question": "Reflexione.", "type": "text"}]}`,
			status:     http.StatusUnprocessableEntity,
			code:       "no_gradable_questions",
		},
		{
			name: "duplicate question ids",
			evaluation: `{"title": "Repetida", "questions": [
				{"id": "q1", "question": "¿Uno?", "type": "single-choice", "options": ["A", "B"], "correctAnswer": "A"},
				{"id": "q1", "question": "¿Dos?", "type": "single-choice", "options": ["A", "B"], "correctAnswer": "B"}
			]}`,
			status: http.StatusInternalServerError,
			code:   "invalid_evaluation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnvWithContent(t, nil, tt.evaluation)
			resp := env.do(t, http.MethodGet, "/api/modules/0/items/evaluacion-0", env.studentToken, "")
			requireError(t, resp, tt.status, tt.code)
		})
	}
}
