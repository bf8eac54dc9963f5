package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/clinica-salud/identity-service/internal/api/handler"
	"github.com/clinica-salud/identity-service/internal/core/domain"
	"github.com/clinica-salud/identity-service/internal/core/service"
	"github.com/clinica-salud/identity-service/internal/infrastructure/security"
)

// --- in-memory stores ---

type memUsers struct {
	mu   sync.Mutex
	byID map[string]domain.User
	seq  int
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username {
			u := u
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == user.Username {
			return nil, domain.ErrUserExists
		}
	}
	m.seq++
	created := *user
	created.ID = fmt.Sprintf("u%d", m.seq)
	m.byID[created.ID] = created
	return &created, nil
}

func (m *memUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.byID {
		if id != user.ID && u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) List(_ context.Context) ([]domain.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.UserSummary, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u.Summary())
	}
	return out, nil
}

type memPatients struct {
	mu   sync.Mutex
	dnis map[string]string
	seq  int
}

func (m *memPatients) Create(_ context.Context, p *domain.Patient) (*domain.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dnis[p.DNI]; ok {
		return nil, domain.ErrPatientDNIExists
	}
	m.seq++
	created := *p
	created.ID = fmt.Sprintf("p%d", m.seq)
	m.dnis[p.DNI] = created.ID
	return &created, nil
}

func (m *memPatients) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for dni, pid := range m.dnis {
		if pid == id {
			delete(m.dnis, dni)
			return nil
		}
	}
	return domain.ErrPatientNotFound
}

type memSessions struct {
	mu   sync.Mutex
	data map[string]domain.SessionPayload
	seq  int
}

func (m *memSessions) Create(_ context.Context, p domain.SessionPayload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	sid := fmt.Sprintf("s%d", m.seq)
	m.data[sid] = p
	return sid, nil
}

func (m *memSessions) Get(_ context.Context, sid string) (*domain.SessionPayload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[sid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memSessions) Destroy(_ context.Context, sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

// --- harness ---

type testServer struct {
	t        *testing.T
	handler  http.Handler
	sessions *memSessions
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	issuer, err := security.NewJWTIssuer("router-secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	sessions := &memSessions{data: map[string]domain.SessionPayload{}}
	svc := service.NewAuthService(
		&memUsers{byID: map[string]domain.User{}},
		&memPatients{dnis: map[string]string{}},
		security.NewBcryptHasher(bcrypt.MinCost),
		issuer,
		zerolog.Nop(),
		service.WithSessions(sessions),
	)

	e := NewRouter(Dependencies{
		AuthService:   svc,
		TokenVerifier: issuer,
		Sessions:      sessions,
		Cookie:        handler.CookieConfig{Name: "sid", TTL: time.Hour},
		Logger:        zerolog.Nop(),
	})
	return &testServer{t: t, handler: e, sessions: sessions}
}

func (s *testServer) do(method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (s *testServer) login(username, password string) (token string, cookie *http.Cookie) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/login", fmt.Sprintf(`{"username":%q,"password":%q}`, username, password))
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "sid" {
			cookie = c
		}
	}
	return resp.Token, cookie
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body
}

// --- tests ---

func TestRouter_RegisterAndLoginScenario(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", `{"username":"doc1","password":"pw123","role":"Medico"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/auth/register", `{"username":"doc1","password":"pw456","role":"Medico"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	if _, cookie := s.login("doc1", "pw123"); cookie == nil {
		t.Fatal("expected a session cookie")
	}
	rec = s.do(http.MethodPost, "/auth/login", `{"username":"doc1","password":"pw456"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for the rejected duplicate's password, got %d", rec.Code)
	}
}

func TestRouter_LoginFailuresLookTheSame(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"doc1","password":"pw123","role":"Medico"}`)

	wrong := s.do(http.MethodPost, "/auth/login", `{"username":"doc1","password":"nope"}`)
	unknown := s.do(http.MethodPost, "/auth/login", `{"username":"ghost","password":"nope"}`)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}
}

func TestRouter_ValidationErrorsListFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register/paciente", `{"username":"ana@example.com","Apellido":"Torres","Sexo":"F","ObraSocial":"OSDE","NroAfiliado":"1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	body := errorBody(t, rec)
	if len(body.Fields) != 3 {
		t.Fatalf("expected DNI, Nombre, Edad; got %v", body.Fields)
	}
	for _, f := range []string{"DNI", "Nombre", "Edad"} {
		if !strings.Contains(body.Error, f) {
			t.Errorf("message %q missing %s", body.Error, f)
		}
	}
}

func TestRouter_PatientSignupAndDuplicateDNI(t *testing.T) {
	s := newTestServer(t)
	payload := `{"username":%q,"DNI":"30111222","Nombre":"Ana","Apellido":"Torres","Edad":34,"Sexo":"F","ObraSocial":"OSDE","NroAfiliado":"A-1"}`

	rec := s.do(http.MethodPost, "/auth/register/paciente", fmt.Sprintf(payload, "ana@example.com"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/auth/register/paciente", fmt.Sprintf(payload, "other@example.com"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if body := errorBody(t, rec); body.Error != "patient DNI already exists" {
		t.Errorf("unexpected message %q", body.Error)
	}
}

func TestRouter_UserAdministrationRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"admin","password":"pw","role":"Administrativo"}`)
	s.do(http.MethodPost, "/auth/register", `{"username":"doc1","password":"pw","role":"Medico"}`)

	if rec := s.do(http.MethodGet, "/users", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}

	docToken, _ := s.login("doc1", "pw")
	if rec := s.do(http.MethodGet, "/users", "", bearer(docToken)); rec.Code != http.StatusForbidden {
		t.Fatalf("medico: expected 403, got %d", rec.Code)
	}

	adminToken, _ := s.login("admin", "pw")
	rec := s.do(http.MethodGet, "/users", "", bearer(adminToken))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}
	var users []domain.UserSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil || len(users) != 2 {
		t.Fatalf("expected 2 users, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Error("listing leaks password data")
	}
}

func TestRouter_UpdateAndDeleteUser(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"admin","password":"pw","role":"Administrativo"}`)
	rec := s.do(http.MethodPost, "/auth/register", `{"username":"doc1","password":"old","role":"Medico"}`)
	var created domain.UserSummary
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	token, _ := s.login("admin", "pw")

	if rec := s.do(http.MethodPut, "/users/"+created.ID, `{}`, bearer(token)); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty update: expected 400, got %d", rec.Code)
	}
	if rec := s.do(http.MethodPut, "/users/"+created.ID, `{"password":"new"}`, bearer(token)); rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	s.login("doc1", "new")

	if rec := s.do(http.MethodPut, "/users/"+created.ID, `{"username":"admin"}`, bearer(token)); rec.Code != http.StatusConflict {
		t.Fatalf("rename onto taken username: expected 409, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/users/nope", "", bearer(token)); rec.Code != http.StatusNotFound {
		t.Fatalf("delete unknown: expected 404, got %d", rec.Code)
	}
	if rec := s.do(http.MethodDelete, "/users/"+created.ID, "", bearer(token)); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
}

func TestRouter_MultibytePasswordOverByteLimit(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"admin","password":"pw","role":"Administrativo"}`)
	rec := s.do(http.MethodPost, "/auth/register", `{"username":"doc1","password":"pw","role":"Medico"}`)
	var created domain.UserSummary
	_ = json.Unmarshal(rec.Body.Bytes(), &created)
	token, _ := s.login("admin", "pw")

	// 40 runes, 80 bytes.
	long := strings.Repeat("ñ", 40)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		auth   []func(*http.Request)
	}{
		{
			name:   "register",
			method: http.MethodPost,
			path:   "/auth/register",
			body:   fmt.Sprintf(`{"username":"doc2","password":%q,"role":"Medico"}`, long),
		},
		{
			name:   "patient signup",
			method: http.MethodPost,
			path:   "/auth/register/paciente",
			body:   fmt.Sprintf(`{"username":"ana@example.com","password":%q,"DNI":"30111222","Nombre":"Ana","Apellido":"Torres","Edad":34,"Sexo":"F","ObraSocial":"OSDE","NroAfiliado":"A-1"}`, long),
		},
		{
			name:   "update",
			method: http.MethodPut,
			path:   "/users/" + created.ID,
			body:   fmt.Sprintf(`{"password":%q}`, long),
			auth:   []func(*http.Request){bearer(token)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, tc.body, tc.auth...)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			body := errorBody(t, rec)
			if len(body.Fields) != 1 || body.Fields[0] != "password" {
				t.Errorf("expected password field, got %v", body.Fields)
			}
		})
	}

	// Nothing was written by the rejected requests.
	s.login("doc1", "pw")
	if rec := s.do(http.MethodPost, "/auth/login", `{"username":"doc2","password":"x"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("doc2 should not exist, got %d", rec.Code)
	}
}

func TestRouter_SessionCookieAuthAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodPost, "/auth/register", `{"username":"pat","password":"pw","role":"Paciente","pacienteId":"p-7"}`)
	_, cookie := s.login("pat", "pw")

	withCookie := func(r *http.Request) { r.AddCookie(cookie) }
	rec := s.do(http.MethodGet, "/auth/me", "", withCookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"pacienteId":"p-7"`) {
		t.Fatalf("me via cookie: %d %s", rec.Code, rec.Body.String())
	}

	if rec := s.do(http.MethodPost, "/auth/logout", "", withCookie); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/auth/me", "", withCookie); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := s.do(http.MethodGet, "/health/ready", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: %d", rec.Code)
	}
	s.do(http.MethodPost, "/auth/login", `{"username":"x","password":"y"}`)
	rec := s.do(http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "identity_logins_total") {
		t.Fatalf("metrics: %d", rec.Code)
	}
}

func TestRouter_UnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := errorBody(t, rec); body.Error == "" {
		t.Error("expected error message")
	}
}
