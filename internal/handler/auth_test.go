package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/pollchat/internal/auth"
	"github.com/sakif/pollchat/internal/repository/sqlite"
	"github.com/sakif/pollchat/internal/service"
)

// newTestAuthHandler wires the real service and sqlite store behind the
// handler, so these tests cover the full register/login path.
func newTestAuthHandler(t *testing.T) (*AuthHandler, *auth.TokenService) {
	t.Helper()

	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"), []string{"Climate_Change"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	tokens, err := auth.NewTokenService("test-secret-that-is-long-enough")
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(4)

	svc := service.NewAuthService(db, passwords, tokens, logger)
	return NewAuthHandler(svc, logger), tokens
}

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var resp authResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestHandleRegister(t *testing.T) {
	h, tokens := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleRegister, "/register",
		`{"username":"alice","email":"alice@example.com","mobile":"0123456789","password":"hunter22"}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeAuthResponse(t, rec)
	assert.NotEmpty(t, resp.UserID)
	assert.Equal(t, "alice", resp.Username)

	// The session cookie is set, HttpOnly, and carries a token for this user.
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	userID, err := tokens.Validate(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, userID)
}

func TestHandleRegister_DuplicateUsername(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	body := `{"username":"alice","email":"a@b.com","mobile":"0123","password":"pw"}`
	rec := postJSON(t, h.HandleRegister, "/register", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = postJSON(t, h.HandleRegister, "/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "duplicate", resp.Error)
}

func TestHandleRegister_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"username": `},
		{"missing username", `{"email":"a@b.com","mobile":"0123","password":"pw"}`},
		{"missing email", `{"username":"alice","mobile":"0123","password":"pw"}`},
		{"missing mobile", `{"username":"alice","email":"a@b.com","password":"pw"}`},
		{"missing password", `{"username":"alice","email":"a@b.com","mobile":"0123"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestAuthHandler(t)
			rec := postJSON(t, h.HandleRegister, "/register", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "validation_error", resp.Error)
			assert.Nil(t, sessionCookie(rec), "failed register must not set a cookie")
		})
	}
}

func TestHandleLogin(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleRegister, "/register",
		`{"username":"alice","email":"a@b.com","mobile":"0123","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	registered := decodeAuthResponse(t, rec)

	rec = postJSON(t, h.HandleLogin, "/login", `{"username":"alice","password":"hunter22"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeAuthResponse(t, rec)
	assert.Equal(t, registered.UserID, resp.UserID)
	assert.Equal(t, "alice", resp.Username)
	assert.NotNil(t, sessionCookie(rec))
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleRegister, "/register",
		`{"username":"alice","email":"a@b.com","mobile":"0123","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name string
		body string
	}{
		{"unknown username", `{"username":"mallory","password":"hunter22"}`},
		{"wrong password", `{"username":"alice","password":"wrong"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.HandleLogin, "/login", tt.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "unauthorized", resp.Error)
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestHandleMe(t *testing.T) {
	h, tokens := newTestAuthHandler(t)

	rec := postJSON(t, h.HandleRegister, "/register",
		`{"username":"alice","email":"a@b.com","mobile":"0123","password":"hunter22"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)

	protected := auth.RequireAuth(tokens)(http.HandlerFunc(h.HandleMe))

	// With the session cookie: 200 and the profile, password hash omitted.
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	meRec := httptest.NewRecorder()
	protected.ServeHTTP(meRec, req)

	require.Equal(t, http.StatusOK, meRec.Code)
	var profile map[string]any
	require.NoError(t, json.NewDecoder(meRec.Body).Decode(&profile))
	assert.Equal(t, "alice", profile["username"])
	assert.NotContains(t, meRec.Body.String(), "hunter22")
	assert.NotContains(t, profile, "passwordHash")

	// Without a cookie: 401 from the middleware.
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	meRec = httptest.NewRecorder()
	protected.ServeHTTP(meRec, req)
	assert.Equal(t, http.StatusUnauthorized, meRec.Code)
}

func TestHandleLogout_ClearsCookie(t *testing.T) {
	h, _ := newTestAuthHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}