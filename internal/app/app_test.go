package app

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"testing"

	"authapi_backend/internal/auth"
	"authapi_backend/internal/config"
	"authapi_backend/internal/email"
	"authapi_backend/internal/logger"
	"authapi_backend/internal/models"
	"authapi_backend/internal/repositories"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitWithWriter("test", io.Discard)
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  struct {
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"errors"`
}

type userData struct {
	User struct {
		ID                 string `json:"id"`
		Username           string `json:"username"`
		Email              string `json:"email"`
		IsAccountConfirmed bool   `json:"isAccountConfirmed"`
		Authentication     *struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"authentication"`
	} `json:"user"`
}

type testServer struct {
	router *gin.Engine
	repo   *repositories.MemoryUserRepository
	outbox *email.RecordingProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Server.Env = "test"
	cfg.Database.Driver = "memory"
	cfg.JWT.AccessSecret = "test-access-secret"
	cfg.JWT.RefreshSecret = "test-refresh-secret"

	ts := &testServer{
		repo:   repositories.NewMemoryUserRepository(),
		outbox: email.NewRecordingProvider(),
	}
	router, err := SetupRouter(cfg, Dependencies{
		UserRepo:      ts.repo,
		EmailProvider: ts.outbox,
		Registry:      prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	ts.router = router
	return ts
}

// SendRequest выполняет запрос к роутеру и разбирает конверт ответа
func (ts *testServer) SendRequest(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

var hrefPattern = regexp.MustCompile(`href="([^"]+)"`)

// lastLink возвращает путь с query из последнего письма
func (ts *testServer) lastLink(t *testing.T, to string) string {
	t.Helper()
	msg, ok := ts.outbox.Last()
	require.True(t, ok, "no email sent")
	require.Equal(t, to, msg.To)

	m := hrefPattern.FindStringSubmatch(msg.HTMLBody)
	require.Len(t, m, 2, msg.HTMLBody)
	u, err := url.Parse(html.UnescapeString(m[1]))
	require.NoError(t, err)
	return u.RequestURI()
}

func decodeUser(t *testing.T, env envelope) userData {
	t.Helper()
	var data userData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func assertNoCredentials(t *testing.T, raw []byte) {
	t.Helper()
	for _, field := range []string{`"password"`, `"role"`, `"confirmationToken"`, `"resetPasswordToken"`,
		`"changeEmailConfirmationToken"`, `"tempMail"`, `"refreshToken":""`} {
		assert.NotContains(t, string(raw), field)
	}
}

func TestAccountLifecycle(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	// --- Регистрация ---
	res, env := ts.SendRequest(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"fullName": "Jane Doe",
		"username": "JaneDoe",
		"email":    "jane@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	assert.True(t, env.Success)
	assertNoCredentials(t, res.Body.Bytes())
	userID := decodeUser(t, env).User.ID
	require.NotEmpty(t, userID)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"fullName": "Jane Again", "username": "janedoe", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	// --- Вход до подтверждения ---
	login := map[string]string{"username": "janedoe", "password": "secret123"}
	res, _ = ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", login)
	assert.Equal(t, http.StatusForbidden, res.Code)

	// --- Подтверждение ---
	confirmLink := ts.lastLink(t, "jane@example.com")
	res, env = ts.SendRequest(t, http.MethodGet, confirmLink, "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.True(t, decodeUser(t, env).User.IsAccountConfirmed)

	res, _ = ts.SendRequest(t, http.MethodGet, confirmLink, "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/resend-confirmation-email?userId="+userID, "", nil)
	assert.Equal(t, http.StatusConflict, res.Code)

	// --- Вход ---
	res, env = ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", login)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	session := decodeUser(t, env).User.Authentication
	require.NotNil(t, session)
	assertNoCredentials(t, res.Body.Bytes())

	res, env = ts.SendRequest(t, http.MethodGet, "/api/v1/users/current-user", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "jane@example.com", decodeUser(t, env).User.Email)
	assertNoCredentials(t, res.Body.Bytes())

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/current-user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/admin/test-admin", session.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	// --- Ротация refresh-токена ---
	res, env = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/refresh-access-token", "", map[string]string{
		"userId": userID, "refreshToken": session.RefreshToken,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	var rotated struct {
		NewAccessToken  string `json:"newAccessToken"`
		NewRefreshToken string `json:"newRefreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rotated))
	assert.NotEqual(t, session.RefreshToken, rotated.NewRefreshToken)

	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/refresh-access-token", "", map[string]string{
		"userId": userID, "refreshToken": session.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// --- Сброс пароля ---
	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/request-reset-password?email=jane@example.com", "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	resetLink := ts.lastLink(t, "jane@example.com")

	res, _ = ts.SendRequest(t, http.MethodPatch, resetLink, "", map[string]string{"newPassword": "newsecret1"})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res, _ = ts.SendRequest(t, http.MethodPatch, resetLink, "", map[string]string{"newPassword": "another12"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// сессия до сброса больше не обновляется
	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/refresh-access-token", "", map[string]string{
		"userId": userID, "refreshToken": rotated.NewRefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", login)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res, env = ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"email": "Jane@Example.com", "password": "newsecret1",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	token := decodeUser(t, env).User.Authentication.AccessToken

	// --- Смена пароля ---
	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "wrong-pass", "newPassword": "changed123",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/change-password", token, map[string]string{
		"oldPassword": "newsecret1", "newPassword": "changed123",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	// --- Смена email ---
	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/change-email", token, map[string]string{
		"email": "new@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res, _ = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/change-email", token, map[string]string{
		"email": "new@example.com", "password": "changed123",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	changeLink := ts.lastLink(t, "new@example.com")
	res, env = ts.SendRequest(t, http.MethodPatch, changeLink, "", nil)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, "new@example.com", decodeUser(t, env).User.Email)

	res, _ = ts.SendRequest(t, http.MethodPatch, changeLink, "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	// --- Профиль ---
	res, env = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/update-account", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res, env = ts.SendRequest(t, http.MethodPatch, "/api/v1/users/update-account", token, map[string]string{
		"fullName": "Jane Smith",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	res, env = ts.SendRequest(t, http.MethodGet, "/api/v1/users/profile/"+userID, "", nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, string(env.Data), "new@example.com")
	assert.Contains(t, string(env.Data), "Jane Smith")
	assertNoCredentials(t, res.Body.Bytes())

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/profile/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogin_ValidationEnvelope(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	res, env := ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.False(t, env.Success)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, env.Errors.Details, "username")

	// Некорректный username не мешает входу по email
	res, env = ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": "x", "email": "nobody@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Empty(t, env.Errors.Details)

	res, env = ts.SendRequest(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"fullName": "Jo", "username": "1abc", "email": "bad", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Len(t, env.Errors.Details, 4)
}

func TestAdminLogin(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("adminpass")
	require.NoError(t, err)
	require.NoError(t, ts.repo.Create(ctx, &models.User{
		FullName: "Root Admin", Username: "root", Email: "root@example.com",
		PasswordHash: hash, Role: models.UserRoleAdmin, IsAccountConfirmed: true,
	}))
	userHash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	require.NoError(t, ts.repo.Create(ctx, &models.User{
		FullName: "Jane Doe", Username: "janedoe", Email: "jane@example.com",
		PasswordHash: userHash, Role: models.UserRoleUser, IsAccountConfirmed: true,
	}))

	res, _ := ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{
		"username": "root", "password": "adminpass",
	})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"username": "janedoe", "password": "secret123",
	})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res, env := ts.SendRequest(t, http.MethodPost, "/api/admin/login", "", map[string]string{
		"email": "root@example.com", "password": "adminpass",
	})
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	adminToken := decodeUser(t, env).User.Authentication.AccessToken

	res, env = ts.SendRequest(t, http.MethodGet, "/api/admin/test-admin", adminToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"ok":true}`, string(env.Data))

	// админский токен не открывает пользовательские маршруты
	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/current-user", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestNotificationFailureSurfacesAsBadGateway(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	ts.outbox.FailWith(assert.AnError)

	res, env := ts.SendRequest(t, http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"fullName": "Jane Doe", "username": "janedoe", "email": "jane@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadGateway, res.Code)
	userID := env.Errors.Details["userId"]
	require.NotEmpty(t, userID)

	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/resend-confirmation-email?userId="+userID, "", nil)
	assert.Equal(t, http.StatusBadGateway, res.Code)

	ts.outbox.FailWith(nil)
	res, _ = ts.SendRequest(t, http.MethodGet, "/api/v1/users/resend-confirmation-email?userId="+userID, "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestServiceRoutes(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	res, env := ts.SendRequest(t, http.MethodGet, "/does/not/exist", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Oops! Route not found.", env.Errors.Message)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	res, _ = ts.SendRequest(t, http.MethodPost, "/api/v1/users/login", "", map[string]string{"username": "nobody", "password": "secret123"})
	require.Equal(t, http.StatusNotFound, res.Code)

	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `auth_logins_total{outcome="failure",surface="user"} 1`)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestNewEmailProvider(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	p, err := NewEmailProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &email.LogProvider{}, p)

	cfg.Email.Driver = "smtp"
	cfg.Email.SMTPHost = ""
	_, err = NewEmailProvider(cfg)
	assert.Error(t, err)

	cfg.Email.Driver = "pigeon"
	_, err = NewEmailProvider(cfg)
	assert.Error(t, err)
}
