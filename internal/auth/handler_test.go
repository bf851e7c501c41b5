package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conferencer/conferencer/internal/apierror"
	"github.com/conferencer/conferencer/internal/identity"
	"github.com/conferencer/conferencer/internal/logging"
)

func setupHandlerApp(t *testing.T) (*fiber.App, *identity.MemoryRepository) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	svc, _, _ := newTestService(t, repo)
	h := NewHandler(svc)

	app := fiber.New(fiber.Config{ErrorHandler: apierror.Handler(logging.Discard())})
	app.Post("/auth/signup", h.Signup)
	app.Post("/auth/login", h.Login)
	app.Get("/auth/me", func(c *fiber.Ctx) error {
		if subject := c.Get("X-Test-Subject"); subject != "" {
			c.SetUserContext(identity.WithActor(c.UserContext(), subject))
		}
		return c.Next()
	}, h.Me)
	return app, repo
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, payload
}

func decodeError(t *testing.T, payload []byte) apierror.Body {
	t.Helper()
	var body apierror.Body
	require.NoError(t, json.Unmarshal(payload, &body))
	_, err := time.Parse(time.RFC3339Nano, body.Timestamp)
	require.NoError(t, err, "timestamp must be RFC 3339")
	return body
}

const signupBody = `{"email":"a@x.com","password":"p1","name":"A","surname":"B","phone":"555"}`

func TestHandlerSignupLoginScenario(t *testing.T) {
	app, _ := setupHandlerApp(t)

	resp, payload := doJSON(t, app, fiber.MethodPost, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(payload))
	var created signupResponse
	require.NoError(t, json.Unmarshal(payload, &created))
	assert.NotEmpty(t, created.UserID)
	assert.Equal(t, signupMessage, created.Message)

	resp, payload = doJSON(t, app, fiber.MethodPost, "/auth/signup", signupBody)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, apierror.CodeUserAlreadyExists, decodeError(t, payload).Code)

	resp, payload = doJSON(t, app, fiber.MethodPost, "/auth/login", `{"email":"a@x.com","password":"p1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(payload))
	var login loginResponse
	require.NoError(t, json.Unmarshal(payload, &login))
	assert.NotEmpty(t, login.Token)
	assert.True(t, login.ExpiresAt.After(time.Now().Add(23*time.Hour)))

	resp, payload = doJSON(t, app, fiber.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	wrong := decodeError(t, payload)
	assert.Equal(t, apierror.CodeInvalidCredentials, wrong.Code)

	resp, payload = doJSON(t, app, fiber.MethodPost, "/auth/login", `{"email":"ghost@x.com","password":"p1"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	unknown := decodeError(t, payload)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Message, unknown.Message)
}

func TestHandlerSignupMissingFields(t *testing.T) {
	app, repo := setupHandlerApp(t)

	resp, payload := doJSON(t, app, fiber.MethodPost, "/auth/signup", `{"email":"a@x.com","password":"p1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeError(t, payload)
	assert.Equal(t, apierror.CodeValidation, body.Code)
	assert.Contains(t, body.Message, "name")
	assert.Zero(t, repo.Count())
}

func TestHandlerSignupMalformedBody(t *testing.T) {
	app, _ := setupHandlerApp(t)

	resp, payload := doJSON(t, app, fiber.MethodPost, "/auth/signup", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apierror.CodeValidation, decodeError(t, payload).Code)
}

func TestHandlerSignupResponseOmitsPasswordHash(t *testing.T) {
	app, _ := setupHandlerApp(t)

	_, payload := doJSON(t, app, fiber.MethodPost, "/auth/signup", signupBody)
	assert.NotContains(t, string(payload), "password")
	assert.NotContains(t, string(payload), "$2a$")
}

func TestHandlerLoginWithQueryParameters(t *testing.T) {
	app, _ := setupHandlerApp(t)
	resp, _ := doJSON(t, app, fiber.MethodPost, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	q := url.Values{"email": {"a@x.com"}, "password": {"p1"}}
	req := httptest.NewRequest(fiber.MethodPost, "/auth/login?"+q.Encode(), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerLoginWithForm(t *testing.T) {
	app, _ := setupHandlerApp(t)
	resp, _ := doJSON(t, app, fiber.MethodPost, "/auth/signup", signupBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	form := url.Values{"email": {"a@x.com"}, "password": {"p1"}}
	req := httptest.NewRequest(fiber.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlerMe(t *testing.T) {
	app, repo := setupHandlerApp(t)
	repo.PutRole(identity.Role{ID: "role-1", Name: "author", Authorities: []identity.Authority{{ID: "x", Name: "paper:submit"}}})
	_, err := repo.Save(context.Background(), identity.User{Email: "r@x.com", Name: "R", RoleID: "role-1", PasswordHash: []byte("digest")})
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/auth/me", nil)
	req.Header.Set("X-Test-Subject", "r@x.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var profile profileResponse
	require.NoError(t, json.Unmarshal(payload, &profile))
	assert.Equal(t, "r@x.com", profile.Email)
	require.NotNil(t, profile.Role)
	assert.Equal(t, []string{"paper:submit"}, profile.Role.Authorities)
	assert.NotContains(t, string(payload), "digest")

	req = httptest.NewRequest(fiber.MethodGet, "/auth/me", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/auth/me", nil)
	req.Header.Set("X-Test-Subject", "gone@x.com")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
