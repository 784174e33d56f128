package amyrose_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunset-developer/amyrose"
)

func newTestApp(t *testing.T) (*fiber.App, *amyrose.Core) {
	t.Helper()

	core := newTestCore(t)
	h := amyrose.NewHTTP(core)

	app := fiber.New()
	app.Post("/register", h.Register)
	app.Post("/login", h.Login)
	app.Post("/logout", h.Logout)
	app.Post("/verification/request", h.RequestVerification)
	app.Post("/verification", h.VerifyAccount)
	app.Get("/captcha", h.RequestCaptcha)
	app.Get("/captcha/image", h.CaptchaImage)

	protected := app.Group("/me", h.RequireAuthentication)
	protected.Get("/", func(c *fiber.Ctx) error {
		account := c.Locals("account").(*amyrose.Account)
		return c.JSON(fiber.Map{"email": account.Email})
	})
	protected.Get("/admin", h.RequireRole("admin"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	return app, core
}

func formRequest(path string, values url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	return req
}

func findCookie(t *testing.T, res *http.Response, name string) *http.Cookie {
	t.Helper()

	for _, cookie := range res.Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	t.Fatalf("response carries no %s cookie", name)
	return nil
}

// solveCaptcha fetches a fresh challenge and reads its answer from the
// store, standing in for a human reading the rendered image.
func solveCaptcha(t *testing.T, app *fiber.App, core *amyrose.Core) (*http.Cookie, string) {
	t.Helper()

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/captcha", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	cookie := findCookie(t, res, amyrose.CookieCaptcha)
	session, err := core.Captcha.Sessions().Decode(context.Background(), cookie.Value, true)
	require.NoError(t, err)
	return cookie, session.Answer
}

func TestHTTPRequestCaptchaSetsCookie(t *testing.T) {
	app, core := newTestApp(t)

	cookie, answer := solveCaptcha(t, app, core)
	assert.NotEmpty(t, cookie.Value)
	assert.NotEmpty(t, answer)
	assert.True(t, cookie.HttpOnly)
}

func TestHTTPRegister(t *testing.T) {
	app, core := newTestApp(t)
	cookie, answer := solveCaptcha(t, app, core)

	res, err := app.Test(formRequest("/register", url.Values{
		"email":    {"new@example.com"},
		"username": {"newcomer"},
		"password": {"correct-horse-battery"},
		"captcha":  {answer},
	}, cookie))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)

	// Registration leaves the caller holding a verification session.
	findCookie(t, res, amyrose.CookieVerification)

	account, err := core.Accounts.GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.False(t, account.Verified)
}

func TestHTTPRegisterRejectsWrongCaptcha(t *testing.T) {
	app, core := newTestApp(t)
	cookie, _ := solveCaptcha(t, app, core)

	res, err := app.Test(formRequest("/register", url.Values{
		"email":    {"blocked@example.com"},
		"username": {"blocked"},
		"password": {"correct-horse-battery"},
		"captcha":  {"wrong-answer"},
	}, cookie))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, err = core.Accounts.GetByEmail(context.Background(), "blocked@example.com")
	assert.True(t, amyrose.IsRecordNotFound(err))
}

func TestHTTPRegisterRejectsMissingCaptcha(t *testing.T) {
	app, _ := newTestApp(t)

	res, err := app.Test(formRequest("/register", url.Values{
		"email":    {"nocaptcha@example.com"},
		"username": {"nocaptcha"},
		"password": {"correct-horse-battery"},
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHTTPLoginAndProtectedRoute(t *testing.T) {
	app, core := newTestApp(t)
	registerAccount(t, core, "web@example.com")

	res, err := app.Test(formRequest("/login", url.Values{
		"email":    {"web@example.com"},
		"password": {"correct-horse-battery"},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	auth := findCookie(t, res, amyrose.CookieAuthentication)

	req := httptest.NewRequest(http.MethodGet, "/me/", nil)
	req.AddCookie(auth)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHTTPLoginRejectsBadPassword(t *testing.T) {
	app, core := newTestApp(t)
	registerAccount(t, core, "badpass@example.com")

	res, err := app.Test(formRequest("/login", url.Values{
		"email":    {"badpass@example.com"},
		"password": {"wrong-guess"},
	}))
	require.NoError(t, err)
	assert.NotEqual(t, http.StatusOK, res.StatusCode)
}

func TestHTTPProtectedRouteRejectsAnonymous(t *testing.T) {
	app, _ := newTestApp(t)

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/me/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHTTPLogoutBurnsSession(t *testing.T) {
	app, core := newTestApp(t)
	registerAccount(t, core, "bye@example.com")

	res, err := app.Test(formRequest("/login", url.Values{
		"email":    {"bye@example.com"},
		"password": {"correct-horse-battery"},
	}))
	require.NoError(t, err)
	auth := findCookie(t, res, amyrose.CookieAuthentication)

	res, err = app.Test(formRequest("/logout", url.Values{}, auth))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	// The old token no longer opens the protected route.
	req := httptest.NewRequest(http.MethodGet, "/me/", nil)
	req.AddCookie(auth)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestHTTPRequireRole(t *testing.T) {
	app, core := newTestApp(t)
	ctx := context.Background()
	account := registerAccount(t, core, "rbac@example.com")

	res, err := app.Test(formRequest("/login", url.Values{
		"email":    {"rbac@example.com"},
		"password": {"correct-horse-battery"},
	}))
	require.NoError(t, err)
	auth := findCookie(t, res, amyrose.CookieAuthentication)

	req := httptest.NewRequest(http.MethodGet, "/me/admin", nil)
	req.AddCookie(auth)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)

	_, err = core.Authorizer.AssignRole(ctx, account, "admin")
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodGet, "/me/admin", nil)
	req.AddCookie(auth)
	res, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHTTPVerificationFlow(t *testing.T) {
	app, core := newTestApp(t)
	registerAccount(t, core, "flow@example.com")

	res, err := app.Test(formRequest("/login", url.Values{
		"email":    {"flow@example.com"},
		"password": {"correct-horse-battery"},
	}))
	require.NoError(t, err)
	auth := findCookie(t, res, amyrose.CookieAuthentication)

	res, err = app.Test(formRequest("/verification/request", url.Values{}, auth))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	verification := findCookie(t, res, amyrose.CookieVerification)

	session, err := core.Verifier.Sessions().Decode(context.Background(), verification.Value, true)
	require.NoError(t, err)

	res, err = app.Test(formRequest("/verification", url.Values{
		"code": {session.Code},
	}, verification))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	account, err := core.Accounts.GetByEmail(context.Background(), "flow@example.com")
	require.NoError(t, err)
	assert.True(t, account.Verified)
}

func TestHTTPVerificationWrongCode(t *testing.T) {
	app, core := newTestApp(t)
	registerAccount(t, core, "wrongcode@example.com")

	res, err := app.Test(formRequest("/login", url.Values{
		"email":    {"wrongcode@example.com"},
		"password": {"correct-horse-battery"},
	}))
	require.NoError(t, err)
	auth := findCookie(t, res, amyrose.CookieAuthentication)

	res, err = app.Test(formRequest("/verification/request", url.Values{}, auth))
	require.NoError(t, err)
	verification := findCookie(t, res, amyrose.CookieVerification)

	res, err = app.Test(formRequest("/verification", url.Values{
		"code": {"not-the-code"},
	}, verification))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	// The burned session rejects the retry as well.
	res, err = app.Test(formRequest("/verification", url.Values{
		"code": {"not-the-code"},
	}, verification))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
