package amyrose

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Cookie names each session kind travels under.
const (
	CookieAuthentication = "amyrose_authtoken"
	CookieVerification   = "amyrose_veritoken"
	CookieCaptcha        = "amyrose_captoken"
)

// Form field names on inbound submissions.
const (
	FormCode          = "code"
	FormCaptchaAnswer = "captcha"
)

// RequestIP re-derives the caller's network address from the inbound
// request.
func RequestIP(c *fiber.Ctx) string {
	return c.IP()
}

// LoginPayload is the validated login input.
type LoginPayload struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (p LoginPayload) Validate() error {
	if err := validation.ValidateStruct(&p,
		validation.Field(&p.Email, validation.Required, is.Email),
		validation.Field(&p.Password, validation.Required),
	); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid login payload")
	}
	return nil
}

// HTTP exposes the core workflows as fiber handlers. Routing stays with the
// embedding application; these only implement the cookie, form, and IP
// boundary.
type HTTP struct {
	core   *Core
	logger Logger
}

func NewHTTP(core *Core) *HTTP {
	return &HTTP{core: core, logger: defLogger{}}
}

func (h *HTTP) WithLogger(logger Logger) *HTTP {
	h.logger = logger
	return h
}

// Register creates an account gated by a captcha challenge: the captcha
// session cookie and submitted answer must validate before the account is
// created and a verification session is issued.
func (h *HTTP) Register(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if _, err := h.core.Captcha.Verify(ctx, c.Cookies(CookieCaptcha), c.FormValue(FormCaptchaAnswer)); err != nil {
		return h.renderError(c, err)
	}

	payload := RegisterAccountPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return h.renderError(c, errors.Wrap(err, errors.CategoryValidation, "could not parse registration payload"))
	}

	account, err := h.core.Accounts.Register(ctx, payload)
	if err != nil {
		return h.renderError(c, err)
	}

	account, session, err := h.core.Verifier.RequestVerification(ctx, RequestIP(c), "", "", account)
	if err != nil {
		return h.renderError(c, err)
	}

	h.core.Verifier.Sessions().Encode(c, session)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"account": account,
	})
}

// Login verifies credentials and encodes a fresh authentication session.
func (h *HTTP) Login(c *fiber.Ctx) error {
	ctx := c.UserContext()

	payload := LoginPayload{}
	if err := c.BodyParser(&payload); err != nil {
		return h.renderError(c, errors.Wrap(err, errors.CategoryValidation, "could not parse login payload"))
	}
	if err := payload.Validate(); err != nil {
		return h.renderError(c, err)
	}

	account, err := h.core.Accounts.VerifyCredentials(ctx, payload.Email, payload.Password)
	if err != nil {
		return h.renderError(c, err)
	}

	session, err := h.core.AuthSess.Create(ctx, account.ID, RequestIP(c))
	if err != nil {
		return h.renderError(c, err)
	}

	h.core.AuthSess.Encode(c, session)
	return c.JSON(fiber.Map{"account": account})
}

// Logout invalidates the authentication session and expires its cookie.
func (h *HTTP) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if session, err := h.core.AuthSess.DecodeRequest(c, true); err == nil {
		h.core.AuthSess.Invalidate(ctx, session)
	}
	h.core.AuthSess.ClearCookie(c)
	return c.JSON(fiber.Map{"ok": true})
}

// RequestVerification issues a verification session for the resolved
// account and encodes its cookie. The owner comes from the verification
// cookie when present, falling back to the authentication cookie.
func (h *HTTP) RequestVerification(c *fiber.Ctx) error {
	ctx := c.UserContext()

	account, session, err := h.core.Verifier.RequestVerification(
		ctx,
		RequestIP(c),
		c.Cookies(CookieVerification),
		c.Cookies(CookieAuthentication),
		nil,
	)
	if err != nil {
		return h.renderError(c, err)
	}

	h.core.Verifier.Sessions().Encode(c, session)
	return c.JSON(fiber.Map{"account": account})
}

// VerifyAccount validates the submitted one-time code against the
// verification session cookie.
func (h *HTTP) VerifyAccount(c *fiber.Ctx) error {
	ctx := c.UserContext()

	account, _, err := h.core.Verifier.VerifyAccount(ctx, c.Cookies(CookieVerification), c.FormValue(FormCode))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.JSON(fiber.Map{"account": account})
}

// RequestCaptcha issues a captcha session and encodes its cookie. It runs
// before registration, so there is no owner yet.
func (h *HTTP) RequestCaptcha(c *fiber.Ctx) error {
	session, err := h.core.Captcha.Request(c.UserContext(), uuid.Nil, RequestIP(c))
	if err != nil {
		return h.renderError(c, err)
	}

	h.core.Captcha.Sessions().Encode(c, session)
	return c.JSON(fiber.Map{"ok": true})
}

// CaptchaImage streams the rendered challenge image for the caller's
// captcha session.
func (h *HTTP) CaptchaImage(c *fiber.Ctx) error {
	path, err := h.core.Captcha.ImagePath(c.UserContext(), c.Cookies(CookieCaptcha))
	if err != nil {
		return h.renderError(c, err)
	}
	return c.SendFile(path)
}

// RequireAuthentication is route middleware: the caller must present a
// valid authentication session from a known location and map to an enabled
// account. The account lands in c.Locals("account").
func (h *HTTP) RequireAuthentication(c *fiber.Ctx) error {
	ctx := c.UserContext()
	token := c.Cookies(CookieAuthentication)

	if _, err := h.core.AuthSess.Decode(ctx, token, false); err != nil {
		return h.renderError(c, err)
	}

	if err := h.core.AuthSess.InKnownLocation(ctx, token, RequestIP(c)); err != nil {
		return h.renderError(c, err)
	}

	account, err := h.core.Accounts.GetClient(ctx, token)
	if err != nil {
		return h.renderError(c, err)
	}
	if account == nil {
		return h.renderError(c, NewSessionError(KindAuthenticationSession, TextCodeSessionNotFound, "resolves to no account"))
	}
	if account.Disabled {
		return h.renderError(c, errors.New("account is disabled", errors.CategoryAuth))
	}

	c.Locals("account", account)
	return c.Next()
}

// RequireRole wraps RequireAuthentication's result with a role check.
func (h *HTTP) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		account, ok := c.Locals("account").(*Account)
		if !ok {
			return h.renderError(c, errors.New("no authenticated account", errors.CategoryAuth))
		}
		if err := h.core.Authorizer.RequireRole(c.UserContext(), account, role); err != nil {
			return h.renderError(c, err)
		}
		return c.Next()
	}
}

func (h *HTTP) renderError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "unexpected error")
	}

	status := fiber.StatusInternalServerError
	switch richErr.Category {
	case errors.CategoryValidation:
		status = fiber.StatusBadRequest
	case errors.CategoryAuth:
		status = fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		status = fiber.StatusForbidden
	case errors.CategoryNotFound:
		status = fiber.StatusNotFound
	}

	h.logger.Debug("request failed: %v", richErr)
	return c.Status(status).JSON(fiber.Map{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}
