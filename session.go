package amyrose

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// sessionStore implements the token lifecycle shared by all session kinds:
// create with a minted signed token, decode with validity checks, and an
// atomic consume.
//
// State machine per session: created(valid=true) -> consumed | expired |
// burned(valid=false). The invalid states are terminal; there is no path
// back to valid.
type sessionStore[T SessionRecord] struct {
	kind   string
	cookie string
	window time.Duration
	repo   *Repository[T]
	codec  *TokenCodec
	logger Logger
}

func newSessionStore[T SessionRecord](db *bun.DB, codec *TokenCodec, handlers ModelHandlers[T], kind, cookie string, window time.Duration) sessionStore[T] {
	return sessionStore[T]{
		kind:   kind,
		cookie: cookie,
		window: window,
		repo:   NewRepository(db, handlers),
		codec:  codec,
		logger: defLogger{},
	}
}

// Repo exposes the backing repository for callers needing plain CRUD.
func (s *sessionStore[T]) Repo() *Repository[T] {
	return s.repo
}

// CookieName returns the cookie the store encodes its tokens under.
func (s *sessionStore[T]) CookieName() string {
	return s.cookie
}

// insert persists the record and mints its travel token.
func (s *sessionStore[T]) insert(ctx context.Context, record T) (T, error) {
	var zero T
	record, err := s.repo.Create(ctx, record)
	if err != nil {
		return zero, err
	}

	token, err := s.codec.Mint(s.kind, record.GetID(), record.GetOwnerID(), record.Expiry())
	if err != nil {
		return zero, err
	}
	record.setToken(token)
	return record, nil
}

// Decode resolves a raw token to its stored session. A missing or malformed
// token fails with a decode error; a session that is gone, invalidated, or
// expired fails with the matching session error. With raw set the token
// signature is not re-verified, for callers that only need the owner id and
// accept the lighter check against stored state.
func (s *sessionStore[T]) Decode(ctx context.Context, token string, raw bool) (T, error) {
	var zero T

	claims, err := s.codec.Parse(s.kind, token, !raw)
	if err != nil {
		return zero, err
	}

	id, err := claims.SessionID()
	if err != nil {
		return zero, err
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		if IsRecordNotFound(err) {
			return zero, NewSessionError(s.kind, TextCodeSessionNotFound, "does not exist")
		}
		return zero, err
	}

	if !record.IsValid() {
		return zero, NewSessionError(s.kind, TextCodeSessionInvalid, "has been invalidated")
	}

	if time.Now().After(record.Expiry()) {
		s.Invalidate(ctx, record)
		return zero, NewSessionError(s.kind, TextCodeSessionExpired, "has expired")
	}

	return record, nil
}

// Consume flips valid true->false as a single conditional update, so exactly
// one of any concurrent attempts against the same session wins. Losing
// attempts get the session-invalid error.
func (s *sessionStore[T]) Consume(ctx context.Context, record T) error {
	res, err := s.repo.DB().NewUpdate().
		Model(record).
		Set("valid = ?", false).
		Where("id = ? AND valid = ?", record.GetID(), true).
		Exec(ctx)
	if err != nil {
		return NewSessionError(s.kind, TextCodeSessionInvalid, "could not be consumed")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewSessionError(s.kind, TextCodeSessionInvalid, "has been invalidated")
	}
	setSessionValid(record, false)
	return nil
}

// Invalidate is the error-factory path: mark the session permanently invalid
// after a failed check, tolerating a concurrent consume having won already.
func (s *sessionStore[T]) Invalidate(ctx context.Context, record T) {
	if err := s.Consume(ctx, record); err != nil && !IsSessionInvalidError(err) {
		s.logger.Warn("could not invalidate %s %s: %v", s.kind, record.GetID(), err)
	}
}

// Encode attaches the session's token as an HttpOnly cookie on the outbound
// response.
func (s *sessionStore[T]) Encode(c *fiber.Ctx, record T) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie,
		Value:    record.tokenValue(),
		Expires:  record.Expiry(),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// DecodeRequest reads the store's cookie off the inbound request and decodes
// it.
func (s *sessionStore[T]) DecodeRequest(c *fiber.Ctx, raw bool) (T, error) {
	return s.Decode(c.UserContext(), c.Cookies(s.cookie), raw)
}

// ClearCookie expires the store's cookie on the outbound response.
func (s *sessionStore[T]) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie,
		Value:    "",
		Expires:  time.Now().Add(-24 * time.Hour * 365),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// AuthenticationSessions manages login sessions and their IP binding.
type AuthenticationSessions struct {
	sessionStore[*AuthenticationSession]
}

func NewAuthenticationSessions(db *bun.DB, codec *TokenCodec, window time.Duration) *AuthenticationSessions {
	handlers := ModelHandlers[*AuthenticationSession]{
		Name:        "authentication session",
		NewRecord:   func() *AuthenticationSession { return &AuthenticationSession{} },
		OwnerColumn: "account_id",
		Validate: func(rec *AuthenticationSession) error {
			if rec.AccountID == uuid.Nil {
				return NewEmptyFieldError("account")
			}
			return checkEmpty(fieldValue{"ip", rec.IP})
		},
	}
	return &AuthenticationSessions{
		sessionStore: newSessionStore(db, codec, handlers, KindAuthenticationSession, CookieAuthentication, window),
	}
}

// Create persists a new valid authentication session bound to the caller's
// IP and mints its token.
func (s *AuthenticationSessions) Create(ctx context.Context, ownerID uuid.UUID, ip string) (*AuthenticationSession, error) {
	return s.insert(ctx, &AuthenticationSession{
		AccountID: ownerID,
		IP:        ip,
		Valid:     true,
		ExpiresAt: time.Now().Add(s.window),
	})
}

// InKnownLocation defends against cookie theft across networks: the request
// IP must match some stored authentication session of the same owner, or the
// caller is rejected with the unknown-location error.
func (s *AuthenticationSessions) InKnownLocation(ctx context.Context, token, ip string) error {
	session, err := s.Decode(ctx, token, true)
	if err != nil {
		return err
	}

	known, err := s.repo.DB().NewSelect().
		Model((*AuthenticationSession)(nil)).
		Where("account_id = ? AND ip = ?", session.AccountID, ip).
		Exists(ctx)
	if err != nil {
		return NewSessionError(s.kind, TextCodeSessionNotFound, "location lookup failed")
	}
	if !known {
		return NewUnknownLocationError(s.kind)
	}
	return nil
}

// VerificationSessions manages one-time-code sessions.
type VerificationSessions struct {
	sessionStore[*VerificationSession]
}

func NewVerificationSessions(db *bun.DB, codec *TokenCodec, window time.Duration) *VerificationSessions {
	handlers := ModelHandlers[*VerificationSession]{
		Name:        "verification session",
		NewRecord:   func() *VerificationSession { return &VerificationSession{} },
		OwnerColumn: "account_id",
		Validate: func(rec *VerificationSession) error {
			if rec.AccountID == uuid.Nil {
				return NewEmptyFieldError("account")
			}
			return checkEmpty(
				fieldValue{"ip", rec.IP},
				fieldValue{"code", rec.Code},
			)
		},
	}
	return &VerificationSessions{
		sessionStore: newSessionStore(db, codec, handlers, KindVerificationSession, CookieVerification, window),
	}
}

// Create persists a new valid verification session holding a one-time code.
func (s *VerificationSessions) Create(ctx context.Context, ownerID uuid.UUID, ip, code string) (*VerificationSession, error) {
	return s.insert(ctx, &VerificationSession{
		AccountID: ownerID,
		IP:        ip,
		Code:      code,
		Valid:     true,
		ExpiresAt: time.Now().Add(s.window),
	})
}

// CaptchaSessions manages captcha challenge sessions. They may exist before
// any account does, so the owner relation is optional.
type CaptchaSessions struct {
	sessionStore[*CaptchaSession]
}

func NewCaptchaSessions(db *bun.DB, codec *TokenCodec, window time.Duration) *CaptchaSessions {
	handlers := ModelHandlers[*CaptchaSession]{
		Name:        "captcha session",
		NewRecord:   func() *CaptchaSession { return &CaptchaSession{} },
		OwnerColumn: "account_id",
		Validate: func(rec *CaptchaSession) error {
			return checkEmpty(
				fieldValue{"ip", rec.IP},
				fieldValue{"answer", rec.Answer},
			)
		},
	}
	return &CaptchaSessions{
		sessionStore: newSessionStore(db, codec, handlers, KindCaptchaSession, CookieCaptcha, window),
	}
}

// Create persists a new valid captcha session holding a challenge answer.
func (s *CaptchaSessions) Create(ctx context.Context, ownerID uuid.UUID, ip, answer string) (*CaptchaSession, error) {
	return s.insert(ctx, &CaptchaSession{
		AccountID: ownerID,
		IP:        ip,
		Answer:    answer,
		Valid:     true,
		ExpiresAt: time.Now().Add(s.window),
	})
}
