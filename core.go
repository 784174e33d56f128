package amyrose

import (
	"context"

	"github.com/uptrace/bun"
)

// Core wires the session security services together from one configuration:
// token codec, session stores, account manager, verification and captcha
// workflows, authorization, and the outbound transports.
type Core struct {
	Accounts   *AccountManager
	AuthSess   *AuthenticationSessions
	Verifier   *Verifier
	Captcha    *Captcha
	Authorizer *Authorizer
	Mailer     *Mailer
	SMS        *SMSSender

	db     *bun.DB
	logger Logger
}

// NewCore bootstraps the schema, seeds the code and captcha pools when
// empty, and assembles every service. Pool seeding is idempotent but not
// concurrency-safe; run it from a single bootstrap path.
func NewCore(ctx context.Context, db *bun.DB, cfg *Config) (*Core, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := CreateTables(ctx, db); err != nil {
		return nil, err
	}

	codec := NewTokenCodec([]byte(cfg.SigningKey), cfg.Issuer)

	authSessions := NewAuthenticationSessions(db, codec, cfg.Sessions.AuthenticationWindow.Std())
	verSessions := NewVerificationSessions(db, codec, cfg.Sessions.VerificationWindow.Std())
	capSessions := NewCaptchaSessions(db, codec, cfg.Sessions.CaptchaWindow.Std())

	codePool, err := NewCodePool(ctx, db)
	if err != nil {
		return nil, err
	}
	captchaPool, err := NewCaptchaPool(ctx, db, cfg.CaptchaImageDir)
	if err != nil {
		return nil, err
	}

	accounts := NewAccountManager(db, authSessions)
	mailer := NewMailer(cfg.SMTP)
	sms := NewSMSSender(cfg.Twilio)

	return &Core{
		Accounts: accounts,
		AuthSess: authSessions,
		Verifier: NewVerifier(accounts, verSessions, authSessions, codePool).
			WithMailer(mailer).
			WithSMS(sms),
		Captcha:    NewCaptcha(capSessions, captchaPool),
		Authorizer: NewAuthorizer(db),
		Mailer:     mailer,
		SMS:        sms,
		db:         db,
		logger:     defLogger{},
	}, nil
}

func (c *Core) WithLogger(logger Logger) *Core {
	c.logger = logger
	c.Accounts.WithLogger(logger)
	c.Verifier.WithLogger(logger)
	c.Captcha.WithLogger(logger)
	return c
}

// DB exposes the underlying handle.
func (c *Core) DB() *bun.DB {
	return c.db
}
