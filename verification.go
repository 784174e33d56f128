package amyrose

import (
	"context"
	"crypto/rand"
	"fmt"
	mathrand "math/rand/v2"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CodePoolSize is how many one-time codes a fresh deployment seeds.
const CodePoolSize = 100

const codeLength = 7

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "could not generate random string")
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// CodePool is the read-only pool of one-time verification codes, seeded once
// per deployment and injected into the verification workflow at
// construction. Sampling is uniform with replacement; codes are never
// removed, only the sessions referencing them are single-use.
type CodePool struct {
	codes []string
}

// NewCodePool loads the persisted pool, seeding CodePoolSize fresh codes
// first when the bootstrap table is empty. Seeding is idempotent across
// restarts but not safe to run concurrently with itself; guard it at
// bootstrap.
func NewCodePool(ctx context.Context, db *bun.DB) (*CodePool, error) {
	count, err := db.NewSelect().Model((*VerificationCode)(nil)).Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not inspect verification code pool")
	}

	if count == 0 {
		rows := make([]VerificationCode, 0, CodePoolSize)
		for i := 0; i < CodePoolSize; i++ {
			code, err := randomString(codeLength)
			if err != nil {
				return nil, err
			}
			rows = append(rows, VerificationCode{ID: uuid.New(), Code: code})
		}
		if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "could not seed verification code pool")
		}
	}

	var rows []VerificationCode
	if err := db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not load verification code pool")
	}

	codes := make([]string, len(rows))
	for i, row := range rows {
		codes[i] = row.Code
	}
	return &CodePool{codes: codes}, nil
}

// Random samples one code uniformly at random, with replacement.
func (p *CodePool) Random() string {
	return p.codes[mathrand.IntN(len(p.codes))]
}

// Size returns the number of codes in the pool.
func (p *CodePool) Size() int {
	return len(p.codes)
}

// Contains reports whether code is part of the pool.
func (p *CodePool) Contains(code string) bool {
	for _, c := range p.codes {
		if c == code {
			return true
		}
	}
	return false
}

// Verifier runs the account verification workflow: issue a session holding
// a pooled one-time code, then validate a submitted code with single-attempt
// enforcement.
type Verifier struct {
	accounts     *AccountManager
	sessions     *VerificationSessions
	authSessions *AuthenticationSessions
	pool         *CodePool
	mailer       *Mailer
	sms          *SMSSender
	logger       Logger
}

func NewVerifier(accounts *AccountManager, sessions *VerificationSessions, authSessions *AuthenticationSessions, pool *CodePool) *Verifier {
	return &Verifier{
		accounts:     accounts,
		sessions:     sessions,
		authSessions: authSessions,
		pool:         pool,
		logger:       defLogger{},
	}
}

func (v *Verifier) WithLogger(logger Logger) *Verifier {
	v.logger = logger
	return v
}

// WithMailer enables delivery of codes over SMTP.
func (v *Verifier) WithMailer(mailer *Mailer) *Verifier {
	v.mailer = mailer
	return v
}

// WithSMS enables delivery of codes over SMS.
func (v *Verifier) WithSMS(sms *SMSSender) *Verifier {
	v.sms = sms
	return v
}

// Sessions exposes the verification session store.
func (v *Verifier) Sessions() *VerificationSessions {
	return v.sessions
}

// RequestVerification renders the account unverified and issues a new
// verification session holding a pooled code. When no account is supplied,
// the owner is resolved from whichever session token is present: the
// verification token is tried first, then the authentication token; if
// neither resolves, the underlying decode error surfaces.
func (v *Verifier) RequestVerification(ctx context.Context, ip, verificationToken, authToken string, account *Account) (*Account, *VerificationSession, error) {
	if account == nil {
		ownerID, err := v.resolveOwner(ctx, verificationToken, authToken)
		if err != nil {
			return nil, nil, err
		}
		account, err = v.accounts.Repo().Get(ctx, ownerID)
		if err != nil {
			return nil, nil, err
		}
	}

	unverified := false
	account, err := v.accounts.Repo().Update(ctx, account.ID, AccountPatch{Verified: &unverified})
	if err != nil {
		return nil, nil, err
	}

	session, err := v.sessions.Create(ctx, account.ID, ip, v.pool.Random())
	if err != nil {
		return nil, nil, err
	}
	return account, session, nil
}

func (v *Verifier) resolveOwner(ctx context.Context, verificationToken, authToken string) (uuid.UUID, error) {
	if session, err := v.sessions.Decode(ctx, verificationToken, true); err == nil {
		return session.AccountID, nil
	}
	session, err := v.authSessions.Decode(ctx, authToken, true)
	if err != nil {
		return uuid.Nil, err
	}
	return session.AccountID, nil
}

// VerifyAccount validates a submitted code against the session decoded from
// token. Codes are single-attempt: any mismatch burns the session before the
// attempt error is returned, and a fresh session must be requested. On a
// match the session is consumed atomically and the account flips verified.
// Replays land on the invalidated session and get the session-invalid error,
// not the attempt error.
func (v *Verifier) VerifyAccount(ctx context.Context, token, code string) (*Account, *VerificationSession, error) {
	session, err := v.sessions.Decode(ctx, token, false)
	if err != nil {
		return nil, nil, err
	}

	if session.Code != code {
		v.sessions.Invalidate(ctx, session)
		return nil, nil, NewVerificationAttemptError(KindVerificationSession)
	}

	if err := v.sessions.Consume(ctx, session); err != nil {
		return nil, nil, err
	}

	verified := true
	account, err := v.accounts.Repo().Update(ctx, session.AccountID, AccountPatch{Verified: &verified})
	if err != nil {
		return nil, nil, err
	}
	return account, session, nil
}

// SendCodeByEmail delivers the session's code over SMTP. Fire and forget:
// transport failures are not retried here, and absent credentials fail fast.
func (v *Verifier) SendCodeByEmail(account *Account, session *VerificationSession) error {
	if v.mailer == nil {
		return errors.New("mail transport is not configured", errors.CategoryOperation)
	}
	body := fmt.Sprintf("Your verification code is %s.", session.Code)
	return v.mailer.Send(account.Email, "Account verification", body)
}

// SendCodeBySMS delivers the session's code over SMS, with the same
// no-retry, fail-fast policy as email.
func (v *Verifier) SendCodeBySMS(ctx context.Context, account *Account, session *VerificationSession) error {
	if v.sms == nil {
		return errors.New("sms transport is not configured", errors.CategoryOperation)
	}
	if account.Phone == "" {
		return NewEmptyFieldError("phone")
	}
	return v.sms.Send(ctx, account.Phone, fmt.Sprintf("Your verification code is %s.", session.Code))
}
