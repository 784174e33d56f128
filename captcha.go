package amyrose

import (
	"context"
	mathrand "math/rand/v2"
	"path/filepath"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CaptchaPoolSize is how many challenges a fresh deployment seeds. Image
// artifacts are rendered against these answers by an external process.
const CaptchaPoolSize = 100

// CaptchaPool is the read-only pool of challenge answers, seeded once per
// deployment like the verification code pool.
type CaptchaPool struct {
	answers  []string
	imageDir string
}

// NewCaptchaPool loads the persisted challenge pool, seeding it when empty.
func NewCaptchaPool(ctx context.Context, db *bun.DB, imageDir string) (*CaptchaPool, error) {
	count, err := db.NewSelect().Model((*CaptchaChallenge)(nil)).Count(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not inspect captcha pool")
	}

	if count == 0 {
		rows := make([]CaptchaChallenge, 0, CaptchaPoolSize)
		for i := 0; i < CaptchaPoolSize; i++ {
			answer, err := randomString(codeLength)
			if err != nil {
				return nil, err
			}
			rows = append(rows, CaptchaChallenge{ID: uuid.New(), Answer: answer})
		}
		if _, err := db.NewInsert().Model(&rows).Exec(ctx); err != nil {
			return nil, errors.Wrap(err, errors.CategoryOperation, "could not seed captcha pool")
		}
	}

	var rows []CaptchaChallenge
	if err := db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "could not load captcha pool")
	}

	answers := make([]string, len(rows))
	for i, row := range rows {
		answers[i] = row.Answer
	}
	return &CaptchaPool{answers: answers, imageDir: imageDir}, nil
}

// Random samples one challenge answer uniformly at random.
func (p *CaptchaPool) Random() string {
	return p.answers[mathrand.IntN(len(p.answers))]
}

// Size returns the number of challenges in the pool.
func (p *CaptchaPool) Size() int {
	return len(p.answers)
}

// Captcha runs the registration-gating captcha workflow. It mirrors the
// verification session contract: issue a session bound to a challenge,
// validate the submitted answer, and consume the session on use, pass or
// fail.
type Captcha struct {
	sessions *CaptchaSessions
	pool     *CaptchaPool
	logger   Logger
}

func NewCaptcha(sessions *CaptchaSessions, pool *CaptchaPool) *Captcha {
	return &Captcha{
		sessions: sessions,
		pool:     pool,
		logger:   defLogger{},
	}
}

func (c *Captcha) WithLogger(logger Logger) *Captcha {
	c.logger = logger
	return c
}

// Sessions exposes the captcha session store.
func (c *Captcha) Sessions() *CaptchaSessions {
	return c.sessions
}

// Request issues a new captcha session holding a pooled challenge answer.
// The owner may be uuid.Nil: captchas gate registration, so they usually
// predate the account.
func (c *Captcha) Request(ctx context.Context, ownerID uuid.UUID, ip string) (*CaptchaSession, error) {
	return c.sessions.Create(ctx, ownerID, ip, c.pool.Random())
}

// ImagePath resolves the rendered challenge image for a session decoded from
// token. Rendering itself is an external concern; sessions only reference
// the artifact by answer.
func (c *Captcha) ImagePath(ctx context.Context, token string) (string, error) {
	session, err := c.sessions.Decode(ctx, token, true)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.pool.imageDir, session.Answer+".png"), nil
}

// Verify compares the submitted answer against the session decoded from
// token. The session is consumed on use whether the answer matches or not;
// a mismatch additionally surfaces the attempt error.
func (c *Captcha) Verify(ctx context.Context, token, answer string) (*CaptchaSession, error) {
	session, err := c.sessions.Decode(ctx, token, false)
	if err != nil {
		return nil, err
	}

	if err := c.sessions.Consume(ctx, session); err != nil {
		return nil, err
	}

	if session.Answer != answer {
		return nil, NewVerificationAttemptError(KindCaptchaSession)
	}
	return session, nil
}
