package amyrose

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Session kind names, used in token claims, cookies, and error metadata.
const (
	KindAuthenticationSession = "AuthenticationSession"
	KindVerificationSession   = "VerificationSession"
	KindCaptchaSession        = "CaptchaSession"
)

// Account is the root identity record. Sessions, roles, and permissions all
// hang off it through their AccountID owner relation.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull" json:"email,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	Username      string     `bun:"username,notnull" json:"username,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Verified      bool       `bun:"verified" json:"verified"`
	Disabled      bool       `bun:"disabled" json:"disabled"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

func (a *Account) GetID() uuid.UUID      { return a.ID }
func (a *Account) SetID(id uuid.UUID)    { a.ID = id }
func (a *Account) GetOwnerID() uuid.UUID { return uuid.Nil }

// SessionRecord is the shared surface of the three session models.
type SessionRecord interface {
	Entity
	Expiry() time.Time
	IsValid() bool
	ClientIP() string
	setToken(token string)
	tokenValue() string
}

// AuthenticationSession proves a login. Its payload is identity alone.
type AuthenticationSession struct {
	bun.BaseModel `bun:"table:authentication_sessions,alias:ases"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	IP            string     `bun:"ip,notnull" json:"ip,omitempty"`
	Valid         bool       `bun:"valid" json:"valid"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	// Token carries the signed cookie value from mint to encode. Never stored.
	Token string `bun:"-" json:"-"`
}

func (s *AuthenticationSession) GetID() uuid.UUID      { return s.ID }
func (s *AuthenticationSession) SetID(id uuid.UUID)    { s.ID = id }
func (s *AuthenticationSession) GetOwnerID() uuid.UUID { return s.AccountID }
func (s *AuthenticationSession) Expiry() time.Time     { return s.ExpiresAt }
func (s *AuthenticationSession) IsValid() bool         { return s.Valid }
func (s *AuthenticationSession) ClientIP() string      { return s.IP }
func (s *AuthenticationSession) setToken(t string)     { s.Token = t }
func (s *AuthenticationSession) tokenValue() string    { return s.Token }

// VerificationSession carries a one-time code. Any comparison, pass or fail,
// consumes it.
type VerificationSession struct {
	bun.BaseModel `bun:"table:verification_sessions,alias:vses"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	IP            string     `bun:"ip,notnull" json:"ip,omitempty"`
	Code          string     `bun:"code,notnull" json:"-"`
	Valid         bool       `bun:"valid" json:"valid"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	Token string `bun:"-" json:"-"`
}

func (s *VerificationSession) GetID() uuid.UUID      { return s.ID }
func (s *VerificationSession) SetID(id uuid.UUID)    { s.ID = id }
func (s *VerificationSession) GetOwnerID() uuid.UUID { return s.AccountID }
func (s *VerificationSession) Expiry() time.Time     { return s.ExpiresAt }
func (s *VerificationSession) IsValid() bool         { return s.Valid }
func (s *VerificationSession) ClientIP() string      { return s.IP }
func (s *VerificationSession) setToken(t string)     { s.Token = t }
func (s *VerificationSession) tokenValue() string    { return s.Token }

// CaptchaSession binds a challenge answer to a pending registration. The
// image artifact itself is rendered elsewhere; only its answer lives here.
type CaptchaSession struct {
	bun.BaseModel `bun:"table:captcha_sessions,alias:cses"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,type:uuid" json:"account_id,omitempty"`
	IP            string     `bun:"ip,notnull" json:"ip,omitempty"`
	Answer        string     `bun:"answer,notnull" json:"-"`
	Valid         bool       `bun:"valid" json:"valid"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	Token string `bun:"-" json:"-"`
}

func (s *CaptchaSession) GetID() uuid.UUID      { return s.ID }
func (s *CaptchaSession) SetID(id uuid.UUID)    { s.ID = id }
func (s *CaptchaSession) GetOwnerID() uuid.UUID { return s.AccountID }
func (s *CaptchaSession) Expiry() time.Time     { return s.ExpiresAt }
func (s *CaptchaSession) IsValid() bool         { return s.Valid }
func (s *CaptchaSession) ClientIP() string      { return s.IP }
func (s *CaptchaSession) setToken(t string)     { s.Token = t }
func (s *CaptchaSession) tokenValue() string    { return s.Token }

// Role is a named grant tied to one owning account. Uniqueness of
// (account, name) is the caller's concern; duplicate grants are allowed.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

func (r *Role) GetID() uuid.UUID      { return r.ID }
func (r *Role) SetID(id uuid.UUID)    { r.ID = id }
func (r *Role) GetOwnerID() uuid.UUID { return r.AccountID }

// Permission is a wildcard-style grant string tied to one owning account.
// No wildcard expansion happens at this layer.
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:prm"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id,omitempty"`
	AccountID     uuid.UUID  `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

func (p *Permission) GetID() uuid.UUID      { return p.ID }
func (p *Permission) SetID(id uuid.UUID)    { p.ID = id }
func (p *Permission) GetOwnerID() uuid.UUID { return p.AccountID }

// VerificationCode is one row of the bootstrap code pool, generated once per
// deployment and read-only afterwards.
type VerificationCode struct {
	bun.BaseModel `bun:"table:verification_codes,alias:vcod"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Code          string    `bun:"code,notnull" json:"code,omitempty"`
}

// CaptchaChallenge is one row of the bootstrap captcha pool. The answer
// doubles as the rendered image's base name.
type CaptchaChallenge struct {
	bun.BaseModel `bun:"table:captcha_challenges,alias:ccha"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id,omitempty"`
	Answer        string    `bun:"answer,notnull" json:"answer,omitempty"`
}
