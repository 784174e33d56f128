package amyrose

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
	"github.com/uptrace/bun"
)

// AccountManager handles account lookup, enable/disable, password changes,
// and client-identity resolution from an authentication token.
type AccountManager struct {
	repo     *Repository[*Account]
	sessions *AuthenticationSessions
	logger   Logger
}

func NewAccountManager(db *bun.DB, sessions *AuthenticationSessions) *AccountManager {
	handlers := ModelHandlers[*Account]{
		Name:      "account",
		NewRecord: func() *Account { return &Account{} },
		Validate: func(rec *Account) error {
			return checkEmpty(
				fieldValue{"email", rec.Email},
				fieldValue{"username", rec.Username},
				fieldValue{"password", rec.PasswordHash},
			)
		},
	}
	return &AccountManager{
		repo:     NewRepository(db, handlers),
		sessions: sessions,
		logger:   defLogger{},
	}
}

func (m *AccountManager) WithLogger(logger Logger) *AccountManager {
	m.logger = logger
	return m
}

// Repo exposes the account repository for plain CRUD.
func (m *AccountManager) Repo() *Repository[*Account] {
	return m.repo
}

// RegisterAccountPayload is the validated registration input.
type RegisterAccountPayload struct {
	Email    string `form:"email" json:"email"`
	Username string `form:"username" json:"username"`
	Phone    string `form:"phone_number" json:"phone_number"`
	Password string `form:"password" json:"password"`
}

// Validate will validate the payload
func (r RegisterAccountPayload) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Username, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
	); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid registration payload")
	}

	if r.Phone != "" {
		parsed, err := phonenumbers.Parse(r.Phone, "US")
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			return errors.New("phone number is not valid", errors.CategoryValidation).
				WithMetadata(map[string]any{"field": "phone_number"})
		}
	}
	return nil
}

// Register hashes the password and creates a new unverified, enabled
// account.
func (m *AccountManager) Register(ctx context.Context, payload RegisterAccountPayload) (*Account, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	hash, err := HashPassword(payload.Password)
	if err != nil {
		return nil, err
	}

	return m.repo.Create(ctx, &Account{
		Email:        payload.Email,
		Username:     payload.Username,
		Phone:        payload.Phone,
		PasswordHash: hash,
	})
}

// Disable renders an account inoperable while keeping it retrievable.
// Active sessions are not proactively revoked.
func (m *AccountManager) Disable(ctx context.Context, account *Account) (*Account, error) {
	disabled := true
	return m.repo.Update(ctx, account.ID, AccountPatch{Disabled: &disabled})
}

// Enable reactivates a previously disabled account.
func (m *AccountManager) Enable(ctx context.Context, account *Account) (*Account, error) {
	disabled := false
	return m.repo.Update(ctx, account.ID, AccountPatch{Disabled: &disabled})
}

// GetByEmail returns the first non-deleted account matching email. No
// uniqueness is enforced at this layer.
func (m *AccountManager) GetByEmail(ctx context.Context, email string) (*Account, error) {
	account := &Account{}
	err := m.repo.DB().NewSelect().Model(account).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, m.repo.selectErr(err)
	}
	return account, nil
}

// GetClient resolves the account behind an authentication token. Any decode
// or session failure means "no client", never an error: an unauthenticated
// caller is a normal, expected case. Store-level failures still propagate.
func (m *AccountManager) GetClient(ctx context.Context, token string) (*Account, error) {
	session, err := m.sessions.Decode(ctx, token, true)
	if err != nil {
		if IsDecodeError(err) || IsSessionError(err) {
			return nil, nil
		}
		return nil, err
	}

	account, err := m.repo.Get(ctx, session.AccountID)
	if err != nil {
		if IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return account, nil
}

// ChangePassword hashes newPassword and stores it against the account.
func (m *AccountManager) ChangePassword(ctx context.Context, id uuid.UUID, newPassword string) (*Account, error) {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	return m.repo.Update(ctx, id, AccountPatch{PasswordHash: &hash})
}

// VerifyCredentials compares a submitted password against the stored hash
// and rejects disabled accounts.
func (m *AccountManager) VerifyCredentials(ctx context.Context, email, password string) (*Account, error) {
	account, err := m.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if account.Disabled {
		return nil, errors.New("account is disabled", errors.CategoryAuth)
	}
	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		return nil, err
	}
	return account, nil
}
