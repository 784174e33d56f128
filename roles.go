package amyrose

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Authorizer assigns and checks per-account roles and wildcard-style
// permission strings. Wildcard matching or expansion, if any, belongs to
// the caller; this layer stores and compares names verbatim.
type Authorizer struct {
	roles       *Repository[*Role]
	permissions *Repository[*Permission]
}

func NewAuthorizer(db *bun.DB) *Authorizer {
	grantValidate := func(name string) error {
		return checkEmpty(fieldValue{"name", name})
	}
	return &Authorizer{
		roles: NewRepository(db, ModelHandlers[*Role]{
			Name:        "role",
			NewRecord:   func() *Role { return &Role{} },
			OwnerColumn: "account_id",
			Validate: func(rec *Role) error {
				if rec.AccountID == uuid.Nil {
					return NewEmptyFieldError("account")
				}
				return grantValidate(rec.Name)
			},
		}),
		permissions: NewRepository(db, ModelHandlers[*Permission]{
			Name:        "permission",
			NewRecord:   func() *Permission { return &Permission{} },
			OwnerColumn: "account_id",
			Validate: func(rec *Permission) error {
				if rec.AccountID == uuid.Nil {
					return NewEmptyFieldError("account")
				}
				return grantValidate(rec.Name)
			},
		}),
	}
}

// Roles exposes the role repository.
func (a *Authorizer) Roles() *Repository[*Role] {
	return a.roles
}

// Permissions exposes the permission repository.
func (a *Authorizer) Permissions() *Repository[*Permission] {
	return a.permissions
}

// HasRole checks whether the account holds a role with the given name.
func (a *Authorizer) HasRole(ctx context.Context, account *Account, role string) (bool, error) {
	ok, err := a.roles.DB().NewSelect().
		Model((*Role)(nil)).
		Where("account_id = ? AND name = ?", account.ID, role).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryOperation, "could not check role")
	}
	return ok, nil
}

// AssignRole creates a role associated with the account. Granting the same
// name twice creates a duplicate row; callers wanting idempotency check
// HasRole first.
func (a *Authorizer) AssignRole(ctx context.Context, account *Account, role string) (*Role, error) {
	return a.roles.Create(ctx, &Role{AccountID: account.ID, Name: role})
}

// RequireRole rejects accounts lacking the role with an authorization error.
func (a *Authorizer) RequireRole(ctx context.Context, account *Account, role string) error {
	ok, err := a.HasRole(ctx, account, role)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("account lacks role "+role, errors.CategoryAuthz).
			WithMetadata(map[string]any{"role": role})
	}
	return nil
}

// AssignPermission creates a permission associated with the account.
// Duplicates are allowed, as with roles.
func (a *Authorizer) AssignPermission(ctx context.Context, account *Account, permission string) (*Permission, error) {
	return a.permissions.Create(ctx, &Permission{AccountID: account.ID, Name: permission})
}

// GetPermissions returns every permission associated with the account.
func (a *Authorizer) GetPermissions(ctx context.Context, account *Account) ([]*Permission, error) {
	return a.permissions.AllByOwner(ctx, account.ID)
}
