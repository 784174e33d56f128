package amyrose

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// CreateTables bootstraps the schema for every model the core persists.
// Idempotent; meant for sqlite deployments and tests. Larger installs run
// their own migrations against the same shapes.
func CreateTables(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*Account)(nil),
		(*AuthenticationSession)(nil),
		(*VerificationSession)(nil),
		(*CaptchaSession)(nil),
		(*Role)(nil),
		(*Permission)(nil),
		(*VerificationCode)(nil),
		(*CaptchaChallenge)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return errors.Wrap(err, errors.CategoryOperation, "could not create table")
		}
	}
	return nil
}
