package amyrose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunset-developer/amyrose"
)

func TestCodePoolSeedsOnce(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()

	pool, err := amyrose.NewCodePool(ctx, core.DB())
	require.NoError(t, err)
	assert.Equal(t, amyrose.CodePoolSize, pool.Size())

	// Loading again reuses the seeded rows instead of growing the pool.
	again, err := amyrose.NewCodePool(ctx, core.DB())
	require.NoError(t, err)
	assert.Equal(t, amyrose.CodePoolSize, again.Size())
}

func TestCodePoolRandomStaysInPool(t *testing.T) {
	core := newTestCore(t)

	pool, err := amyrose.NewCodePool(context.Background(), core.DB())
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.True(t, pool.Contains(pool.Random()))
	}
}

func TestRequestVerificationWithAccount(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "verify@example.com")

	account, session, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)
	assert.False(t, account.Verified)
	assert.NotEmpty(t, session.Code)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, account.ID, session.AccountID)
}

func TestRequestVerificationResolvesOwnerFromTokens(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "resolve@example.com")

	// Authentication token alone is enough.
	authSession, err := core.AuthSess.Create(ctx, account.ID, "10.0.0.1")
	require.NoError(t, err)

	resolved, first, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", authSession.Token, nil)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)

	// An existing verification token takes priority over the auth token.
	resolved, second, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", first.Token, "", nil)
	require.NoError(t, err)
	assert.Equal(t, account.ID, resolved.ID)
	assert.NotEqual(t, first.ID, second.ID)

	// With neither token, the decode failure surfaces.
	_, _, err = core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", nil)
	require.Error(t, err)
	assert.True(t, amyrose.IsDecodeError(err))
}

func TestRequestVerificationUnverifiesAccount(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "reverify@example.com")

	// Verify the account first.
	_, session, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)
	account, _, err = core.Verifier.VerifyAccount(ctx, session.Token, session.Code)
	require.NoError(t, err)
	require.True(t, account.Verified)

	// A new request flips it back pending.
	account, _, err = core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)
	assert.False(t, account.Verified)
}

func TestVerifyAccountWithCorrectCode(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "correct@example.com")

	_, session, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)

	account, consumed, err := core.Verifier.VerifyAccount(ctx, session.Token, session.Code)
	require.NoError(t, err)
	assert.True(t, account.Verified)
	assert.False(t, consumed.Valid)
}

func TestVerifyAccountSingleAttempt(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "attempt@example.com")

	_, session, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)

	// A wrong code burns the session.
	_, _, err = core.Verifier.VerifyAccount(ctx, session.Token, "wrong-code")
	require.Error(t, err)
	assert.True(t, amyrose.IsVerificationAttemptError(err))

	// Retrying with the right code is too late: the session is gone.
	_, _, err = core.Verifier.VerifyAccount(ctx, session.Token, session.Code)
	require.Error(t, err)
	assert.True(t, amyrose.IsSessionInvalidError(err))

	account, err = core.Accounts.Repo().Get(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, account.Verified)
}

func TestVerifyAccountReplayAfterSuccess(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "replay@example.com")

	_, session, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)

	_, _, err = core.Verifier.VerifyAccount(ctx, session.Token, session.Code)
	require.NoError(t, err)

	// Resubmitting the consumed session reports invalid, not an attempt
	// failure.
	_, _, err = core.Verifier.VerifyAccount(ctx, session.Token, session.Code)
	require.Error(t, err)
	assert.True(t, amyrose.IsSessionInvalidError(err))
}

func TestSendCodeWithoutTransports(t *testing.T) {
	core := newTestCore(t)
	ctx := context.Background()
	account := registerAccount(t, core, "transports@example.com")

	_, session, err := core.Verifier.RequestVerification(ctx, "10.0.0.1", "", "", account)
	require.NoError(t, err)

	// SMTP is configured but credential-less, so the send fails fast.
	err = core.Verifier.SendCodeByEmail(account, session)
	assert.Error(t, err)

	// SMS needs a phone number before the transport is even consulted.
	err = core.Verifier.SendCodeBySMS(ctx, account, session)
	require.Error(t, err)
	assert.True(t, amyrose.IsEmptyFieldError(err))
}
