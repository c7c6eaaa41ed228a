package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

func newTestIdentity(t *testing.T) *Service {
	t.Helper()
	return NewService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
	}, NewMemoryDirectory())
}

func TestRegisterDefaultsToCustomer(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()

	account, token, exp, err := svc.Register(ctx, nil, "Alice", "Alice@Example.com", "s3cret", "")
	require.NoError(t, err)

	assert.NotEmpty(t, account.ID)
	assert.Equal(t, "alice@example.com", account.Email, "emails are normalized")
	assert.Equal(t, domain.RoleCustomer, account.Role)
	assert.NotEmpty(t, token)
	assert.False(t, exp.IsZero())
}

func TestRegisterRoleAssignment(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()
	adminActor := &domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}
	customerActor := &domain.Principal{ID: "cust-1", Role: domain.RoleCustomer}

	// Only an admin actor may pick the role of the new account.
	account, _, _, err := svc.Register(ctx, adminActor, "Bob", "bob@example.com", "pw", domain.RoleAgent)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, account.Role)

	account, _, _, err = svc.Register(ctx, customerActor, "Eve", "eve@example.com", "pw", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, account.Role, "non-admin role requests are ignored")

	_, _, _, err = svc.Register(ctx, adminActor, "Mal", "mal@example.com", "pw", domain.Role("root"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, nil, "Alice", "alice@example.com", "pw", "")
	require.NoError(t, err)

	_, _, _, err = svc.Register(ctx, nil, "Other", "ALICE@example.com", "pw", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestLogin(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()

	registered, _, _, err := svc.Register(ctx, nil, "Alice", "alice@example.com", "s3cret", "")
	require.NoError(t, err)

	account, token, _, err := svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, account.ID)

	claims, err := svc.TokenManager().ParseToken(token)
	require.NoError(t, err)
	principal := claims.Principal()
	assert.Equal(t, registered.ID, principal.ID)
	assert.Equal(t, domain.RoleCustomer, principal.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()

	_, _, _, err := svc.Register(ctx, nil, "Alice", "alice@example.com", "s3cret", "")
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alice@example.com", "wrong")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))

	_, _, _, err = svc.Login(ctx, "nobody@example.com", "s3cret")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated),
		"unknown accounts and bad passwords are indistinguishable")
}

func TestChangePassword(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()

	account, _, _, err := svc.Register(ctx, nil, "Alice", "alice@example.com", "old-pw", "")
	require.NoError(t, err)
	p := domain.Principal{ID: account.ID, Role: account.Role}

	err = svc.ChangePassword(ctx, p, "wrong", "new-pw")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))

	require.NoError(t, svc.ChangePassword(ctx, p, "old-pw", "new-pw"))

	_, _, _, err = svc.Login(ctx, "alice@example.com", "old-pw")
	require.Error(t, err)
	_, _, _, err = svc.Login(ctx, "alice@example.com", "new-pw")
	require.NoError(t, err)
}

func TestAccountAdministration(t *testing.T) {
	svc := newTestIdentity(t)
	ctx := context.Background()

	adminAccount, _, _, err := svc.Register(ctx, nil, "Root", "root@example.com", "pw", "")
	require.NoError(t, err)
	adminActor := domain.Principal{ID: adminAccount.ID, Role: domain.RoleAdmin}

	target, _, _, err := svc.Register(ctx, nil, "Alice", "alice@example.com", "pw", "")
	require.NoError(t, err)

	_, err = svc.ListAccounts(ctx, domain.Principal{ID: target.ID, Role: domain.RoleCustomer})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeRoleNotPermitted))

	accounts, err := svc.ListAccounts(ctx, adminActor)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	err = svc.DeleteAccount(ctx, adminActor, adminActor.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed), "admins cannot delete themselves")

	require.NoError(t, svc.DeleteAccount(ctx, adminActor, target.ID))
	err = svc.DeleteAccount(ctx, adminActor, target.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
