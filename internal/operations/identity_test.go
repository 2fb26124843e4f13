package operations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/12darko/TeacherConnect-sub000/internal/auth"
	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/operations"
	"github.com/12darko/TeacherConnect-sub000/internal/store/memory"
)

var testTokens = operations.TokenConfig{Secret: "test-secret", Issuer: "teacherconnect-test", TTL: time.Hour}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	identity := operations.NewIdentity(memory.New(), testTokens, clock)

	user, err := identity.Register(ctx, operations.RegisterInput{
		Email: " Ana@Example.com ", Password: "correct-horse", FirstName: "Ana", LastName: "Lima", Role: model.RoleStudent,
	})
	require.NoError(t, err)
	require.Equal(t, "ana@example.com", user.Email)
	require.NotNil(t, user.PasswordHash)
	require.NotEqual(t, "correct-horse", *user.PasswordHash)

	_, err = identity.Register(ctx, operations.RegisterInput{
		Email: "ana@example.com", Password: "another-pass", FirstName: "Ana", Role: model.RoleTeacher,
	})
	requireKind(t, err, operations.KindConflict, operations.ErrEmailTaken)

	token, logged, err := identity.Login(ctx, "ANA@example.com", "correct-horse")
	require.NoError(t, err)
	require.Equal(t, user.ID, logged.ID)
	claims, err := auth.ParseToken(testTokens.Secret, testTokens.Issuer, token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, string(model.RoleStudent), claims.Role)

	_, _, err = identity.Login(ctx, "ana@example.com", "wrong-password")
	requireKind(t, err, operations.KindUnauthorized, operations.ErrInvalidCredentials)
	_, _, err = identity.Login(ctx, "nobody@example.com", "correct-horse")
	requireKind(t, err, operations.KindUnauthorized, operations.ErrInvalidCredentials)
}

func TestRegisterRejectsAdminAndShortPasswords(t *testing.T) {
	ctx := context.Background()
	identity := operations.NewIdentity(memory.New(), testTokens, clock)

	_, err := identity.Register(ctx, operations.RegisterInput{Email: "a@example.com", Password: "long-enough", FirstName: "A", Role: model.RoleAdmin})
	requireKind(t, err, operations.KindValidation, operations.ErrInvalidRole)

	_, err = identity.Register(ctx, operations.RegisterInput{Email: "a@example.com", Password: "short", FirstName: "A", Role: model.RoleStudent})
	requireKind(t, err, operations.KindValidation, operations.ErrMissingFields)
}

func TestSuspendedUserCannotLogin(t *testing.T) {
	ctx := context.Background()
	identity := operations.NewIdentity(memory.New(), testTokens, clock)

	user, err := identity.Register(ctx, operations.RegisterInput{Email: "t@example.com", Password: "long-enough", FirstName: "T", Role: model.RoleTeacher})
	require.NoError(t, err)

	suspended, err := identity.Suspend(ctx, user.ID, true)
	require.NoError(t, err)
	require.True(t, suspended.Suspended)

	_, _, err = identity.Login(ctx, "t@example.com", "long-enough")
	requireKind(t, err, operations.KindForbidden, operations.ErrAccountSuspended)

	_, err = identity.Suspend(ctx, "404", true)
	requireKind(t, err, operations.KindNotFound, operations.ErrUserNotFound)
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	identity := operations.NewIdentity(memory.New(), testTokens, clock)

	user, err := identity.Register(ctx, operations.RegisterInput{Email: "s@example.com", Password: "long-enough", FirstName: "S", Role: model.RoleStudent})
	require.NoError(t, err)

	promoted, err := identity.UpdateRole(ctx, user.ID, model.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, promoted.Role)

	_, err = identity.UpdateRole(ctx, user.ID, "owner")
	requireKind(t, err, operations.KindValidation, operations.ErrInvalidRole)
}
