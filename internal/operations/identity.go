package operations

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/12darko/TeacherConnect-sub000/internal/auth"
	"github.com/12darko/TeacherConnect-sub000/internal/crypto"
	"github.com/12darko/TeacherConnect-sub000/internal/model"
	"github.com/12darko/TeacherConnect-sub000/internal/store"
)

const minPasswordLength = 8

type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      model.Role
}

// Identity covers accounts: registration, login and the admin-only role and
// suspension changes.
type Identity struct {
	store  store.Store
	tokens TokenConfig
	now    Clock
}

func NewIdentity(st store.Store, tokens TokenConfig, now Clock) *Identity {
	return &Identity{store: st, tokens: tokens, now: clockOrSystem(now)}
}

// Register creates a student or teacher account. Admins are only created by
// seeding or by promoting an existing user.
func (i *Identity) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Email == "" || in.Password == "" || in.FirstName == "" {
		return model.User{}, validation(ErrMissingFields, "email, password and first name are required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return model.User{}, validation(ErrMissingFields, "invalid email address")
	}
	if len(in.Password) < minPasswordLength {
		return model.User{}, validation(ErrMissingFields, "password must be at least %d characters", minPasswordLength)
	}
	if in.Role != model.RoleStudent && in.Role != model.RoleTeacher {
		return model.User{}, validation(ErrInvalidRole, "role must be student or teacher")
	}
	return i.createUser(ctx, in)
}

// CreateAdmin is used by seeding; it skips the self-registration role check.
func (i *Identity) CreateAdmin(ctx context.Context, email, password, firstName, lastName string) (model.User, error) {
	return i.createUser(ctx, RegisterInput{
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
		Role:      model.RoleAdmin,
	})
}

func (i *Identity) createUser(ctx context.Context, in RegisterInput) (model.User, error) {
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return model.User{}, internal("hash password", err)
	}
	now := i.now()
	user, err := i.store.CreateUser(ctx, model.User{
		Email:        in.Email,
		PasswordHash: &hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return model.User{}, conflict(ErrEmailTaken, "email already registered")
	}
	if err != nil {
		return model.User{}, internal("create user", err)
	}
	return user, nil
}

// Login checks credentials and returns a signed access token.
func (i *Identity) Login(ctx context.Context, email, password string) (string, model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", model.User{}, validation(ErrMissingFields, "email and password are required")
	}
	user, ok, err := i.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", model.User{}, internal("get user by email", err)
	}
	if !ok || user.PasswordHash == nil || crypto.CheckPassword(*user.PasswordHash, password) != nil {
		return "", model.User{}, &Error{Kind: KindUnauthorized, Code: ErrInvalidCredentials}
	}
	if user.Suspended {
		return "", model.User{}, &Error{Kind: KindForbidden, Code: ErrAccountSuspended}
	}
	token, err := auth.NewAccessToken(i.tokens.Secret, i.tokens.Issuer, i.tokens.TTL, auth.Claims{
		UserID: user.ID,
		Role:   string(user.Role),
	})
	if err != nil {
		return "", model.User{}, internal("sign token", err)
	}
	return token, user, nil
}

func (i *Identity) GetUser(ctx context.Context, id string) (model.User, error) {
	user, ok, err := i.store.GetUser(ctx, id)
	if err != nil {
		return model.User{}, internal("get user", err)
	}
	if !ok {
		return model.User{}, notFound(ErrUserNotFound)
	}
	return user, nil
}

func (i *Identity) ListUsers(ctx context.Context, filter store.UserFilter) ([]model.User, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, validation(ErrInvalidRole, "unknown role %q", filter.Role)
	}
	users, err := i.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, internal("list users", err)
	}
	return users, nil
}

func (i *Identity) UpdateRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	if !role.Valid() {
		return model.User{}, validation(ErrInvalidRole, "unknown role %q", role)
	}
	user, ok, err := i.store.UpdateUserRole(ctx, id, role)
	if err != nil {
		return model.User{}, internal("update role", err)
	}
	if !ok {
		return model.User{}, notFound(ErrUserNotFound)
	}
	return user, nil
}

// Suspend is the only way to remove a user; accounts are never deleted.
func (i *Identity) Suspend(ctx context.Context, id string, suspended bool) (model.User, error) {
	user, ok, err := i.store.SetUserSuspended(ctx, id, suspended)
	if err != nil {
		return model.User{}, internal("suspend user", err)
	}
	if !ok {
		return model.User{}, notFound(ErrUserNotFound)
	}
	return user, nil
}
