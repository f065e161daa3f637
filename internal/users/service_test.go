package users

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"callnotes/internal/audit"
	"callnotes/internal/auth"
	"callnotes/internal/config"
	"callnotes/internal/rbac"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) (*Service, *MemoryRepo, *audit.MemoryRepo) {
	t.Helper()
	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	require.NoError(t, err)
	repo := NewMemoryRepo()
	events := audit.NewMemoryRepo()
	svc, err := NewService(repo, NewHasher(bcrypt.MinCost), m, Options{
		AdminEmails: []string{"boss@example.com"},
		Audit:       audit.NewService(events),
	})
	require.NoError(t, err)
	return svc, repo, events
}

func validSignup() SignupRequest {
	return SignupRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Username:  "ada",
		Email:     "Ada@Example.com",
		Password:  "Str0ng!pass",
	}
}

func TestSignup_CreatesUserAndTokens(t *testing.T) {
	svc, repo, events := newTestService(t)
	ctx := context.Background()

	sess, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.User.ID)
	assert.Equal(t, rbac.RoleUser, sess.User.Role)
	assert.NotEmpty(t, sess.Tokens.AccessToken)
	assert.NotEmpty(t, sess.Tokens.RefreshToken)

	stored, err := repo.GetByID(ctx, sess.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("Str0ng!pass")))

	evs := events.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, audit.EventTypeUserSignedUp, evs[0].Type)
}

func TestSignup_AdminEmailGetsAdminRole(t *testing.T) {
	svc, _, _ := newTestService(t)
	req := validSignup()
	req.Email = "BOSS@example.com"
	sess, err := svc.Signup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleAdmin, sess.User.Role)
}

func TestSignup_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	cases := map[string]func(*SignupRequest){
		"missing first name": func(r *SignupRequest) { r.FirstName = " " },
		"bad email":          func(r *SignupRequest) { r.Email = "ada@example" },
		"username with @":    func(r *SignupRequest) { r.Username = "ada@x" },
		"weak password":      func(r *SignupRequest) { r.Password = "password" },
		"password too long":  func(r *SignupRequest) { r.Password = "Aa1!" + strings.Repeat("x", 80) },
	}
	for name, mut := range cases {
		t.Run(name, func(t *testing.T) {
			req := validSignup()
			mut(&req)
			_, err := svc.Signup(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSignup_DuplicateEmailOrUsernameConflicts(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	dupEmail := validSignup()
	dupEmail.Username = "someone"
	dupEmail.Email = "ADA@example.com"
	_, err = svc.Signup(ctx, dupEmail)
	assert.ErrorIs(t, err, ErrConflict)

	dupUser := validSignup()
	dupUser.Username = "ADA"
	dupUser.Email = "other@example.com"
	_, err = svc.Signup(ctx, dupUser)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestLogin_ByEmailOrUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	created, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	for _, id := range []string{"ada@example.com", "Ada"} {
		sess, err := svc.Login(ctx, id, "Str0ng!pass")
		require.NoError(t, err, id)
		assert.Equal(t, created.User.ID, sess.User.ID)
	}
}

func TestLogin_SameErrorForUnknownUserAndWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, errWrong := svc.Login(ctx, "ada", "Wr0ng!pass")
	_, errUnknown := svc.Login(ctx, "nobody", "Wr0ng!pass")
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
}

func TestRefresh_IssuesNewPair(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	sess, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	next, err := svc.Refresh(ctx, sess.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, next.User.ID)
	assert.NotEmpty(t, next.Tokens.AccessToken)

	_, err = svc.Refresh(ctx, sess.Tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Refresh(ctx, "garbage")
	assert.True(t, errors.Is(err, ErrInvalidCredentials))
}

func TestValidatePassword_ListsMissingRules(t *testing.T) {
	err := ValidatePassword("abc")
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"at least 8 characters", "an uppercase letter", "a number", "a special character"} {
		assert.True(t, strings.Contains(msg, want), "missing %q in %q", want, msg)
	}
	assert.NotContains(t, msg, "a lowercase letter")

	assert.NoError(t, ValidatePassword("Str0ng!pass"))
	assert.NoError(t, ValidatePassword("Aa1!"+strings.Repeat("x", 68)))

	err = ValidatePassword("Aa1!" + strings.Repeat("x", 69))
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "at most 72 bytes")
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(1).Cost)
	assert.Equal(t, bcrypt.MaxCost, NewHasher(99).Cost)
}
