package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"callnotes/internal/audit"
	"callnotes/internal/auth"
	"callnotes/internal/rbac"
	"callnotes/pkg/logger"

	"github.com/google/uuid"
)

type Auditor interface {
	Append(ctx context.Context, e audit.Event) error
}

type Options struct {
	// AdminEmails are lowercased addresses that sign up with the admin role.
	AdminEmails []string
	Audit       Auditor
}

// Session is what signup, login and refresh hand back to the client.
type Session struct {
	User   User           `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

// Service manages accounts and issues token pairs.
type Service struct {
	repo   Repository
	hasher *Hasher
	tokens *auth.Manager
	admins map[string]struct{}
	audit  Auditor

	// dummyHash keeps unknown-user logins as slow as wrong-password ones.
	dummyHash string
	clock     func() time.Time
}

func NewService(repo Repository, hasher *Hasher, tokens *auth.Manager, opts Options) (*Service, error) {
	if repo == nil || hasher == nil || tokens == nil {
		return nil, errors.New("users: repository, hasher and token manager are required")
	}
	dummy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, err
	}
	admins := make(map[string]struct{}, len(opts.AdminEmails))
	for _, e := range opts.AdminEmails {
		admins[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	return &Service{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		admins:    admins,
		audit:     opts.Audit,
		dummyHash: dummy,
		clock:     time.Now,
	}, nil
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (Session, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.FirstName == "" || req.LastName == "" || req.Username == "" || req.Email == "" || req.Password == "" {
		return Session{}, fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if !isEmail(req.Email) {
		return Session{}, fmt.Errorf("%w: please enter a valid email address", ErrInvalidInput)
	}
	if isEmail(req.Username) || strings.ContainsAny(req.Username, " \t\n@") {
		return Session{}, fmt.Errorf("%w: username must not contain spaces or @", ErrInvalidInput)
	}
	if err := ValidatePassword(req.Password); err != nil {
		return Session{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return Session{}, err
	}

	role := rbac.RoleUser
	if _, ok := s.admins[strings.ToLower(req.Email)]; ok {
		role = rbac.RoleAdmin
	}

	now := s.clock().UTC().Truncate(time.Microsecond)
	u := User{
		ID:           uuid.NewString(),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return Session{}, err
	}

	if s.audit != nil {
		if err := s.audit.Append(ctx, audit.Event{Type: audit.EventTypeUserSignedUp, ActorUserID: u.ID}); err != nil {
			logger.From(ctx).Warn("audit append failed", "type", string(audit.EventTypeUserSignedUp), "err", err)
		}
	}
	return s.session(u, now)
}

// Login accepts an email or a username as identifier. Unknown users and wrong passwords
// produce the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, identifier, password string) (Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return Session{}, fmt.Errorf("%w: identifier and password are required", ErrInvalidInput)
	}

	var (
		u   User
		err error
	)
	if isEmail(identifier) {
		u, err = s.repo.GetByEmail(ctx, identifier)
	} else {
		u, err = s.repo.GetByUsername(ctx, identifier)
	}
	if errors.Is(err, ErrNotFound) {
		_ = s.hasher.Compare(s.dummyHash, password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return s.session(u, s.clock())
}

// Refresh exchanges a valid refresh token for a new pair. The role is reloaded from the store.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	now := s.clock()
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh, now)
	if err != nil {
		return Session{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetByID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	return s.session(u, now)
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) session(u User, now time.Time) (Session, error) {
	pair, err := s.tokens.IssuePair(now, u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Tokens: pair}, nil
}
