package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/domain"
	"github.com/tazhibayda/todo-service/internal/helper"
	"github.com/tazhibayda/todo-service/internal/log"
	"github.com/tazhibayda/todo-service/internal/metrics"
	"github.com/tazhibayda/todo-service/internal/oauth"
	"github.com/tazhibayda/todo-service/internal/queue"
	"github.com/tazhibayda/todo-service/internal/security"
)

const msgInvalidCredentials = "Invalid credentials"

type AuthService struct {
	Users     UserStore
	Tokens    TokenIssuer
	Providers map[domain.AuthOrigin]oauth.IdentityProvider
	Events    Events
}

func NewAuthService(users UserStore, tokens TokenIssuer, events Events, providers ...oauth.IdentityProvider) *AuthService {
	s := &AuthService{
		Users:     users,
		Tokens:    tokens,
		Providers: make(map[domain.AuthOrigin]oauth.IdentityProvider, len(providers)),
		Events:    events,
	}
	for _, p := range providers {
		s.Providers[p.Name()] = p
	}
	return s
}

// Session is the result of every successful sign-in.
type Session struct {
	Token string
	User  *domain.User
}

func (s *AuthService) issue(u *domain.User) (*Session, error) {
	tok, err := s.Tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &Session{Token: tok, User: u}, nil
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*Session, error) {
	name, email = strings.TrimSpace(name), helper.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, domain.E(domain.ErrValidation, "Name, email and password are required")
	}
	if !helper.LooksLikeEmail(email) {
		return nil, domain.E(domain.ErrValidation, "Invalid email address")
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.Users.FindUserByEmail(ctx, email); err == nil {
		return nil, domain.E(domain.ErrConflict, "User already exists")
	} else if !isNotFound(err) {
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		PasswordSet:  true,
		AuthType:     domain.OriginLocal,
	}
	// the unique index decides races between concurrent registrations
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if isConflict(err) {
			return nil, domain.E(domain.ErrConflict, "User already exists")
		}
		return nil, err
	}

	log.Ctx(ctx).Info("user registered", zap.Int64("user_id", u.ID), zap.String("email_hash", helper.Hash8(email)))
	s.Events.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID, Email: u.Email, Name: u.Name, Origin: string(u.AuthType),
	})
	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (sess *Session, err error) {
	defer func() { metrics.Auth(string(domain.OriginLocal), err) }()

	email = helper.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.E(domain.ErrValidation, "Email and password are required")
	}
	u, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.E(domain.ErrInvalidCredentials, msgInvalidCredentials)
		}
		return nil, err
	}
	if !u.CanPasswordLogin() {
		return nil, domain.E(domain.ErrInvalidState, socialLoginHint(u.AuthType))
	}
	if !security.CheckPassword(u.PasswordHash, password) {
		return nil, domain.E(domain.ErrInvalidCredentials, msgInvalidCredentials)
	}

	s.Events.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{
		UserID: u.ID, Email: u.Email, Method: string(domain.OriginLocal),
	})
	return s.issue(u)
}

var providerNames = map[domain.AuthOrigin]string{
	domain.OriginGoogle:   "Google",
	domain.OriginGitHub:   "GitHub",
	domain.OriginFacebook: "Facebook",
}

// socialLoginHint names the provider a password-less account signs in with.
func socialLoginHint(origin domain.AuthOrigin) string {
	name, ok := providerNames[domain.AuthOrigin(strings.TrimSuffix(string(origin), "+local"))]
	if !ok {
		name = "your social provider"
	}
	return "Please login with " + name + " or set a password"
}

// OAuthLogin resolves the caller's identity with provider and signs in the
// matching user, creating it on first use.
func (s *AuthService) OAuthLogin(ctx context.Context, provider domain.AuthOrigin, credential string) (sess *Session, err error) {
	defer func() { metrics.Auth(string(provider), err) }()

	p, ok := s.Providers[provider]
	if !ok {
		return nil, domain.E(domain.ErrValidation, fmt.Sprintf("%s sign-in is not configured", provider))
	}
	if strings.TrimSpace(credential) == "" {
		if provider == domain.OriginGoogle {
			return nil, domain.E(domain.ErrValidation, "No credential provided")
		}
		return nil, domain.E(domain.ErrValidation, "No code provided")
	}

	id, err := p.ResolveIdentity(ctx, credential)
	if err != nil {
		log.Ctx(ctx).Warn("identity provider rejected sign-in", zap.String("provider", string(provider)), zap.Error(err))
		return nil, domain.Wrap(domain.ErrUpstream, providerNames[provider]+" authentication failed", err)
	}

	u, err := s.linkOrCreate(ctx, provider, id)
	if err != nil {
		return nil, err
	}
	s.Events.publish(ctx, queue.KeyUserLoggedIn, queue.UserLoggedIn{
		UserID: u.ID, Email: u.Email, Method: string(provider),
	})
	return s.issue(u)
}

func (s *AuthService) linkOrCreate(ctx context.Context, provider domain.AuthOrigin, id *oauth.Identity) (*domain.User, error) {
	u, err := s.lookupIdentity(ctx, provider, id)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if u != nil {
		if u.ExternalID(provider) == "" {
			u.SetExternalID(provider, id.Subject)
			if err := s.Users.UpdateUser(ctx, u); err != nil {
				return nil, fmt.Errorf("link %s id: %w", provider, err)
			}
		}
		return u, nil
	}

	u = &domain.User{
		Name:       helper.FallbackName(id.Name, id.Email, providerNames[provider]),
		Email:      id.Email,
		AuthType:   provider,
		ProfilePic: id.Picture,
	}
	u.SetExternalID(provider, id.Subject)
	if err := s.Users.CreateUser(ctx, u); err != nil {
		if isConflict(err) {
			// lost a race with a concurrent first sign-in
			return s.lookupIdentity(ctx, provider, id)
		}
		return nil, err
	}
	log.Ctx(ctx).Info("user created via provider", zap.Int64("user_id", u.ID), zap.String("provider", string(provider)))
	s.Events.publish(ctx, queue.KeyUserRegistered, queue.UserRegistered{
		UserID: u.ID, Email: u.Email, Name: u.Name, Origin: string(provider),
	})
	return u, nil
}

// lookupIdentity finds the user by email, or by provider subject when the
// provider gave no email or no user has it yet.
func (s *AuthService) lookupIdentity(ctx context.Context, provider domain.AuthOrigin, id *oauth.Identity) (*domain.User, error) {
	if id.Email != "" {
		u, err := s.Users.FindUserByEmail(ctx, id.Email)
		if err == nil || !isNotFound(err) {
			return u, err
		}
	}
	return s.Users.FindUserByExternalID(ctx, provider, id.Subject)
}

// SetPassword adds a local password to a social account. Once a password
// exists every call is a Conflict, whatever the input.
func (s *AuthService) SetPassword(ctx context.Context, userID int64, password string) error {
	u, err := findUser(ctx, s.Users, userID)
	if err != nil {
		return err
	}
	if u.PasswordSet {
		return domain.E(domain.ErrConflict, "Password already set. Use change password instead")
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.PasswordSet = true
	u.AuthType = u.AuthType.WithLocal()
	return s.Users.UpdateUser(ctx, u)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	u, err := findUser(ctx, s.Users, userID)
	if err != nil {
		return err
	}
	if !u.CanPasswordLogin() {
		return domain.E(domain.ErrInvalidState, "Password not set yet")
	}
	if !security.CheckPassword(u.PasswordHash, current) {
		return domain.E(domain.ErrInvalidCredentials, "Current password is incorrect")
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hash, err := security.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	return s.Users.UpdateUser(ctx, u)
}
