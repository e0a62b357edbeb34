package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/catalog-api/app/observability/metrics"
	"github.com/FACorreiaa/catalog-api/internal/api"
)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*UserResponse, error)
	// Login returns a signed access token.
	Login(ctx context.Context, username, password string) (string, error)
	// Authenticate resolves a bearer token to its user.
	Authenticate(ctx context.Context, token string) (*User, error)
}

// dummyPassword is hashed once at start-up. Logins for unknown users verify
// against it so they cost the same as a wrong password.
const dummyPassword = "not-a-real-password-0"

type AuthServiceImpl struct {
	logger    *slog.Logger
	repo      AuthRepo
	hasher    PasswordHasher
	policy    PasswordPolicy
	tokens    *TokenService
	tokenTTL  time.Duration
	metrics   *metrics.AppMetrics
	dummyHash string
	now       func() time.Time
}

func NewAuthService(repo AuthRepo, hasher PasswordHasher, policy PasswordPolicy, tokens *TokenService,
	tokenTTL time.Duration, m *metrics.AppMetrics, logger *slog.Logger,
) (*AuthServiceImpl, error) {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth: hashing dummy password: %w", err)
	}
	return &AuthServiceImpl{
		logger:    logger,
		repo:      repo,
		hasher:    hasher,
		policy:    policy,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		metrics:   m,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (*UserResponse, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Register"), slog.String("username", username))

	user, err := s.register(ctx, username, email, password)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, api.ErrValidation):
			outcome = "invalid"
		case errors.Is(err, api.ErrConflict):
			outcome = "conflict"
		default:
			span.RecordError(err)
		}
		span.SetStatus(codes.Error, outcome)
		s.metrics.RecordRegister(ctx, outcome)
		l.InfoContext(ctx, "Registration rejected", slog.String("outcome", outcome), slog.Any("error", err))
		return nil, err
	}

	s.metrics.RecordRegister(ctx, "success")
	l.InfoContext(ctx, "User registered")
	span.SetStatus(codes.Ok, "registered")
	return user.Public(), nil
}

// normalizeUsername is applied on every path that stores or looks up a
// username.
func normalizeUsername(username string) string {
	return strings.TrimSpace(username)
}

func (s *AuthServiceImpl) register(ctx context.Context, username, email, password string) (*User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, api.Fail(api.ErrValidation, "Username is required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, api.Fail(api.ErrValidation, "Invalid email address")
	}
	if !s.policy.Validate(password) {
		return nil, api.Fail(api.ErrValidation, "Password does not meet complexity requirements")
	}

	if err := s.ensureFree(ctx, s.repo.GetUserByUsername, username, "Username already registered"); err != nil {
		return nil, err
	}
	if err := s.ensureFree(ctx, s.repo.GetUserByEmail, email, "Email already registered"); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	user := &User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
		CreatedAt:      s.now().UTC().Truncate(time.Second),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthServiceImpl) ensureFree(ctx context.Context, lookup func(context.Context, string) (*User, error), value, msg string) error {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return api.Fail(api.ErrConflict, msg)
	case errors.Is(err, api.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	username = normalizeUsername(username)
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("username", username),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "Login"), slog.String("username", username))

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, api.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		s.metrics.RecordLogin(ctx, "error")
		return "", err
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.HashedPassword
	}
	if !s.hasher.Verify(password, hash) || user == nil {
		span.SetStatus(codes.Error, "bad credentials")
		s.metrics.RecordLogin(ctx, "failure")
		l.WarnContext(ctx, "Authentication attempt failed")
		return "", api.Fail(api.ErrUnauthenticated, "Incorrect username or password")
	}

	token, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		s.metrics.RecordLogin(ctx, "error")
		return "", err
	}

	if err := s.repo.UpdateLastLogin(ctx, user.Username, s.now()); err != nil {
		l.WarnContext(ctx, "Could not record last login", slog.Any("error", err))
	}

	s.metrics.RecordLogin(ctx, "success")
	l.InfoContext(ctx, "Authentication attempt succeeded")
	span.SetStatus(codes.Ok, "authenticated")
	return token, nil
}

func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (*User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Authenticate")
	defer span.End()

	subject, err := s.tokens.Verify(token)
	if err != nil {
		span.SetStatus(codes.Error, "invalid token")
		return nil, fmt.Errorf("%w: %w", api.ErrUnauthenticated, err)
	}

	user, err := s.repo.GetUserByUsername(ctx, subject)
	if errors.Is(err, api.ErrNotFound) {
		span.SetStatus(codes.Error, "unknown subject")
		return nil, fmt.Errorf("%w: subject %q no longer exists", api.ErrUnauthenticated, subject)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("username", user.Username))
	return user, nil
}
