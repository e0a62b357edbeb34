package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/FACorreiaa/catalog-api/internal/api"
	"github.com/FACorreiaa/catalog-api/internal/docstore"
)

var _ AuthRepo = (*AuthRepoFactory)(nil)

// AuthRepo is the credential store.
type AuthRepo interface {
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
}

type AuthRepoFactory struct {
	logger *slog.Logger
	store  docstore.Store
}

func NewAuthRepoFactory(store docstore.Store, logger *slog.Logger) *AuthRepoFactory {
	return &AuthRepoFactory{
		logger: logger,
		store:  store,
	}
}

func (r *AuthRepoFactory) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return r.findOne(ctx, "username", username)
}

func (r *AuthRepoFactory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "email", email)
}

func (r *AuthRepoFactory) findOne(ctx context.Context, field, value string) (*User, error) {
	doc, err := r.store.FindOne(ctx, usersCollection, docstore.Where(docstore.Eq(field, value)))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("user %s=%q: %w", field, value, api.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user by %s: %w", field, err)
	}
	return userFromDocument(doc)
}

// CreateUser inserts user. A unique index collision on username or email is
// reported as a conflict.
func (r *AuthRepoFactory) CreateUser(ctx context.Context, user *User) error {
	_, err := r.store.InsertOne(ctx, usersCollection, userToDocument(user))
	if errors.Is(err, docstore.ErrDuplicateKey) {
		r.logger.WarnContext(ctx, "Duplicate user on insert", slog.String("username", user.Username))
		return api.Fail(api.ErrConflict, "Username or email already exists")
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *AuthRepoFactory) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	matched, err := r.store.UpdateOne(ctx, usersCollection,
		docstore.Where(docstore.Eq("username", username)),
		docstore.Document{"last_login": formatTime(at)})
	if err != nil {
		return fmt.Errorf("updating last_login: %w", err)
	}
	if matched == 0 {
		return fmt.Errorf("user %q: %w", username, api.ErrNotFound)
	}
	return nil
}

func userToDocument(u *User) docstore.Document {
	doc := docstore.Document{
		"username":        u.Username,
		"email":           u.Email,
		"hashed_password": u.HashedPassword,
		"created_at":      formatTime(u.CreatedAt),
		"last_login":      nil,
	}
	if u.LastLogin != nil {
		doc["last_login"] = formatTime(*u.LastLogin)
	}
	return doc
}

func userFromDocument(doc docstore.Document) (*User, error) {
	u := &User{}
	u.Username, _ = doc.String("username")
	u.Email, _ = doc.String("email")
	u.HashedPassword, _ = doc.String("hashed_password")

	created, err := parseTime(doc, "created_at")
	if err != nil {
		return nil, err
	}
	if created != nil {
		u.CreatedAt = *created
	}
	if u.LastLogin, err = parseTime(doc, "last_login"); err != nil {
		return nil, err
	}
	return u, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(doc docstore.Document, field string) (*time.Time, error) {
	s, ok := doc.String(field)
	if !ok || s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, oops.Code("USER_DOCUMENT_INVALID").With("field", field).Wrapf(err, "parsing user %s", field)
	}
	return &t, nil
}
