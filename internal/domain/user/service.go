package user

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/quickshelf/pos/internal/domain/audit"
)

// Session is the result of a successful login. The token carries the user's
// identity and role; validating it on later requests is the host's concern.
type Session struct {
	UserID    int64
	Username  string
	Role      Role
	Token     string
	ExpiresAt time.Time
}

// Service verifies credentials and issues signed session tokens.
type Service struct {
	users     Repository
	audit     audit.Recorder
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewService creates a user Service. tokenTTL bounds how long issued session
// tokens stay valid.
func NewService(users Repository, rec audit.Recorder, jwtSecret []byte, tokenTTL time.Duration) *Service {
	return &Service{users: users, audit: rec, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Authenticate checks the username and password against the stored bcrypt
// hash. Deactivated accounts are rejected the same way unknown ones are.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "look up user")
	}
	if !u.Active {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := jwt.MapClaims{
		"sub":  u.ID,
		"name": u.Username,
		"role": string(u.Role),
		"exp":  expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, errors.Wrap(err, "sign session token")
	}

	action := fmt.Sprintf("User %q logged in.", u.Username)
	if err := s.audit.Record(ctx, u.ID, action); err != nil {
		zctx.From(ctx).Warn("Audit record failed", zap.Error(err))
	}

	return &Session{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// CreateUser registers a new active staff account. The acting admin is
// recorded in the activity log.
func (s *Service) CreateUser(ctx context.Context, actorID int64, username, password string, role Role) (int64, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return 0, err
	}

	id, err := s.users.Create(ctx, User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	})
	if err != nil {
		return 0, errors.Wrapf(err, "create user %q", username)
	}

	action := fmt.Sprintf("Created user %q with role %s.", username, role)
	if err := s.audit.Record(ctx, actorID, action); err != nil {
		zctx.From(ctx).Warn("Audit record failed", zap.Error(err))
	}
	return id, nil
}

// List returns every staff account.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// SetActive activates or deactivates an account. Deactivated users cannot
// log in; their past sales and log entries stay attributed to them.
func (s *Service) SetActive(ctx context.Context, actorID, userID int64, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		return err
	}

	verb := "Deactivated"
	if active {
		verb = "Activated"
	}
	action := fmt.Sprintf("%s user #%d.", verb, userID)
	if err := s.audit.Record(ctx, actorID, action); err != nil {
		zctx.From(ctx).Warn("Audit record failed", zap.Error(err))
	}
	return nil
}

// HashPassword produces a bcrypt hash for storing a new user's password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}
