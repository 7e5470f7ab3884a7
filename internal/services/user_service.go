package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"earntracker/internal/core"
)

const (
	minPasswordLength = 8
	tokenIssuer       = "earntracker"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,32}$`)

// Claims are the JWT claims issued at login. Subject holds the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the numeric user id carried in the subject.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad subject", core.ErrUnauthorized)
	}
	return id, nil
}

// UserService registers accounts and issues and verifies login tokens.
type UserService struct {
	store  UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

func NewUserService(store UserStore, jwtSecret string, tokenTTL time.Duration) *UserService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &UserService{
		store:  store,
		secret: []byte(jwtSecret),
		ttl:    tokenTTL,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// WithHashCost sets the bcrypt cost; tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.cost = cost
	return s
}

func (s *UserService) WithClock(now func() time.Time) *UserService {
	s.now = now
	return s
}

// NormalizeUsername is the form usernames are stored and looked up in.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Register creates an account with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, username, password string) (core.User, error) {
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return core.User{}, fmt.Errorf("%w: %q", core.ErrInvalidUsername, username)
	}
	if len(password) < minPasswordLength {
		return core.User{}, fmt.Errorf("%w: need at least %d characters", core.ErrWeakPassword, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, username, string(hash))
	if err != nil {
		return core.User{}, err
	}
	slog.InfoContext(ctx, "User registered", "user_id", u.ID, "username", u.Username)
	return u, nil
}

// Authenticate checks the credentials and returns a signed token. Unknown
// users and wrong passwords give the same error.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (string, core.User, error) {
	u, err := s.store.GetUserByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, core.ErrNotFound) {
		return "", core.User{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return "", core.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		slog.WarnContext(ctx, "Login rejected", "username", u.Username)
		return "", core.User{}, core.ErrInvalidCredentials
	}

	token, err := s.issue(u)
	if err != nil {
		return "", core.User{}, err
	}
	return token, u, nil
}

func (s *UserService) issue(u core.User) (string, error) {
	now := s.now()
	claims := Claims{
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a token and returns its claims. Any failure is
// reported as core.ErrUnauthorized.
func (s *UserService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (core.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]core.User, error) {
	return s.store.ListUsers(ctx)
}

// Delete removes the account together with all of its data.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "User deleted", "user_id", id)
	return nil
}
