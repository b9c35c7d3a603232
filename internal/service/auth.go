// Package service holds the user-facing auth logic: registration with
// bcrypt-hashed passwords and JWT issuance on login.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/corebank/ledger-service/internal/models"
)

var (
	// ErrEmailTaken is returned by UserStore.CreateUser on a duplicate email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is returned by UserStore.FindUserByEmail when no user matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials hides whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserStore persists API users.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	FindUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Auth handles registration and login.
type Auth struct {
	users     UserStore
	log       *logrus.Logger
	jwtSecret string
	tokenTTL  time.Duration
}

// NewAuth initializes the auth service.
func NewAuth(users UserStore, log *logrus.Logger, jwtSecret string) *Auth {
	return &Auth{
		users:     users,
		log:       log,
		jwtSecret: jwtSecret,
		tokenTTL:  24 * time.Hour,
	}
}

// Register creates a new user with a hashed password.
func (a *Auth) Register(ctx context.Context, username, email, password string) (models.User, error) {
	if username == "" || email == "" || password == "" {
		return models.User{}, fmt.Errorf("username, email and password are required")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := a.users.CreateUser(ctx, models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		return models.User{}, err
	}

	a.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a signed JWT.
func (a *Auth) Login(ctx context.Context, email, password string) (string, error) {
	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(user.ID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
	})
	tokenString, err := token.SignedString([]byte(a.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	a.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}
