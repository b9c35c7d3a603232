package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/corebank/ledger-service/internal/models"
	"github.com/corebank/ledger-service/internal/service"
)

// PostgresUsers persists API users in bank.users.
type PostgresUsers struct {
	db *sql.DB
}

// NewPostgresUsers initializes a user store over an open database handle.
func NewPostgresUsers(db *sql.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

func (r *PostgresUsers) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	query := `
		INSERT INTO bank.users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return models.User{}, service.ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *PostgresUsers) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	user := models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM bank.users
		WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return models.User{}, service.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// MemoryUsers is the in-process user store used with the memory backend.
type MemoryUsers struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	nextID  int64
}

// NewMemoryUsers initializes an empty user store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{byEmail: make(map[string]models.User)}
}

func (r *MemoryUsers) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return models.User{}, service.ErrEmailTaken
	}
	r.nextID++
	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.byEmail[user.Email] = user
	return user, nil
}

func (r *MemoryUsers) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byEmail[email]
	if !ok {
		return models.User{}, service.ErrUserNotFound
	}
	return user, nil
}

var (
	_ service.UserStore = (*PostgresUsers)(nil)
	_ service.UserStore = (*MemoryUsers)(nil)
)
