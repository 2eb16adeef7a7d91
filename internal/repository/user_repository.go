package repository

import (
	"context"
	"database/sql"

	"github.com/fintrack/backend/internal/models"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create inserts a new user and assigns its ID.
	Create(ctx context.Context, user *models.User) error

	// FindByID retrieves a user by primary key.
	FindByID(ctx context.Context, id int) (*models.User, error)

	// FindByEmail retrieves a user by email address.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// ExistsByUsername reports whether a user with the given username exists.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// ExistsByEmail reports whether a user with the given email exists.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// PostgresUserRepository implements UserRepository against Postgres.
type PostgresUserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.QueryRowContext(ctx, `
        INSERT INTO users (username, email, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id
    `, user.Username, user.Email, user.PasswordHash).Scan(&user.ID)
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, username, email, password_hash FROM users WHERE id = $1
    `, id).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, `
        SELECT id, username, email, password_hash FROM users WHERE email = $1
    `, email).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)
    `, username).Scan(&exists)
	return exists, err
}

func (r *PostgresUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
        SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)
    `, email).Scan(&exists)
	return exists, err
}
