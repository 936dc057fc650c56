package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storefront-service/internal/entity"
)

const userColumns = `id, email, username, password_hash, full_name, avatar_url, role, is_active, is_verified, created_at`

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *entity.User) error {
	query := `INSERT INTO users (id, email, username, password_hash, full_name, role, is_active, is_verified) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Email, user.Username, user.PasswordHash, user.FullName, user.Role, user.IsActive, user.IsVerified)
	if isDuplicateKey(err) {
		return fmt.Errorf("user %s: %w", user.Email, entity.ErrConflict)
	}
	return err
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err, "user "+id)
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, notFound(err, "user "+email)
	}
	return user, nil
}

func scanUser(row rowScanner) (*entity.User, error) {
	var (
		user         entity.User
		passwordHash sql.NullString
		fullName     sql.NullString
		avatarURL    sql.NullString
	)
	err := row.Scan(&user.ID, &user.Email, &user.Username, &passwordHash, &fullName, &avatarURL, &user.Role,
		&user.IsActive, &user.IsVerified, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = passwordHash.String
	user.FullName = fullName.String
	user.AvatarURL = avatarURL.String
	return &user, nil
}
