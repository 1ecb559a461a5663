package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl-arena/trivia-arena-backend/internal/models"
	"github.com/rl-arena/trivia-arena-backend/pkg/database"
)

const userColumns = `id, username, email, password_hash, full_name, avatar_url, created_at, updated_at`

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FullName,
		&user.AvatarURL,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// CreateUser 새 사용자 생성 (username/email 중복 시 ErrDuplicate)
func (r *UserRepository) CreateUser(ctx context.Context, username, email, passwordHash, fullName string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, full_name)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username, email, passwordHash, fullName))
	if err != nil {
		if err = translateError(err); err == ErrDuplicate {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) findOne(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = $1`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil // 사용자 없음
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// FindByEmail 이메일로 사용자 찾기
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email", email)
}

// FindByID ID로 사용자 찾기
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, nil // uuid 형식이 아니면 존재하지 않는 사용자
	}
	return r.findOne(ctx, "id", id)
}

// FindByUsername 사용자명으로 찾기
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username", username)
}

// UpdateUser 사용자 정보 업데이트
func (r *UserRepository) UpdateUser(ctx context.Context, id string, fullName string, avatarURL *string) error {
	query := `
		UPDATE users
		SET full_name = $1, avatar_url = $2, updated_at = NOW()
		WHERE id = $3
	`

	_, err := r.db.ExecContext(ctx, query, fullName, avatarURL, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return nil
}
