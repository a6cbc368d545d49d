package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, uid, username, email, display_name, photo_url, provider_id, is_admin, created_at, updated_at`

// UserRepository implements realtycms.UserRepository using PostgreSQL
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *realtycms.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.UID, user.Username, user.Email, user.DisplayName,
		user.PhotoURL, user.ProviderID, user.IsAdmin, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return handlePostgresError("create user", err)
	}
	return nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *realtycms.User) error {
	query := `
		UPDATE users SET
			username = $2, email = $3, display_name = $4, photo_url = $5,
			provider_id = $6, is_admin = $7, updated_at = $8
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.DisplayName, user.PhotoURL,
		user.ProviderID, user.IsAdmin, user.UpdatedAt)
	if err != nil {
		return handlePostgresError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return realtycms.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) GetUser(ctx context.Context, id uuid.UUID) (*realtycms.User, error) {
	return r.getBy(ctx, "id", id)
}

func (r *UserRepository) GetUserByUID(ctx context.Context, uid string) (*realtycms.User, error) {
	return r.getBy(ctx, "uid", uid)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*realtycms.User, error) {
	return r.getBy(ctx, "username", username)
}

func (r *UserRepository) getBy(ctx context.Context, column string, value any) (*realtycms.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	var user realtycms.User
	err := r.db.QueryRow(ctx, query, value).Scan(
		&user.ID, &user.UID, &user.Username, &user.Email, &user.DisplayName,
		&user.PhotoURL, &user.ProviderID, &user.IsAdmin, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, realtycms.ErrUserNotFound
		}
		return nil, handlePostgresError("get user", err)
	}
	return &user, nil
}

// InterestRepository implements realtycms.InterestRepository using PostgreSQL
type InterestRepository struct {
	db DBTX
}

// NewInterestRepository creates a new PostgreSQL interest repository
func NewInterestRepository(db DBTX) *InterestRepository {
	return &InterestRepository{db: db}
}

func (r *InterestRepository) AddInterest(ctx context.Context, itemID, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `INSERT INTO content_interests (item_id, user_id) VALUES ($1, $2)`, itemID, userID)
	if err != nil {
		return handlePostgresError("add interest", err)
	}
	return nil
}

func (r *InterestRepository) ListInterested(ctx context.Context, itemID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM content_interests WHERE item_id = $1 ORDER BY created_at, user_id`, itemID)
	if err != nil {
		return nil, handlePostgresError("list interests", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, handlePostgresError("list interests", err)
	}
	return users, nil
}
