package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Migrate creates the tables and indexes if they do not exist yet
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return handlePostgresError("migrate", err)
	}
	return nil
}

// NewRepositories wires postgres repositories for every kind, users and interests
func NewRepositories(pool *pgxpool.Pool) realtycms.Repositories {
	return realtycms.Repositories{
		Properties:     New[realtycms.PropertyExtra](pool),
		Investments:    New[realtycms.InvestmentExtra](pool),
		WhatsNew:       New[realtycms.WhatsNewExtra](pool),
		BuilderReviews: New[realtycms.BuilderReviewExtra](pool),
		Users:          NewUserRepository(pool),
		Interests:      NewInterestRepository(pool),
	}
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", operation, realtycms.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch pgErr.ConstraintName {
			case "content_items_kind_slug_key":
				return realtycms.ErrDuplicateSlug
			case "content_items_kind_pid_key":
				return realtycms.ErrDuplicatePID
			case "content_interests_pkey":
				return realtycms.ErrDuplicateInterest
			case "users_uid_key", "users_username_key":
				return realtycms.ErrDuplicateUser
			}
			return fmt.Errorf("%w: duplicate entry in %s", realtycms.ErrConflict, operation)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record %w", operation, realtycms.ErrNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", realtycms.ErrValidation, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}
