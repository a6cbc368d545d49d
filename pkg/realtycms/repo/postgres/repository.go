package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
	"github.com/jackc/pgx/v5"
)

const itemColumns = `id, pid, author_id, title, summary, description, image_url,
	locations, categories, is_top, is_news, publication_date, genres, stock_tickers,
	seo, extra, created_at, updated_at`

// Repository implements realtycms.Repository for one content kind using
// PostgreSQL. All kinds share the content_items table.
type Repository[E realtycms.Extra] struct {
	db   DBTX
	kind string
}

// New creates a new PostgreSQL content repository for the kind of E
func New[E realtycms.Extra](db DBTX) *Repository[E] {
	var zero E
	return &Repository[E]{db: db, kind: string(zero.Kind())}
}

func (r *Repository[E]) Create(ctx context.Context, item *realtycms.Item[E]) error {
	query := `
		INSERT INTO content_items (
			id, kind, pid, author_id, title, summary, description, image_url,
			locations, categories, is_top, is_news, publication_date, genres,
			stock_tickers, seo, slug, extra, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := r.db.Exec(ctx, query,
		item.ID, r.kind, item.PID, nullableID(item.AuthorID), item.Title, item.Summary,
		item.Description, item.ImageURL, nonNil(item.Locations), nonNil(item.Categories),
		item.IsTop, item.IsNews, item.NewsMeta.PublicationDate, nonNil(item.NewsMeta.Genres),
		nonNil(item.NewsMeta.StockTickers), item.SEO, item.SEO.Slug, storedExtra(item.Extra),
		item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return handlePostgresError("create item", err)
	}
	return nil
}

func (r *Repository[E]) Get(ctx context.Context, id uuid.UUID) (*realtycms.Item[E], error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE kind = $1 AND id = $2`
	item, err := scanItem[E](r.db.QueryRow(ctx, query, r.kind, id))
	if err != nil {
		return nil, r.notFound("get item", err)
	}
	return item, nil
}

func (r *Repository[E]) GetBySlug(ctx context.Context, slug string) (*realtycms.Item[E], error) {
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE kind = $1 AND slug = $2`
	item, err := scanItem[E](r.db.QueryRow(ctx, query, r.kind, slug))
	if err != nil {
		return nil, r.notFound("get item by slug", err)
	}
	return item, nil
}

func (r *Repository[E]) Update(ctx context.Context, item *realtycms.Item[E]) error {
	query := `
		UPDATE content_items SET
			author_id = $3, title = $4, summary = $5, description = $6, image_url = $7,
			locations = $8, categories = $9, is_top = $10, is_news = $11,
			publication_date = $12, genres = $13, stock_tickers = $14, seo = $15,
			slug = $16, extra = $17, updated_at = $18
		WHERE kind = $1 AND id = $2`

	tag, err := r.db.Exec(ctx, query,
		r.kind, item.ID, nullableID(item.AuthorID), item.Title, item.Summary,
		item.Description, item.ImageURL, nonNil(item.Locations), nonNil(item.Categories),
		item.IsTop, item.IsNews, item.NewsMeta.PublicationDate, nonNil(item.NewsMeta.Genres),
		nonNil(item.NewsMeta.StockTickers), item.SEO, item.SEO.Slug, storedExtra(item.Extra), item.UpdatedAt)
	if err != nil {
		return handlePostgresError("update item", err)
	}
	if tag.RowsAffected() == 0 {
		return realtycms.ErrItemNotFound
	}
	return nil
}

func (r *Repository[E]) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_items WHERE kind = $1 AND id = $2`, r.kind, id)
	if err != nil {
		return handlePostgresError("delete item", err)
	}
	if tag.RowsAffected() == 0 {
		return realtycms.ErrItemNotFound
	}
	return nil
}

func (r *Repository[E]) List(ctx context.Context, filter realtycms.ListFilter) ([]*realtycms.Item[E], error) {
	where, args := r.where(filter)
	query := `SELECT ` + itemColumns + ` FROM content_items WHERE ` + where

	if filter.OrderBy == realtycms.OrderPublicationDesc {
		query += ` ORDER BY publication_date DESC, created_at DESC`
	} else {
		query += ` ORDER BY created_at DESC`
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, handlePostgresError("list items", err)
	}
	defer rows.Close()

	var result []*realtycms.Item[E]
	for rows.Next() {
		item, err := scanItem[E](rows)
		if err != nil {
			return nil, handlePostgresError("scan item", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list items", err)
	}
	return result, nil
}

func (r *Repository[E]) Count(ctx context.Context, filter realtycms.ListFilter) (int, error) {
	where, args := r.where(filter)
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM content_items WHERE `+where, args...).Scan(&n); err != nil {
		return 0, handlePostgresError("count items", err)
	}
	return n, nil
}

func (r *Repository[E]) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM content_items WHERE kind = $1 AND slug = $2 AND id <> $3)`
	var taken bool
	if err := r.db.QueryRow(ctx, query, r.kind, slug, exclude).Scan(&taken); err != nil {
		return false, handlePostgresError("check slug", err)
	}
	return taken, nil
}

// where renders the predicates of filter. Search is an unanchored ILIKE
// match over the same fields as realtycms.MatchesFilter.
func (r *Repository[E]) where(filter realtycms.ListFilter) (string, []any) {
	args := []any{r.kind}
	conds := []string{"kind = $1"}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.IsTop != nil {
		conds = append(conds, "is_top = "+arg(*filter.IsTop))
	}
	if filter.IsNews != nil {
		conds = append(conds, "is_news = "+arg(*filter.IsNews))
	}
	if filter.ExcludeID != uuid.Nil {
		conds = append(conds, "id <> "+arg(filter.ExcludeID))
	}
	if filter.Category != "" {
		conds = append(conds, arg(filter.Category)+" = ANY(categories)")
	}
	if filter.Location != "" {
		conds = append(conds, arg(filter.Location)+" = ANY(locations)")
	}
	if filter.Search != "" {
		p := arg("%" + escapeLike(filter.Search) + "%")
		switch filter.Scope {
		case realtycms.SearchTitle:
			conds = append(conds, "title ILIKE "+p)
		case realtycms.SearchBuilderName:
			conds = append(conds, "extra->>'builderName' ILIKE "+p)
		default:
			fields := []string{
				"title ILIKE " + p,
				"summary ILIKE " + p,
				"description ILIKE " + p,
				"seo->>'metaTitle' ILIKE " + p,
				"seo->>'metaDescription' ILIKE " + p,
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(CASE WHEN jsonb_typeof(seo->'keywords') = 'array' THEN seo->'keywords' ELSE '[]'::jsonb END) k WHERE k ILIKE " + p + ")",
				"EXISTS (SELECT 1 FROM unnest(locations) l WHERE l ILIKE " + p + ")",
				"EXISTS (SELECT 1 FROM unnest(categories) c WHERE c ILIKE " + p + ")",
			}
			if r.kind == string(realtycms.KindBuilderReview) {
				fields = append(fields, "extra->>'builderName' ILIKE "+p)
			}
			conds = append(conds, "("+strings.Join(fields, " OR ")+")")
		}
	}
	return strings.Join(conds, " AND "), args
}

func (r *Repository[E]) notFound(operation string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return realtycms.ErrItemNotFound
	}
	return handlePostgresError(operation, err)
}

func scanItem[E realtycms.Extra](row pgx.Row) (*realtycms.Item[E], error) {
	var item realtycms.Item[E]
	var authorID *uuid.UUID
	err := row.Scan(
		&item.ID, &item.PID, &authorID, &item.Title, &item.Summary, &item.Description,
		&item.ImageURL, &item.Locations, &item.Categories, &item.IsTop, &item.IsNews,
		&item.NewsMeta.PublicationDate, &item.NewsMeta.Genres, &item.NewsMeta.StockTickers,
		&item.SEO, &item.Extra, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if authorID != nil {
		item.AuthorID = *authorID
	}
	return &item, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// storedExtra returns the value written to the extra column. The interest set
// of investments lives in content_interests and is never copied here.
func storedExtra[E realtycms.Extra](e E) any {
	if _, ok := any(e).(realtycms.InvestmentExtra); ok {
		return map[string]any{}
	}
	return e
}
