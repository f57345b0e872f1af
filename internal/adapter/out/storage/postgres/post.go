package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"blogapi/internal/adapter/out/storage"
	"blogapi/internal/model"
	"blogapi/internal/service"
	"blogapi/pkg/tableinfo"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

const (
	DefaultPostsLimit = 50
)

var _ service.PostStorage = (*PostStorage)(nil)

var postColumns = []string{
	tableinfo.PostIDColumn,
	tableinfo.PostAuthorIDColumn,
	tableinfo.PostTitleColumn,
	tableinfo.PostContentColumn,
	tableinfo.PostPublishedAtColumn,
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}

type PostStorage struct {
	db     trmpgx.Tr
	getter *trmpgx.CtxGetter
}

func NewPostStorage(db trmpgx.Tr, getter *trmpgx.CtxGetter) *PostStorage {
	return &PostStorage{
		db:     db,
		getter: getter,
	}
}

func (s *PostStorage) CreatePost(ctx context.Context, in model.Post) (model.Post, error) {
	query, args, err := sq.
		Insert(tableinfo.PostsTableName).
		Columns(
			tableinfo.PostAuthorIDColumn,
			tableinfo.PostTitleColumn,
			tableinfo.PostContentColumn,
		).
		Values(in.AuthorID, in.Title, in.Content).
		Suffix("RETURNING " + joinColumns(postColumns)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanPost(tr.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Post{}, fmt.Errorf("exec error creating post: %w", err)
	}
	return out, nil
}

func (s *PostStorage) GetPostByID(ctx context.Context, postID int64) (model.Post, error) {
	query, args, err := sq.
		Select(postColumns...).
		From(tableinfo.PostsTableName).
		Where(sq.Eq{tableinfo.PostIDColumn: postID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)

	out, err := scanPost(tr.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, service.ErrNotFound
		}
		return model.Post{}, fmt.Errorf("exec select post by id: %w", err)
	}
	return out, nil
}

func (s *PostStorage) GetPosts(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 {
		limit = DefaultPostsLimit
	}
	query, args, err := sq.
		Select(postColumns...).
		From(tableinfo.PostsTableName).
		OrderBy(
			fmt.Sprintf("%s DESC", tableinfo.PostPublishedAtColumn),
			fmt.Sprintf("%s DESC", tableinfo.PostIDColumn),
		).
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)

	rows, err := tr.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec error selecting posts: %w", err)
	}
	return collectPosts(rows, limit)
}

func getPostsQueryBuilder(params storage.GetPostsParams) (sq.SelectBuilder, error) {
	qb := sq.
		Select(postColumns...).
		From(tableinfo.PostsTableName).
		PlaceholderFormat(sq.Dollar)

	keyset := fmt.Sprintf("(%s, %s)", tableinfo.PostPublishedAtColumn, tableinfo.PostIDColumn)

	switch params.Direction {
	case storage.DirectionAfter:
		return qb.
			Where(sq.Expr(keyset+" < (?, ?)", params.Cursor.PublishedAt, params.Cursor.ID)).
			OrderBy(
				tableinfo.PostPublishedAtColumn+" DESC",
				tableinfo.PostIDColumn+" DESC",
			), nil
	case storage.DirectionBefore:
		return qb.
			Where(sq.Expr(keyset+" > (?, ?)", params.Cursor.PublishedAt, params.Cursor.ID)).
			OrderBy(
				tableinfo.PostPublishedAtColumn+" ASC",
				tableinfo.PostIDColumn+" ASC",
			), nil
	default:
		return sq.SelectBuilder{}, storage.ErrDirectionUnset
	}
}

// GetPostsWithCursor returns posts newest first on both sides of the cursor.
func (s *PostStorage) GetPostsWithCursor(ctx context.Context, params storage.GetPostsParams) ([]model.Post, error) {
	if params.Limit <= 0 {
		params.Limit = DefaultPostsLimit
	}

	qb, err := getPostsQueryBuilder(params)
	if err != nil {
		return nil, err
	}

	query, args, err := qb.Limit(uint64(params.Limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	rows, err := tr.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec select: %w", err)
	}

	out, err := collectPosts(rows, params.Limit)
	if err != nil {
		return nil, err
	}
	if params.Direction == storage.DirectionBefore {
		slices.Reverse(out)
	}
	return out, nil
}

func (s *PostStorage) UpdatePost(ctx context.Context, in model.Post) (model.Post, error) {
	query, args, err := sq.
		Update(tableinfo.PostsTableName).
		Set(tableinfo.PostTitleColumn, in.Title).
		Set(tableinfo.PostContentColumn, in.Content).
		Where(sq.Eq{tableinfo.PostIDColumn: in.ID}).
		Suffix("RETURNING " + joinColumns(postColumns)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Post{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)

	out, err := scanPost(tr.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Post{}, service.ErrNotFound
		}
		return model.Post{}, fmt.Errorf("exec update post: %w", err)
	}
	return out, nil
}

func (s *PostStorage) DeletePost(ctx context.Context, postID int64) error {
	query, args, err := sq.
		Delete(tableinfo.PostsTableName).
		Where(sq.Eq{tableinfo.PostIDColumn: postID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)

	tag, err := tr.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("exec delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

func scanPost(row pgx.Row) (model.Post, error) {
	var p model.Post
	err := row.Scan(
		&p.ID,
		&p.AuthorID,
		&p.Title,
		&p.Content,
		&p.PublishedAt,
	)
	return p, err
}

func collectPosts(rows pgx.Rows, capacity int) ([]model.Post, error) {
	defer rows.Close()

	out := make([]model.Post, 0, capacity)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
