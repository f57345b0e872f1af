package postgres

import (
	"context"
	"errors"
	"fmt"

	"blogapi/internal/model"
	"blogapi/internal/service"
	"blogapi/pkg/tableinfo"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
)

var _ service.CommentStorage = (*CommentStorage)(nil)

var commentColumns = []string{
	tableinfo.CommentIDColumn,
	tableinfo.CommentPostIDColumn,
	tableinfo.CommentAuthorIDColumn,
	tableinfo.CommentTitleColumn,
	tableinfo.CommentContentColumn,
	tableinfo.CommentPublishedAtColumn,
}

type CommentStorage struct {
	db     trmpgx.Tr
	getter *trmpgx.CtxGetter
}

func NewCommentStorage(db trmpgx.Tr, getter *trmpgx.CtxGetter) *CommentStorage {
	return &CommentStorage{db: db, getter: getter}
}

func (s *CommentStorage) CreateComment(ctx context.Context, in model.Comment) (model.Comment, error) {
	query, args, err := sq.
		Insert(tableinfo.CommentsTableName).
		Columns(
			tableinfo.CommentPostIDColumn,
			tableinfo.CommentAuthorIDColumn,
			tableinfo.CommentTitleColumn,
			tableinfo.CommentContentColumn,
		).
		Values(in.PostID, in.AuthorID, in.Title, in.Content).
		Suffix("RETURNING " + joinColumns(commentColumns)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanComment(tr.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Comment{}, fmt.Errorf("exec insert comment: %w", err)
	}
	return out, nil
}

func (s *CommentStorage) GetCommentByID(ctx context.Context, commentID int64) (model.Comment, error) {
	query, args, err := sq.
		Select(commentColumns...).
		From(tableinfo.CommentsTableName).
		Where(sq.Eq{tableinfo.CommentIDColumn: commentID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanComment(tr.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Comment{}, service.ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("exec select comment by id: %w", err)
	}
	return out, nil
}

func (s *CommentStorage) GetCommentsByPosts(ctx context.Context, postIDs []int64) ([]model.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	query, args, err := sq.
		Select(commentColumns...).
		From(tableinfo.CommentsTableName).
		Where(sq.Eq{tableinfo.CommentPostIDColumn: postIDs}).
		OrderBy(tableinfo.CommentIDColumn + " ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	rows, err := tr.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("exec select comments: %w", err)
	}
	defer rows.Close()

	var out []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CommentStorage) UpdateComment(ctx context.Context, in model.Comment) (model.Comment, error) {
	query, args, err := sq.
		Update(tableinfo.CommentsTableName).
		Set(tableinfo.CommentTitleColumn, in.Title).
		Set(tableinfo.CommentContentColumn, in.Content).
		Where(sq.Eq{tableinfo.CommentIDColumn: in.ID}).
		Suffix("RETURNING " + joinColumns(commentColumns)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return model.Comment{}, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	out, err := scanComment(tr.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Comment{}, service.ErrNotFound
		}
		return model.Comment{}, fmt.Errorf("exec update comment: %w", err)
	}
	return out, nil
}

func (s *CommentStorage) DeleteComment(ctx context.Context, commentID int64) error {
	n, err := s.delete(ctx, sq.Eq{tableinfo.CommentIDColumn: commentID})
	if err != nil {
		return err
	}
	if n == 0 {
		return service.ErrNotFound
	}
	return nil
}

func (s *CommentStorage) DeleteCommentsByPost(ctx context.Context, postID int64) error {
	_, err := s.delete(ctx, sq.Eq{tableinfo.CommentPostIDColumn: postID})
	return err
}

func (s *CommentStorage) delete(ctx context.Context, where sq.Eq) (int64, error) {
	query, args, err := sq.
		Delete(tableinfo.CommentsTableName).
		Where(where).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	tag, err := tr.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec delete comments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanComment(row pgx.Row) (model.Comment, error) {
	var c model.Comment
	err := row.Scan(
		&c.ID,
		&c.PostID,
		&c.AuthorID,
		&c.Title,
		&c.Content,
		&c.PublishedAt,
	)
	return c, err
}
