package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"blogapi/internal/model"
	"blogapi/internal/service"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var commentRowColumns = []string{"id", "post_id", "author_id", "title", "content", "publication_datetime"}

func TestCommentStorage_CreateComment(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO comments (post_id,author_id,title,content) VALUES ($1,$2,$3,$4)")).
		WithArgs(int64(10), int64(7), "t", "c").
		WillReturnRows(pgxmock.NewRows(commentRowColumns).AddRow(int64(1), int64(10), int64(7), "t", "c", now))

	got, err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).
		CreateComment(context.Background(), model.Comment{PostID: 10, AuthorID: 7, Title: "t", Content: "c"})
	require.NoError(t, err)
	require.Equal(t, model.Comment{ID: 1, PostID: 10, AuthorID: 7, Title: "t", Content: "c", PublishedAt: now}, got)
}

func TestCommentStorage_GetCommentByID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(m pgxmock.PgxPoolIface)
		check func(t *testing.T, got model.Comment, err error)
	}{
		{
			name: "success",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery("SELECT .+ FROM comments WHERE id = \\$1").
					WithArgs(int64(5)).
					WillReturnRows(pgxmock.NewRows(commentRowColumns).AddRow(int64(5), int64(10), int64(7), "t", "c", time.Now()))
			},
			check: func(t *testing.T, got model.Comment, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(10), got.PostID)
			},
		},
		{
			name: "not found",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery("SELECT .+ FROM comments").
					WithArgs(int64(5)).
					WillReturnRows(pgxmock.NewRows(commentRowColumns))
			},
			check: func(t *testing.T, _ model.Comment, err error) {
				require.ErrorIs(t, err, service.ErrNotFound)
			},
		},
		{
			name: "db error",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery("SELECT .+ FROM comments").
					WithArgs(int64(5)).
					WillReturnError(errors.New("boom"))
			},
			check: func(t *testing.T, _ model.Comment, err error) {
				require.ErrorContains(t, err, "exec select comment by id")
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := newMockPool(t)
			tt.setup(mock)

			got, err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).GetCommentByID(context.Background(), 5)
			tt.check(t, got, err)
		})
	}
}

func TestCommentStorage_GetCommentsByPosts(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		mock := newMockPool(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta("FROM comments WHERE post_id IN ($1,$2) ORDER BY id ASC")).
			WithArgs(int64(10), int64(11)).
			WillReturnRows(pgxmock.NewRows(commentRowColumns).
				AddRow(int64(2), int64(11), int64(7), "c2", "x", now).
				AddRow(int64(3), int64(10), int64(7), "c3", "y", now))

		got, err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).
			GetCommentsByPosts(context.Background(), []int64{10, 11})
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Equal(t, int64(2), got[0].ID)
		require.Equal(t, "c3", got[1].Title)
	})

	t.Run("no posts skips the query", func(t *testing.T) {
		t.Parallel()

		mock := newMockPool(t)

		got, err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).GetCommentsByPosts(context.Background(), nil)
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("scan error", func(t *testing.T) {
		t.Parallel()

		mock := newMockPool(t)
		mock.ExpectQuery("FROM comments").
			WithArgs(int64(10)).
			WillReturnRows(pgxmock.NewRows(commentRowColumns).
				AddRow(int64(1), int64(10), int64(7), "ok", "x", time.Now()).
				AddRow(int64(2), int64(10), int64(7), "bad", "y", "oops"))

		got, err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).GetCommentsByPosts(context.Background(), []int64{10})
		require.Error(t, err)
		require.Nil(t, got)
		require.Contains(t, err.Error(), "scan comment")
	})
}

func TestCommentStorage_UpdateComment(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE comments SET title = $1, content = $2 WHERE id = $3")).
		WithArgs("t2", "c2", int64(4)).
		WillReturnRows(pgxmock.NewRows(commentRowColumns).AddRow(int64(4), int64(10), int64(7), "t2", "c2", time.Now()))

	got, err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).
		UpdateComment(context.Background(), model.Comment{ID: 4, Title: "t2", Content: "c2"})
	require.NoError(t, err)
	require.Equal(t, int64(10), got.PostID)
}

func TestCommentStorage_Delete(t *testing.T) {
	t.Parallel()

	t.Run("single", func(t *testing.T) {
		t.Parallel()

		mock := newMockPool(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM comments WHERE id = $1")).
			WithArgs(int64(4)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).DeleteComment(context.Background(), 4)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("by post tolerates zero rows", func(t *testing.T) {
		t.Parallel()

		mock := newMockPool(t)
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM comments WHERE post_id = $1")).
			WithArgs(int64(10)).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := NewCommentStorage(mock, trmpgx.DefaultCtxGetter).DeleteCommentsByPost(context.Background(), 10)
		require.NoError(t, err)
	})
}
