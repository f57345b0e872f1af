package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"blogapi/internal/model"
	"blogapi/internal/service"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "username", "password"}

func TestUserStorage_CreateUser(t *testing.T) {
	t.Parallel()

	in := model.User{Email: "a@b.io", Username: "alice", PasswordDigest: "digest"}

	tests := []struct {
		name      string
		setup     func(m pgxmock.PgxPoolIface)
		wantField string
		wantErr   bool
	}{
		{
			name: "created",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (email,username,password) VALUES ($1,$2,$3)")).
					WithArgs("a@b.io", "alice", "digest").
					WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(int64(1), "a@b.io", "alice", "digest"))
			},
		},
		{
			name: "email taken",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery("INSERT INTO users").
					WithArgs("a@b.io", "alice", "digest").
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			},
			wantField: "email",
		},
		{
			name: "username taken",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery("INSERT INTO users").
					WithArgs("a@b.io", "alice", "digest").
					WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})
			},
			wantField: "username",
		},
		{
			name: "other violation",
			setup: func(m pgxmock.PgxPoolIface) {
				m.ExpectQuery("INSERT INTO users").
					WithArgs("a@b.io", "alice", "digest").
					WillReturnError(&pgconn.PgError{Code: "23502"})
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mock := newMockPool(t)
			tt.setup(mock)

			got, err := NewUserStorage(mock, trmpgx.DefaultCtxGetter).CreateUser(context.Background(), in)
			switch {
			case tt.wantField != "":
				var conflict *service.ConflictError
				require.ErrorAs(t, err, &conflict)
				require.Equal(t, tt.wantField, conflict.Field)
			case tt.wantErr:
				require.Error(t, err)
				var conflict *service.ConflictError
				require.False(t, errors.As(err, &conflict))
			default:
				require.NoError(t, err)
				require.Equal(t, int64(1), got.ID)
			}
		})
	}
}

func TestUserStorage_GetUserByUsername(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectQuery("SELECT .+ FROM users WHERE username = \\$1").
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows(userRowColumns).AddRow(int64(1), "a@b.io", "alice", "digest"))
	mock.ExpectQuery("SELECT .+ FROM users WHERE username = \\$1").
		WithArgs("bob").
		WillReturnRows(pgxmock.NewRows(userRowColumns))

	st := NewUserStorage(mock, trmpgx.DefaultCtxGetter)

	got, err := st.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "digest", got.PasswordDigest)

	_, err = st.GetUserByUsername(context.Background(), "bob")
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestUserStorage_Exists(t *testing.T) {
	t.Parallel()

	mock := newMockPool(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS ( SELECT 1 FROM users WHERE email = $1 )")).
		WithArgs("a@b.io").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("alice").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	st := NewUserStorage(mock, trmpgx.DefaultCtxGetter)

	ok, err := st.EmailExists(context.Background(), "a@b.io")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.UsernameExists(context.Background(), "alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func Test_migrateURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pgx5://u:p@h:5432/db", migrateURL("postgres://u:p@h:5432/db"))
	require.Equal(t, "pgx5://u@h/db", migrateURL("postgresql://u@h/db"))
	require.Equal(t, "pgx5://h/db", migrateURL("pgx5://h/db"))
}
