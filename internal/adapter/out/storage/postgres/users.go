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

var _ service.UserStorage = (*UserStorage)(nil)

var userColumns = []string{
	tableinfo.UserIDColumn,
	tableinfo.UserEmailColumn,
	tableinfo.UserUsernameColumn,
	tableinfo.UserPasswordColumn,
}

type UserStorage struct {
	db     trmpgx.Tr
	getter *trmpgx.CtxGetter
}

func NewUserStorage(db trmpgx.Tr, getter *trmpgx.CtxGetter) *UserStorage {
	return &UserStorage{db: db, getter: getter}
}

func (s *UserStorage) CreateUser(ctx context.Context, in model.User) (model.User, error) {
	var out model.User

	query, args, err := sq.
		Insert(tableinfo.UsersTableName).
		Columns(
			tableinfo.UserEmailColumn,
			tableinfo.UserUsernameColumn,
			tableinfo.UserPasswordColumn,
		).
		Values(in.Email, in.Username, in.PasswordDigest).
		Suffix("RETURNING " + joinColumns(userColumns)).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	if err := tr.QueryRow(ctx, query, args...).Scan(
		&out.ID,
		&out.Email,
		&out.Username,
		&out.PasswordDigest,
	); err != nil {
		if conflict := asConflict(err); conflict != nil {
			return model.User{}, conflict
		}
		return model.User{}, fmt.Errorf("exec error creating user: %w", err)
	}

	return out, nil
}

func (s *UserStorage) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var out model.User

	query, args, err := sq.
		Select(userColumns...).
		From(tableinfo.UsersTableName).
		Where(sq.Eq{tableinfo.UserUsernameColumn: username}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)
	if err := tr.QueryRow(ctx, query, args...).Scan(
		&out.ID,
		&out.Email,
		&out.Username,
		&out.PasswordDigest,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, service.ErrNotFound
		}
		return model.User{}, fmt.Errorf("exec select user by username: %w", err)
	}

	return out, nil
}

func (s *UserStorage) EmailExists(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, tableinfo.UserEmailColumn, email)
}

func (s *UserStorage) UsernameExists(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, tableinfo.UserUsernameColumn, username)
}

func (s *UserStorage) exists(ctx context.Context, column, value string) (bool, error) {
	query, args, err := sq.
		Select("1").
		Prefix("SELECT EXISTS (").
		From(tableinfo.UsersTableName).
		Where(sq.Eq{column: value}).
		Suffix(")").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBuildingQuery, err)
	}

	tr := s.getter.DefaultTrOrDB(ctx, s.db)

	var ok bool
	if err := tr.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("exec select %s exists: %w", column, err)
	}
	return ok, nil
}
