package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"blogapi/internal/model"
	"blogapi/pkg/schema"
)

//go:generate mockgen -source=users.go -destination=./users_mock.go -package=service
type UserStorage interface {
	CreateUser(ctx context.Context, user model.User) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) bool
}

type UserService struct {
	userStorage  UserStorage
	hasher       PasswordHasher
	tx           TxManager
	registration *schema.Schema
}

func NewUserService(userStorage UserStorage, hasher PasswordHasher, tx TxManager) *UserService {
	return &UserService{
		userStorage:  userStorage,
		hasher:       hasher,
		tx:           tx,
		registration: registrationSchema(userStorage),
	}
}

// Register validates body against the registration schema, including the
// email and username uniqueness lookups, and stores the new user.
func (s *UserService) Register(ctx context.Context, body io.Reader) (model.User, error) {
	return runMutation(ctx, s.tx, mutation[model.User]{
		body:   body,
		schema: s.registration,
		apply: func(ctx context.Context, f schema.Fields) (model.User, error) {
			password, _ := f.Get("password")
			digest, err := s.hasher.Hash(password)
			if err != nil {
				return model.User{}, fmt.Errorf("hash password: %w", err)
			}

			email, _ := f.Get("email")
			username, _ := f.Get("username")
			user, err := s.userStorage.CreateUser(ctx, model.User{
				Email:          email,
				Username:       username,
				PasswordDigest: digest,
			})

			var conflict *ConflictError
			if errors.As(err, &conflict) {
				return model.User{}, schema.Violation(conflict.Field, uniqueMessage(conflict.Field))
			}
			if err != nil {
				return model.User{}, err
			}
			return user, nil
		},
	})
}

func (s *UserService) Authenticate(ctx context.Context, username, password string) (model.User, error) {
	if username == "" || password == "" {
		return model.User{}, ErrUnauthorized
	}

	user, err := s.userStorage.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return model.User{}, ErrUnauthorized
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user by username: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordDigest) {
		return model.User{}, ErrUnauthorized
	}
	return user, nil
}
