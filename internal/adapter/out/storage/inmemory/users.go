package inmemory

import (
	"context"
	"sync"

	"blogapi/internal/model"
	"blogapi/internal/service"
)

var _ service.UserStorage = (*UserStorage)(nil)

type UserStorage struct {
	mu         sync.RWMutex
	users      []model.User
	byUsername map[string]int64
	byEmail    map[string]int64
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		users:      []model.User{{}},
		byUsername: make(map[string]int64),
		byEmail:    make(map[string]int64),
	}
}

// CreateUser reports a ConflictError when the email or username is taken.
func (s *UserStorage) CreateUser(_ context.Context, in model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[in.Email]; ok {
		return model.User{}, &service.ConflictError{Field: "email"}
	}
	if _, ok := s.byUsername[in.Username]; ok {
		return model.User{}, &service.ConflictError{Field: "username"}
	}

	in.ID = int64(len(s.users))
	s.users = append(s.users, in)
	s.byEmail[in.Email] = in.ID
	s.byUsername[in.Username] = in.ID
	return in, nil
}

func (s *UserStorage) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return model.User{}, service.ErrNotFound
	}
	return s.users[id], nil
}

func (s *UserStorage) EmailExists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *UserStorage) UsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byUsername[username]
	return ok, nil
}
