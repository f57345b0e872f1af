package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"blogapi/internal/model"
	"blogapi/internal/service"
)

var _ service.CommentStorage = (*CommentStorage)(nil)

type CommentStorage struct {
	mu sync.RWMutex

	comments []model.Comment
	byPost   map[int64][]int64
}

func NewCommentStorage() *CommentStorage {
	return &CommentStorage{
		comments: []model.Comment{{}},
		byPost:   make(map[int64][]int64),
	}
}

func (s *CommentStorage) CreateComment(_ context.Context, in model.Comment) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = int64(len(s.comments))
	in.PublishedAt = time.Now()

	s.comments = append(s.comments, in)
	s.byPost[in.PostID] = append(s.byPost[in.PostID], in.ID)
	return in, nil
}

func (s *CommentStorage) GetCommentByID(_ context.Context, commentID int64) (model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.get(commentID)
	if !ok {
		return model.Comment{}, service.ErrNotFound
	}
	return c, nil
}

func (s *CommentStorage) GetCommentsByPosts(_ context.Context, postIDs []int64) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Comment
	for _, postID := range postIDs {
		for _, id := range s.byPost[postID] {
			out = append(out, s.comments[id])
		}
	}
	slices.SortFunc(out, func(a, b model.Comment) int {
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (s *CommentStorage) UpdateComment(_ context.Context, in model.Comment) (model.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.get(in.ID)
	if !ok {
		return model.Comment{}, service.ErrNotFound
	}
	c.Title = in.Title
	c.Content = in.Content
	s.comments[c.ID] = c
	return c, nil
}

func (s *CommentStorage) DeleteComment(_ context.Context, commentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.get(commentID)
	if !ok {
		return service.ErrNotFound
	}

	s.byPost[c.PostID] = slices.DeleteFunc(s.byPost[c.PostID], func(id int64) bool { return id == commentID })
	if len(s.byPost[c.PostID]) == 0 {
		delete(s.byPost, c.PostID)
	}
	s.comments[commentID] = model.Comment{}
	return nil
}

func (s *CommentStorage) DeleteCommentsByPost(_ context.Context, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.byPost[postID] {
		s.comments[id] = model.Comment{}
	}
	delete(s.byPost, postID)
	return nil
}

func (s *CommentStorage) get(commentID int64) (model.Comment, bool) {
	if commentID <= 0 || int(commentID) >= len(s.comments) {
		return model.Comment{}, false
	}
	c := s.comments[commentID]
	return c, c.ID != 0
}
