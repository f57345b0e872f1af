package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"blogapi/internal/adapter/out/storage"
	"blogapi/internal/model"
	"blogapi/internal/service"
)

var _ service.PostStorage = (*PostStorage)(nil)

// PostStorage keeps posts in a slice indexed by id. Deleted slots hold a
// zero post so ids are never reused.
type PostStorage struct {
	mu    sync.RWMutex
	posts []model.Post
	byID  map[int64]model.Post
	last  time.Time
}

func NewPostStorage() *PostStorage {
	return &PostStorage{
		posts: []model.Post{{}},
		byID:  make(map[int64]model.Post),
	}
}

func (s *PostStorage) CreatePost(_ context.Context, in model.Post) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	in.ID = int64(len(s.posts))
	in.PublishedAt = s.now()
	s.posts = append(s.posts, in)
	s.byID[in.ID] = in
	return in, nil
}

// now never goes backwards so id order and publication order agree.
func (s *PostStorage) now() time.Time {
	t := time.Now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func (s *PostStorage) GetPostByID(_ context.Context, postID int64) (model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if post, ok := s.byID[postID]; ok {
		return post, nil
	}
	return model.Post{}, service.ErrNotFound
}

func (s *PostStorage) UpdatePost(_ context.Context, in model.Post) (model.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byID[in.ID]
	if !ok {
		return model.Post{}, service.ErrNotFound
	}
	p.Title = in.Title
	p.Content = in.Content
	s.byID[p.ID] = p
	s.posts[p.ID] = p
	return p, nil
}

func (s *PostStorage) DeletePost(_ context.Context, postID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[postID]; !ok {
		return service.ErrNotFound
	}
	delete(s.byID, postID)
	s.posts[postID] = model.Post{}
	return nil
}

func (s *PostStorage) GetPosts(_ context.Context, limit int) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.posts) - 1
	if n <= 0 {
		return nil, nil
	}

	out := make([]model.Post, 0, min(limit, n))
	for id := n; id >= 1 && len(out) < limit; id-- {
		p := s.posts[id]
		if p.ID != 0 {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PostStorage) GetPostsWithCursor(_ context.Context, params storage.GetPostsParams) ([]model.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = service.DefaultPostsLimit
	}

	out := make([]model.Post, 0, limit)

	switch params.Direction {
	case storage.DirectionAfter:
		for id := min(int(params.Cursor.ID)-1, len(s.posts)-1); id >= 1 && len(out) < limit; id-- {
			if p := s.posts[id]; p.ID != 0 {
				out = append(out, p)
			}
		}
		return out, nil

	case storage.DirectionBefore:
		for id := max(int(params.Cursor.ID)+1, 1); id <= len(s.posts)-1 && len(out) < limit; id++ {
			if p := s.posts[id]; p.ID != 0 {
				out = append(out, p)
			}
		}
		slices.Reverse(out)
		return out, nil

	default:
		return nil, storage.ErrDirectionUnset
	}
}
