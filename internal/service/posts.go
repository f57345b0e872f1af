package service

import (
	"context"
	"fmt"

	"blogapi/internal/adapter/out/storage"
	"blogapi/internal/model"
	"blogapi/pkg/pagination"
	"blogapi/pkg/schema"
)

const (
	DefaultPostsLimit = 50
	MaxPostsLimit     = 250
)

//go:generate mockgen -source=posts.go -destination=./posts_mock.go -package=service
type PostStorage interface {
	CreatePost(ctx context.Context, post model.Post) (model.Post, error)
	GetPostByID(ctx context.Context, postID int64) (model.Post, error)
	GetPosts(ctx context.Context, limit int) ([]model.Post, error)
	GetPostsWithCursor(ctx context.Context, params storage.GetPostsParams) ([]model.Post, error)
	UpdatePost(ctx context.Context, post model.Post) (model.Post, error)
	DeletePost(ctx context.Context, postID int64) error
}

type PostService struct {
	postStorage    PostStorage
	commentStorage CommentStorage
	commentBus     CommentBus
	tx             TxManager
}

func NewPostService(postStorage PostStorage, commentStorage CommentStorage, commentBus CommentBus, tx TxManager) *PostService {
	return &PostService{
		postStorage:    postStorage,
		commentStorage: commentStorage,
		commentBus:     commentBus,
		tx:             tx,
	}
}

func (s *PostService) CreatePost(ctx context.Context, req CreatePostRequest) (model.PostThread, error) {
	if req.Actor == nil {
		return model.PostThread{}, ErrUnauthorized
	}

	return runMutation(ctx, s.tx, mutation[model.PostThread]{
		actor:  req.Actor,
		body:   req.Body,
		schema: postSchema,
		apply: func(ctx context.Context, f schema.Fields) (model.PostThread, error) {
			title, _ := f.Get("title")
			content, _ := f.Get("content")

			post, err := s.postStorage.CreatePost(ctx, model.Post{
				AuthorID: req.Actor.ID,
				Title:    title,
				Content:  content,
			})
			if err != nil {
				return model.PostThread{}, err
			}
			return model.PostThread{Post: post, Comments: []model.Comment{}}, nil
		},
	})
}

func (s *PostService) UpdatePost(ctx context.Context, req UpdatePostRequest) (model.PostThread, error) {
	sch := postSchema
	if req.Partial {
		sch = postPatchSchema
	}

	var post *model.Post
	return runMutation(ctx, s.tx, mutation[model.PostThread]{
		actor:  req.Actor,
		body:   req.Body,
		schema: sch,
		locate: func(ctx context.Context) ([]Target, error) {
			p, err := s.postStorage.GetPostByID(ctx, req.PostID)
			if post, err = found(p, err); err != nil {
				return nil, err
			}
			return []Target{PostTarget(post)}, nil
		},
		ownerKey: "post",
		apply: func(ctx context.Context, f schema.Fields) (model.PostThread, error) {
			if v, ok := f.Get("title"); ok {
				post.Title = v
			}
			if v, ok := f.Get("content"); ok {
				post.Content = v
			}

			updated, err := s.postStorage.UpdatePost(ctx, *post)
			if err != nil {
				return model.PostThread{}, err
			}
			return s.thread(ctx, updated)
		},
	})
}

// DeletePost removes the post's comments and then the post itself. Open
// comment streams of the post end once the delete is committed.
func (s *PostService) DeletePost(ctx context.Context, req DeletePostRequest) error {
	_, err := runMutation(ctx, s.tx, mutation[struct{}]{
		actor: req.Actor,
		locate: func(ctx context.Context) ([]Target, error) {
			p, err := s.postStorage.GetPostByID(ctx, req.PostID)
			post, err := found(p, err)
			if err != nil {
				return nil, err
			}
			return []Target{PostTarget(post)}, nil
		},
		ownerKey: "post",
		apply: func(ctx context.Context, _ schema.Fields) (struct{}, error) {
			if err := s.commentStorage.DeleteCommentsByPost(ctx, req.PostID); err != nil {
				return struct{}{}, fmt.Errorf("delete comments of post %d: %w", req.PostID, err)
			}
			if err := s.postStorage.DeletePost(ctx, req.PostID); err != nil {
				return struct{}{}, fmt.Errorf("delete post %d: %w", req.PostID, err)
			}
			return struct{}{}, nil
		},
	})
	if err != nil {
		return err
	}

	if s.commentBus != nil {
		s.commentBus.CloseListeners(req.PostID)
	}
	return nil
}

func (s *PostService) GetPostByID(ctx context.Context, postID int64) (model.PostThread, error) {
	p, err := s.postStorage.GetPostByID(ctx, postID)
	post, err := found(p, err)
	if err != nil {
		return model.PostThread{}, err
	}
	if err := Check([]Target{PostTarget(post)}, "", nil); err != nil {
		return model.PostThread{}, err
	}
	return s.thread(ctx, *post)
}

// GetPosts returns posts newest first, each with its comments.
func (s *PostService) GetPosts(ctx context.Context, in pagination.PageRequest) (pagination.Page[model.PostThread], error) {
	var (
		posts []model.Post
		err   error
		page  pagination.Page[model.PostThread]
	)

	if err := validatePagination(in); err != nil {
		return page, err
	}

	limit := in.Limit
	if limit <= 0 {
		limit = DefaultPostsLimit
	}
	if limit > MaxPostsLimit {
		limit = MaxPostsLimit
	}
	peek := limit + 1

	switch {
	case in.After == "" && in.Before == "":
		posts, err = s.postStorage.GetPosts(ctx, peek)
		if err != nil {
			return page, err
		}

	default:
		params, err := toGetPostsParams(in)
		if err != nil {
			return page, err
		}
		params.Limit = peek
		posts, err = s.postStorage.GetPostsWithCursor(ctx, params)
		if err != nil {
			return page, err
		}
	}

	if len(posts) == 0 {
		return page, nil
	}

	// Both directions come back newest first, so the extra row is the last
	// one of a forward page and the first one of a before page.
	extra := len(posts) > limit
	if in.Before != "" {
		page.HasPreviousPage = extra
		if extra {
			posts = posts[len(posts)-limit:]
		}
	} else {
		page.HasNextPage = extra
		if extra {
			posts = posts[:limit]
		}
	}

	threads, err := s.threads(ctx, posts)
	if err != nil {
		return page, err
	}

	page.Items = threads
	page.Count = len(threads)

	startCursor := pagination.Cursor{PublishedAt: posts[0].PublishedAt, ID: posts[0].ID}
	endCursor := pagination.Cursor{PublishedAt: posts[len(posts)-1].PublishedAt, ID: posts[len(posts)-1].ID}
	page.StartCursor, page.EndCursor = startCursor.Encode(), endCursor.Encode()
	return page, nil
}

func (s *PostService) thread(ctx context.Context, post model.Post) (model.PostThread, error) {
	threads, err := s.threads(ctx, []model.Post{post})
	if err != nil {
		return model.PostThread{}, err
	}
	return threads[0], nil
}

func (s *PostService) threads(ctx context.Context, posts []model.Post) ([]model.PostThread, error) {
	ids := make([]int64, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	comments, err := s.commentStorage.GetCommentsByPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}

	byPost := make(map[int64][]model.Comment, len(posts))
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
	}

	out := make([]model.PostThread, 0, len(posts))
	for _, p := range posts {
		cs := byPost[p.ID]
		if cs == nil {
			cs = []model.Comment{}
		}
		out = append(out, model.PostThread{Post: p, Comments: cs})
	}
	return out, nil
}
