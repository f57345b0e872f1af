package service

import (
	"context"
	"errors"
	"fmt"

	"blogapi/internal/model"
	"blogapi/pkg/logger"
	"blogapi/pkg/schema"
)

//go:generate mockgen -source=comments.go -destination=./comments_mock.go -package=service
type CommentStorage interface {
	CreateComment(ctx context.Context, comment model.Comment) (model.Comment, error)
	GetCommentByID(ctx context.Context, commentID int64) (model.Comment, error)
	// GetCommentsByPosts returns the comments of the given posts ordered by id.
	GetCommentsByPosts(ctx context.Context, postIDs []int64) ([]model.Comment, error)
	UpdateComment(ctx context.Context, comment model.Comment) (model.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
	DeleteCommentsByPost(ctx context.Context, postID int64) error
}

type CommentBus interface {
	Subscribe(ctx context.Context, postID int64) (<-chan model.Comment, error)
	Publish(ctx context.Context, postID int64, c model.Comment) error
	CloseListeners(postID int64)
}

type CommentService struct {
	commentStorage CommentStorage
	postStorage    PostStorage
	commentBus     CommentBus
	tx             TxManager
}

func NewCommentService(commentStorage CommentStorage, postStorage PostStorage, commentBus CommentBus, tx TxManager) *CommentService {
	return &CommentService{
		commentStorage: commentStorage,
		postStorage:    postStorage,
		commentBus:     commentBus,
		tx:             tx,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, req CreateCommentRequest) (model.Comment, error) {
	if req.Actor == nil {
		return model.Comment{}, ErrUnauthorized
	}

	comment, err := runMutation(ctx, s.tx, mutation[model.Comment]{
		actor:  req.Actor,
		body:   req.Body,
		schema: commentSchema,
		locate: func(ctx context.Context) ([]Target, error) {
			post, err := s.lookupPost(ctx, req.PostID)
			if err != nil {
				return nil, err
			}
			return []Target{PostTarget(post)}, nil
		},
		apply: func(ctx context.Context, f schema.Fields) (model.Comment, error) {
			title, _ := f.Get("title")
			content, _ := f.Get("content")
			return s.commentStorage.CreateComment(ctx, model.Comment{
				PostID:   req.PostID,
				AuthorID: req.Actor.ID,
				Title:    title,
				Content:  content,
			})
		},
	})
	if err != nil {
		return model.Comment{}, err
	}

	if s.commentBus != nil {
		if err := s.commentBus.Publish(ctx, comment.PostID, comment); err != nil {
			logger.FromContext(ctx).Warn("publish comment", "comment_id", comment.ID, "error", err)
		}
	}
	return comment, nil
}

func (s *CommentService) UpdateComment(ctx context.Context, req UpdateCommentRequest) (model.Comment, error) {
	sch := commentSchema
	if req.Partial {
		sch = commentPatchSchema
	}

	var comment *model.Comment
	return runMutation(ctx, s.tx, mutation[model.Comment]{
		actor:  req.Actor,
		body:   req.Body,
		schema: sch,
		locate: func(ctx context.Context) ([]Target, error) {
			var (
				targets []Target
				err     error
			)
			targets, comment, err = s.locateComment(ctx, req.PostID, req.CommentID)
			return targets, err
		},
		ownerKey: "comment",
		apply: func(ctx context.Context, f schema.Fields) (model.Comment, error) {
			if v, ok := f.Get("title"); ok {
				comment.Title = v
			}
			if v, ok := f.Get("content"); ok {
				comment.Content = v
			}
			return s.commentStorage.UpdateComment(ctx, *comment)
		},
	})
}

func (s *CommentService) DeleteComment(ctx context.Context, req DeleteCommentRequest) error {
	_, err := runMutation(ctx, s.tx, mutation[struct{}]{
		actor: req.Actor,
		locate: func(ctx context.Context) ([]Target, error) {
			targets, _, err := s.locateComment(ctx, req.PostID, req.CommentID)
			return targets, err
		},
		ownerKey: "comment",
		apply: func(ctx context.Context, _ schema.Fields) (struct{}, error) {
			if err := s.commentStorage.DeleteComment(ctx, req.CommentID); err != nil {
				return struct{}{}, fmt.Errorf("delete comment %d: %w", req.CommentID, err)
			}
			return struct{}{}, nil
		},
	})
	return err
}

// Listen streams comments created on the post until ctx is done.
func (s *CommentService) Listen(ctx context.Context, postID int64) (<-chan model.Comment, error) {
	if s.commentBus == nil {
		return nil, errors.New("no comment bus configured")
	}

	post, err := s.lookupPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := Check([]Target{PostTarget(post)}, "", nil); err != nil {
		return nil, err
	}

	return s.commentBus.Subscribe(ctx, postID)
}

// locateComment looks up the post and then the comment. A comment that
// belongs to another post counts as missing.
func (s *CommentService) locateComment(ctx context.Context, postID, commentID int64) ([]Target, *model.Comment, error) {
	post, err := s.lookupPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return []Target{PostTarget(nil), CommentTarget(nil)}, nil, nil
	}

	c, err := s.commentStorage.GetCommentByID(ctx, commentID)
	comment, err := found(c, err)
	if err != nil {
		return nil, nil, err
	}
	if comment != nil && comment.PostID != post.ID {
		comment = nil
	}
	return []Target{PostTarget(post), CommentTarget(comment)}, comment, nil
}

func (s *CommentService) lookupPost(ctx context.Context, postID int64) (*model.Post, error) {
	p, err := s.postStorage.GetPostByID(ctx, postID)
	return found(p, err)
}
