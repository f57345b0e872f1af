package service

import (
	"fmt"
	"io"

	"blogapi/internal/adapter/out/storage"
	"blogapi/internal/model"
	"blogapi/pkg/pagination"
)

type CreatePostRequest struct {
	Actor *model.User
	Body  io.Reader
}

// UpdatePostRequest replaces title and content, or with Partial set, only
// the fields present in Body.
type UpdatePostRequest struct {
	Actor   *model.User
	PostID  int64
	Body    io.Reader
	Partial bool
}

type DeletePostRequest struct {
	Actor  *model.User
	PostID int64
}

type CreateCommentRequest struct {
	Actor  *model.User
	PostID int64
	Body   io.Reader
}

type UpdateCommentRequest struct {
	Actor     *model.User
	PostID    int64
	CommentID int64
	Body      io.Reader
	Partial   bool
}

type DeleteCommentRequest struct {
	Actor     *model.User
	PostID    int64
	CommentID int64
}

func validatePagination(in pagination.PageRequest) error {
	if in.Before != "" && in.After != "" {
		return fmt.Errorf("both cursors provided: %w", ErrInvalidRequest)
	}
	if in.Limit < 0 {
		return fmt.Errorf("limit must be >= 0: %w", ErrInvalidRequest)
	}
	return nil
}

func toGetPostsParams(in pagination.PageRequest) (storage.GetPostsParams, error) {
	if err := validatePagination(in); err != nil {
		return storage.GetPostsParams{}, err
	}

	if in.Limit <= 0 {
		in.Limit = DefaultPostsLimit
	}
	in.Limit = min(in.Limit, MaxPostsLimit)

	var params storage.GetPostsParams
	params.Limit = in.Limit

	switch {
	case in.Before != "":
		cur, err := pagination.Decode(in.Before)
		if err != nil {
			return storage.GetPostsParams{}, fmt.Errorf("error decoding before-cursor: %w: %v", ErrInvalidRequest, err)
		}
		params.Cursor = cur
		params.Direction = storage.DirectionBefore
	case in.After != "":
		cur, err := pagination.Decode(in.After)
		if err != nil {
			return storage.GetPostsParams{}, fmt.Errorf("error decoding after-cursor: %w: %v", ErrInvalidRequest, err)
		}
		params.Cursor = cur
		params.Direction = storage.DirectionAfter
	default:
		return storage.GetPostsParams{}, fmt.Errorf("cursor is required: %w", ErrInvalidRequest)
	}

	return params, nil
}
