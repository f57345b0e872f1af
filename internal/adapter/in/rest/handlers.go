package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"blogapi/internal/model"
	"blogapi/internal/service"
	"blogapi/pkg/logger"
	"blogapi/pkg/pagination"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type UserService interface {
	Register(ctx context.Context, body io.Reader) (model.User, error)
	Authenticate(ctx context.Context, username, password string) (model.User, error)
}

type PostService interface {
	CreatePost(ctx context.Context, req service.CreatePostRequest) (model.PostThread, error)
	UpdatePost(ctx context.Context, req service.UpdatePostRequest) (model.PostThread, error)
	DeletePost(ctx context.Context, req service.DeletePostRequest) error
	GetPostByID(ctx context.Context, postID int64) (model.PostThread, error)
	GetPosts(ctx context.Context, in pagination.PageRequest) (pagination.Page[model.PostThread], error)
}

type CommentService interface {
	CreateComment(ctx context.Context, req service.CreateCommentRequest) (model.Comment, error)
	UpdateComment(ctx context.Context, req service.UpdateCommentRequest) (model.Comment, error)
	DeleteComment(ctx context.Context, req service.DeleteCommentRequest) error
	Listen(ctx context.Context, postID int64) (<-chan model.Comment, error)
}

type handler struct {
	users       UserService
	posts       PostService
	comments    CommentService
	streamsDone <-chan struct{}
}

func (h *handler) index() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{
			"registration": absoluteURL(r, apiPrefix+"/registration"),
			"posts":        absoluteURL(r, apiPrefix+"/posts"),
		})
	}
}

func (h *handler) register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			writeMessage(w, r, http.StatusBadRequest, service.ErrUnauthorized.Error())
			return
		}

		body := requestBody(w, r)

		user, err := h.users.Register(r.Context(), body)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, map[string]userDTO{"user": toUserDTO(user)})
	}
}

func (h *handler) listPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		in := pagination.PageRequest{
			After:  q.Get("after"),
			Before: q.Get("before"),
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, r, fmt.Errorf("limit must be an integer: %w", service.ErrInvalidRequest))
				return
			}
			in.Limit = limit
		}

		page, err := h.posts.GetPosts(r.Context(), in)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if page.Count == 0 {
			writeMessage(w, r, http.StatusOK, "There is no posts")
			return
		}
		writeJSON(w, r, http.StatusOK, toPostsPageDTO(page))
	}
}

func (h *handler) getPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}

		post, err := h.posts.GetPostByID(r.Context(), postID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toPostDTO(post))
	}
}

func (h *handler) createPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := requestBody(w, r)

		post, err := h.posts.CreatePost(r.Context(), service.CreatePostRequest{
			Actor: userFromContext(r.Context()),
			Body:  body,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, toPostDTO(post))
	}
}

func (h *handler) updatePost(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}
		body := requestBody(w, r)

		post, err := h.posts.UpdatePost(r.Context(), service.UpdatePostRequest{
			Actor:   userFromContext(r.Context()),
			PostID:  postID,
			Body:    body,
			Partial: partial,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toPostDTO(post))
	}
}

func (h *handler) deletePost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}

		err := h.posts.DeletePost(r.Context(), service.DeletePostRequest{
			Actor:  userFromContext(r.Context()),
			PostID: postID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *handler) createComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}
		body := requestBody(w, r)

		comment, err := h.comments.CreateComment(r.Context(), service.CreateCommentRequest{
			Actor:  userFromContext(r.Context()),
			PostID: postID,
			Body:   body,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusCreated, toCommentDTO(comment))
	}
}

func (h *handler) updateComment(partial bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}
		commentID, ok := pathID(w, r, "commentID")
		if !ok {
			return
		}
		body := requestBody(w, r)

		comment, err := h.comments.UpdateComment(r.Context(), service.UpdateCommentRequest{
			Actor:     userFromContext(r.Context()),
			PostID:    postID,
			CommentID: commentID,
			Body:      body,
			Partial:   partial,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, r, http.StatusOK, toCommentDTO(comment))
	}
}

func (h *handler) deleteComment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}
		commentID, ok := pathID(w, r, "commentID")
		if !ok {
			return
		}

		err := h.comments.DeleteComment(r.Context(), service.DeleteCommentRequest{
			Actor:     userFromContext(r.Context()),
			PostID:    postID,
			CommentID: commentID,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// streamComments sends every comment created on the post as a server-sent
// event until the client goes away. Deleting the post or shutting the server
// down ends the stream as well.
func (h *handler) streamComments() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID, ok := pathID(w, r, "postID")
		if !ok {
			return
		}

		ctx := r.Context()
		comments, err := h.comments.Listen(ctx, postID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		rc := http.NewResponseController(w)
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			logger.FromContext(ctx).Error("stream without flush support", "error", err)
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-h.streamsDone:
				return
			case c, ok := <-comments:
				if !ok {
					return
				}
				data, err := json.Marshal(toCommentDTO(c))
				if err != nil {
					logger.FromContext(ctx).Error("marshal comment event", "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: comment\ndata: %s\n\n", data); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

// requestBody buffers the capped request body. A failed read is handed on
// as a reader that returns the error, so it surfaces when the service loads
// the body after its lookups.
func requestBody(w http.ResponseWriter, r *http.Request) io.Reader {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return failedBody{err: err}
	}
	return bytes.NewReader(body)
}

type failedBody struct {
	err error
}

func (b failedBody) Read([]byte) (int, error) {
	return 0, b.err
}

// pathID parses a numeric route parameter. Routes only match digits, so a
// failure here means the value overflowed and is answered like a missing
// route.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		writeMessage(w, r, http.StatusNotFound, "resource not found")
		return 0, false
	}
	return id, true
}

func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
