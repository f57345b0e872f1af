package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const apiPrefix = "/api/v1"

type Services struct {
	Users    UserService
	Posts    PostService
	Comments CommentService
}

type Options struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	// StreamsDone ends every open comment stream once closed.
	StreamsDone <-chan struct{}
}

func NewRouter(svc Services, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	h := &handler{
		users:       svc.Users,
		posts:       svc.Posts,
		comments:    svc.Comments,
		streamsDone: opts.StreamsDone,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, apiPrefix+"/", http.StatusFound)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/", h.index())
		r.Post("/registration", h.register())

		r.Get("/posts", h.listPosts())
		r.Get("/posts/{postID:[0-9]+}", h.getPost())
		r.Get("/posts/{postID:[0-9]+}/comments/stream", h.streamComments())

		r.Group(func(r chi.Router) {
			r.Use(h.basicAuth)

			r.Post("/posts", h.createPost())
			r.Put("/posts/{postID:[0-9]+}", h.updatePost(false))
			r.Patch("/posts/{postID:[0-9]+}", h.updatePost(true))
			r.Delete("/posts/{postID:[0-9]+}", h.deletePost())

			r.Post("/posts/{postID:[0-9]+}/comments", h.createComment())
			r.Put("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}", h.updateComment(false))
			r.Patch("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}", h.updateComment(true))
			r.Delete("/posts/{postID:[0-9]+}/comments/{commentID:[0-9]+}", h.deleteComment())
		})
	})

	return r
}
