package rest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blogapi/internal/adapter/out/hasher"
	bus "blogapi/internal/adapter/out/pubsub/inmemory"
	memstore "blogapi/internal/adapter/out/storage/inmemory"
	"blogapi/internal/service"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testAPI struct {
	t           *testing.T
	handler     http.Handler
	comments    *memstore.CommentStorage
	streamsDone chan struct{}
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	users := memstore.NewUserStorage()
	posts := memstore.NewPostStorage()
	comments := memstore.NewCommentStorage()
	tx := memstore.NewTxManager()
	commentBus := bus.New(8)
	streamsDone := make(chan struct{})

	h := NewRouter(Services{
		Users:    service.NewUserService(users, hasher.New(bcrypt.MinCost), tx),
		Posts:    service.NewPostService(posts, comments, commentBus, tx),
		Comments: service.NewCommentService(comments, posts, commentBus, tx),
	}, Options{StreamsDone: streamsDone})

	return &testAPI{t: t, handler: h, comments: comments, streamsDone: streamsDone}
}

type creds struct {
	username, password string
}

func (a *testAPI) do(method, path, body string, auth *creds) *httptest.ResponseRecorder {
	a.t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if auth != nil {
		req.SetBasicAuth(auth.username, auth.password)
	}

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) register(username string) *creds {
	a.t.Helper()

	rec := a.do(http.MethodPost, "/api/v1/registration",
		`{"email":"`+username+`@example.com","username":"`+username+`","password":"secret"}`, nil)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return &creds{username: username, password: "secret"}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRegistration(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/v1/registration", `{"email":"a@b.io","username":"alice","password":"secret"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.JSONEq(t, `{"user":{"id":1,"email":"a@b.io","username":"alice"}}`, rec.Body.String())
	require.NotContains(t, rec.Body.String(), "secret")

	tests := []struct {
		name     string
		body     string
		auth     *creds
		wantCode int
		wantBody string
	}{
		{
			name:     "duplicate email and username",
			body:     `{"email":"a@b.io","username":"alice","password":"other"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"email":["email already exists"],"username":["name already exists"]}`,
		},
		{
			name:     "already authenticated",
			body:     `{"email":"c@d.io","username":"carol","password":"secret"}`,
			auth:     &creds{username: "alice", password: "secret"},
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"access denied"}`,
		},
		{
			name:     "no input",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"no input data provided"}`,
		},
		{
			name:     "invalid fields",
			body:     `{"email":"nope","username":"ab","password":"123"}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"email":["Not a valid email address."],"username":["Shorter than minimum length 3."],"password":["Shorter than minimum length 4."]}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/registration", tt.body, tt.auth)
			require.Equal(t, tt.wantCode, rec.Code)
			require.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.register("alice")

	tests := []struct {
		name string
		auth *creds
	}{
		{name: "no credentials"},
		{name: "wrong password", auth: &creds{username: "alice", password: "nope"}},
		{name: "unknown user", auth: &creds{username: "bob", password: "secret"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(http.MethodPost, "/api/v1/posts", `{"title":"t","content":"c"}`, tt.auth)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.JSONEq(t, `{"message":"access denied"}`, rec.Body.String())
			require.Equal(t, authRealm, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestPosts_RegisterPostList(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"There is no posts"}`, rec.Body.String())

	alice := api.register("alice")

	rec = api.do(http.MethodPost, "/api/v1/posts", `{"title":"Hi","content":"First"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)
	require.Equal(t, float64(1), created["id"])
	require.Equal(t, float64(1), created["author_id"])
	require.Equal(t, "Hi", created["title"])
	require.Equal(t, "First", created["content"])
	require.Equal(t, []any{}, created["comments"])

	_, err := time.Parse(dateLayout, created["publication_datetime"].(string))
	require.NoError(t, err)

	rec = api.do(http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	data := page["data"].([]any)
	require.Len(t, data, 1)
	require.Equal(t, "Hi", data[0].(map[string]any)["title"])
	info := page["pagination"].(map[string]any)
	require.Equal(t, float64(1), info["count"])
	require.Equal(t, false, info["has_next_page"])

	rec = api.do(http.MethodGet, "/api/v1/posts/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "First", decode(t, rec)["content"])
}

func TestPosts_Paging(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("alice")
	for _, title := range []string{"one", "two", "three"} {
		rec := api.do(http.MethodPost, "/api/v1/posts", `{"title":"`+title+`","content":"c"}`, alice)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := api.do(http.MethodGet, "/api/v1/posts?limit=2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode(t, rec)
	require.Len(t, page["data"], 2)
	require.Equal(t, "three", page["data"].([]any)[0].(map[string]any)["title"])
	info := page["pagination"].(map[string]any)
	require.Equal(t, true, info["has_next_page"])

	rec = api.do(http.MethodGet, "/api/v1/posts?limit=2&after="+info["end_cursor"].(string), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page = decode(t, rec)
	require.Len(t, page["data"], 1)
	require.Equal(t, "one", page["data"].([]any)[0].(map[string]any)["title"])

	for _, q := range []string{"limit=x", "limit=-1", "after=bogus", "after=a&before=b"} {
		rec = api.do(http.MethodGet, "/api/v1/posts?"+q, "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func pageIDs(t *testing.T, page map[string]any) []int64 {
	t.Helper()
	var ids []int64
	for _, item := range page["data"].([]any) {
		ids = append(ids, int64(item.(map[string]any)["id"].(float64)))
	}
	return ids
}

func TestPosts_PagingBackAndForth(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("alice")
	for i := 0; i < 6; i++ {
		rec := api.do(http.MethodPost, "/api/v1/posts", `{"title":"t","content":"c"}`, alice)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	get := func(query string) map[string]any {
		rec := api.do(http.MethodGet, "/api/v1/posts?"+query, "", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		return decode(t, rec)
	}
	info := func(page map[string]any) map[string]any {
		return page["pagination"].(map[string]any)
	}

	first := get("limit=2")
	require.Equal(t, []int64{6, 5}, pageIDs(t, first))

	second := get("limit=2&after=" + info(first)["end_cursor"].(string))
	require.Equal(t, []int64{4, 3}, pageIDs(t, second))
	require.Equal(t, true, info(second)["has_next_page"])

	back := get("limit=2&before=" + info(second)["end_cursor"].(string))
	require.Equal(t, []int64{5, 4}, pageIDs(t, back))
	require.Equal(t, true, info(back)["has_previous_page"])

	top := get("limit=2&before=" + info(second)["start_cursor"].(string))
	require.Equal(t, []int64{6, 5}, pageIDs(t, top))
	require.Equal(t, false, info(top)["has_previous_page"])

	rec := api.do(http.MethodGet, "/api/v1/posts?limit=2&before="+info(first)["start_cursor"].(string), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"There is no posts"}`, rec.Body.String())
}

func TestPosts_OwnershipAndPatch(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("alice")
	bob := api.register("bob")

	rec := api.do(http.MethodPost, "/api/v1/posts", `{"title":"T","content":"C"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, method := range []string{http.MethodPut, http.MethodPatch, http.MethodDelete} {
		rec = api.do(method, "/api/v1/posts/1", `{"title":"X","content":"Y"}`, bob)
		require.Equal(t, http.StatusForbidden, rec.Code, method)
		require.JSONEq(t, `{"message":"you cannot edit this post"}`, rec.Body.String())
	}

	rec = api.do(http.MethodGet, "/api/v1/posts/1", "", nil)
	got := decode(t, rec)
	require.Equal(t, "T", got["title"])
	require.Equal(t, "C", got["content"])

	rec = api.do(http.MethodPatch, "/api/v1/posts/1", `{"title":"New"}`, alice)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got = decode(t, rec)
	require.Equal(t, "New", got["title"])
	require.Equal(t, "C", got["content"])

	rec = api.do(http.MethodPut, "/api/v1/posts/1", `{"title":"Only"}`, alice)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"content":["Missing data for required field."]}`, rec.Body.String())

	rec = api.do(http.MethodPatch, "/api/v1/posts/1", `{"title":"","author_id":2,"color":"red"}`, alice)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"title":["Shorter than minimum length 1."],"color":["Unknown field."]}`, rec.Body.String())
}

func TestPosts_NotFoundBeforeValidation(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("alice")
	oversized := `{"title":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "put on missing post with garbage",
			method:   http.MethodPut,
			path:     "/api/v1/posts/999",
			body:     `garbage`,
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"post not found"}`,
		},
		{
			name:     "comment on missing post",
			method:   http.MethodPost,
			path:     "/api/v1/posts/999/comments",
			body:     `{}`,
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"post not found"}`,
		},
		{
			name:     "get missing post",
			method:   http.MethodGet,
			path:     "/api/v1/posts/999",
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"post not found"}`,
		},
		{
			name:     "non numeric id",
			method:   http.MethodGet,
			path:     "/api/v1/posts/abc",
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"resource not found"}`,
		},
		{
			name:     "oversized body on missing post",
			method:   http.MethodPatch,
			path:     "/api/v1/posts/999",
			body:     oversized,
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"post not found"}`,
		},
		{
			name:     "oversized comment on missing post",
			method:   http.MethodPost,
			path:     "/api/v1/posts/999/comments",
			body:     oversized,
			wantCode: http.StatusNotFound,
			wantBody: `{"message":"post not found"}`,
		},
		{
			name:     "oversized body on create",
			method:   http.MethodPost,
			path:     "/api/v1/posts",
			body:     oversized,
			wantCode: http.StatusRequestEntityTooLarge,
			wantBody: `{"message":"request body too large"}`,
		},
		{
			name:     "create with empty object",
			method:   http.MethodPost,
			path:     "/api/v1/posts",
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"message":"no input data provided"}`,
		},
		{
			name:     "create with array",
			method:   http.MethodPost,
			path:     "/api/v1/posts",
			body:     `[1]`,
			wantCode: http.StatusBadRequest,
			wantBody: `{"_schema":["Invalid input type."]}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(tt.method, tt.path, tt.body, alice)
			require.Equal(t, tt.wantCode, rec.Code)
			require.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestComments_Lifecycle(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("alice")
	bob := api.register("bob")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts", `{"title":"P1","content":"c"}`, alice).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts", `{"title":"P2","content":"c"}`, alice).Code)

	rec := api.do(http.MethodPost, "/api/v1/posts/1/comments", `{"title":"nice","content":"post"}`, bob)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decode(t, rec)
	require.Equal(t, float64(1), comment["post_id"])
	require.Equal(t, float64(2), comment["author_id"])

	rec = api.do(http.MethodPatch, "/api/v1/posts/2/comments/1", `{"content":"x"}`, bob)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"comment not found"}`, rec.Body.String())

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rec = api.do(method, "/api/v1/posts/1/comments/1", `{"title":"x","content":"x"}`, alice)
		require.Equal(t, http.StatusForbidden, rec.Code, method)
		require.JSONEq(t, `{"message":"you cannot edit this comment"}`, rec.Body.String())
	}

	rec = api.do(http.MethodGet, "/api/v1/posts/1", "", nil)
	unchanged := decode(t, rec)["comments"].([]any)[0].(map[string]any)
	require.Equal(t, "nice", unchanged["title"])
	require.Equal(t, "post", unchanged["content"])

	rec = api.do(http.MethodPatch, "/api/v1/posts/1/comments/1", `{"content":"edited"}`, bob)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "edited", decode(t, rec)["content"])

	rec = api.do(http.MethodGet, "/api/v1/posts/1", "", nil)
	comments := decode(t, rec)["comments"].([]any)
	require.Len(t, comments, 1)
	require.Equal(t, "nice", comments[0].(map[string]any)["title"])

	rec = api.do(http.MethodDelete, "/api/v1/posts/1/comments/1", "", alice)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodDelete, "/api/v1/posts/1/comments/1", "", bob)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, rec.Body.String())

	rec = api.do(http.MethodDelete, "/api/v1/posts/1/comments/1", "", bob)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPosts_DeleteCascades(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	alice := api.register("alice")
	bob := api.register("bob")

	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts", `{"title":"P","content":"c"}`, alice).Code)
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts/1/comments", `{"title":"a","content":"b"}`, bob).Code)

	rec := api.do(http.MethodDelete, "/api/v1/posts/1", "", alice)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(http.MethodGet, "/api/v1/posts/1", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	_, err := api.comments.GetCommentByID(context.Background(), 1)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestIndexAndHealth(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	rec := api.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/api/v1/", rec.Header().Get("Location"))

	rec = api.do(http.MethodGet, "/api/v1/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"registration":"http://example.com/api/v1/registration","posts":"http://example.com/api/v1/posts"}`, rec.Body.String())

	rec = api.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())

	rec = api.do(http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"resource not found"}`, rec.Body.String())
}

func TestCommentStream(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	srv := httptest.NewServer(api.handler)
	defer srv.Close()

	alice := api.register("alice")
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts", `{"title":"P","content":"c"}`, alice).Code)

	resp, err := http.Get(srv.URL + "/api/v1/posts/2/comments/stream")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/posts/1/comments/stream", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	rec := api.do(http.MethodPost, "/api/v1/posts/1/comments", `{"title":"live","content":"now"}`, alice)
	require.Equal(t, http.StatusCreated, rec.Code)

	reader := bufio.NewReader(resp.Body)
	event, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: comment\n", event)

	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(data, "data: "))

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &got))
	require.Equal(t, "live", got["title"])
}

func openStream(t *testing.T, srv *httptest.Server, postID string) *bufio.Reader {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/posts/"+postID+"/comments/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return bufio.NewReader(resp.Body)
}

func TestCommentStream_Ends(t *testing.T) {
	t.Parallel()

	t.Run("when the post is deleted", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		srv := httptest.NewServer(api.handler)
		defer srv.Close()

		alice := api.register("alice")
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts", `{"title":"P","content":"c"}`, alice).Code)

		stream := openStream(t, srv, "1")
		require.Equal(t, http.StatusNoContent, api.do(http.MethodDelete, "/api/v1/posts/1", "", alice).Code)

		_, err := stream.ReadString('\n')
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("when the server shuts down", func(t *testing.T) {
		t.Parallel()

		api := newTestAPI(t)
		srv := httptest.NewServer(api.handler)
		defer srv.Close()

		alice := api.register("alice")
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/posts", `{"title":"P","content":"c"}`, alice).Code)

		stream := openStream(t, srv, "1")
		close(api.streamsDone)

		_, err := stream.ReadString('\n')
		require.ErrorIs(t, err, io.EOF)
	})
}
