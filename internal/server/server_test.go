package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/memstore"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	srv    *Server
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env:         "test",
		JWTSecret:   "test-secret",
		CORSOrigins: []string{"*"},
		RateRPS:     1000,
		RateBurst:   1000,
	}
	srv := New(cfg, memstore.New())
	return &testAPI{t: t, router: srv.RegisterRoutes(), srv: srv}
}

func (a *testAPI) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func (a *testAPI) register(name string) (token, id string) {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/register", "", gin.H{
		"name": name, "email": name + "@campus.edu", "password": "secret1",
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	return body["token"].(string), body["user"].(map[string]any)["id"].(string)
}

func (a *testAPI) createPost(token, title string) string {
	a.t.Helper()
	code, body := a.do(http.MethodPost, "/api/posts", token, gin.H{
		"title": title, "content": "body of " + title, "category": "Academics", "tags": []string{"Exams"},
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	return body["post"].(map[string]any)["id"].(string)
}

func (a *testAPI) comment(token, postID, parentID, content string) string {
	a.t.Helper()
	req := gin.H{"postId": postID, "content": content}
	if parentID != "" {
		req["parentCommentId"] = parentID
	}
	code, body := a.do(http.MethodPost, "/api/posts/comments", token, req)
	require.Equal(a.t, http.StatusCreated, code, body)
	return body["comment"].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	code, body := api.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "up", body["status"])
}

func TestAccounts(t *testing.T) {
	api := newTestAPI(t)
	token, id := api.register("ada")

	code, body := api.do(http.MethodPost, "/api/register", "", gin.H{
		"name": "ada", "email": "ada@campus.edu", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])

	code, body = api.do(http.MethodPost, "/api/login", "", gin.H{"email": "ada@campus.edu", "password": "secret1"})
	assert.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, body["token"])

	code, _ = api.do(http.MethodPost, "/api/login", "", gin.H{"email": "ada@campus.edu", "password": "nope12"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body = api.do(http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusOK, code)
	user := body["user"].(map[string]any)
	assert.Equal(t, id, user["id"])
	assert.NotContains(t, user, "password")

	code, body = api.do(http.MethodGet, "/api/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, body = api.do(http.MethodGet, "/api/users/"+id, "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ada", body["user"].(map[string]any)["name"])

	code, _ = api.do(http.MethodGet, "/api/users/"+models.NewID(), "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPostLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ada, adaID := api.register("ada")
	bob, _ := api.register("bob")

	code, body := api.do(http.MethodPost, "/api/posts", ada, gin.H{"title": "", "content": "x"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Title and content are required", body["message"])

	code, _ = api.do(http.MethodPost, "/api/posts", "", gin.H{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusUnauthorized, code)

	id := api.createPost(ada, "Midterm tips")

	code, body = api.do(http.MethodGet, "/api/posts/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	post := body["post"].(map[string]any)
	assert.Equal(t, "Midterm tips", post["title"])
	assert.Equal(t, []any{"exams"}, post["tags"])
	assert.Equal(t, adaID, post["author"].(map[string]any)["id"])
	assert.Equal(t, "ada@campus.edu", post["author"].(map[string]any)["email"])

	code, body = api.do(http.MethodPut, "/api/posts/"+id, bob, gin.H{"title": "hijack"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Not authorized to update this post", body["message"])

	code, body = api.do(http.MethodPut, "/api/posts/"+id, ada, gin.H{"title": "Final tips"})
	require.Equal(t, http.StatusOK, code)
	post = body["post"].(map[string]any)
	assert.Equal(t, "Final tips", post["title"])
	assert.Equal(t, true, post["isEdited"])

	code, body = api.do(http.MethodPost, "/api/posts/"+id+"/like", bob, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["likesCount"])

	code, body = api.do(http.MethodPost, "/api/posts/"+id+"/like", bob, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["liked"])
	assert.Equal(t, float64(0), body["likesCount"])

	code, body = api.do(http.MethodGet, "/api/posts/user", ada, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 1)

	code, _ = api.do(http.MethodDelete, "/api/posts/"+id, bob, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body = api.do(http.MethodDelete, "/api/posts/"+id, ada, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Post deleted successfully", body["message"])

	code, _ = api.do(http.MethodGet, "/api/posts/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(http.MethodGet, "/api/posts/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid post ID", body["message"])
}

func TestAdminCanDeleteAnyPost(t *testing.T) {
	api := newTestAPI(t)
	ada, _ := api.register("ada")
	mod, _ := api.register("mod")
	_, err := api.srv.accounts.MakeAdmin(context.Background(), "mod@campus.edu")
	require.NoError(t, err)

	id := api.createPost(ada, "rule breaking")
	code, _ := api.do(http.MethodPut, "/api/posts/"+id, mod, gin.H{"title": "edited by mod"})
	assert.Equal(t, http.StatusForbidden, code, "admins may delete but not edit")

	code, _ = api.do(http.MethodDelete, "/api/posts/"+id, mod, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestListingEndpoints(t *testing.T) {
	api := newTestAPI(t)
	ada, adaID := api.register("ada")
	api.createPost(ada, "Library hours")
	api.createPost(ada, "Parking permits")

	code, body := api.do(http.MethodGet, "/api/posts?limit=1&page=2", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 1)
	assert.Equal(t, map[string]any{"page": float64(2), "limit": float64(1), "total": float64(2), "pages": float64(2)}, body["pagination"])

	code, body = api.do(http.MethodGet, "/api/posts?sort=bogus", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid sort option", body["message"])

	code, body = api.do(http.MethodGet, "/api/posts?category=Academics&tag=exams", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 2)

	code, body = api.do(http.MethodGet, "/api/posts/search?q=parking", "", nil)
	assert.Equal(t, http.StatusOK, code)
	require.Len(t, body["posts"], 1)
	assert.Equal(t, "Parking permits", body["posts"].([]any)[0].(map[string]any)["title"])

	code, _ = api.do(http.MethodGet, "/api/posts/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = api.do(http.MethodGet, "/api/posts/trending", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 2)

	code, body = api.do(http.MethodGet, "/api/users/"+adaID+"/posts", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Len(t, body["posts"], 2)

	code, body = api.do(http.MethodGet, "/api/posts?category=Nothing", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, body["posts"])
}

func TestCommentThreads(t *testing.T) {
	api := newTestAPI(t)
	ada, _ := api.register("ada")
	bob, bobID := api.register("bob")
	postID := api.createPost(ada, "Study group")

	root := api.comment(bob, postID, "", "count me in")
	reply := api.comment(ada, postID, root, "great")

	code, body := api.do(http.MethodPost, "/api/posts/comments", ada, gin.H{
		"postId": postID, "content": "deep", "parentCommentId": reply,
	})
	assert.Equal(t, http.StatusBadRequest, code, body)

	code, body = api.do(http.MethodGet, "/api/posts/"+postID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, code)
	comments := body["comments"].([]any)
	require.Len(t, comments, 1)
	first := comments[0].(map[string]any)
	assert.Equal(t, root, first["id"])
	assert.Equal(t, bobID, first["author"].(map[string]any)["id"])
	replies := first["replies"].([]any)
	require.Len(t, replies, 1)
	assert.Equal(t, reply, replies[0].(map[string]any)["id"])
	assert.Equal(t, []any{}, replies[0].(map[string]any)["replies"])
	assert.Equal(t, float64(1), body["pagination"].(map[string]any)["total"])

	code, body = api.do(http.MethodGet, "/api/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["post"].(map[string]any)["commentsCount"])

	code, _ = api.do(http.MethodPut, "/api/posts/comments/"+root, ada, gin.H{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, code)

	code, body = api.do(http.MethodPut, "/api/posts/comments/"+root, bob, gin.H{"content": "count me in!"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["comment"].(map[string]any)["isEdited"])

	code, body = api.do(http.MethodPost, "/api/posts/comments/"+reply+"/like", bob, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["liked"])

	code, body = api.do(http.MethodDelete, "/api/posts/comments/"+reply, ada, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Comment deleted successfully", body["message"])

	code, _ = api.do(http.MethodDelete, "/api/posts/comments/"+reply, ada, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body = api.do(http.MethodGet, "/api/posts/"+postID+"/comments", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["comments"].([]any)[0].(map[string]any)["replies"])

	code, body = api.do(http.MethodGet, "/api/posts/"+postID, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["post"].(map[string]any)["commentsCount"])
}

func TestRateLimitOnWrites(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", JWTSecret: "s", CORSOrigins: []string{"*"}, RateRPS: 0.001, RateBurst: 1}
	router := New(cfg, memstore.New()).RegisterRoutes()

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusUnauthorized, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	assert.Equal(t, http.StatusOK, w.Code, "reads are not limited")
}

func loginFrom(router http.Handler, remoteAddr, forwardedFor string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(`{"email":"a@b.c","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", JWTSecret: "s", CORSOrigins: []string{"*"}, RateRPS: 1, RateBurst: 1}
	srv := New(cfg, memstore.New())
	router := srv.RegisterRoutes()

	limited := 0
	for i := 0; i < 20; i++ {
		if loginFrom(router, "203.0.113.7:4000", fmt.Sprintf("198.51.100.%d", i)) == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.GreaterOrEqual(t, limited, 18)
	assert.Equal(t, 1, srv.limiter.Len(), "one bucket for the socket peer")
}

func TestRateLimitHonoursTrustedProxy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Env: "test", JWTSecret: "s", CORSOrigins: []string{"*"}, RateRPS: 0.001, RateBurst: 1,
		TrustedProxies: []string{"10.0.0.0/8"},
	}
	srv := New(cfg, memstore.New())
	router := srv.RegisterRoutes()

	assert.Equal(t, http.StatusUnauthorized, loginFrom(router, "10.1.2.3:5000", "198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, loginFrom(router, "10.1.2.3:5000", "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(router, "10.1.2.3:5000", "198.51.100.1"))
	assert.Equal(t, 2, srv.limiter.Len())
}
