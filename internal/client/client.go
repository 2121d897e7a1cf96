// Package client is a typed HTTP client for the forum API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/emilythestrangee/campus-forum/backend/internal/engagement"
	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a client for the API mounted at baseURL, e.g.
// "http://localhost:8080/api". A nil httpClient gets a 15s timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

type PostsResponse struct {
	Posts      []models.PostView `json:"posts"`
	Pagination models.Pagination `json:"pagination"`
}

type CommentsResponse struct {
	Comments   []models.CommentView `json:"comments"`
	Pagination models.Pagination    `json:"pagination"`
}

type ListParams struct {
	Page     int
	Limit    int
	Sort     string
	Category string
	Tag      string
}

func (p ListParams) values() url.Values {
	v := url.Values{}
	if p.Page > 0 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		v.Set("limit", strconv.Itoa(p.Limit))
	}
	for k, s := range map[string]string{"sort": p.Sort, "category": p.Category, "tag": p.Tag} {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}

// Register creates an account and keeps its token for later calls.
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/register", nil, req, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login authenticates and keeps the token for later calls.
func (c *Client) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, req, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

func (c *Client) ListPosts(ctx context.Context, p ListParams) (*PostsResponse, error) {
	var out PostsResponse
	if err := c.do(ctx, http.MethodGet, "/posts", p.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TrendingPosts(ctx context.Context, page, limit int) (*PostsResponse, error) {
	var out PostsResponse
	q := ListParams{Page: page, Limit: limit}.values()
	if err := c.do(ctx, http.MethodGet, "/posts/trending", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchPosts(ctx context.Context, query string, page, limit int) (*PostsResponse, error) {
	var out PostsResponse
	q := ListParams{Page: page, Limit: limit}.values()
	q.Set("q", query)
	if err := c.do(ctx, http.MethodGet, "/posts/search", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPost(ctx context.Context, id string) (*models.PostView, error) {
	var out struct {
		Post models.PostView `json:"post"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

func (c *Client) CreatePost(ctx context.Context, in forum.CreatePostInput) (*models.PostView, error) {
	var out struct {
		Post models.PostView `json:"post"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

func (c *Client) UpdatePost(ctx context.Context, id string, in forum.UpdatePostInput) (*models.PostView, error) {
	var out struct {
		Post models.PostView `json:"post"`
	}
	if err := c.do(ctx, http.MethodPut, "/posts/"+url.PathEscape(id), nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Post, nil
}

func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) LikePost(ctx context.Context, id string) (engagement.Result, error) {
	var out engagement.Result
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(id)+"/like", nil, nil, &out)
	return out, err
}

func (c *Client) ListComments(ctx context.Context, postID string, page, limit int) (*CommentsResponse, error) {
	var out CommentsResponse
	q := ListParams{Page: page, Limit: limit}.values()
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateComment(ctx context.Context, in forum.CreateCommentInput) (*models.CommentView, error) {
	var out struct {
		Comment models.CommentView `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts/comments", nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) UpdateComment(ctx context.Context, id, content string) (*models.CommentView, error) {
	var out struct {
		Comment models.CommentView `json:"comment"`
	}
	body := map[string]string{"content": content}
	if err := c.do(ctx, http.MethodPut, "/posts/comments/"+url.PathEscape(id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Comment, nil
}

func (c *Client) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/posts/comments/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) LikeComment(ctx context.Context, id string) (engagement.Result, error) {
	var out engagement.Result
	err := c.do(ctx, http.MethodPost, "/posts/comments/"+url.PathEscape(id)+"/like", nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &failure)
		if failure.Message == "" {
			failure.Message = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: failure.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
