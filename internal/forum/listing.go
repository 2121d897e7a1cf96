package forum

import (
	"context"
	"strings"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type ListOptions struct {
	Page     int
	Limit    int
	Sort     string
	Category string
	Tag      string
}

type PostList struct {
	Posts      []models.Post
	Pagination models.Pagination
}

// ListPosts lists active posts with optional category and tag filters.
func (s *Service) ListPosts(ctx context.Context, opts ListOptions) (*PostList, error) {
	sort, ok := storage.ParseSort(opts.Sort)
	if !ok {
		return nil, apperr.Validation("Invalid sort option")
	}
	q := storage.ActivePosts(storage.NewPage(opts.Page, opts.Limit))
	q.Sort = sort
	if c := strings.TrimSpace(opts.Category); c != "" {
		q.Category = models.Category(c)
	}
	if t := strings.TrimSpace(opts.Tag); t != "" {
		q.Tag = strings.ToLower(t)
	}
	return s.find(ctx, q)
}

// ListUserPosts lists the active posts of one author, newest first.
func (s *Service) ListUserPosts(ctx context.Context, authorID string, page, limit int) (*PostList, error) {
	if err := requireID(authorID, "user"); err != nil {
		return nil, err
	}
	q := storage.ActivePosts(storage.NewPage(page, limit))
	q.AuthorID = authorID
	return s.find(ctx, q)
}

// SearchPosts ranks active posts by text relevance to query.
func (s *Service) SearchPosts(ctx context.Context, query string, page, limit int) (*PostList, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.Validation("Search query is required")
	}
	q := storage.ActivePosts(storage.NewPage(page, limit))
	q.Text = query
	q.Sort = storage.SortRelevance
	return s.find(ctx, q)
}

// TrendingPosts ranks active posts from the trending window by likes, then
// comments, then recency.
func (s *Service) TrendingPosts(ctx context.Context, page, limit int) (*PostList, error) {
	q := storage.ActivePosts(storage.NewPage(page, limit))
	q.Since = s.now().Add(-TrendingWindow)
	q.Sort = storage.SortTrending
	return s.find(ctx, q)
}

func (s *Service) find(ctx context.Context, q storage.PostQuery) (*PostList, error) {
	posts, total, err := s.store.FindPosts(ctx, q)
	if err != nil {
		return nil, apperr.Internal("list posts", err)
	}
	return &PostList{
		Posts:      posts,
		Pagination: models.NewPagination(q.Page.Number, q.Page.Limit, total),
	}, nil
}
