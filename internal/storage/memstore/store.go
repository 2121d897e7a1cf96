// Package memstore keeps the forum in process memory. It backs unit tests
// and the `memory` driver for local runs.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type Store struct {
	mu       sync.RWMutex
	posts    map[string]*models.Post
	comments map[string]*models.Comment
	users    map[string]*models.User
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		posts:    make(map[string]*models.Post),
		comments: make(map[string]*models.Comment),
		users:    make(map[string]*models.User),
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// === Posts ===

func (s *Store) CreatePost(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if _, ok := s.posts[post.ID]; ok {
		return storage.ErrDuplicate
	}
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *Store) GetPost(_ context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *Store) UpdatePost(_ context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	post := clonePost(current)
	if err := fn(post); err != nil {
		return nil, err
	}
	s.posts[id] = clonePost(post)
	return post, nil
}

func (s *Store) FindPosts(_ context.Context, q storage.PostQuery) ([]models.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var terms []string
	if q.Text != "" {
		if terms = storage.SearchTerms(q.Text); len(terms) == 0 {
			return []models.Post{}, 0, nil
		}
	}

	type scored struct {
		post  *models.Post
		score int
	}
	var matched []scored
	for _, p := range s.posts {
		if !q.MatchPost(p) {
			continue
		}
		score := 0
		if terms != nil {
			if score = storage.TextScore(terms, p); score == 0 {
				continue
			}
		}
		matched = append(matched, scored{post: p, score: score})
	}

	orders := q.Sort.Orders()
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		if c := storage.ComparePosts(orders, matched[i].post, matched[j].post); c != 0 {
			return c < 0
		}
		return matched[i].post.ID < matched[j].post.ID
	})

	out := []models.Post{}
	for _, m := range window(len(matched), q.Page) {
		out = append(out, *clonePost(matched[m].post))
	}
	return out, int64(len(matched)), nil
}

// === Comments ===

func (s *Store) CreateComment(_ context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp(&comment.ID, &comment.CreatedAt, &comment.UpdatedAt)
	if _, ok := s.comments[comment.ID]; ok {
		return storage.ErrDuplicate
	}
	s.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (s *Store) GetComment(_ context.Context, id string) (*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneComment(comment), nil
}

func (s *Store) UpdateComment(_ context.Context, id string, fn func(*models.Comment) error) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.comments[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	comment := cloneComment(current)
	if err := fn(comment); err != nil {
		return nil, err
	}
	s.comments[id] = cloneComment(comment)
	return comment, nil
}

func (s *Store) FindComments(_ context.Context, q storage.CommentQuery) ([]models.Comment, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Comment
	for _, c := range s.comments {
		if q.MatchComment(c) {
			matched = append(matched, c)
		}
	}

	desc := q.Sort != storage.SortOldest
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt) == desc
		}
		return a.ID < b.ID
	})

	idx := make([]int, len(matched))
	for i := range idx {
		idx[i] = i
	}
	if q.Page != nil {
		idx = window(len(matched), *q.Page)
	}

	out := make([]models.Comment, 0, len(idx))
	for _, i := range idx {
		out = append(out, *cloneComment(matched[i]))
	}
	return out, int64(len(matched)), nil
}

// === Users ===

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return storage.ErrDuplicate
		}
	}
	stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	u := *user
	s.users[user.ID] = &u
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) GetUsersByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateUser(_ context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	u := *current
	if err := fn(&u); err != nil {
		return nil, err
	}
	stored := u
	s.users[id] = &stored
	return &u, nil
}

// window returns the indexes of page within n sorted items.
func window(n int, page storage.Page) []int {
	start := page.Offset()
	if start >= n {
		return nil
	}
	end := min(start+page.Limit, n)
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

func stamp(id *string, created, updated *time.Time) {
	if *id == "" {
		*id = models.NewID()
	}
	if created.IsZero() {
		*created = time.Now().UTC()
	}
	if updated.IsZero() {
		*updated = *created
	}
}

func clonePost(p *models.Post) *models.Post {
	out := *p
	out.Tags = p.Tags.Clone()
	out.Likes = p.Likes.Clone()
	return &out
}

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.Likes = c.Likes.Clone()
	if c.ParentComment != nil {
		out.ParentComment = new(string)
		*out.ParentComment = *c.ParentComment
	}
	return &out
}
