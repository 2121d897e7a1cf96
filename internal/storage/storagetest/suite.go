// Package storagetest is a behavioural suite every storage.Store backend
// must pass.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) storage.Store

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("PostCRUD", func(t *testing.T) { testPostCRUD(t, newStore(t)) })
	t.Run("UpdatePostAbort", func(t *testing.T) { testUpdatePostAbort(t, newStore(t)) })
	t.Run("ConcurrentUpdates", func(t *testing.T) { testConcurrentUpdates(t, newStore(t)) })
	t.Run("FindPostsFilters", func(t *testing.T) { testFindPostsFilters(t, newStore(t)) })
	t.Run("FindPostsSorting", func(t *testing.T) { testFindPostsSorting(t, newStore(t)) })
	t.Run("FindPostsPagination", func(t *testing.T) { testFindPostsPagination(t, newStore(t)) })
	t.Run("SearchPosts", func(t *testing.T) { testSearchPosts(t, newStore(t)) })
	t.Run("SearchPostsUnicodeCase", func(t *testing.T) { testSearchPostsUnicodeCase(t, newStore(t)) })
	t.Run("Comments", func(t *testing.T) { testComments(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
}

func newPost(title string, offset time.Duration) *models.Post {
	return &models.Post{
		ID:        models.NewID(),
		Title:     title,
		Content:   "content of " + title,
		AuthorID:  "author-1",
		Category:  models.CategoryGeneral,
		Tags:      models.StringList{},
		Likes:     models.StringList{},
		Status:    models.StatusActive,
		CreatedAt: base.Add(offset),
		UpdatedAt: base.Add(offset),
	}
}

func titles(posts []models.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Title
	}
	return out
}

func testPostCRUD(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := newPost("hello", 0)
	p.Tags = models.StringList{"go", "campus life"}
	require.NoError(t, s.CreatePost(ctx, p))

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, models.StringList{"go", "campus life"}, got.Tags)
	assert.Equal(t, models.StatusActive, got.Status)

	_, err = s.GetPost(ctx, models.NewID())
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	updated, err := s.UpdatePost(ctx, p.ID, func(post *models.Post) error {
		post.Likes = append(post.Likes, "u1")
		post.LikesCount = len(post.Likes)
		post.IsEdited = true
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LikesCount)

	got, err = s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"u1"}, got.Likes)
	assert.True(t, got.IsEdited)
	assert.True(t, p.UpdatedAt.Equal(got.UpdatedAt), "stores keep the caller's updatedAt")

	_, err = s.UpdatePost(ctx, models.NewID(), func(*models.Post) error { return nil })
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testUpdatePostAbort(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := newPost("keep", 0)
	require.NoError(t, s.CreatePost(ctx, p))

	denied := errors.New("denied")
	_, err := s.UpdatePost(ctx, p.ID, func(post *models.Post) error {
		post.Title = "changed"
		return denied
	})
	assert.ErrorIs(t, err, denied)

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title)
}

// Likes and counter bumps racing on one post must all land.
func testConcurrentUpdates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := newPost("busy", 0)
	require.NoError(t, s.CreatePost(ctx, p))

	const likers, commenters = 8, 4
	var wg sync.WaitGroup
	errs := make(chan error, likers+commenters)
	for i := range likers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdatePost(ctx, p.ID, func(post *models.Post) error {
				post.Likes = append(post.Likes, fmt.Sprintf("user-%d", i))
				post.LikesCount = len(post.Likes)
				return nil
			})
			errs <- err
		}()
	}
	for range commenters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.UpdatePost(ctx, p.ID, func(post *models.Post) error {
				post.CommentsCount++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Likes, likers)
	assert.Equal(t, likers, got.LikesCount)
	assert.Equal(t, commenters, got.CommentsCount)
}

func testFindPostsFilters(t *testing.T, s storage.Store) {
	ctx := context.Background()

	events := newPost("events", time.Minute)
	events.Category = models.CategoryEvents
	events.Tags = models.StringList{"party", "music"}

	other := newPost("other author", 2*time.Minute)
	other.AuthorID = "author-2"

	old := newPost("old", -10*24*time.Hour)

	gone := newPost("gone", 3*time.Minute)
	gone.Status = models.StatusDeleted

	flagged := newPost("flagged", 4*time.Minute)
	flagged.Status = models.StatusFlagged

	for _, p := range []*models.Post{events, other, old, gone, flagged} {
		require.NoError(t, s.CreatePost(ctx, p))
	}

	page := storage.NewPage(1, 10)

	all, total, err := s.FindPosts(ctx, storage.ActivePosts(page))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, []string{"other author", "events", "old"}, titles(all))

	q := storage.ActivePosts(page)
	q.Category = models.CategoryEvents
	got, _, err := s.FindPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, titles(got))

	q = storage.ActivePosts(page)
	q.Tag = "music"
	got, _, err = s.FindPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"events"}, titles(got))

	q.Tag = "mus"
	got, _, err = s.FindPosts(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, got, "tag filter is exact")

	q = storage.ActivePosts(page)
	q.AuthorID = "author-2"
	got, _, err = s.FindPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"other author"}, titles(got))

	q = storage.ActivePosts(page)
	q.Since = base.Add(-7 * 24 * time.Hour)
	got, total, err = s.FindPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.NotContains(t, titles(got), "old")

	none, total, err := s.FindPosts(ctx, storage.PostQuery{Page: page})
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Zero(t, total)
}

func testFindPostsSorting(t *testing.T, s storage.Store) {
	ctx := context.Background()

	a := newPost("A", 0)
	a.LikesCount = 5
	b := newPost("B", time.Hour)
	b.LikesCount = 5
	c := newPost("C", 2*time.Hour)
	c.LikesCount = 1
	c.CommentsCount = 9
	d := newPost("D", 30*time.Minute)
	d.LikesCount = 5
	d.CommentsCount = 2
	for _, p := range []*models.Post{a, b, c, d} {
		require.NoError(t, s.CreatePost(ctx, p))
	}

	cases := map[storage.Sort][]string{
		storage.SortNewest:        {"C", "B", "D", "A"},
		storage.SortOldest:        {"A", "D", "B", "C"},
		storage.SortMostLiked:     {"B", "D", "A", "C"},
		storage.SortMostCommented: {"C", "D", "B", "A"},
		storage.SortTrending:      {"D", "B", "A", "C"},
	}
	for sort, want := range cases {
		q := storage.ActivePosts(storage.NewPage(1, 10))
		q.Sort = sort
		got, _, err := s.FindPosts(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, want, titles(got), string(sort))
	}
}

func testFindPostsPagination(t *testing.T, s storage.Store) {
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		require.NoError(t, s.CreatePost(ctx, newPost(string(rune('a'+i)), time.Duration(i)*time.Minute)))
	}

	first, total, err := s.FindPosts(ctx, storage.ActivePosts(storage.NewPage(1, 5)))
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Equal(t, []string{"l", "k", "j", "i", "h"}, titles(first))

	last, total, err := s.FindPosts(ctx, storage.ActivePosts(storage.NewPage(3, 5)))
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Equal(t, []string{"b", "a"}, titles(last))

	past, _, err := s.FindPosts(ctx, storage.ActivePosts(storage.NewPage(9, 5)))
	require.NoError(t, err)
	assert.Empty(t, past)
}

func testSearchPosts(t *testing.T, s storage.Store) {
	ctx := context.Background()

	strong := newPost("Library hours", 0)
	strong.Content = "The library opens late during finals"
	strong.Tags = models.StringList{"library"}

	weak := newPost("Study spots", time.Hour)
	weak.Content = "Anyone know a quiet library corner?"

	unrelated := newPost("Parking", 2*time.Hour)
	unrelated.Content = "Lot C is closed"

	deleted := newPost("Library closed", 3*time.Hour)
	deleted.Status = models.StatusDeleted

	for _, p := range []*models.Post{strong, weak, unrelated, deleted} {
		require.NoError(t, s.CreatePost(ctx, p))
	}

	q := storage.ActivePosts(storage.NewPage(1, 10))
	q.Text = "library"
	q.Sort = storage.SortRelevance
	got, total, err := s.FindPosts(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 2)
	assert.Equal(t, "Library hours", got[0].Title)
	assert.Equal(t, "Study spots", got[1].Title)
}

func testSearchPostsUnicodeCase(t *testing.T, s storage.Store) {
	ctx := context.Background()
	p := newPost("Über die Mensa", 0)
	p.Content = "Öffnungszeiten am Wochenende"
	require.NoError(t, s.CreatePost(ctx, p))

	for _, text := range []string{"über", "ÜBER", "öffnungszeiten"} {
		q := storage.ActivePosts(storage.NewPage(1, 10))
		q.Text = text
		q.Sort = storage.SortRelevance
		got, total, err := s.FindPosts(ctx, q)
		require.NoError(t, err, text)
		assert.Equal(t, int64(1), total, text)
		require.Len(t, got, 1, text)
		assert.Equal(t, p.ID, got[0].ID)
	}
}

func newComment(postID string, parent *string, offset time.Duration) *models.Comment {
	return &models.Comment{
		ID:            models.NewID(),
		PostID:        postID,
		Content:       "comment",
		AuthorID:      "author-1",
		ParentComment: parent,
		Likes:         models.StringList{},
		Status:        models.StatusActive,
		CreatedAt:     base.Add(offset),
		UpdatedAt:     base.Add(offset),
	}
}

func testComments(t *testing.T, s storage.Store) {
	ctx := context.Background()
	postID := models.NewID()
	otherPost := models.NewID()

	var roots []*models.Comment
	for i := 0; i < 12; i++ {
		c := newComment(postID, nil, time.Duration(i)*time.Minute)
		require.NoError(t, s.CreateComment(ctx, c))
		roots = append(roots, c)
	}
	require.NoError(t, s.CreateComment(ctx, newComment(otherPost, nil, time.Minute)))

	newest := roots[11]
	var replyIDs []string
	for i := 0; i < 3; i++ {
		r := newComment(postID, &newest.ID, time.Hour+time.Duration(i)*time.Minute)
		require.NoError(t, s.CreateComment(ctx, r))
		replyIDs = append(replyIDs, r.ID)
	}
	hidden := newComment(postID, &newest.ID, 2*time.Hour)
	hidden.Status = models.StatusDeleted
	require.NoError(t, s.CreateComment(ctx, hidden))

	page, total, err := s.FindComments(ctx, storage.ActiveRootComments(postID, storage.NewPage(1, 10)))
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page, 10)
	assert.Equal(t, newest.ID, page[0].ID)
	for _, c := range page {
		assert.Nil(t, c.ParentComment)
	}

	rootIDs := make([]string, len(page))
	for i, c := range page {
		rootIDs[i] = c.ID
	}
	replies, _, err := s.FindComments(ctx, storage.ActiveReplies(postID, rootIDs))
	require.NoError(t, err)
	require.Len(t, replies, 3)
	for i, r := range replies {
		assert.Equal(t, replyIDs[i], r.ID, "replies come back oldest first")
		assert.Equal(t, newest.ID, r.ParentID())
	}

	none, _, err := s.FindComments(ctx, storage.ActiveReplies(postID, nil))
	require.NoError(t, err)
	assert.Empty(t, none)

	edited, err := s.UpdateComment(ctx, roots[0].ID, func(c *models.Comment) error {
		c.Status = models.StatusDeleted
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeleted, edited.Status)

	_, total, err = s.FindComments(ctx, storage.ActiveRootComments(postID, storage.NewPage(2, 10)))
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)

	_, err = s.GetComment(ctx, models.NewID())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	alice := &models.User{ID: models.NewID(), Name: "Alice", Email: "alice@campus.edu", Password: "x", Role: models.RoleUser, CreatedAt: base}
	bob := &models.User{ID: models.NewID(), Name: "Bob", Email: "bob@campus.edu", Password: "x", Role: models.RoleUser, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, s.CreateUser(ctx, alice))
	require.NoError(t, s.CreateUser(ctx, bob))

	dup := &models.User{ID: models.NewID(), Name: "Alice 2", Email: "alice@campus.edu", Password: "x", Role: models.RoleUser}
	assert.True(t, errors.Is(s.CreateUser(ctx, dup), storage.ErrDuplicate))

	got, err := s.GetUserByEmail(ctx, "alice@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@campus.edu")
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	batch, err := s.GetUsersByIDs(ctx, []string{alice.ID, models.NewID(), bob.ID})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	promoted, err := s.UpdateUser(ctx, bob.ID, func(u *models.User) error {
		u.Role = models.RoleAdmin
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)

	all, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)
	assert.Equal(t, models.RoleAdmin, all[1].Role)
}
