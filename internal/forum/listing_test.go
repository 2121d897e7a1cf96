package forum

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

func postTitles(list *PostList) []string {
	out := make([]string, len(list.Posts))
	for i, p := range list.Posts {
		out[i] = p.Title
	}
	return out
}

func like(t *testing.T, s *Service, postID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := s.TogglePostLike(context.Background(), models.Actor{ID: models.NewID()}, postID)
		require.NoError(t, err)
	}
}

func TestListPostsFiltersAndSorts(t *testing.T) {
	s, _, clk := newTestService(t)
	ctx := context.Background()

	_, err := s.CreatePost(ctx, alice, CreatePostInput{Title: "gig", Content: "c", Category: "Events", Tags: []string{"Music"}})
	require.NoError(t, err)
	clk.advance(time.Minute)
	popular := mustPost(t, s, bob, "popular")
	like(t, s, popular.ID, 3)
	clk.advance(time.Minute)
	hidden := mustPost(t, s, bob, "hidden")
	require.NoError(t, s.DeletePost(ctx, bob, hidden.ID))

	all, err := s.ListPosts(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"popular", "gig"}, postTitles(all))
	assert.Equal(t, models.Pagination{Page: 1, Limit: 10, Total: 2, Pages: 1}, all.Pagination)

	oldest, err := s.ListPosts(ctx, ListOptions{Sort: "oldest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gig", "popular"}, postTitles(oldest))

	liked, err := s.ListPosts(ctx, ListOptions{Sort: "-likesCount"})
	require.NoError(t, err)
	assert.Equal(t, "popular", liked.Posts[0].Title)

	events, err := s.ListPosts(ctx, ListOptions{Category: "Events"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gig"}, postTitles(events))

	tagged, err := s.ListPosts(ctx, ListOptions{Tag: "MUSIC"})
	require.NoError(t, err)
	assert.Equal(t, []string{"gig"}, postTitles(tagged))

	_, err = s.ListPosts(ctx, ListOptions{Sort: "random"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListUserPosts(t *testing.T) {
	s, _, clk := newTestService(t)
	ctx := context.Background()
	mustPost(t, s, alice, "a1")
	clk.advance(time.Minute)
	mustPost(t, s, bob, "b1")
	clk.advance(time.Minute)
	mustPost(t, s, alice, "a2")

	mine, err := s.ListUserPosts(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a2", "a1"}, postTitles(mine))

	_, err = s.ListUserPosts(ctx, "who", 1, 10)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestSearchPosts(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := s.SearchPosts(ctx, "   ", 1, 10)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "an empty query is rejected, not answered with nothing")

	_, err = s.CreatePost(ctx, alice, CreatePostInput{Title: "Lost keys", Content: "near the gym", Tags: []string{"lost"}})
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, alice, CreatePostInput{Title: "Gym hours", Content: "Is the gym open?"})
	require.NoError(t, err)

	res, err := s.SearchPosts(ctx, "gym", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Pagination.Total)
	assert.Equal(t, "Gym hours", res.Posts[0].Title)

	res, err = s.SearchPosts(ctx, "lost", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lost keys"}, postTitles(res))
}

func TestTrendingPosts(t *testing.T) {
	s, _, clk := newTestService(t)
	ctx := context.Background()

	stale := mustPost(t, s, alice, "stale")
	like(t, s, stale.ID, 10)

	clk.advance(8 * 24 * time.Hour)
	a := mustPost(t, s, alice, "A")
	like(t, s, a.ID, 5)
	clk.advance(time.Hour)
	b := mustPost(t, s, bob, "B")
	like(t, s, b.ID, 5)
	clk.advance(time.Hour)
	c := mustPost(t, s, bob, "C")
	like(t, s, c.ID, 1)

	res, err := s.TrendingPosts(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, postTitles(res))

	mustComment(t, s, bob, a.ID, "")
	res, err = s.TrendingPosts(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, postTitles(res), "comments break like ties")
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, models.StringList{"a", "b"}, NormalizeTags([]string{"A", " a", "b ", ""}))
	assert.Empty(t, NormalizeTags(nil))
}
