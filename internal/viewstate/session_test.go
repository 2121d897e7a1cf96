package viewstate

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/campus-forum/backend/internal/client"
	"github.com/emilythestrangee/campus-forum/backend/internal/config"
	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/server"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage/memstore"
)

func newBackend(t *testing.T) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", JWTSecret: "s", CORSOrigins: []string{"*"}, RateRPS: 1000, RateBurst: 1000}
	ts := httptest.NewServer(server.New(cfg, memstore.New()).RegisterRoutes())
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

func signUp(t *testing.T, base, name string) (*client.Client, string) {
	t.Helper()
	c := client.New(base, nil)
	res, err := c.Register(context.Background(), models.RegisterRequest{
		Name: name, Email: name + "@campus.edu", Password: "secret1",
	})
	require.NoError(t, err)
	return c, res.User.ID
}

// refetch loads the same post page from scratch in a separate session.
func refetch(t *testing.T, base, postID string) *PostDetail {
	t.Helper()
	s := NewSession(client.New(base, nil), "")
	require.NoError(t, s.OpenPost(context.Background(), postID, 10))
	return s.Detail
}

func TestSessionMatchesRefetch(t *testing.T) {
	ctx := context.Background()
	base := newBackend(t)
	ada, adaID := signUp(t, base, "ada")
	bob, bobID := signUp(t, base, "bob")

	post, err := ada.CreatePost(ctx, forum.CreatePostInput{Title: "Lab partners", Content: "Who is free?", Category: "Academics"})
	require.NoError(t, err)

	adaView := NewSession(ada, adaID)
	bobView := NewSession(bob, bobID)
	require.NoError(t, adaView.OpenPost(ctx, post.ID, 10))
	require.NoError(t, bobView.OpenPost(ctx, post.ID, 10))

	root, err := bobView.Comment(ctx, "me!", "")
	require.NoError(t, err)
	_, err = bobView.Comment(ctx, "also me", "")
	require.NoError(t, err)
	reply, err := bobView.Comment(ctx, "Tuesdays work", root.ID)
	require.NoError(t, err)
	require.NoError(t, bobView.LikePost(ctx))
	require.NoError(t, bobView.LikeComment(ctx, reply.ID))
	require.NoError(t, bobView.EditComment(ctx, root.ID, "me! (bob)"))
	assert.Equal(t, refetch(t, base, post.ID), bobView.Detail)

	second, err := adaView.Comment(ctx, "thanks", root.ID)
	require.NoError(t, err)
	require.NoError(t, adaView.EditPost(ctx, forum.UpdatePostInput{Title: "Lab partners (CS101)", Tags: []string{"cs101"}}))
	require.NoError(t, adaView.DeleteComment(ctx, second.ID))

	// ada's session never saw bob's writes, so only her own edits are
	// compared; bob then reloads to pick them up.
	fresh := refetch(t, base, post.ID)
	assert.Equal(t, fresh.Post.Title, adaView.Detail.Post.Title)
	assert.Equal(t, fresh.Post.Tags, adaView.Detail.Post.Tags)
	assert.Equal(t, fresh.Post.UpdatedAt, adaView.Detail.Post.UpdatedAt)
	assert.True(t, adaView.Detail.Post.IsEdited)
	assert.Equal(t, 0, adaView.Detail.Post.CommentsCount, "ada's reply was counted in and out")
	require.NoError(t, bobView.OpenPost(ctx, post.ID, 10))

	require.NoError(t, bobView.DeleteComment(ctx, reply.ID))
	require.NoError(t, bobView.LikePost(ctx))
	fresh = refetch(t, base, post.ID)
	assert.Equal(t, fresh, bobView.Detail)
	assert.Equal(t, 2, fresh.Post.CommentsCount)
	assert.Empty(t, fresh.Post.Likes)
}

func TestSessionFeed(t *testing.T) {
	ctx := context.Background()
	base := newBackend(t)
	ada, adaID := signUp(t, base, "ada")

	first, err := ada.CreatePost(ctx, forum.CreatePostInput{Title: "one", Content: "1"})
	require.NoError(t, err)
	_, err = ada.CreatePost(ctx, forum.CreatePostInput{Title: "two", Content: "2"})
	require.NoError(t, err)

	s := NewSession(ada, adaID)
	require.NoError(t, s.LoadFeed(ctx, client.ListParams{}))
	require.Len(t, s.Feed.Posts, 2)

	require.NoError(t, s.LikeFeedPost(ctx, first.ID))
	require.NoError(t, s.DeleteFeedPost(ctx, first.ID))

	fresh := NewSession(ada, adaID)
	require.NoError(t, fresh.LoadFeed(ctx, client.ListParams{}))
	assert.Equal(t, fresh.Feed, s.Feed)
}

func TestSessionErrorsLeaveStateAlone(t *testing.T) {
	ctx := context.Background()
	base := newBackend(t)
	ada, _ := signUp(t, base, "ada")
	bob, bobID := signUp(t, base, "bob")

	post, err := ada.CreatePost(ctx, forum.CreatePostInput{Title: "mine", Content: "x"})
	require.NoError(t, err)

	s := NewSession(bob, bobID)
	assert.ErrorIs(t, s.LikePost(ctx), ErrNoPost)

	require.NoError(t, s.OpenPost(ctx, post.ID, 10))
	before := *s.Detail

	err = s.EditPost(ctx, forum.UpdatePostInput{Title: "stolen"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 403, apiErr.Status)
	assert.Equal(t, "Not authorized to update this post", apiErr.Message)
	assert.Equal(t, before, *s.Detail)

	_, err = s.Comment(ctx, "  ", "")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.Equal(t, before, *s.Detail)
}
