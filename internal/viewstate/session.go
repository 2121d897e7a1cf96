package viewstate

import (
	"context"
	"errors"

	"github.com/emilythestrangee/campus-forum/backend/internal/client"
	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

var ErrNoPost = errors.New("no post open")

// Session drives one user's view. Each action makes exactly one API call and
// folds the response into local state; state is left untouched on error.
type Session struct {
	api     *client.Client
	actorID string

	Detail *PostDetail
	Feed   *Feed
}

func NewSession(api *client.Client, actorID string) *Session {
	return &Session{api: api, actorID: actorID}
}

// LoadFeed replaces the feed with a fresh listing.
func (s *Session) LoadFeed(ctx context.Context, p client.ListParams) error {
	res, err := s.api.ListPosts(ctx, p)
	if err != nil {
		return err
	}
	s.Feed = &Feed{Posts: res.Posts, Pagination: res.Pagination}
	return nil
}

// OpenPost loads a post and the first page of its comments.
func (s *Session) OpenPost(ctx context.Context, id string, limit int) error {
	post, err := s.api.GetPost(ctx, id)
	if err != nil {
		return err
	}
	comments, err := s.api.ListComments(ctx, id, 1, limit)
	if err != nil {
		return err
	}
	s.Detail = &PostDetail{Post: *post, Comments: comments.Comments, Pagination: comments.Pagination}
	return nil
}

func (s *Session) LikePost(ctx context.Context) error {
	if s.Detail == nil {
		return ErrNoPost
	}
	res, err := s.api.LikePost(ctx, s.Detail.Post.ID)
	if err != nil {
		return err
	}
	s.Detail.ApplyPostLike(s.actorID, res)
	return nil
}

func (s *Session) EditPost(ctx context.Context, in forum.UpdatePostInput) error {
	if s.Detail == nil {
		return ErrNoPost
	}
	updated, err := s.api.UpdatePost(ctx, s.Detail.Post.ID, in)
	if err != nil {
		return err
	}
	s.Detail.ApplyPostEdit(*updated)
	return nil
}

// Comment posts a root comment, or a reply when parentID is set.
func (s *Session) Comment(ctx context.Context, content, parentID string) (*models.CommentView, error) {
	if s.Detail == nil {
		return nil, ErrNoPost
	}
	created, err := s.api.CreateComment(ctx, forum.CreateCommentInput{
		PostID:          s.Detail.Post.ID,
		Content:         content,
		ParentCommentID: parentID,
	})
	if err != nil {
		return nil, err
	}
	s.Detail.AddComment(*created)
	return created, nil
}

func (s *Session) EditComment(ctx context.Context, id, content string) error {
	if s.Detail == nil {
		return ErrNoPost
	}
	updated, err := s.api.UpdateComment(ctx, id, content)
	if err != nil {
		return err
	}
	s.Detail.ReplaceComment(*updated)
	return nil
}

func (s *Session) DeleteComment(ctx context.Context, id string) error {
	if s.Detail == nil {
		return ErrNoPost
	}
	if err := s.api.DeleteComment(ctx, id); err != nil {
		return err
	}
	s.Detail.RemoveComment(id)
	return nil
}

func (s *Session) LikeComment(ctx context.Context, id string) error {
	if s.Detail == nil {
		return ErrNoPost
	}
	res, err := s.api.LikeComment(ctx, id)
	if err != nil {
		return err
	}
	s.Detail.ApplyCommentLike(id, s.actorID, res)
	return nil
}

// LikeFeedPost toggles a like on a post shown in the feed.
func (s *Session) LikeFeedPost(ctx context.Context, postID string) error {
	res, err := s.api.LikePost(ctx, postID)
	if err != nil {
		return err
	}
	if s.Feed != nil {
		s.Feed.ApplyLike(postID, s.actorID, res)
	}
	return nil
}

// DeleteFeedPost deletes a post and drops it from the feed.
func (s *Session) DeleteFeedPost(ctx context.Context, postID string) error {
	if err := s.api.DeletePost(ctx, postID); err != nil {
		return err
	}
	if s.Feed != nil {
		s.Feed.Remove(postID)
	}
	return nil
}
