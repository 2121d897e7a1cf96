package forum

import (
	"context"
	"strings"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/engagement"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/moderation"
)

type CreatePostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

// UpdatePostInput carries the fields to change. Empty strings keep the
// current value; a nil Tags keeps the current tags.
type UpdatePostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

func (s *Service) CreatePost(ctx context.Context, actor models.Actor, in CreatePostInput) (*models.Post, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, apperr.Validation("Title and content are required")
	}
	category, ok := models.ParseCategory(in.Category)
	if !ok {
		return nil, apperr.Validation("Invalid category")
	}

	now := s.now()
	post := &models.Post{
		ID:        models.NewID(),
		Title:     title,
		Content:   content,
		AuthorID:  actor.ID,
		Tags:      NormalizeTags(in.Tags),
		Category:  category,
		Likes:     models.StringList{},
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, apperr.Internal("create post", err)
	}
	return post, nil
}

// GetPost returns an active post.
func (s *Service) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if err := requireID(id, "post"); err != nil {
		return nil, err
	}
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "Post not found", "get post")
	}
	if !post.IsActive() {
		return nil, apperr.NotFound("Post not found")
	}
	return post, nil
}

func (s *Service) UpdatePost(ctx context.Context, actor models.Actor, id string, in UpdatePostInput) (*models.Post, error) {
	if err := requireID(id, "post"); err != nil {
		return nil, err
	}
	var category models.Category
	if strings.TrimSpace(in.Category) != "" {
		c, ok := models.ParseCategory(in.Category)
		if !ok {
			return nil, apperr.Validation("Invalid category")
		}
		category = c
	}

	post, err := s.store.UpdatePost(ctx, id, func(p *models.Post) error {
		if !p.IsActive() {
			return apperr.NotFound("Post not found")
		}
		if err := moderation.AuthorizeEdit(actor, p.AuthorID, "post"); err != nil {
			return err
		}
		if title := strings.TrimSpace(in.Title); title != "" {
			p.Title = title
		}
		if content := strings.TrimSpace(in.Content); content != "" {
			p.Content = content
		}
		if in.Tags != nil {
			p.Tags = NormalizeTags(in.Tags)
		}
		if category != "" {
			p.Category = category
		}
		p.IsEdited = true
		p.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "Post not found", "update post")
	}
	return post, nil
}

// DeletePost soft-deletes a post. Its comments are left as they are.
func (s *Service) DeletePost(ctx context.Context, actor models.Actor, id string) error {
	if err := requireID(id, "post"); err != nil {
		return err
	}
	_, err := s.store.UpdatePost(ctx, id, func(p *models.Post) error {
		if !p.IsActive() {
			return apperr.NotFound("Post not found")
		}
		if err := moderation.AuthorizeDelete(actor, p.AuthorID, "post"); err != nil {
			return err
		}
		moderation.RetirePost(p, s.now())
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Post not found", "delete post")
	}
	return nil
}

func (s *Service) TogglePostLike(ctx context.Context, actor models.Actor, id string) (engagement.Result, error) {
	if err := requireID(id, "post"); err != nil {
		return engagement.Result{}, err
	}
	var res engagement.Result
	_, err := s.store.UpdatePost(ctx, id, func(p *models.Post) error {
		if !p.IsActive() {
			return apperr.NotFound("Post not found")
		}
		res = engagement.TogglePost(p, actor.ID)
		return nil
	})
	if err != nil {
		return engagement.Result{}, notFoundOr(err, "Post not found", "like post")
	}
	return res, nil
}

// adjustCommentCount moves a post's comment counter by delta, never below
// zero. It applies to posts in any status.
func (s *Service) adjustCommentCount(ctx context.Context, postID string, delta int) error {
	_, err := s.store.UpdatePost(ctx, postID, func(p *models.Post) error {
		p.CommentsCount = max(0, p.CommentsCount+delta)
		return nil
	})
	return err
}
