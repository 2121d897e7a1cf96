package forum

import (
	"context"
	"log"
	"strings"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/engagement"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/moderation"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
	"github.com/emilythestrangee/campus-forum/backend/internal/thread"
)

type CreateCommentInput struct {
	PostID          string `json:"postId"`
	Content         string `json:"content"`
	ParentCommentID string `json:"parentCommentId"`
}

// CommentPage is one page of root comments, each with all of its replies.
type CommentPage struct {
	Threads    []thread.Node[models.Comment]
	Pagination models.Pagination
}

// CreateComment adds a root comment or a reply and bumps the post's comment
// counter. The two writes are separate; see DESIGN.md on counter drift.
func (s *Service) CreateComment(ctx context.Context, actor models.Actor, in CreateCommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperr.Validation("Comment content is required")
	}
	if err := requireID(in.PostID, "post"); err != nil {
		return nil, err
	}
	if _, err := s.GetPost(ctx, in.PostID); err != nil {
		return nil, err
	}

	var parent *string
	if id := strings.TrimSpace(in.ParentCommentID); id != "" {
		if err := s.checkParent(ctx, in.PostID, id); err != nil {
			return nil, err
		}
		parent = &id
	}

	now := s.now()
	comment := &models.Comment{
		ID:            models.NewID(),
		PostID:        in.PostID,
		Content:       content,
		AuthorID:      actor.ID,
		ParentComment: parent,
		Likes:         models.StringList{},
		Status:        models.StatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, apperr.Internal("create comment", err)
	}
	if err := s.adjustCommentCount(ctx, in.PostID, 1); err != nil {
		log.Printf("comment %s created but post %s counter not incremented: %v", comment.ID, in.PostID, err)
		return nil, apperr.Internal("increment comment count", err)
	}
	return comment, nil
}

// checkParent enforces that replies target an active root comment of the
// same post.
func (s *Service) checkParent(ctx context.Context, postID, parentID string) error {
	if err := requireID(parentID, "parent comment"); err != nil {
		return err
	}
	parent, err := s.store.GetComment(ctx, parentID)
	if err != nil {
		return notFoundOr(err, "Parent comment not found", "get parent comment")
	}
	if !parent.IsActive() {
		return apperr.NotFound("Parent comment not found")
	}
	if parent.PostID != postID {
		return apperr.Validation("Parent comment belongs to a different post")
	}
	if parent.IsReply() {
		return apperr.Validation("Cannot reply to a reply")
	}
	return nil
}

// ListComments returns a page of active root comments, newest first, each
// with every active reply attached oldest first. Replies are fetched in one
// batch for the whole page.
func (s *Service) ListComments(ctx context.Context, postID string, page, limit int) (*CommentPage, error) {
	if err := requireID(postID, "post"); err != nil {
		return nil, err
	}
	p := storage.NewPage(page, limit)

	roots, total, err := s.store.FindComments(ctx, storage.ActiveRootComments(postID, p))
	if err != nil {
		return nil, apperr.Internal("list root comments", err)
	}

	ids := make([]string, len(roots))
	for i, c := range roots {
		ids[i] = c.ID
	}
	var replies []models.Comment
	if len(ids) > 0 {
		replies, _, err = s.store.FindComments(ctx, storage.ActiveReplies(postID, ids))
		if err != nil {
			return nil, apperr.Internal("list replies", err)
		}
	}

	all := make([]models.Comment, 0, len(roots)+len(replies))
	all = append(all, roots...)
	all = append(all, replies...)

	return &CommentPage{
		Threads:    thread.Build(all, commentKey, commentParent),
		Pagination: models.NewPagination(p.Number, p.Limit, total),
	}, nil
}

func commentKey(c models.Comment) string { return c.ID }

func commentParent(c models.Comment) (string, bool) {
	return c.ParentID(), c.IsReply()
}

func (s *Service) UpdateComment(ctx context.Context, actor models.Actor, id, content string) (*models.Comment, error) {
	if err := requireID(id, "comment"); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.Validation("Comment content is required")
	}

	comment, err := s.store.UpdateComment(ctx, id, func(c *models.Comment) error {
		if !c.IsActive() {
			return apperr.NotFound("Comment not found")
		}
		if err := moderation.AuthorizeEdit(actor, c.AuthorID, "comment"); err != nil {
			return err
		}
		c.Content = content
		c.IsEdited = true
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, notFoundOr(err, "Comment not found", "update comment")
	}
	return comment, nil
}

// DeleteComment soft-deletes a comment and decrements its post's counter,
// floored at zero.
func (s *Service) DeleteComment(ctx context.Context, actor models.Actor, id string) error {
	if err := requireID(id, "comment"); err != nil {
		return err
	}
	comment, err := s.store.UpdateComment(ctx, id, func(c *models.Comment) error {
		if !c.IsActive() {
			return apperr.NotFound("Comment not found")
		}
		if err := moderation.AuthorizeDelete(actor, c.AuthorID, "comment"); err != nil {
			return err
		}
		moderation.RetireComment(c, s.now())
		return nil
	})
	if err != nil {
		return notFoundOr(err, "Comment not found", "delete comment")
	}
	if err := s.adjustCommentCount(ctx, comment.PostID, -1); err != nil {
		log.Printf("comment %s deleted but post %s counter not decremented: %v", comment.ID, comment.PostID, err)
		return apperr.Internal("decrement comment count", err)
	}
	return nil
}

func (s *Service) ToggleCommentLike(ctx context.Context, actor models.Actor, id string) (engagement.Result, error) {
	if err := requireID(id, "comment"); err != nil {
		return engagement.Result{}, err
	}
	var res engagement.Result
	_, err := s.store.UpdateComment(ctx, id, func(c *models.Comment) error {
		if !c.IsActive() {
			return apperr.NotFound("Comment not found")
		}
		res = engagement.ToggleComment(c, actor.ID)
		return nil
	})
	if err != nil {
		return engagement.Result{}, notFoundOr(err, "Comment not found", "like comment")
	}
	return res, nil
}
