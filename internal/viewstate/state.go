// Package viewstate keeps a client's view of posts and comments in step with
// the server after each mutation, without refetching.
package viewstate

import (
	"github.com/emilythestrangee/campus-forum/backend/internal/engagement"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

// PostDetail is a post page: the post, one page of root comments with their
// replies, and the comment pagination.
type PostDetail struct {
	Post       models.PostView
	Comments   []models.CommentView
	Pagination models.Pagination
}

// Feed is one page of a post listing.
type Feed struct {
	Posts      []models.PostView
	Pagination models.Pagination
}

// setLiked makes actor's membership in likes match liked.
func setLiked(likes models.StringList, actor string, liked bool) models.StringList {
	if likes.Contains(actor) == liked {
		return likes
	}
	next, _ := engagement.Toggle(likes, actor)
	return next
}

// ApplyPostLike records the server's answer to a like toggle on the post.
func (d *PostDetail) ApplyPostLike(actor string, res engagement.Result) {
	d.Post.Likes = setLiked(d.Post.Likes, actor, res.Liked)
	d.Post.LikesCount = res.LikesCount
}

// ApplyCommentLike records the server's answer to a like toggle on a root
// comment or a reply. It reports whether the comment was found.
func (d *PostDetail) ApplyCommentLike(commentID, actor string, res engagement.Result) bool {
	c := d.find(commentID)
	if c == nil {
		return false
	}
	c.Likes = setLiked(c.Likes, actor, res.Liked)
	c.LikesCount = res.LikesCount
	return true
}

// AddComment places a newly created comment. Roots go first in the list and
// count toward the pagination total; replies are appended to their parent.
// A reply whose parent is not on the current page is counted but not shown.
func (d *PostDetail) AddComment(c models.CommentView) {
	if c.Replies == nil {
		c.Replies = []models.CommentView{}
	}
	d.Post.CommentsCount++

	if !c.IsReply() {
		d.Comments = append([]models.CommentView{c}, d.Comments...)
		d.Pagination.Total++
		return
	}
	for i := range d.Comments {
		if d.Comments[i].ID == c.ParentID() {
			d.Comments[i].Replies = append(d.Comments[i].Replies, c)
			return
		}
	}
}

// ReplaceComment swaps in the server's copy of an edited comment, keeping
// the replies already shown under a root. It reports whether it was found.
func (d *PostDetail) ReplaceComment(updated models.CommentView) bool {
	c := d.find(updated.ID)
	if c == nil {
		return false
	}
	replies := c.Replies
	*c = updated
	c.Replies = replies
	if c.Replies == nil {
		c.Replies = []models.CommentView{}
	}
	return true
}

// RemoveComment applies a confirmed deletion: the comment leaves the roots
// or, failing that, the reply list holding it, and the post's comment count
// goes down by one, never below zero. The count moves even when the comment
// is not on the current page. It reports whether the comment was found.
func (d *PostDetail) RemoveComment(id string) bool {
	d.Post.CommentsCount = max(0, d.Post.CommentsCount-1)
	for i := range d.Comments {
		if d.Comments[i].ID == id {
			d.Comments = append(d.Comments[:i:i], d.Comments[i+1:]...)
			d.Pagination.Total = max(0, d.Pagination.Total-1)
			return true
		}
	}
	for i := range d.Comments {
		replies := d.Comments[i].Replies
		for j := range replies {
			if replies[j].ID == id {
				d.Comments[i].Replies = append(replies[:j:j], replies[j+1:]...)
				return true
			}
		}
	}
	return false
}

// ApplyPostEdit merges the server's copy of an edited post.
func (d *PostDetail) ApplyPostEdit(updated models.PostView) {
	d.Post.Title = updated.Title
	d.Post.Content = updated.Content
	d.Post.Tags = updated.Tags.Clone()
	d.Post.Category = updated.Category
	d.Post.UpdatedAt = updated.UpdatedAt
	d.Post.IsEdited = true
}

func (d *PostDetail) find(id string) *models.CommentView {
	for i := range d.Comments {
		if d.Comments[i].ID == id {
			return &d.Comments[i]
		}
		for j := range d.Comments[i].Replies {
			if d.Comments[i].Replies[j].ID == id {
				return &d.Comments[i].Replies[j]
			}
		}
	}
	return nil
}

// ApplyLike records a like toggle on one of the feed's posts.
func (f *Feed) ApplyLike(postID, actor string, res engagement.Result) bool {
	for i := range f.Posts {
		if f.Posts[i].ID == postID {
			f.Posts[i].Likes = setLiked(f.Posts[i].Likes, actor, res.Liked)
			f.Posts[i].LikesCount = res.LikesCount
			return true
		}
	}
	return false
}

// Remove drops a deleted post from the feed.
func (f *Feed) Remove(postID string) bool {
	for i := range f.Posts {
		if f.Posts[i].ID == postID {
			f.Posts = append(f.Posts[:i:i], f.Posts[i+1:]...)
			f.Pagination.Total = max(0, f.Pagination.Total-1)
			return true
		}
	}
	return false
}
