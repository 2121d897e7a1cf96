// Package moderation decides who may change forum content and how content
// is retired.
package moderation

import (
	"time"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

// Tombstone replaces the content of a deleted comment.
const Tombstone = "This comment has been deleted"

// CanEdit reports whether actor may edit content written by authorID. Only
// the author may; the admin role grants nothing here.
func CanEdit(actor models.Actor, authorID string) bool {
	return actor.ID != "" && actor.ID == authorID
}

// CanDelete reports whether actor may delete content written by authorID.
func CanDelete(actor models.Actor, authorID string) bool {
	return CanEdit(actor, authorID) || actor.IsAdmin()
}

func AuthorizeEdit(actor models.Actor, authorID, entity string) error {
	if !CanEdit(actor, authorID) {
		return apperr.Forbidden("Not authorized to update this " + entity)
	}
	return nil
}

func AuthorizeDelete(actor models.Actor, authorID, entity string) error {
	if !CanDelete(actor, authorID) {
		return apperr.Forbidden("Not authorized to delete this " + entity)
	}
	return nil
}

// RetirePost soft-deletes p. Content is kept.
func RetirePost(p *models.Post, now time.Time) {
	p.Status = models.StatusDeleted
	p.UpdatedAt = now
}

// RetireComment soft-deletes c and replaces its content with the tombstone.
func RetireComment(c *models.Comment, now time.Time) {
	c.Status = models.StatusDeleted
	c.Content = Tombstone
	c.UpdatedAt = now
}
