// Package engagement implements like toggling over like sets.
package engagement

import "github.com/emilythestrangee/campus-forum/backend/internal/models"

// Result is what a like toggle reports back to the client.
type Result struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// Toggle removes actor from likes if present, otherwise appends it. The
// input slice is not modified.
func Toggle(likes models.StringList, actor string) (models.StringList, bool) {
	if !likes.Contains(actor) {
		next := make(models.StringList, 0, len(likes)+1)
		next = append(next, likes...)
		return append(next, actor), true
	}
	next := make(models.StringList, 0, len(likes))
	for _, id := range likes {
		if id != actor {
			next = append(next, id)
		}
	}
	return next, false
}

// TogglePost flips actor's like on p and recounts from the set.
func TogglePost(p *models.Post, actor string) Result {
	var liked bool
	p.Likes, liked = Toggle(p.Likes, actor)
	p.LikesCount = len(p.Likes)
	return Result{Liked: liked, LikesCount: p.LikesCount}
}

// ToggleComment flips actor's like on c and recounts from the set.
func ToggleComment(c *models.Comment, actor string) Result {
	var liked bool
	c.Likes, liked = Toggle(c.Likes, actor)
	c.LikesCount = len(c.Likes)
	return Result{Liked: liked, LikesCount: c.LikesCount}
}
