package storage

import (
	"strings"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

// MatchPost evaluates q's filters, except the text filter, against p.
func (q PostQuery) MatchPost(p *models.Post) bool {
	if q.status == "" || p.Status != q.status {
		return false
	}
	if q.Category != "" && p.Category != q.Category {
		return false
	}
	if q.Tag != "" && !p.Tags.Contains(q.Tag) {
		return false
	}
	if q.AuthorID != "" && p.AuthorID != q.AuthorID {
		return false
	}
	if !q.Since.IsZero() && p.CreatedAt.Before(q.Since) {
		return false
	}
	return true
}

// MatchComment evaluates q against c.
func (q CommentQuery) MatchComment(c *models.Comment) bool {
	if q.status == "" || c.Status != q.status || c.PostID != q.PostID {
		return false
	}
	if q.RootsOnly && c.ParentComment != nil {
		return false
	}
	if q.ParentIDs != nil {
		if c.ParentComment == nil {
			return false
		}
		for _, id := range q.ParentIDs {
			if id == *c.ParentComment {
				return true
			}
		}
		return false
	}
	return true
}

// TextScore counts, per term, the fields of p that contain it. Zero means no
// match. The SQLite backend computes the same score in SQL.
func TextScore(terms []string, p *models.Post) int {
	title := strings.ToLower(p.Title)
	content := strings.ToLower(p.Content)
	tags := strings.ToLower(strings.Join(p.Tags, " "))
	score := 0
	for _, t := range terms {
		for _, field := range []string{title, content, tags} {
			if strings.Contains(field, t) {
				score++
			}
		}
	}
	return score
}

// ComparePosts orders a before b under orders, returning -1, 0 or 1.
func ComparePosts(orders []Order, a, b *models.Post) int {
	for _, o := range orders {
		var c int
		switch o.Field {
		case FieldLikesCount:
			c = compareInt(a.LikesCount, b.LikesCount)
		case FieldCommentsCount:
			c = compareInt(a.CommentsCount, b.CommentsCount)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		if o.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
