package storage

import (
	"strings"
	"time"
	"unicode"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Limit  int
}

// NewPage clamps a client supplied page request into range.
func NewPage(number, limit int) Page {
	if number < 1 {
		number = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Page{Number: number, Limit: limit}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

type Sort string

const (
	SortNewest        Sort = "newest"
	SortOldest        Sort = "oldest"
	SortMostLiked     Sort = "most_liked"
	SortMostCommented Sort = "most_commented"
	SortTrending      Sort = "trending"
	// SortRelevance orders text matches by score, then newest first.
	SortRelevance Sort = "relevance"
)

var sortAliases = map[string]Sort{
	"":               SortNewest,
	"newest":         SortNewest,
	"-createdAt":     SortNewest,
	"oldest":         SortOldest,
	"createdAt":      SortOldest,
	"most_liked":     SortMostLiked,
	"-likesCount":    SortMostLiked,
	"most_commented": SortMostCommented,
	"-commentsCount": SortMostCommented,
}

// ParseSort accepts the listing sort keys and the raw field forms older
// clients send.
func ParseSort(key string) (Sort, bool) {
	s, ok := sortAliases[strings.TrimSpace(key)]
	return s, ok
}

type Field string

const (
	FieldCreatedAt     Field = "createdAt"
	FieldLikesCount    Field = "likesCount"
	FieldCommentsCount Field = "commentsCount"
)

type Order struct {
	Field Field
	Desc  bool
}

// Orders expands a sort key into its ordering columns. Relevance yields the
// tiebreak applied after the text score.
func (s Sort) Orders() []Order {
	switch s {
	case SortOldest:
		return []Order{{FieldCreatedAt, false}}
	case SortMostLiked:
		return []Order{{FieldLikesCount, true}, {FieldCreatedAt, true}}
	case SortMostCommented:
		return []Order{{FieldCommentsCount, true}, {FieldCreatedAt, true}}
	case SortTrending:
		return []Order{{FieldLikesCount, true}, {FieldCommentsCount, true}, {FieldCreatedAt, true}}
	default:
		return []Order{{FieldCreatedAt, true}}
	}
}

// PostQuery selects posts. The status filter can only be set through the
// constructors below, so no caller can list soft-deleted posts by accident.
type PostQuery struct {
	status   models.Status
	Category models.Category
	Tag      string
	AuthorID string
	Since    time.Time
	Text     string
	Sort     Sort
	Page     Page
}

// ActivePosts starts a query over active posts, newest first.
func ActivePosts(page Page) PostQuery {
	return PostQuery{status: models.StatusActive, Sort: SortNewest, Page: page}
}

func (q PostQuery) Status() models.Status { return q.status }

// CommentQuery selects comments of one post. Page is nil for unpaginated
// lookups such as reply batches.
type CommentQuery struct {
	status    models.Status
	PostID    string
	RootsOnly bool
	ParentIDs []string
	Sort      Sort
	Page      *Page
}

// ActiveRootComments selects a page of active root comments, newest first.
func ActiveRootComments(postID string, page Page) CommentQuery {
	return CommentQuery{
		status:    models.StatusActive,
		PostID:    postID,
		RootsOnly: true,
		Sort:      SortNewest,
		Page:      &page,
	}
}

// ActiveReplies selects every active reply to the given parents in one
// batch, oldest first.
func ActiveReplies(postID string, parentIDs []string) CommentQuery {
	if parentIDs == nil {
		parentIDs = []string{}
	}
	return CommentQuery{
		status:    models.StatusActive,
		PostID:    postID,
		ParentIDs: parentIDs,
		Sort:      SortOldest,
	}
}

func (q CommentQuery) Status() models.Status { return q.status }

// SearchTerms splits free text into lower-cased alphanumeric terms.
func SearchTerms(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(fields))
	terms := fields[:0]
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			terms = append(terms, f)
		}
	}
	return terms
}
