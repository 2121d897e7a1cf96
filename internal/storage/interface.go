package storage

import (
	"context"
	"errors"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
)

var (
	ErrNotFound  = errors.New("storage: record not found")
	ErrDuplicate = errors.New("storage: duplicate record")
	// ErrConflict means an update kept losing to concurrent writers.
	ErrConflict = errors.New("storage: update conflict")
)

// Posts persists forum posts. UpdatePost loads the post, hands it to fn and
// saves the result as one read-modify-write; an error from fn aborts the write.
// fn may run more than once when a backend retries after a conflict.
type Posts interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error)
	FindPosts(ctx context.Context, q PostQuery) ([]models.Post, int64, error)
}

type Comments interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, id string) (*models.Comment, error)
	UpdateComment(ctx context.Context, id string, fn func(*models.Comment) error) (*models.Comment, error)
	FindComments(ctx context.Context, q CommentQuery) ([]models.Comment, int64, error)
}

type Users interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error)
}

// Store is the full persistence contract of the forum.
type Store interface {
	Posts
	Comments
	Users
	Ping(ctx context.Context) error
	Close() error
}
