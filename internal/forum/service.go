// Package forum implements post and comment operations on top of a
// storage.Store.
package forum

import (
	"errors"
	"strings"
	"time"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

// TrendingWindow is how far back trending looks from the request time.
const TrendingWindow = 7 * 24 * time.Hour

type Service struct {
	store storage.Store
	now   func() time.Time
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeTags trims and lower-cases tags, dropping empties and repeats.
func NormalizeTags(tags []string) models.StringList {
	out := make(models.StringList, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || out.Contains(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func requireID(id, what string) error {
	if !models.ValidID(id) {
		return apperr.Validation("Invalid " + what + " ID")
	}
	return nil
}

// notFoundOr maps storage.ErrNotFound to a not-found error and wraps
// everything else as internal.
func notFoundOr(err error, msg, op string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return passthrough(err, op)
}

// passthrough keeps classified errors and wraps the rest as internal.
func passthrough(err error, op string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal(op, err)
}
