// Package loader batches author lookups made while rendering one request.
package loader

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type contextKey string

const key = contextKey("loaders")

// Loaders holds the request-scoped loaders.
type Loaders struct {
	AuthorByID *dataloader.Loader
}

func New(users storage.Users) *Loaders {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		found, err := users.GetUsersByIDs(ctx, keys.Keys())
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		byID := make(map[string]*models.Author, len(found))
		for i := range found {
			a := found[i].Author()
			byID[a.ID] = &a
		}
		for i, k := range keys {
			// A missing author resolves to nil; the post still renders.
			results[i] = &dataloader.Result{Data: byID[k.String()]}
		}
		return results
	}

	return &Loaders{
		AuthorByID: dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond)),
	}
}

// Middleware attaches fresh loaders to every request context.
func Middleware(users storage.Users) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), key, New(users))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the loaders on ctx, or nil when none were attached.
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(key).(*Loaders)
	return l
}

// Authors resolves ids to authors in one batch. When ctx carries no loaders
// it falls back to a direct lookup against users.
func Authors(ctx context.Context, users storage.Users, ids []string) (map[string]*models.Author, error) {
	out := make(map[string]*models.Author, len(ids))
	ids = unique(ids)
	if len(ids) == 0 {
		return out, nil
	}

	l := For(ctx)
	if l == nil {
		l = New(users)
	}
	values, errs := l.AuthorByID.LoadMany(ctx, dataloader.NewKeysFromStrings(ids))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	for i, v := range values {
		if a, ok := v.(*models.Author); ok && a != nil {
			out[ids[i]] = a
		}
	}
	return out, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
