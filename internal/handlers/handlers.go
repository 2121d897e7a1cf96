// Package handlers exposes the forum over HTTP. Every response uses the
// envelope {success, ...}; failures carry {success:false, message}.
package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/emilythestrangee/campus-forum/backend/internal/apperr"
	"github.com/emilythestrangee/campus-forum/backend/internal/auth"
	"github.com/emilythestrangee/campus-forum/backend/internal/forum"
	"github.com/emilythestrangee/campus-forum/backend/internal/loader"
	"github.com/emilythestrangee/campus-forum/backend/internal/middleware"
	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
	"github.com/emilythestrangee/campus-forum/backend/internal/thread"
)

// Handler combines all handler types
type Handler struct {
	Auth    *AuthHandler
	Post    *PostHandler
	Comment *CommentHandler
	User    *UserHandler
}

func NewHandler(svc *forum.Service, accounts *auth.Service, users storage.Users) *Handler {
	v := &viewer{users: users}
	return &Handler{
		Auth:    &AuthHandler{accounts: accounts},
		Post:    &PostHandler{svc: svc, views: v},
		Comment: &CommentHandler{svc: svc, views: v},
		User:    &UserHandler{svc: svc, accounts: accounts, views: v},
	}
}

func respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.GetRequestID(c), c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"success": false, "message": apperr.PublicMessage(err)})
}

func badRequest(c *gin.Context, message string) {
	respondError(c, apperr.Validation(message))
}

// actor returns the authenticated caller. Routes behind the auth middleware
// always have one; the check guards against misconfigured routing.
func actor(c *gin.Context) (models.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		respondError(c, apperr.Unauthorized("User not authenticated"))
	}
	return a, ok
}

func queryInt(c *gin.Context, name string) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return 0
	}
	return n
}

// viewer attaches authors to posts and comments.
type viewer struct {
	users storage.Users
}

func (v *viewer) authors(ctx context.Context, ids []string) (map[string]*models.Author, error) {
	authors, err := loader.Authors(ctx, v.users, ids)
	if err != nil {
		return nil, apperr.Internal("load authors", err)
	}
	return authors, nil
}

func (v *viewer) posts(ctx context.Context, posts []models.Post) ([]models.PostView, error) {
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.AuthorID
	}
	authors, err := v.authors(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.PostView, len(posts))
	for i, p := range posts {
		out[i] = models.PostView{Post: p, Author: authors[p.AuthorID]}
	}
	return out, nil
}

func (v *viewer) post(ctx context.Context, p *models.Post) (models.PostView, error) {
	views, err := v.posts(ctx, []models.Post{*p})
	if err != nil {
		return models.PostView{}, err
	}
	return views[0], nil
}

func (v *viewer) threads(ctx context.Context, nodes []thread.Node[models.Comment]) ([]models.CommentView, error) {
	var ids []string
	var collect func([]thread.Node[models.Comment])
	collect = func(level []thread.Node[models.Comment]) {
		for _, n := range level {
			ids = append(ids, n.Item.AuthorID)
			collect(n.Children)
		}
	}
	collect(nodes)

	authors, err := v.authors(ctx, ids)
	if err != nil {
		return nil, err
	}
	var render func([]thread.Node[models.Comment]) []models.CommentView
	render = func(level []thread.Node[models.Comment]) []models.CommentView {
		out := make([]models.CommentView, len(level))
		for i, n := range level {
			out[i] = models.CommentView{
				Comment: n.Item,
				Author:  authors[n.Item.AuthorID],
				Replies: render(n.Children),
			}
		}
		return out
	}
	return render(nodes), nil
}

func (v *viewer) comment(ctx context.Context, cm *models.Comment) (models.CommentView, error) {
	views, err := v.threads(ctx, []thread.Node[models.Comment]{{Item: *cm, Children: []thread.Node[models.Comment]{}}})
	if err != nil {
		return models.CommentView{}, err
	}
	return views[0], nil
}
