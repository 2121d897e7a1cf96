// Package gormstore persists the forum through GORM. It runs on Postgres in
// production and on SQLite for local runs and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type Store struct {
	db       *gorm.DB
	postgres bool
}

var _ storage.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db, postgres: db.Dialector.Name() == "postgres"}
}

// DB exposes the underlying handle for health reporting.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the forum tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}); err != nil {
		return fmt.Errorf("error migrating tables: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(post).Error)
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).First(&post, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := fn(&post); err != nil {
			return err
		}
		return tx.Save(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Store) FindPosts(ctx context.Context, q storage.PostQuery) ([]models.Post, int64, error) {
	tx := s.db.WithContext(ctx).Model(&models.Post{}).Where("status = ?", q.Status())
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.AuthorID != "" {
		tx = tx.Where("author_id = ?", q.AuthorID)
	}
	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since)
	}
	if q.Tag != "" {
		tx = s.whereTag(tx, q.Tag)
	}

	orderBy := orderClause(q.Sort.Orders())
	if q.Text != "" {
		terms := storage.SearchTerms(q.Text)
		if len(terms) == 0 {
			return []models.Post{}, 0, nil
		}
		var rank clause.Expr
		tx, rank = s.whereText(tx, terms)
		orderBy = clause.Expr{
			SQL:                rank.SQL + " DESC, " + orderBy.SQL,
			Vars:               rank.Vars,
			WithoutParentheses: true,
		}
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := []models.Post{}
	err := tx.Clauses(clause.OrderBy{Expression: orderBy}).
		Offset(q.Page.Offset()).
		Limit(q.Page.Limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(comment).Error)
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, fn func(*models.Comment) error) (*models.Comment, error) {
	var comment models.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).First(&comment, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := fn(&comment); err != nil {
			return err
		}
		return tx.Save(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (s *Store) FindComments(ctx context.Context, q storage.CommentQuery) ([]models.Comment, int64, error) {
	comments := []models.Comment{}
	if q.ParentIDs != nil && len(q.ParentIDs) == 0 {
		return comments, 0, nil
	}

	tx := s.db.WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND status = ?", q.PostID, q.Status())
	if q.RootsOnly {
		tx = tx.Where("parent_comment IS NULL")
	}
	if q.ParentIDs != nil {
		tx = tx.Where("parent_comment IN ?", q.ParentIDs)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	find := tx.Clauses(clause.OrderBy{Expression: orderClause(q.Sort.Orders())})
	if q.Page != nil {
		find = find.Offset(q.Page.Offset()).Limit(q.Page.Limit)
	}
	if err := find.Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	return translate(s.db.WithContext(ctx).Create(user).Error)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.WithContext(ctx).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.forUpdate(tx).First(&user, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if err := fn(&user); err != nil {
			return err
		}
		return translate(tx.Save(&user).Error)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// forUpdate locks the selected row on Postgres. SQLite serializes writers
// on its own.
func (s *Store) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.postgres {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

var columns = map[storage.Field]string{
	storage.FieldCreatedAt:     "created_at",
	storage.FieldLikesCount:    "likes_count",
	storage.FieldCommentsCount: "comments_count",
}

func orderClause(orders []storage.Order) clause.Expr {
	parts := make([]string, len(orders))
	for i, o := range orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		parts[i] = columns[o.Field] + " " + dir
	}
	parts = append(parts, "id ASC")
	return clause.Expr{SQL: strings.Join(parts, ", "), WithoutParentheses: true}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return storage.ErrDuplicate
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return storage.ErrDuplicate
	}
	return err
}
