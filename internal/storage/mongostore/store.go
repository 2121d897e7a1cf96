// Package mongostore persists the forum in MongoDB collections.
package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/emilythestrangee/campus-forum/backend/internal/models"
	"github.com/emilythestrangee/campus-forum/backend/internal/storage"
)

type Store struct {
	client   *mongo.Client
	posts    *mongo.Collection
	comments *mongo.Collection
	users    *mongo.Collection
}

var _ storage.Store = (*Store)(nil)

func New(client *mongo.Client, dbName string) *Store {
	db := client.Database(dbName)
	return &Store{
		client:   client,
		posts:    db.Collection("posts"),
		comments: db.Collection("comments"),
		users:    db.Collection("users"),
	}
}

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the text index search depends on plus the listing
// and uniqueness indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "title", Value: "text"}, {Key: "content", Value: "text"}, {Key: "tags", Value: "text"}},
			Options: options.Index().SetName("posts_text"),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("post indexes: %w", err)
	}

	_, err = s.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post", Value: 1}, {Key: "parentComment", Value: 1}, {Key: "status", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("comment indexes: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	_, err := s.posts.InsertOne(ctx, post)
	return translate(err)
}

func (s *Store) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.posts.FindOne(ctx, byID(id)).Decode(&post); err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, fn func(*models.Post) error) (*models.Post, error) {
	return replace(ctx, s.posts, id, fn)
}

func (s *Store) FindPosts(ctx context.Context, q storage.PostQuery) ([]models.Post, int64, error) {
	filter := bson.D{{Key: "status", Value: q.Status()}}
	if q.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: q.Category})
	}
	if q.Tag != "" {
		filter = append(filter, bson.E{Key: "tags", Value: q.Tag})
	}
	if q.AuthorID != "" {
		filter = append(filter, bson.E{Key: "author", Value: q.AuthorID})
	}
	if !q.Since.IsZero() {
		filter = append(filter, bson.E{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: q.Since}}})
	}

	opts := options.Find().
		SetSkip(int64(q.Page.Offset())).
		SetLimit(int64(q.Page.Limit))

	sort := sortDoc(q.Sort.Orders())
	if q.Text != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: q.Text}}})
		score := bson.D{{Key: "$meta", Value: "textScore"}}
		opts.SetProjection(bson.D{{Key: "score", Value: score}})
		sort = append(bson.D{{Key: "score", Value: score}}, sort...)
	}
	opts.SetSort(sort)

	total, err := s.posts.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cur, err := s.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = models.NewID()
	}
	_, err := s.comments.InsertOne(ctx, comment)
	return translate(err)
}

func (s *Store) GetComment(ctx context.Context, id string) (*models.Comment, error) {
	var comment models.Comment
	if err := s.comments.FindOne(ctx, byID(id)).Decode(&comment); err != nil {
		return nil, translate(err)
	}
	return &comment, nil
}

func (s *Store) UpdateComment(ctx context.Context, id string, fn func(*models.Comment) error) (*models.Comment, error) {
	return replace(ctx, s.comments, id, fn)
}

func (s *Store) FindComments(ctx context.Context, q storage.CommentQuery) ([]models.Comment, int64, error) {
	comments := []models.Comment{}
	if q.ParentIDs != nil && len(q.ParentIDs) == 0 {
		return comments, 0, nil
	}

	filter := bson.D{{Key: "post", Value: q.PostID}, {Key: "status", Value: q.Status()}}
	if q.RootsOnly {
		filter = append(filter, bson.E{Key: "parentComment", Value: nil})
	}
	if q.ParentIDs != nil {
		filter = append(filter, bson.E{Key: "parentComment", Value: bson.D{{Key: "$in", Value: q.ParentIDs}}})
	}

	total, err := s.comments.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(sortDoc(q.Sort.Orders()))
	if q.Page != nil {
		opts.SetSkip(int64(q.Page.Offset())).SetLimit(int64(q.Page.Limit))
	}
	cur, err := s.comments.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = models.NewID()
	}
	_, err := s.users.InsertOne(ctx, user)
	return translate(err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, byID(id)).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}).Decode(&user); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	users := []models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	cur, err := s.users.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, err
	}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := s.users.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, fn func(*models.User) error) (*models.User, error) {
	return replace(ctx, s.users, id, fn)
}

// maxReplaceAttempts bounds the retries of one update. Every lost attempt
// means another writer committed, so this also caps how many writers can
// race on one document before callers see storage.ErrConflict.
const maxReplaceAttempts = 16

// replace runs a read-modify-write on one document. The write is
// conditional on the document still matching what was read, so a
// concurrent writer forces a fresh read instead of being overwritten.
func replace[T any](ctx context.Context, coll *mongo.Collection, id string, fn func(*T) error) (*T, error) {
	for range maxReplaceAttempts {
		var doc T
		if err := coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
			return nil, translate(err)
		}
		unchanged, err := snapshot(&doc)
		if err != nil {
			return nil, err
		}
		if err := fn(&doc); err != nil {
			return nil, err
		}
		res, err := coll.ReplaceOne(ctx, unchanged, &doc)
		if err != nil {
			return nil, translate(err)
		}
		if res.MatchedCount == 1 {
			return &doc, nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("replace %s %s: %w", coll.Name(), id, storage.ErrConflict)
}

// snapshot turns a decoded document into an equality filter on every field
// it holds, _id included.
func snapshot(doc any) (bson.D, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var filter bson.D
	if err := bson.Unmarshal(raw, &filter); err != nil {
		return nil, err
	}
	return filter, nil
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func sortDoc(orders []storage.Order) bson.D {
	doc := make(bson.D, 0, len(orders)+1)
	for _, o := range orders {
		dir := 1
		if o.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: string(o.Field), Value: dir})
	}
	return append(doc, bson.E{Key: "_id", Value: 1})
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.ErrNotFound
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return storage.ErrDuplicate
			}
		}
	}
	return err
}
