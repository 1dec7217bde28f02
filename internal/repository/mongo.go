package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/atinyakov/go-user-directory/internal/models"
	"github.com/atinyakov/go-user-directory/internal/storage"
)

const usersCollection = "users"

// userDocument is the persisted shape of a user in MongoDB.
type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Username string             `bson:"username"`
	Email    string             `bson:"email"`
	Phone    string             `bson:"phone"`
}

func (d userDocument) toModel() models.User {
	return models.User{
		ID:       d.ID.Hex(),
		Username: d.Username,
		Email:    d.Email,
		Phone:    d.Phone,
	}
}

// MongoRepository stores users in a single collection with a unique index
// on email. Listing order is _id, which grows with insertion time.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoRepository connects to uri, verifies the server answers and makes
// sure the email index exists.
func NewMongoRepository(ctx context.Context, uri, database string, logger *zap.Logger) (*MongoRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}

	coll := client.Database(database).Collection(usersCollection)

	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("mongo repository ready", zap.String("database", database))

	return &MongoRepository{
		client: client,
		coll:   coll,
		logger: logger,
	}, nil
}

// InsertMany performs an unordered insert so one duplicate does not stop
// the rest of the chunk.
func (r *MongoRepository) InsertMany(ctx context.Context, records []models.User) (storage.InsertResult, error) {
	if len(records) == 0 {
		return storage.InsertResult{}, nil
	}

	docs := make([]any, 0, len(records))
	for _, rec := range records {
		if err := rec.Validate(); err != nil {
			return storage.InsertResult{}, fmt.Errorf("%w: %w", storage.ErrInvalidRecord, err)
		}
		docs = append(docs, userDocument{
			Username: rec.Username,
			Email:    rec.Email,
			Phone:    rec.Phone,
		})
	}

	_, err := r.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	res, err := insertOutcome(len(docs), err)
	if err != nil {
		r.logger.Error("insert users", zap.Int("records", len(docs)), zap.Error(err))
	}
	return res, err
}

// insertOutcome turns the result of an unordered InsertMany into counts.
// Duplicate key errors are rejections; anything else fails the chunk.
func insertOutcome(total int, err error) (storage.InsertResult, error) {
	if err == nil {
		return storage.InsertResult{Inserted: total}, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) || bwe.WriteConcernError != nil {
		return storage.InsertResult{}, classifyMongo(err)
	}

	dups := 0
	for _, we := range bwe.WriteErrors {
		if we.Code != 11000 {
			return storage.InsertResult{}, classifyMongo(err)
		}
		dups++
	}

	return storage.InsertResult{Inserted: total - dups, Rejected: dups}, nil
}

func (r *MongoRepository) Count(ctx context.Context, f models.SearchFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, searchFilter(f))
	if err != nil {
		return 0, classifyMongo(err)
	}
	return n, nil
}

func (r *MongoRepository) Find(ctx context.Context, f models.SearchFilter, skip, limit int64) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if skip > 0 {
		opts.SetSkip(skip)
	}
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := r.coll.Find(ctx, searchFilter(f), opts)
	if err != nil {
		return nil, classifyMongo(err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classifyMongo(err)
	}

	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.toModel())
	}
	return users, nil
}

func (r *MongoRepository) DeleteByID(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}

	var doc userDocument
	err = r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, storage.ErrNotFound
		}
		return models.User{}, classifyMongo(err)
	}

	return doc.toModel(), nil
}

// DeleteChunk looks up the ids of the oldest limit documents and removes
// exactly those, since DeleteMany itself has no limit.
func (r *MongoRepository) DeleteChunk(ctx context.Context, limit int) (int64, error) {
	if limit <= 0 {
		return 0, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"_id": 1})

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return 0, classifyMongo(err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return 0, classifyMongo(err)
	}
	if len(docs) == 0 {
		return 0, nil
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}

	res, err := r.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, classifyMongo(err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *MongoRepository) Close() error {
	return r.client.Disconnect(context.Background())
}

// searchFilter builds a case-insensitive substring match per non-empty field.
func searchFilter(f models.SearchFilter) bson.M {
	filter := bson.M{}

	if f.Username != "" {
		filter["username"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Username), Options: "i"}
	}
	if f.Email != "" {
		filter["email"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Email), Options: "i"}
	}
	if f.Phone != "" {
		filter["phone"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Phone)}
	}

	return filter
}

func classifyMongo(err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}
