package services

import (
	"context"
	"crypto/tls"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sumo/backend/internal/models"
)

type MongoAccountStore struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

func NewMongoAccountStore(ctx context.Context, mongoURI, dbName string) (*MongoAccountStore, error) {
	opts := options.Client().ApplyURI(mongoURI)
	// Atlas occasionally fails TLS negotiation unless pinned to 1.2.
	if strings.HasPrefix(mongoURI, "mongodb+srv://") {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	col := db.Collection("social_accounts")

	// SetFlag relies on this index to turn a lost compare-and-set into a duplicate key error.
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return &MongoAccountStore{client: client, db: db, col: col}, nil
}

func (s *MongoAccountStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoAccountStore) Get(ctx context.Context, username string) (*models.SocialAccount, error) {
	var out models.SocialAccount
	err := s.col.FindOne(ctx, bson.M{"username": username}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MongoAccountStore) ListFlagged(ctx context.Context, flag AccountFlag) ([]models.SocialAccount, error) {
	if err := flag.validate(); err != nil {
		return nil, err
	}
	cur, err := s.col.Find(ctx, bson.M{string(flag): true}, options.Find().SetSort(bson.D{{Key: "username", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	accounts := []models.SocialAccount{}
	if err := cur.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// SetFlag upserts on {username, flag != true}. When the account exists with
// the flag already set the filter misses, the upsert collides with the unique
// username index and nothing is written.
func (s *MongoAccountStore) SetFlag(ctx context.Context, username string, flag AccountFlag) error {
	if err := flag.validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	filter := bson.M{
		"username":   username,
		string(flag): bson.M{"$ne": true},
	}
	update := bson.M{
		"$set": bson.M{string(flag): true, "updated_at": now},
		"$setOnInsert": bson.M{
			string(flag.other()): false,
			"created_at":         now,
		},
	}

	_, err := s.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return ErrFlagAlreadySet
	}
	return err
}

func (s *MongoAccountStore) ClearFlag(ctx context.Context, usernames []string, flag AccountFlag) (int, error) {
	if err := flag.validate(); err != nil {
		return 0, err
	}
	matched, err := s.col.CountDocuments(ctx, bson.M{"username": bson.M{"$in": usernames}})
	if err != nil {
		return 0, err
	}
	_, err = s.col.UpdateMany(ctx,
		bson.M{"username": bson.M{"$in": usernames}, string(flag): true},
		bson.M{"$set": bson.M{string(flag): false, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return int(matched), nil
}
