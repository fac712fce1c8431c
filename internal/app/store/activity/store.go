// internal/app/store/activity/store.go
package activity

import (
	"context"
	"errors"

	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection holds the single feed document.
const Collection = "activity_feed"

const feedID = "operator"

// DefaultCapacity is how many entries the feed keeps when none is configured.
const DefaultCapacity = 50

type feedDoc struct {
	ID      string                 `bson:"_id"`
	Entries []models.ActivityEntry `bson:"entries"`
}

// Store keeps the bounded, newest-first operator activity feed.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Append prepends entry and trims the feed to capacity in one atomic update.
func (s *Store) Append(ctx context.Context, entry models.ActivityEntry, capacity int) error {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	update := bson.M{
		"$push": bson.M{
			"entries": bson.M{
				"$each":     bson.A{entry},
				"$position": 0,
				"$slice":    capacity,
			},
		},
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": feedID}, update, options.Update().SetUpsert(true))
	return err
}

// List returns up to n entries, newest first.
func (s *Store) List(ctx context.Context, n int) ([]models.ActivityEntry, error) {
	if n <= 0 {
		return nil, nil
	}
	opts := options.FindOne().SetProjection(bson.M{"entries": bson.M{"$slice": n}})
	var doc feedDoc
	if err := s.c.FindOne(ctx, bson.M{"_id": feedID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Entries, nil
}
