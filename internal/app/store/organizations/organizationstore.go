package organizationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the organizations collection name.
const Collection = "organizations"

type Store struct {
	c *mongo.Collection
}

var errBadStatus = errors.New(`status must be "pending"|"published"|"trashed"`)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

func (s *Store) Create(ctx context.Context, org models.Organization) (models.Organization, error) {
	now := time.Now().UTC()
	org.ID = primitive.NewObjectID()
	org.NameCI = text.Fold(org.Name)
	if org.Status == "" {
		org.Status = models.OrgPending
	}
	org.CreatedAt = now
	org.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, org); err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Organization, error) {
	var org models.Organization
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&org); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrInvalidRequest
		}
		return nil, err
	}
	return &org, nil
}

func (s *Store) update(ctx context.Context, filter, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.c.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrInvalidRequest
	}
	return nil
}

// Publish sets status=published and the owner in one write.
func (s *Store) Publish(ctx context.Context, id, ownerID primitive.ObjectID) error {
	return s.update(ctx, bson.M{"_id": id}, bson.M{
		"status":        models.OrgPublished,
		"owner_user_id": ownerID,
	})
}

// SwapOwner is a compare-and-set on owner_user_id.
func (s *Store) SwapOwner(ctx context.Context, id, from, to primitive.ObjectID) error {
	return s.update(ctx, bson.M{"_id": id, "owner_user_id": from}, bson.M{"owner_user_id": to})
}

func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	switch status {
	case models.OrgPending, models.OrgPublished, models.OrgTrashed:
	default:
		return errBadStatus
	}
	return s.update(ctx, bson.M{"_id": id}, bson.M{"status": status})
}

// Delete removes an organization by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// RecentlyCreated returns the newest organizations, newest first.
func (s *Store) RecentlyCreated(ctx context.Context, limit int) ([]models.Organization, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var orgs []models.Organization
	if err := cur.All(ctx, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}
