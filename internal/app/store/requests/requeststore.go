package requeststore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the pending requests collection name.
const Collection = "pending_requests"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

// Create inserts req as an open pending request. The partial unique index on
// (kind, target_user_id) among open requests rejects a second open request
// for the same account.
func (s *Store) Create(ctx context.Context, req models.PendingRequest) (models.PendingRequest, error) {
	if !req.Kind.Valid() {
		return models.PendingRequest{}, errs.Validation("bad_kind", "unknown request kind")
	}
	now := time.Now().UTC()
	req.ID = primitive.NewObjectID()
	if req.Status == "" {
		req.Status = models.RequestPending
	}
	req.Open = !req.Status.Terminal()
	req.CreatedAt = now
	req.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return models.PendingRequest{}, errs.ErrRemovalAlreadyRequested
		}
		return models.PendingRequest{}, err
	}
	return req, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.PendingRequest, error) {
	var req models.PendingRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errs.ErrInvalidRequest
		}
		return nil, err
	}
	return &req, nil
}

// Apply is a single findAndModify guarded on the current status, so of two
// concurrent resolutions exactly one matches.
func (s *Store) Apply(ctx context.Context, id primitive.ObjectID, t models.Transition) (models.PendingRequest, error) {
	now := time.Now().UTC()
	set := bson.M{"status": t.To, "updated_at": now}
	unset := bson.M{}
	if t.Note != "" {
		set["note"] = t.Note
	}
	if t.To.Terminal() {
		unset["open"] = ""
		set["resolved_at"] = now
		if t.By != nil {
			set["resolved_by"] = *t.By
		}
	} else {
		set["open"] = true
		unset["resolved_at"] = ""
		unset["resolved_by"] = ""
	}

	filter := bson.M{"_id": id, "status": bson.M{"$in": t.From}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.PendingRequest
	err := s.c.FindOneAndUpdate(ctx, filter, bson.M{"$set": set, "$unset": unset}, opts).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.PendingRequest{}, errs.ErrInvalidRequest
		}
		if wafflemongo.IsDup(err) {
			return models.PendingRequest{}, errs.ErrRemovalAlreadyRequested
		}
		return models.PendingRequest{}, err
	}
	return out, nil
}

// ListOpen returns open requests matching q, oldest first.
func (s *Store) ListOpen(ctx context.Context, q models.RequestQuery) ([]models.PendingRequest, error) {
	filter := bson.M{"open": true}
	if q.Kind != "" {
		filter["kind"] = q.Kind
	}
	if q.OrganizationID != nil {
		filter["organization_id"] = *q.OrganizationID
	}
	if q.TargetUserID != nil {
		filter["target_user_id"] = *q.TargetUserID
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.PendingRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteResolvedBefore removes terminal requests resolved before cutoff.
func (s *Store) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"open":        bson.M{"$exists": false},
		"resolved_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
