package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/jobhub/internal/app/system/normalize"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection is the users collection name.
const Collection = "users"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(Collection)}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errs.ErrDuplicateEmail
	errBadStatus      = errors.New(`status must be "active"|"pending"|"limited"`)
)

func lookupErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errs.ErrInvalidRequest
	}
	return err
}

// Create inserts a new user after normalizing fields. The unique index on
// email is the only guard against concurrent duplicates.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Status == "" {
		u.Status = models.StatusActive
	}
	switch u.Status {
	case models.StatusActive, models.StatusPending, models.StatusLimited:
	default:
		return models.User{}, errBadStatus
	}
	if u.Roles == nil {
		u.Roles = []string{}
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.OrganizationID != nil && u.JoinedAt == nil {
		u.JoinedAt = &now
	}

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, lookupErr(err)
	}
	return &u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, lookupErr(err)
	}
	return &u, nil
}

// EmailExists reports whether any account, placeholder or not, holds email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// updateOne applies update to a single user and reports a missing user as
// errs.ErrInvalidRequest.
func (s *Store) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	if set, ok := update["$set"].(bson.M); ok {
		set["updated_at"] = time.Now().UTC()
	} else {
		update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	}
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errs.ErrInvalidRequest
	}
	return nil
}

func (s *Store) Activate(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	set := bson.M{"status": models.StatusActive}
	if passwordHash != "" {
		set["password_hash"] = passwordHash
	}
	return s.updateOne(ctx, id, bson.M{"$set": set})
}

func (s *Store) SetMembership(ctx context.Context, id, orgID primitive.ObjectID, jobTitle string) error {
	set := bson.M{
		"organization_id": orgID,
		"joined_at":       time.Now().UTC(),
	}
	if jobTitle != "" {
		set["job_title"] = jobTitle
	}
	return s.updateOne(ctx, id, bson.M{
		"$set":      set,
		"$addToSet": bson.M{"roles": models.RoleMember},
	})
}

func (s *Store) ClearMembership(ctx context.Context, id primitive.ObjectID) error {
	return s.updateOne(ctx, id, bson.M{
		"$unset": bson.M{"organization_id": "", "joined_at": ""},
		"$pull":  bson.M{"roles": bson.M{"$in": bson.A{models.RoleMember, models.RoleOwner}}},
	})
}

func (s *Store) AddRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return s.updateOne(ctx, id, bson.M{"$addToSet": bson.M{"roles": role}})
}

func (s *Store) RemoveRole(ctx context.Context, id primitive.ObjectID, role string) error {
	return s.updateOne(ctx, id, bson.M{"$pull": bson.M{"roles": role}})
}

// Delete removes a user by ID. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func memberFilter(orgID primitive.ObjectID) bson.M {
	return bson.M{"organization_id": orgID, "status": models.StatusActive}
}

// ListByOrganization returns the organization's active members, earliest joiner first.
func (s *Store) ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, memberFilter(orgID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountByOrganization(ctx context.Context, orgID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, memberFilter(orgID))
}

// RecentlyCreated returns the newest accounts, newest first.
func (s *Store) RecentlyCreated(ctx context.Context, limit int) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
