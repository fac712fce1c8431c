// Package store declares the persistence contracts the team manager and the
// approval engine depend on. The Mongo stores in the sub-packages and the
// in-memory backend in memstore both satisfy them.
//
// Stores perform no invariant checking beyond email uniqueness and the
// single-open-request rule; everything else is the caller's responsibility.
package store

import (
	"context"
	"time"

	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Accounts persists user accounts.
//
// GetByID/GetByEmail return errs.ErrInvalidRequest when nothing matches.
// Create returns errs.ErrDuplicateEmail when the email is taken.
type Accounts interface {
	Create(ctx context.Context, u models.User) (models.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	// Activate marks the account active. An empty passwordHash keeps the
	// current credential.
	Activate(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	// SetMembership links the account to orgID and adds the member role.
	SetMembership(ctx context.Context, id, orgID primitive.ObjectID, jobTitle string) error
	// ClearMembership unlinks the account and strips the member and owner roles.
	ClearMembership(ctx context.Context, id primitive.ObjectID) error
	AddRole(ctx context.Context, id primitive.ObjectID, role string) error
	RemoveRole(ctx context.Context, id primitive.ObjectID, role string) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)

	// ListByOrganization returns active members ordered by join time ascending.
	ListByOrganization(ctx context.Context, orgID primitive.ObjectID) ([]models.User, error)
	CountByOrganization(ctx context.Context, orgID primitive.ObjectID) (int64, error)
	RecentlyCreated(ctx context.Context, limit int) ([]models.User, error)
}

// Organizations persists employer records.
type Organizations interface {
	Create(ctx context.Context, org models.Organization) (models.Organization, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Organization, error)
	// Publish moves the organization to published with the given owner.
	Publish(ctx context.Context, id, ownerID primitive.ObjectID) error
	// SwapOwner sets owner_user_id to to only if it currently equals from.
	// It returns errs.ErrInvalidRequest when the precondition no longer holds.
	SwapOwner(ctx context.Context, id, from, to primitive.ObjectID) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
	Delete(ctx context.Context, id primitive.ObjectID) (int64, error)
	RecentlyCreated(ctx context.Context, limit int) ([]models.Organization, error)
}

// Requests persists pending requests.
type Requests interface {
	// Create returns errs.ErrRemovalAlreadyRequested when an open request of
	// the same kind already targets the same account.
	Create(ctx context.Context, req models.PendingRequest) (models.PendingRequest, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.PendingRequest, error)
	// Apply performs the transition only if the current status is in t.From
	// and returns the updated request. When the request is missing or in
	// another state it returns errs.ErrInvalidRequest, which makes a repeated
	// approve/decline a no-op failure rather than a second provisioning.
	Apply(ctx context.Context, id primitive.ObjectID, t models.Transition) (models.PendingRequest, error)
	// ListOpen returns the open requests matching q, oldest first.
	ListOpen(ctx context.Context, q models.RequestQuery) ([]models.PendingRequest, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Feed persists the bounded activity feed.
type Feed interface {
	// Append prepends entry and truncates the feed to capacity entries.
	Append(ctx context.Context, entry models.ActivityEntry, capacity int) error
	// List returns up to n entries, newest first.
	List(ctx context.Context, n int) ([]models.ActivityEntry, error)
}

// TxRunner runs fn as one logical transaction. Implementations that cannot
// provide transactions run fn directly.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
