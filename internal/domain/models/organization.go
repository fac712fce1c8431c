// internal/domain/models/organization.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Organization lifecycle statuses.
const (
	OrgPending   = "pending"
	OrgPublished = "published"
	OrgTrashed   = "trashed"
)

// Organization is an employer. A published organization always has exactly
// one owner, and that owner is a member.
type Organization struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Name        string              `bson:"name" json:"name"`
	NameCI      string              `bson:"name_ci" json:"-"`
	Status      string              `bson:"status" json:"status"`
	OwnerUserID *primitive.ObjectID `bson:"owner_user_id,omitempty" json:"owner_user_id,omitempty"`

	ContactEmail string `bson:"contact_email,omitempty" json:"contact_email,omitempty"`
	ContactPhone string `bson:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	Website      string `bson:"website,omitempty" json:"website,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsOwnedBy reports whether userID is the organization's owner.
func (o Organization) IsOwnedBy(userID primitive.ObjectID) bool {
	return o.OwnerUserID != nil && *o.OwnerUserID == userID
}
