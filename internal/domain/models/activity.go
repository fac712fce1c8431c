// internal/domain/models/activity.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Activity entry types.
const (
	ActivitySignupRequested      = "signup_requested"
	ActivityJoinRequested        = "join_requested"
	ActivityRemovalRequested     = "removal_requested"
	ActivityRequestApproved      = "request_approved"
	ActivityRequestDeclined      = "request_declined"
	ActivityInfoRequested        = "info_requested"
	ActivityMemberAdded          = "member_added"
	ActivityMemberRemoved        = "member_removed"
	ActivityOwnershipTransferred = "ownership_transferred"

	// Derived at read time, never stored.
	ActivityOrganizationCreated = "organization_created"
	ActivityAccountCreated      = "account_created"
)

// ActivityEntry is one line of the operator activity feed.
type ActivityEntry struct {
	ID             string              `bson:"id" json:"id"`
	Type           string              `bson:"type" json:"type"`
	Text           string              `bson:"text" json:"text"`
	Icon           string              `bson:"icon,omitempty" json:"icon,omitempty"`
	Color          string              `bson:"color,omitempty" json:"color,omitempty"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	ActorID        *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Timestamp      time.Time           `bson:"timestamp" json:"timestamp"`
}
