// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role tags carried by an account. An account may hold several.
const (
	RolePlatformAdmin = "platform_admin" // authority over every organization
	RoleOrgAdmin      = "org_admin"      // staff moderator; may approve and reassign owners
	RoleMember        = "org_member"
	RoleOwner         = "org_owner"
)

// Account statuses.
//
//   - active: a finalized account.
//   - pending: a join placeholder reserving its email; cannot sign in.
//   - limited: a signup placeholder; may sign in at a throttled level while
//     the organization awaits review.
const (
	StatusActive  = "active"
	StatusPending = "pending"
	StatusLimited = "limited"
)

// User is a durable account. Membership is the OrganizationID back-reference;
// a user belongs to at most one organization.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName       string              `bson:"full_name" json:"full_name"`
	FullNameCI     string              `bson:"full_name_ci" json:"-"` // lowercase, diacritics-stripped
	Email          string              `bson:"email" json:"email"`
	PasswordHash   string              `bson:"password_hash,omitempty" json:"-"`
	Roles          []string            `bson:"roles" json:"roles"`
	Status         string              `bson:"status" json:"status"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	JobTitle       string              `bson:"job_title,omitempty" json:"job_title,omitempty"`
	JoinedAt       *time.Time          `bson:"joined_at,omitempty" json:"joined_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// HasRole reports whether the account carries the given role tag.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the account carries any of the given role tags.
func (u User) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		if u.HasRole(want) {
			return true
		}
	}
	return false
}

// MemberOf reports whether the account is an active member of orgID.
func (u User) MemberOf(orgID primitive.ObjectID) bool {
	return u.Status == StatusActive && u.OrganizationID != nil && *u.OrganizationID == orgID
}
