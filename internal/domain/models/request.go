// internal/domain/models/request.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestKind identifies which approval flow a request belongs to.
type RequestKind string

const (
	KindSignup  RequestKind = "signup"  // new organization and its first account
	KindJoin    RequestKind = "join"    // new account joining an existing organization
	KindRemoval RequestKind = "removal" // existing member to be deleted
)

// Valid reports whether k is a known kind.
func (k RequestKind) Valid() bool {
	switch k {
	case KindSignup, KindJoin, KindRemoval:
		return true
	}
	return false
}

// RequestStatus is the state of a pending request.
//
//	pending ⇄ info_requested
//	pending | info_requested → approved | declined (terminal)
type RequestStatus string

const (
	RequestPending       RequestStatus = "pending"
	RequestInfoRequested RequestStatus = "info_requested"
	RequestApproved      RequestStatus = "approved"
	RequestDeclined      RequestStatus = "declined"
)

// Terminal reports whether no further transition is allowed from s.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestDeclined
}

// OpenStatuses are the states from which a request can still be resolved.
var OpenStatuses = []RequestStatus{RequestPending, RequestInfoRequested}

// RequestPayload is what the requester submitted. Passwords are never stored
// here; a signup password is hashed straight onto the placeholder account.
type RequestPayload struct {
	FullName     string `bson:"full_name,omitempty" json:"full_name,omitempty"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	JobTitle     string `bson:"job_title,omitempty" json:"job_title,omitempty"`
	OrgName      string `bson:"org_name,omitempty" json:"org_name,omitempty"`
	ContactPhone string `bson:"contact_phone,omitempty" json:"contact_phone,omitempty"`
	Website      string `bson:"website,omitempty" json:"website,omitempty"`
	Reason       string `bson:"reason,omitempty" json:"reason,omitempty"`
}

// PendingRequest is one review-gated change.
//
// TargetUserID is the placeholder account (signup, join) or the member to be
// removed (removal). Open is true while the request is non-terminal; a unique
// partial index on (kind, target_user_id, open) keeps a single open request per
// account.
type PendingRequest struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Kind           RequestKind         `bson:"kind" json:"kind"`
	Status         RequestStatus       `bson:"status" json:"status"`
	Open           bool                `bson:"open,omitempty" json:"-"`
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`
	RequesterID    *primitive.ObjectID `bson:"requester_id,omitempty" json:"requester_id,omitempty"`
	TargetUserID   *primitive.ObjectID `bson:"target_user_id,omitempty" json:"target_user_id,omitempty"`
	Payload        RequestPayload      `bson:"payload" json:"payload"`

	// Last free-text exchange (decline reason, info question, requester reply).
	Note string `bson:"note,omitempty" json:"note,omitempty"`

	ResolvedBy *primitive.ObjectID `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}

// Transition describes a conditional status change applied by a request store.
type Transition struct {
	From []RequestStatus
	To   RequestStatus
	By   *primitive.ObjectID
	Note string
}

// RequestQuery selects open requests. Zero fields match every request; a
// Limit of 0 returns all matches.
type RequestQuery struct {
	Kind           RequestKind
	OrganizationID *primitive.ObjectID
	TargetUserID   *primitive.ObjectID
	Limit          int
}
