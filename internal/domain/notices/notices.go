// Package notices names the notification templates and the variables each
// one reads. Services send by key; the mailer renders by key.
package notices

// Template keys.
const (
	MemberAdded      = "member_added"
	MemberRemoved    = "member_removed"
	OwnershipGranted = "ownership_granted"
	OwnershipRevoked = "ownership_revoked"

	SignupSubmitted     = "signup_submitted"
	SignupApproved      = "signup_approved"
	SignupDeclined      = "signup_declined"
	SignupInfoRequested = "signup_info_requested"
	SignupInfoReceived  = "signup_info_received"

	JoinSubmitted = "join_submitted"
	JoinApproved  = "join_approved"
	JoinDeclined  = "join_declined"

	RemovalSubmitted = "removal_submitted"
	RemovalApproved  = "removal_approved"
	RemovalDeclined  = "removal_declined"
)

// Variable names.
const (
	VarFullName  = "full_name"
	VarEmail     = "email"
	VarOrgName   = "org_name"
	VarPassword  = "password"
	VarJobTitle  = "job_title"
	VarNote      = "note"
	VarRequestID = "request_id"
	VarActorName = "actor_name"
)
