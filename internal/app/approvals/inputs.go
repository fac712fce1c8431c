package approvals

import (
	"github.com/dalemusser/jobhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/jobhub/internal/app/system/normalize"
	"github.com/dalemusser/jobhub/internal/app/system/passwords"
	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SignupInput is an anonymous employer signup: the organization and the
// account that will own it.
type SignupInput struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	JobTitle     string `json:"job_title"`
	OrgName      string `json:"org_name"`
	ContactPhone string `json:"contact_phone"`
	Website      string `json:"website"`
}

// JoinInput asks to join an existing published organization.
type JoinInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	JobTitle string `json:"job_title"`
	Reason   string `json:"reason"`
}

// RemovalInput asks to delete a member's account.
type RemovalInput struct {
	UserID primitive.ObjectID `json:"user_id"`
	Reason string             `json:"reason"`
}

func checkPerson(fullName, email string) error {
	if fullName == "" {
		return errs.Validation("full_name_required", "full name is required")
	}
	if email == "" || !validate.SimpleEmailValid(email) {
		return errs.Validation("invalid_email", "a valid email address is required")
	}
	return nil
}

func (in *SignupInput) normalize() error {
	in.FullName = normalize.Name(in.FullName)
	in.Email = normalize.Email(in.Email)
	in.JobTitle = normalize.Name(in.JobTitle)
	in.OrgName = normalize.Name(in.OrgName)
	in.ContactPhone = normalize.Name(in.ContactPhone)
	in.Website = normalize.Name(in.Website)
	if err := checkPerson(in.FullName, in.Email); err != nil {
		return err
	}
	if in.OrgName == "" {
		return errs.Validation("org_name_required", "organization name is required")
	}
	if len(in.Password) < passwords.MinLength {
		return errs.Validation("password_too_short", "password must be at least 8 characters")
	}
	return nil
}

func (in *JoinInput) normalize() error {
	in.FullName = normalize.Name(in.FullName)
	in.Email = normalize.Email(in.Email)
	in.JobTitle = normalize.Name(in.JobTitle)
	in.Reason = htmlsanitize.PlainText(in.Reason)
	return checkPerson(in.FullName, in.Email)
}

func (in *RemovalInput) normalize() error {
	in.Reason = htmlsanitize.PlainText(in.Reason)
	if in.UserID.IsZero() {
		return errs.Validation("user_id_required", "a member to remove is required")
	}
	return nil
}
