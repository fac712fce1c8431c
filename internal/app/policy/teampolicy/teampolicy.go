// Package teampolicy answers the team-management permission questions.
//
// Authorization rules:
//   - Platform admins and org admins can manage any team, reassign ownership
//     and review signup and removal requests
//   - An organization's owner can manage that organization's team
//   - Everyone else, including ordinary members, can do neither
//
// Only active accounts hold any permission. Every answer is computed from a
// fresh read; nothing is cached between calls.
package teampolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/jobhub/internal/domain/errs"
	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type accountReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

type orgReader interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Organization, error)
}

// Policy evaluates permissions against the account and organization stores.
type Policy struct {
	accounts accountReader
	orgs     orgReader
}

func New(accounts accountReader, orgs orgReader) *Policy {
	return &Policy{accounts: accounts, orgs: orgs}
}

// loadActive returns the account or nil when it is missing or not active.
func (p *Policy) loadActive(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	u, err := p.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return nil, nil
		}
		return nil, err
	}
	if u.Status != models.StatusActive {
		return nil, nil
	}
	return u, nil
}

func isAdmin(u *models.User) bool {
	return u.HasAnyRole(models.RolePlatformAdmin, models.RoleOrgAdmin)
}

// IsOwner reports whether orgID's owner_user_id is userID.
func (p *Policy) IsOwner(ctx context.Context, userID, orgID primitive.ObjectID) (bool, error) {
	org, err := p.orgs.GetByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, errs.ErrInvalidRequest) {
			return false, nil
		}
		return false, err
	}
	return org.IsOwnedBy(userID), nil
}

// CanManageTeam reports whether userID may add, remove or list members of orgID.
func (p *Policy) CanManageTeam(ctx context.Context, userID, orgID primitive.ObjectID) (bool, error) {
	u, err := p.loadActive(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}
	if isAdmin(u) {
		return true, nil
	}
	return p.IsOwner(ctx, userID, orgID)
}

// CanAssignOwner reports whether userID may reassign ownership. The current
// owner does not qualify on that basis alone.
func (p *Policy) CanAssignOwner(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	return p.IsAdmin(ctx, userID)
}

// IsAdmin reports whether userID holds a platform-wide administrative tag.
func (p *Policy) IsAdmin(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	u, err := p.loadActive(ctx, userID)
	if err != nil || u == nil {
		return false, err
	}
	return isAdmin(u), nil
}

// Require converts a permission answer into an error: the lookup error if
// there was one, errs.ErrPermissionDenied if ok is false.
func Require(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrPermissionDenied
	}
	return nil
}
