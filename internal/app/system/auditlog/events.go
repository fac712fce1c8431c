package auditlog

import (
	"context"

	"github.com/dalemusser/jobhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Convenience methods used by the team manager and the approval engine.

func (l *Logger) RequestSubmitted(ctx context.Context, req models.PendingRequest) {
	var typ, text string
	switch req.Kind {
	case models.KindSignup:
		typ, text = models.ActivitySignupRequested, req.Payload.FullName+" requested an employer account for "+req.Payload.OrgName
	case models.KindJoin:
		typ, text = models.ActivityJoinRequested, req.Payload.FullName+" asked to join "+req.Payload.OrgName
	case models.KindRemoval:
		typ, text = models.ActivityRemovalRequested, "Removal of "+req.Payload.FullName+" from "+req.Payload.OrgName+" requested"
	default:
		return
	}
	l.Append(ctx, models.ActivityEntry{
		Type:           typ,
		Text:           text,
		OrganizationID: req.OrganizationID,
		ActorID:        req.RequesterID,
	})
}

func (l *Logger) RequestResolved(ctx context.Context, req models.PendingRequest, actor primitive.ObjectID) {
	typ, verb := models.ActivityRequestApproved, "approved"
	if req.Status == models.RequestDeclined {
		typ, verb = models.ActivityRequestDeclined, "declined"
	}
	l.Append(ctx, models.ActivityEntry{
		Type:           typ,
		Text:           "The " + string(req.Kind) + " request from " + req.Payload.FullName + " was " + verb,
		OrganizationID: req.OrganizationID,
		ActorID:        &actor,
	})
}

func (l *Logger) InfoRequested(ctx context.Context, req models.PendingRequest, actor primitive.ObjectID) {
	l.Append(ctx, models.ActivityEntry{
		Type:           models.ActivityInfoRequested,
		Text:           "More information requested from " + req.Payload.FullName + " for " + req.Payload.OrgName,
		OrganizationID: req.OrganizationID,
		ActorID:        &actor,
	})
}

func (l *Logger) MemberAdded(ctx context.Context, orgID, actor primitive.ObjectID, fullName, orgName string) {
	l.Append(ctx, models.ActivityEntry{
		Type:           models.ActivityMemberAdded,
		Text:           fullName + " was added to " + orgName,
		OrganizationID: &orgID,
		ActorID:        &actor,
	})
}

func (l *Logger) MemberRemoved(ctx context.Context, orgID, actor primitive.ObjectID, fullName, orgName string, deleted bool) {
	text := fullName + " was removed from " + orgName
	if deleted {
		text += " and the account deleted"
	}
	l.Append(ctx, models.ActivityEntry{
		Type:           models.ActivityMemberRemoved,
		Text:           text,
		OrganizationID: &orgID,
		ActorID:        &actor,
	})
}

func (l *Logger) OwnershipTransferred(ctx context.Context, orgID, actor primitive.ObjectID, orgName, from, to string) {
	l.Append(ctx, models.ActivityEntry{
		Type:           models.ActivityOwnershipTransferred,
		Text:           "Ownership of " + orgName + " moved from " + from + " to " + to,
		OrganizationID: &orgID,
		ActorID:        &actor,
	})
}
