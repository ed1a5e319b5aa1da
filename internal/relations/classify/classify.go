// Package classify derives the actor's role and eligible actions for every
// entity in the relationship graph. All functions are pure; a missing or
// malformed actor context always yields an unrelated classification with an
// empty action set.
package classify

import (
	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

// Partnership classifies a partnership record against the actor.
func Partnership(p domain.Partnership, actor domain.Actor) domain.Classification {
	if !actor.HasOrg() {
		return domain.Unrelated()
	}

	ref := actor.OrgRef()
	switch {
	case p.Initiator.Equal(ref):
		actions := domain.NewActionSet()
		if p.Status == domain.StatusPending {
			actions.Add(domain.ActionCancel)
		}
		return domain.Classification{Role: domain.RoleInitiator, Actions: actions}
	case p.HasParticipant(ref):
		actions := domain.NewActionSet()
		if p.Status == domain.StatusPending {
			actions.Add(domain.ActionAccept)
			actions.Add(domain.ActionReject)
		}
		return domain.Classification{Role: domain.RoleRecipient, Actions: actions}
	default:
		return domain.Unrelated()
	}
}

// Branch classifies a branch request against the actor. The role follows
// from the initiator side cross-referenced with which side the actor's
// organization occupies.
func Branch(b domain.BranchRequest, actor domain.Actor) domain.Classification {
	if !actor.HasOrg() {
		return domain.Unrelated()
	}

	side, ok := b.SideOf(actor.OrgRef())
	if !ok {
		return domain.Unrelated()
	}

	actions := domain.NewActionSet()
	if side == b.Initiator {
		if b.Status == domain.StatusPending {
			actions.Add(domain.ActionCancel)
		}
		return domain.Classification{Role: domain.RoleInitiator, Actions: actions}
	}
	if b.Status == domain.StatusPending {
		actions.Add(domain.ActionAccept)
		actions.Add(domain.ActionReject)
	}
	return domain.Classification{Role: domain.RoleRecipient, Actions: actions}
}

// Membership classifies a membership request against the actor's user
// identity. The remote service exposes no withdrawal operation, so no
// actions are ever eligible on an existing request.
func Membership(m domain.MembershipRequest, actor domain.Actor) domain.Classification {
	if !actor.HasUser() || m.UserID != actor.UserID {
		return domain.Unrelated()
	}
	return domain.Classification{Role: domain.RoleInitiator, Actions: domain.NewActionSet()}
}

// CatalogActions computes the actions the actor may take against a candidate
// organization found in a catalog or search listing.
//
// attach requires matching kinds, a child-free actor organization, and a
// candidate other than the actor's own organization. propose_partnership
// requires the absence of any pending or confirmed partnership between the
// two organizations. join is for personal-user actors and requires that no
// pending or confirmed membership request targets the candidate already.
func CatalogActions(candidate domain.Organization, actor domain.Actor, snap domain.Snapshot) domain.ActionSet {
	actions := domain.NewActionSet()

	if actor.HasOrg() {
		ref := actor.OrgRef()
		if !candidate.OrgRef.Equal(ref) {
			if candidate.Kind == actor.OrgKind && !snap.HasChildBranch(ref) {
				actions.Add(domain.ActionAttach)
			}
			if !snap.HasPartnershipWith(ref, candidate.OrgRef) {
				actions.Add(domain.ActionProposePartnership)
			}
		}
	}

	if actor.HasUser() && !snap.HasMembershipRequest(actor.UserID, candidate.OrgRef) {
		actions.Add(domain.ActionJoin)
	}

	return actions
}
