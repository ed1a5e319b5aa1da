// Package aggregate recomputes the derived summary views from a raw
// relationship snapshot. Computation is total and idempotent: the same
// snapshot and actor always produce identical output, in identical order.
package aggregate

import (
	"sort"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

// Compute derives the overview for the actor from the snapshot.
func Compute(snap domain.Snapshot, actor domain.Actor) domain.Overview {
	overview := domain.Overview{
		NetworkMembers: mergeMembers(snap.MemberSources),
		Partners:       []domain.PartnerView{},
	}

	if !actor.HasOrg() {
		return overview
	}
	ref := actor.OrgRef()

	partnerSet := make(map[domain.OrgRef]struct{})
	for _, p := range snap.Partnerships {
		if p.Status != domain.StatusConfirmed || !p.HasParticipant(ref) {
			continue
		}
		other, ok := p.OtherSide(ref)
		if !ok {
			continue
		}
		partnerSet[other] = struct{}{}
		overview.Partners = append(overview.Partners, domain.PartnerView{
			Partnership: p,
			Partner:     other,
		})
	}
	sort.Slice(overview.Partners, func(i, j int) bool {
		return overview.Partners[i].Partnership.ID < overview.Partners[j].Partnership.ID
	})
	overview.ConfirmedPartnerCount = len(partnerSet)

	overview.ConfirmedBranchCount = confirmedBranchCount(snap, ref)

	return overview
}

// confirmedBranchCount counts organizations confirmed under the actor as
// parent. An organization that is itself a confirmed child reports zero;
// branches do not recursively expose their own branches.
func confirmedBranchCount(snap domain.Snapshot, ref domain.OrgRef) int {
	if snap.HasConfirmedParent(ref) {
		return 0
	}
	count := 0
	for _, b := range snap.BranchRequests {
		if b.Status == domain.StatusConfirmed && b.ParentOrg.OrgRef.Equal(ref) {
			count++
		}
	}
	return count
}

// mergeMembers flattens the per-source member lists into one deduplicated
// list. Sources are visited in snapshot order; on an ID collision the most
// recently seen record wins field-by-field, keeping earlier values only
// where the newer record left a field empty. Output is sorted by member ID.
func mergeMembers(sources []domain.MemberSource) []domain.Member {
	merged := make(map[int64]domain.Member)
	for _, source := range sources {
		for _, m := range source.Members {
			if existing, ok := merged[m.ID]; ok {
				merged[m.ID] = overlayMember(existing, m)
			} else {
				merged[m.ID] = m
			}
		}
	}

	out := make([]domain.Member, 0, len(merged))
	for _, m := range merged {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func overlayMember(old, next domain.Member) domain.Member {
	out := next
	if out.FirstName == "" {
		out.FirstName = old.FirstName
	}
	if out.LastName == "" {
		out.LastName = old.LastName
	}
	if out.Email == "" {
		out.Email = old.Email
	}
	if len(out.Skills) == 0 {
		out.Skills = old.Skills
	}
	if len(out.Availability) == 0 {
		out.Availability = old.Availability
	}
	if len(out.Organizations) == 0 {
		out.Organizations = old.Organizations
	}
	if len(out.CommonOrganizations) == 0 {
		out.CommonOrganizations = old.CommonOrganizations
	}
	out.TakeTrainee = old.TakeTrainee || next.TakeTrainee
	out.ProposeWorkshop = old.ProposeWorkshop || next.ProposeWorkshop
	return out
}
