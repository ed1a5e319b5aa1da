package aggregate

import (
	"testing"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
	"github.com/stretchr/testify/assert"
)

var (
	schoolA = domain.OrgRef{ID: 1, Kind: domain.OrgKindSchool}
	schoolB = domain.OrgRef{ID: 2, Kind: domain.OrgKindSchool}
	schoolC = domain.OrgRef{ID: 3, Kind: domain.OrgKindSchool}
)

func confirmedPartnership(id int64, a, b domain.OrgRef) domain.Partnership {
	return domain.Partnership{
		ID:        id,
		Status:    domain.StatusConfirmed,
		Initiator: a,
		Members: []domain.PartnershipMember{
			{Org: a, Role: domain.PartnerRoleSponsor},
			{Org: b, Role: domain.PartnerRoleBeneficiary},
		},
	}
}

func TestComputePartnerCounts(t *testing.T) {
	actor := domain.Actor{OrgID: schoolA.ID, OrgKind: schoolA.Kind}

	t.Run("distinct partners counted once each", func(t *testing.T) {
		snap := domain.Snapshot{Partnerships: []domain.Partnership{
			confirmedPartnership(1, schoolA, schoolB),
			confirmedPartnership(2, schoolA, schoolC),
		}}
		overview := Compute(snap, actor)
		assert.Equal(t, 2, overview.ConfirmedPartnerCount)
		assert.Len(t, overview.Partners, 2)
	})

	t.Run("duplicate partner organizations deduplicate", func(t *testing.T) {
		snap := domain.Snapshot{Partnerships: []domain.Partnership{
			confirmedPartnership(1, schoolA, schoolB),
			confirmedPartnership(2, schoolB, schoolA),
		}}
		overview := Compute(snap, actor)
		assert.Equal(t, 1, overview.ConfirmedPartnerCount)
		assert.Len(t, overview.Partners, 2)
	})

	t.Run("pending partnerships do not count", func(t *testing.T) {
		p := confirmedPartnership(1, schoolA, schoolB)
		p.Status = domain.StatusPending
		overview := Compute(domain.Snapshot{Partnerships: []domain.Partnership{p}}, actor)
		assert.Zero(t, overview.ConfirmedPartnerCount)
		assert.Empty(t, overview.Partners)
	})

	t.Run("partners sorted by partnership id", func(t *testing.T) {
		snap := domain.Snapshot{Partnerships: []domain.Partnership{
			confirmedPartnership(9, schoolA, schoolC),
			confirmedPartnership(4, schoolA, schoolB),
		}}
		overview := Compute(snap, actor)
		assert.Equal(t, int64(4), overview.Partners[0].Partnership.ID)
		assert.Equal(t, int64(9), overview.Partners[1].Partnership.ID)
	})
}

func TestComputeBranchCounts(t *testing.T) {
	actor := domain.Actor{OrgID: schoolA.ID, OrgKind: schoolA.Kind}

	confirmedChild := func(parent, child domain.OrgRef) domain.BranchRequest {
		return domain.BranchRequest{
			Status:    domain.StatusConfirmed,
			ParentOrg: domain.Organization{OrgRef: parent},
			ChildOrg:  domain.Organization{OrgRef: child},
		}
	}

	t.Run("counts confirmed children", func(t *testing.T) {
		snap := domain.Snapshot{BranchRequests: []domain.BranchRequest{
			confirmedChild(schoolA, schoolB),
			confirmedChild(schoolA, schoolC),
		}}
		overview := Compute(snap, actor)
		assert.Equal(t, 2, overview.ConfirmedBranchCount)
	})

	t.Run("pending children do not count", func(t *testing.T) {
		pending := confirmedChild(schoolA, schoolB)
		pending.Status = domain.StatusPending
		overview := Compute(domain.Snapshot{BranchRequests: []domain.BranchRequest{pending}}, actor)
		assert.Zero(t, overview.ConfirmedBranchCount)
	})

	t.Run("a confirmed child reports zero branches of its own", func(t *testing.T) {
		snap := domain.Snapshot{BranchRequests: []domain.BranchRequest{
			confirmedChild(schoolC, schoolA),
			confirmedChild(schoolA, schoolB),
		}}
		overview := Compute(snap, actor)
		assert.Zero(t, overview.ConfirmedBranchCount)
	})
}

func TestMergeMembers(t *testing.T) {
	t.Run("deduplicates across sources with last write winning", func(t *testing.T) {
		sources := []domain.MemberSource{
			{Origin: schoolA, Members: []domain.Member{
				{ID: 1, FirstName: "Ada", Email: "ada@a.example", Skills: []string{"go"}},
				{ID: 2, FirstName: "Ben"},
			}},
			{Origin: schoolB, Members: []domain.Member{
				{ID: 1, FirstName: "Ada", LastName: "Lovelace", TakeTrainee: true},
			}},
		}
		merged := mergeMembers(sources)
		assert.Len(t, merged, 2)

		ada := merged[0]
		assert.Equal(t, "Lovelace", ada.LastName)
		// Fields the newer record left empty survive from the older one.
		assert.Equal(t, "ada@a.example", ada.Email)
		assert.Equal(t, []string{"go"}, ada.Skills)
		assert.True(t, ada.TakeTrainee)
	})

	t.Run("boolean capabilities are ORed", func(t *testing.T) {
		sources := []domain.MemberSource{
			{Members: []domain.Member{{ID: 1, TakeTrainee: true}}},
			{Members: []domain.Member{{ID: 1, ProposeWorkshop: true}}},
		}
		merged := mergeMembers(sources)
		assert.True(t, merged[0].TakeTrainee)
		assert.True(t, merged[0].ProposeWorkshop)
	})

	t.Run("output sorted by id", func(t *testing.T) {
		sources := []domain.MemberSource{
			{Members: []domain.Member{{ID: 9}, {ID: 3}, {ID: 5}}},
		}
		merged := mergeMembers(sources)
		assert.Equal(t, int64(3), merged[0].ID)
		assert.Equal(t, int64(5), merged[1].ID)
		assert.Equal(t, int64(9), merged[2].ID)
	})
}

func TestComputeIsIdempotent(t *testing.T) {
	actor := domain.Actor{OrgID: schoolA.ID, OrgKind: schoolA.Kind, UserID: 7}
	snap := domain.Snapshot{
		Partnerships: []domain.Partnership{
			confirmedPartnership(1, schoolA, schoolB),
		},
		BranchRequests: []domain.BranchRequest{
			{Status: domain.StatusConfirmed, ParentOrg: domain.Organization{OrgRef: schoolA}, ChildOrg: domain.Organization{OrgRef: schoolC}},
		},
		MemberSources: []domain.MemberSource{
			{Origin: schoolA, Members: []domain.Member{{ID: 2, FirstName: "Ben"}, {ID: 1, FirstName: "Ada"}}},
			{Origin: schoolB, Members: []domain.Member{{ID: 1, LastName: "Lovelace"}}},
		},
	}

	first := Compute(snap, actor)
	second := Compute(snap, actor)
	assert.Equal(t, first, second)
}

func TestComputeWithoutOrgContext(t *testing.T) {
	actor := domain.Actor{UserID: 7}
	snap := domain.Snapshot{
		Partnerships: []domain.Partnership{confirmedPartnership(1, schoolA, schoolB)},
		MemberSources: []domain.MemberSource{
			{Members: []domain.Member{{ID: 1, FirstName: "Ada"}}},
		},
	}
	overview := Compute(snap, actor)
	assert.Zero(t, overview.ConfirmedPartnerCount)
	assert.Zero(t, overview.ConfirmedBranchCount)
	assert.Len(t, overview.NetworkMembers, 1)
}
