// Package domain contains the relationship graph model shared by the
// classifier, aggregation, filter and workflow layers.
package domain

import (
	"time"
)

// OrgKind discriminates the two organization populations. Identity of an
// organization is (ID, Kind); equal numeric IDs across kinds are distinct.
type OrgKind string

const (
	OrgKindSchool  OrgKind = "school"
	OrgKindCompany OrgKind = "company"
)

func (k OrgKind) Valid() bool {
	return k == OrgKindSchool || k == OrgKindCompany
}

// OrgStatus is the registration status of an organization record.
type OrgStatus string

const (
	OrgStatusActive   OrgStatus = "active"
	OrgStatusPending  OrgStatus = "pending"
	OrgStatusInactive OrgStatus = "inactive"
)

// Status tracks the lifecycle of a relationship request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition is possible. Deleted
// requests are removed outright and never reach a terminal status.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// OrgRef is the composite identity of an organization.
type OrgRef struct {
	ID   int64   `json:"id"`
	Kind OrgKind `json:"kind"`
}

func (r OrgRef) IsZero() bool {
	return r.ID == 0 || !r.Kind.Valid()
}

func (r OrgRef) Equal(other OrgRef) bool {
	return r.ID == other.ID && r.Kind == other.Kind
}

// Organization is a read-only projection of a registered organization.
// Records are created by the external registration flow.
type Organization struct {
	OrgRef
	Name        string    `json:"name"`
	Status      OrgStatus `json:"status"`
	MemberCount int       `json:"member_count"`
	Location    string    `json:"location"`
	Contact     string    `json:"contact"`
}

// PartnerRole is the role an organization plays inside a partnership.
type PartnerRole string

const (
	PartnerRoleSponsor     PartnerRole = "sponsor"
	PartnerRoleBeneficiary PartnerRole = "beneficiary"
)

// PartnershipMember is one side of a bilateral partnership.
type PartnershipMember struct {
	Org  OrgRef      `json:"org"`
	Role PartnerRole `json:"role"`
}

// PartnershipTypeBilateral is the only partnership shape currently modeled.
const PartnershipTypeBilateral = "bilateral"

// Partnership is a bilateral, status-tracked relationship between exactly
// two distinct organizations. The initiator must be one of the two members.
type Partnership struct {
	ID           int64               `json:"id"`
	Type         string              `json:"partnership_type"`
	Status       Status              `json:"status"`
	Initiator    OrgRef              `json:"initiator"`
	Members      []PartnershipMember `json:"members"`
	ShareMembers bool                `json:"share_members"`
	Description  string              `json:"description"`
	CreatedAt    time.Time           `json:"created_at"`
}

// HasParticipant reports whether ref is one of the two partnership members.
func (p Partnership) HasParticipant(ref OrgRef) bool {
	for _, m := range p.Members {
		if m.Org.Equal(ref) {
			return true
		}
	}
	return false
}

// OtherSide returns the opposite participant relative to ref.
func (p Partnership) OtherSide(ref OrgRef) (OrgRef, bool) {
	if !p.HasParticipant(ref) {
		return OrgRef{}, false
	}
	for _, m := range p.Members {
		if !m.Org.Equal(ref) {
			return m.Org, true
		}
	}
	return OrgRef{}, false
}

// Links reports whether the partnership connects a and b in either direction.
func (p Partnership) Links(a, b OrgRef) bool {
	return p.HasParticipant(a) && p.HasParticipant(b)
}

// BranchSide names the side of a branch relationship.
type BranchSide string

const (
	BranchSideParent BranchSide = "parent"
	BranchSideChild  BranchSide = "child"
)

// BranchRequest is a request to attach ChildOrg under ParentOrg as a
// sub-organization. Parent and child must share the same kind.
type BranchRequest struct {
	ID        int64        `json:"id"`
	Status    Status       `json:"status"`
	Initiator BranchSide   `json:"initiator"`
	Recipient BranchSide   `json:"recipient"`
	ParentOrg Organization `json:"parent_org"`
	ChildOrg  Organization `json:"child_org"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

// CrossKind reports whether the request pairs organizations of different
// kinds, which is invalid and must never be persisted.
func (b BranchRequest) CrossKind() bool {
	return b.ParentOrg.Kind != b.ChildOrg.Kind
}

// SideOf returns which side of the request ref occupies.
func (b BranchRequest) SideOf(ref OrgRef) (BranchSide, bool) {
	switch {
	case b.ParentOrg.OrgRef.Equal(ref):
		return BranchSideParent, true
	case b.ChildOrg.OrgRef.Equal(ref):
		return BranchSideChild, true
	default:
		return "", false
	}
}

// OrgOnSide resolves a side name to the organization occupying it.
func (b BranchRequest) OrgOnSide(side BranchSide) Organization {
	if side == BranchSideParent {
		return b.ParentOrg
	}
	return b.ChildOrg
}

// MembershipRequest is an individual user's request to join an organization.
// Uniqueness is per (UserID, Org.ID, Org.Kind).
type MembershipRequest struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Org         OrgRef    `json:"org"`
	OrgName     string    `json:"org_name"`
	Status      Status    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

// Member is an individual reachable through the relationship graph.
type Member struct {
	ID                  int64    `json:"id"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	Email               string   `json:"email"`
	Skills              []string `json:"skills"`
	Availability        []string `json:"availability"`
	Organizations       []string `json:"organizations"`
	CommonOrganizations []string `json:"common_organizations"`
	TakeTrainee         bool     `json:"take_trainee"`
	ProposeWorkshop     bool     `json:"propose_workshop"`
}

func (m Member) FullName() string {
	if m.FirstName == "" {
		return m.LastName
	}
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

// ListMeta is pagination metadata returned by the remote list endpoints.
// When present it is authoritative over the local slice length.
type ListMeta struct {
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// ResolveCount prefers the remote total and falls back to the local length
// when no metadata was returned.
func (m ListMeta) ResolveCount(length int) int {
	if m.TotalCount > 0 || m.TotalPages > 0 {
		return m.TotalCount
	}
	return length
}

// MemberSource is the raw member list fetched for one connected organization.
// Order of sources is the merge order used by aggregation.
type MemberSource struct {
	Origin  OrgRef   `json:"origin"`
	Members []Member `json:"members"`
}

// Snapshot is the last-fetched state of the relationship graph for one
// actor. Slices are only ever replaced wholesale, never patched in place.
type Snapshot struct {
	Partnerships       []Partnership
	PartnershipMeta    ListMeta
	BranchRequests     []BranchRequest
	SubOrganizations   []Organization
	IsParent           bool
	MembershipRequests []MembershipRequest
	MemberSources      []MemberSource
	FetchedAt          time.Time
}

// HasChildBranch reports whether ref already occupies the child role in any
// pending or confirmed branch request. One confirmed parent is the maximum;
// a pending request in the child role already blocks further attachments.
func (s Snapshot) HasChildBranch(ref OrgRef) bool {
	for _, b := range s.BranchRequests {
		if b.Status == StatusRejected {
			continue
		}
		if b.ChildOrg.OrgRef.Equal(ref) {
			return true
		}
	}
	return false
}

// HasConfirmedParent reports whether ref is the child of a confirmed branch.
func (s Snapshot) HasConfirmedParent(ref OrgRef) bool {
	for _, b := range s.BranchRequests {
		if b.Status == StatusConfirmed && b.ChildOrg.OrgRef.Equal(ref) {
			return true
		}
	}
	return false
}

// HasPartnershipWith reports whether a pending or confirmed partnership
// already links a and b.
func (s Snapshot) HasPartnershipWith(a, b OrgRef) bool {
	for _, p := range s.Partnerships {
		if p.Status == StatusRejected {
			continue
		}
		if p.Links(a, b) {
			return true
		}
	}
	return false
}

// HasMembershipRequest reports whether userID already holds a pending or
// confirmed membership request for org.
func (s Snapshot) HasMembershipRequest(userID int64, org OrgRef) bool {
	for _, r := range s.MembershipRequests {
		if r.Status == StatusRejected {
			continue
		}
		if r.UserID == userID && r.Org.Equal(org) {
			return true
		}
	}
	return false
}

// FindPartnership returns the partnership with the given id, if cached.
func (s Snapshot) FindPartnership(id int64) (Partnership, bool) {
	for _, p := range s.Partnerships {
		if p.ID == id {
			return p, true
		}
	}
	return Partnership{}, false
}

// FindBranchRequest returns the branch request with the given id, if cached.
func (s Snapshot) FindBranchRequest(id int64) (BranchRequest, bool) {
	for _, b := range s.BranchRequests {
		if b.ID == id {
			return b, true
		}
	}
	return BranchRequest{}, false
}
