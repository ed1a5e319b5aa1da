package domain

import (
	"context"
	"time"
)

// Overview is the derived summary view recomputed from the snapshot. It is
// never patched incrementally; every recomputation replaces it wholesale.
type Overview struct {
	ConfirmedPartnerCount int           `json:"confirmed_partner_count"`
	ConfirmedBranchCount  int           `json:"confirmed_branch_count"`
	NetworkMembers        []Member      `json:"network_members"`
	Partners              []PartnerView `json:"partners"`
}

// PartnerView is one confirmed partnership seen from the actor's side.
type PartnerView struct {
	Partnership Partnership `json:"partnership"`
	Partner     OrgRef      `json:"partner"`
}

// MemberFilter is a conjunction of optional predicates over member lists.
// The zero value matches everything.
type MemberFilter struct {
	Skill            string
	Availability     []string
	Organization     string
	OffersInternship bool
	OffersWorkshop   bool
	Query            string
}

func (f MemberFilter) Empty() bool {
	return f.Skill == "" && len(f.Availability) == 0 && f.Organization == "" &&
		!f.OffersInternship && !f.OffersWorkshop && f.Query == ""
}

// ProposePartnershipRequest is the orchestrator input for a new proposal.
type ProposePartnershipRequest struct {
	Partner      OrgRef      `json:"partner"`
	OwnRole      PartnerRole `json:"own_role"`
	PartnerRole  PartnerRole `json:"partner_role"`
	ShareMembers bool        `json:"share_members"`
	Description  string      `json:"description"`
}

// RequestBranchRequest asks to attach the actor's organization under a parent.
type RequestBranchRequest struct {
	ParentOrgID int64  `json:"parent_org_id"`
	Message     string `json:"message"`
}

// ClassifiedPartnership pairs a partnership with its classification for the
// requesting actor.
type ClassifiedPartnership struct {
	Partnership    Partnership `json:"partnership"`
	Classification `json:"classification"`
}

// ClassifiedBranchRequest pairs a branch request with its classification.
type ClassifiedBranchRequest struct {
	BranchRequest  BranchRequest `json:"branch_request"`
	Classification `json:"classification"`
}

// CandidateOrganization is a catalog entry annotated with the actions the
// actor may take against it right now.
type CandidateOrganization struct {
	Organization    Organization `json:"organization"`
	EligibleActions ActionSet    `json:"eligible_actions"`
}

// PartnershipListResponse is a classified, paginated partnership listing.
type PartnershipListResponse struct {
	Items      []ClassifiedPartnership `json:"items"`
	TotalCount int                     `json:"total_count"`
	TotalPages int                     `json:"total_pages"`
}

// SubOrganizationsResponse lists confirmed sub-organizations of the actor.
type SubOrganizationsResponse struct {
	Items    []Organization `json:"items"`
	IsParent bool           `json:"is_parent"`
}

// SearchResponse is the annotated organization catalog page.
type SearchResponse struct {
	Items      []CandidateOrganization `json:"items"`
	TotalCount int                     `json:"total_count"`
	TotalPages int                     `json:"total_pages"`
}

// OverviewResponse carries the derived summary plus snapshot freshness.
type OverviewResponse struct {
	Overview
	FetchedAt time.Time `json:"fetched_at"`
}

// Service is the workflow orchestrator. Every mutation runs the ordered
// pipeline: validate locally, call the remote service, refetch the affected
// snapshot slices, recompute the derived views. A failed mutation leaves the
// cached state untouched.
type Service interface {
	Refresh(ctx context.Context, actor Actor) error
	Overview(ctx context.Context, actor Actor) (*OverviewResponse, error)

	ListPartnerships(ctx context.Context, actor Actor, status Status, page int) (*PartnershipListResponse, error)
	ProposePartnership(ctx context.Context, actor Actor, req ProposePartnershipRequest) (*Partnership, error)
	AcceptPartnership(ctx context.Context, actor Actor, partnershipID int64) error
	RejectPartnership(ctx context.Context, actor Actor, partnershipID int64) error
	CancelPartnership(ctx context.Context, actor Actor, partnershipID int64) error

	ListBranchRequests(ctx context.Context, actor Actor) ([]ClassifiedBranchRequest, error)
	RequestBranch(ctx context.Context, actor Actor, req RequestBranchRequest) (*BranchRequest, error)
	ConfirmBranch(ctx context.Context, actor Actor, requestID int64) error
	RejectBranch(ctx context.Context, actor Actor, requestID int64) error
	CancelBranch(ctx context.Context, actor Actor, requestID int64) error

	ListSubOrganizations(ctx context.Context, actor Actor) (*SubOrganizationsResponse, error)

	ListMembershipRequests(ctx context.Context, actor Actor) ([]MembershipRequest, error)
	Join(ctx context.Context, actor Actor, org OrgRef) (*MembershipRequest, error)

	NetworkMembers(ctx context.Context, actor Actor, filter MemberFilter) ([]Member, error)
	SearchOrganizations(ctx context.Context, actor Actor, query string, page int, filter MemberFilter) (*SearchResponse, error)
}
