package domain

import "context"

// CreatePartnershipPayload is the write model for proposing a partnership.
type CreatePartnershipPayload struct {
	Partner      OrgRef      `json:"partner"`
	OwnRole      PartnerRole `json:"own_role"`
	PartnerRole  PartnerRole `json:"partner_role"`
	ShareMembers bool        `json:"share_members"`
	Description  string      `json:"description"`
}

// CreateBranchPayload is the write model for a branch attachment request.
// The requesting organization takes the child role; the parent kind is
// implied by the requester's kind.
type CreateBranchPayload struct {
	ParentOrgID int64  `json:"parent_org_id"`
	Message     string `json:"message"`
}

// Remote is the relationship service the dashboard consumes. It owns all
// persistence and is the authority on every invariant; local checks are an
// optimistic shortcut only.
type Remote interface {
	ListPartnerships(ctx context.Context, org OrgRef, status Status, page int) ([]Partnership, ListMeta, error)
	CreatePartnership(ctx context.Context, org OrgRef, payload CreatePartnershipPayload) (*Partnership, error)
	AcceptPartnership(ctx context.Context, org OrgRef, partnershipID int64) error
	RejectPartnership(ctx context.Context, org OrgRef, partnershipID int64) error
	DeletePartnership(ctx context.Context, org OrgRef, partnershipID int64) error

	ListBranchRequests(ctx context.Context, org OrgRef) ([]BranchRequest, error)
	CreateBranchRequest(ctx context.Context, org OrgRef, payload CreateBranchPayload) (*BranchRequest, error)
	ConfirmBranchRequest(ctx context.Context, org OrgRef, requestID int64) error
	RejectBranchRequest(ctx context.Context, org OrgRef, requestID int64) error
	DeleteBranchRequest(ctx context.Context, org OrgRef, requestID int64) error

	ListSubOrganizations(ctx context.Context, org OrgRef) ([]Organization, bool, error)

	ListMembershipRequests(ctx context.Context, userID int64) ([]MembershipRequest, error)
	JoinSchool(ctx context.Context, userID int64, orgID int64) (*MembershipRequest, error)
	JoinCompany(ctx context.Context, userID int64, orgID int64) (*MembershipRequest, error)

	GetNetworkMembers(ctx context.Context, org OrgRef, shareMembers bool) ([]Member, error)
	GetUserNetworkMembers(ctx context.Context, userID int64) ([]Member, error)

	SearchOrganizations(ctx context.Context, query string, page int) ([]Organization, ListMeta, error)
}
