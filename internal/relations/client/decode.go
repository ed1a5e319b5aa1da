package client

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

// The remote service is loose about payload shapes: numeric IDs arrive as
// numbers or strings, booleans as booleans or "1"/"true", skills as plain
// strings or {name} objects. Everything is normalized into the strict
// domain structs here, at the ingestion boundary, so the engines above
// never touch raw transport shapes.

type flexID int64

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexID(parsed)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1":
		*f = true
		return nil
	case "false", "0", "null", "":
		*f = false
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			*f = true
		default:
			*f = false
		}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*f = flexBool(b)
	return nil
}

// flexStrings accepts ["a", "b"] as well as [{"name": "a"}, {"name": "b"}].
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}

	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		*f = plain
		return nil
	}

	var named []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &named); err != nil {
		return err
	}
	out := make([]string, 0, len(named))
	for _, n := range named {
		if n.Name != "" {
			out = append(out, n.Name)
		}
	}
	*f = out
	return nil
}

type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*f = flexTime(time.Time{})
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				*f = flexTime(t.UTC())
				return nil
			}
		}
		*f = flexTime(time.Time{})
		return nil
	}
	var unix int64
	if err := json.Unmarshal(data, &unix); err != nil {
		return err
	}
	*f = flexTime(time.Unix(unix, 0).UTC())
	return nil
}

func (f flexTime) Time() time.Time { return time.Time(f) }

func normalizeStatus(raw string) domain.Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed", "accepted":
		return domain.StatusConfirmed
	case "rejected", "declined":
		return domain.StatusRejected
	default:
		return domain.StatusPending
	}
}

func normalizeKind(raw string) domain.OrgKind {
	kind := domain.OrgKind(strings.ToLower(strings.TrimSpace(raw)))
	if kind.Valid() {
		return kind
	}
	return ""
}

type rawMeta struct {
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

func (m rawMeta) toDomain() domain.ListMeta {
	return domain.ListMeta{TotalCount: m.TotalCount, TotalPages: m.TotalPages}
}

type rawOrg struct {
	ID          flexID   `json:"id"`
	Kind        string   `json:"kind"`
	Name        string   `json:"name"`
	Status      string   `json:"status"`
	MemberCount flexID   `json:"member_count"`
	Location    string   `json:"location"`
	Contact     string   `json:"contact"`
}

func (r rawOrg) toDomain(fallbackKind domain.OrgKind) domain.Organization {
	kind := normalizeKind(r.Kind)
	if kind == "" {
		kind = fallbackKind
	}
	status := domain.OrgStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	switch status {
	case domain.OrgStatusActive, domain.OrgStatusPending, domain.OrgStatusInactive:
	default:
		status = domain.OrgStatusActive
	}
	return domain.Organization{
		OrgRef:      domain.OrgRef{ID: int64(r.ID), Kind: kind},
		Name:        r.Name,
		Status:      status,
		MemberCount: int(r.MemberCount),
		Location:    r.Location,
		Contact:     r.Contact,
	}
}

type rawPartnershipMember struct {
	OrgID   flexID `json:"org_id"`
	OrgKind string `json:"org_kind"`
	Role    string `json:"role"`
}

type rawPartnership struct {
	ID            flexID                 `json:"id"`
	Type          string                 `json:"partnership_type"`
	Status        string                 `json:"status"`
	InitiatorID   flexID                 `json:"initiator_id"`
	InitiatorKind string                 `json:"initiator_kind"`
	Members       []rawPartnershipMember `json:"members"`
	ShareMembers  flexBool               `json:"share_members"`
	Description   string                 `json:"description"`
	CreatedAt     flexTime               `json:"created_at"`
}

func (r rawPartnership) toDomain() domain.Partnership {
	members := make([]domain.PartnershipMember, 0, len(r.Members))
	for _, m := range r.Members {
		role := domain.PartnerRole(strings.ToLower(strings.TrimSpace(m.Role)))
		if role != domain.PartnerRoleSponsor && role != domain.PartnerRoleBeneficiary {
			role = domain.PartnerRoleBeneficiary
		}
		members = append(members, domain.PartnershipMember{
			Org:  domain.OrgRef{ID: int64(m.OrgID), Kind: normalizeKind(m.OrgKind)},
			Role: role,
		})
	}
	pType := strings.ToLower(strings.TrimSpace(r.Type))
	if pType == "" {
		pType = domain.PartnershipTypeBilateral
	}
	return domain.Partnership{
		ID:           int64(r.ID),
		Type:         pType,
		Status:       normalizeStatus(r.Status),
		Initiator:    domain.OrgRef{ID: int64(r.InitiatorID), Kind: normalizeKind(r.InitiatorKind)},
		Members:      members,
		ShareMembers: bool(r.ShareMembers),
		Description:  r.Description,
		CreatedAt:    r.CreatedAt.Time(),
	}
}

type rawBranchRequest struct {
	ID        flexID   `json:"id"`
	Status    string   `json:"status"`
	Initiator string   `json:"initiator"`
	Recipient string   `json:"recipient"`
	ParentOrg rawOrg   `json:"parent_org"`
	ChildOrg  rawOrg   `json:"child_org"`
	Message   string   `json:"message"`
	CreatedAt flexTime `json:"created_at"`
}

func (r rawBranchRequest) toDomain() domain.BranchRequest {
	initiator := domain.BranchSide(strings.ToLower(strings.TrimSpace(r.Initiator)))
	if initiator != domain.BranchSideParent {
		initiator = domain.BranchSideChild
	}
	recipient := domain.BranchSideParent
	if initiator == domain.BranchSideParent {
		recipient = domain.BranchSideChild
	}
	return domain.BranchRequest{
		ID:        int64(r.ID),
		Status:    normalizeStatus(r.Status),
		Initiator: initiator,
		Recipient: recipient,
		ParentOrg: r.ParentOrg.toDomain(""),
		ChildOrg:  r.ChildOrg.toDomain(""),
		Message:   r.Message,
		CreatedAt: r.CreatedAt.Time(),
	}
}

type rawMembershipRequest struct {
	ID          flexID   `json:"id"`
	UserID      flexID   `json:"user_id"`
	OrgID       flexID   `json:"org_id"`
	OrgKind     string   `json:"org_kind"`
	OrgName     string   `json:"org_name"`
	Status      string   `json:"status"`
	RequestedAt flexTime `json:"requested_at"`
}

func (r rawMembershipRequest) toDomain(fallbackKind domain.OrgKind) domain.MembershipRequest {
	kind := normalizeKind(r.OrgKind)
	if kind == "" {
		kind = fallbackKind
	}
	return domain.MembershipRequest{
		ID:          int64(r.ID),
		UserID:      int64(r.UserID),
		Org:         domain.OrgRef{ID: int64(r.OrgID), Kind: kind},
		OrgName:     r.OrgName,
		Status:      normalizeStatus(r.Status),
		RequestedAt: r.RequestedAt.Time(),
	}
}

type rawMember struct {
	ID                  flexID      `json:"id"`
	FirstName           string      `json:"first_name"`
	LastName            string      `json:"last_name"`
	Email               string      `json:"email"`
	Skills              flexStrings `json:"skills"`
	Availability        flexStrings `json:"availability"`
	Organizations       flexStrings `json:"organizations"`
	CommonOrganizations flexStrings `json:"common_organizations"`
	TakeTrainee         flexBool    `json:"take_trainee"`
	ProposeWorkshop     flexBool    `json:"propose_workshop"`
}

func (r rawMember) toDomain() domain.Member {
	return domain.Member{
		ID:                  int64(r.ID),
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		Email:               r.Email,
		Skills:              r.Skills,
		Availability:        r.Availability,
		Organizations:       r.Organizations,
		CommonOrganizations: r.CommonOrganizations,
		TakeTrainee:         bool(r.TakeTrainee),
		ProposeWorkshop:     bool(r.ProposeWorkshop),
	}
}
