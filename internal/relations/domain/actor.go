package domain

// Actor is the identity on whose behalf classification and workflow
// operations are evaluated. It is always passed explicitly; nothing in the
// engine reads ambient globals. An actor may carry an organization context,
// a personal user context, or both.
type Actor struct {
	OrgID   int64   `json:"org_id"`
	OrgKind OrgKind `json:"org_kind"`
	UserID  int64   `json:"user_id"`
}

// HasOrg reports whether the actor resolves to a valid organization context.
func (a Actor) HasOrg() bool {
	return a.OrgID != 0 && a.OrgKind.Valid()
}

// HasUser reports whether the actor carries a personal user identity.
func (a Actor) HasUser() bool {
	return a.UserID != 0
}

// OrgRef returns the actor's organization identity. Zero when HasOrg is false.
func (a Actor) OrgRef() OrgRef {
	if !a.HasOrg() {
		return OrgRef{}
	}
	return OrgRef{ID: a.OrgID, Kind: a.OrgKind}
}
