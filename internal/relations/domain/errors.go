package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrNotFound            = errors.New("not_found")

	ErrSelfRelation         = errors.New("self_relation")
	ErrCrossKindBranch      = errors.New("cross_kind_branch")
	ErrAlreadyChild         = errors.New("already_child")
	ErrDuplicatePartnership = errors.New("duplicate_partnership")
	ErrDuplicateMembership  = errors.New("duplicate_membership")
	ErrNotRecipient         = errors.New("not_recipient")
	ErrNotInitiator         = errors.New("not_initiator")
	ErrNotPending           = errors.New("not_pending")

	ErrInsufficientPrivilege = errors.New("insufficient_privilege")
	ErrRemoteUnavailable     = errors.New("remote_unavailable")
)

// RemoteError carries a failure reported by the relationship service. The
// server message is preserved verbatim so privilege errors surface as-is.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote error (%d)", e.StatusCode)
}

// Unwrap maps the remote status onto the local error taxonomy.
func (e *RemoteError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusForbidden:
		return ErrInsufficientPrivilege
	case e.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case e.StatusCode >= http.StatusBadRequest && e.StatusCode < http.StatusInternalServerError:
		return ErrInvalidRequest
	default:
		return ErrRemoteUnavailable
	}
}
