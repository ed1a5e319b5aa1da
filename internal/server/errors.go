package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		// A 4xx the remote rejected carries the server's own explanation;
		// surface it instead of the generic local text.
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: remoteMessage(err, validationErrorMessage(code)),
				},
			},
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidActor):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "missing or malformed actor context",
		}
	case errors.Is(err, domain.ErrInsufficientPrivilege):
		// The remote's privilege message is surfaced verbatim so the
		// dashboard can display the reason the server gave.
		return http.StatusForbidden, errorPayload{
			Type:    "insufficient_privilege",
			Message: remoteMessage(err, "insufficient privilege"),
		}
	case errors.Is(err, domain.ErrNotRecipient),
		errors.Is(err, domain.ErrNotInitiator):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "actor may not perform this action",
		}
	case errors.Is(err, domain.ErrDuplicatePartnership),
		errors.Is(err, domain.ErrDuplicateMembership),
		errors.Is(err, domain.ErrAlreadyChild):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: strings.ReplaceAll(rootCode(err), "_", " "),
		}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "remote_unavailable",
			Message: "relationship service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrInvalidOrganization),
		errors.Is(err, domain.ErrSelfRelation),
		errors.Is(err, domain.ErrCrossKindBranch),
		errors.Is(err, domain.ErrNotPending):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	for _, sentinel := range []error{
		domain.ErrInvalidOrganization,
		domain.ErrSelfRelation,
		domain.ErrCrossKindBranch,
		domain.ErrNotPending,
		domain.ErrInvalidRequest,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "invalid_request"
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		field := strings.TrimPrefix(code, "invalid_")
		if field == "request" {
			return "request"
		}
		return field
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "self_relation":
		return "an organization cannot relate to itself"
	case "cross_kind_branch":
		return "branch requests require matching organization kinds"
	case "not_pending":
		return "request is no longer pending"
	default:
		return "invalid value"
	}
}

// rootCode returns the sentinel code underneath wrapped errors.
func rootCode(err error) string {
	root := err
	for {
		unwrapped := errors.Unwrap(root)
		if unwrapped == nil {
			return root.Error()
		}
		root = unwrapped
	}
}

// remoteMessage prefers the message the remote service returned.
func remoteMessage(err error, fallback string) string {
	var remoteErr *domain.RemoteError
	if errors.As(err, &remoteErr) && strings.TrimSpace(remoteErr.Message) != "" {
		return remoteErr.Message
	}
	return fallback
}

func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	status, payload := mapError(err)
	code := rootCode(err)
	if status == http.StatusBadRequest {
		return "validation_error", code
	}
	return payload.Type, code
}
