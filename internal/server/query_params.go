package server

import (
	"strconv"
	"strings"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

func parseIDParam(value string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed <= 0 {
		return 0, newValidationError("id", "invalid_id", "invalid identifier")
	}
	return parsed, nil
}

func parsePage(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 1, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 1 {
		return 0, newValidationError("page", "invalid_page", "page must be a positive integer")
	}
	return parsed, nil
}

func parseOptionalBool(value string) (bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return false, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return false, newValidationError("flag", "invalid_bool", "expected a boolean value")
	}
	return parsed, nil
}

func parseStatus(value string) (domain.Status, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch domain.Status(trimmed) {
	case "", domain.StatusPending, domain.StatusConfirmed, domain.StatusRejected:
		return domain.Status(trimmed), nil
	default:
		return "", newValidationError("status", "invalid_status", "unknown status value")
	}
}

func parseOrgKind(value string) (domain.OrgKind, error) {
	kind := domain.OrgKind(strings.ToLower(strings.TrimSpace(value)))
	// Accept the plural path segments the dashboard links use.
	switch string(kind) {
	case "schools":
		kind = domain.OrgKindSchool
	case "companies":
		kind = domain.OrgKindCompany
	}
	if !kind.Valid() {
		return "", newValidationError("kind", "invalid_organization", "unknown organization kind")
	}
	return kind, nil
}
