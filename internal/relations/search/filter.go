// Package search applies compound filter predicates over aggregated member
// and organization lists. Predicates are ANDed; an empty filter returns the
// input unchanged. All matching is case-insensitive.
package search

import (
	"strings"

	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

// Catch-all availability values match any requested day.
var catchAllAvailability = map[string]struct{}{
	"other":     {},
	"available": {},
}

// Members returns the subset of members matching every active predicate.
func Members(in []domain.Member, filter domain.MemberFilter) []domain.Member {
	if filter.Empty() {
		return in
	}

	out := make([]domain.Member, 0, len(in))
	for _, m := range in {
		if matchesMember(m, filter) {
			out = append(out, m)
		}
	}
	return out
}

// Organizations returns the catalog subset matching the filter. When the
// internship or workshop predicate is active, schools are excluded entirely;
// those offers are a company-only attribute.
func Organizations(in []domain.Organization, filter domain.MemberFilter) []domain.Organization {
	if filter.Empty() {
		return in
	}

	out := make([]domain.Organization, 0, len(in))
	for _, org := range in {
		if (filter.OffersInternship || filter.OffersWorkshop) && org.Kind == domain.OrgKindSchool {
			continue
		}
		if filter.Query != "" && !orgMatchesQuery(org, filter.Query) {
			continue
		}
		if filter.Organization != "" && !strings.EqualFold(org.Name, filter.Organization) {
			continue
		}
		out = append(out, org)
	}
	return out
}

func matchesMember(m domain.Member, filter domain.MemberFilter) bool {
	if filter.Skill != "" && !hasSkill(m, filter.Skill) {
		return false
	}
	if len(filter.Availability) > 0 && !availabilityIntersects(m, filter.Availability) {
		return false
	}
	if filter.Organization != "" && !belongsTo(m, filter.Organization) {
		return false
	}
	if filter.OffersInternship && !m.TakeTrainee {
		return false
	}
	if filter.OffersWorkshop && !m.ProposeWorkshop {
		return false
	}
	if filter.Query != "" && !memberMatchesQuery(m, filter.Query) {
		return false
	}
	return true
}

func hasSkill(m domain.Member, skill string) bool {
	needle := strings.ToLower(skill)
	for _, s := range m.Skills {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func availabilityIntersects(m domain.Member, requested []string) bool {
	for _, have := range m.Availability {
		have = strings.ToLower(strings.TrimSpace(have))
		if _, ok := catchAllAvailability[have]; ok {
			return true
		}
		for _, want := range requested {
			if have == strings.ToLower(strings.TrimSpace(want)) {
				return true
			}
		}
	}
	return false
}

// belongsTo matches the member's own organizations first and falls back to
// the shared/common organizations.
func belongsTo(m domain.Member, name string) bool {
	for _, own := range m.Organizations {
		if strings.EqualFold(own, name) {
			return true
		}
	}
	for _, common := range m.CommonOrganizations {
		if strings.EqualFold(common, name) {
			return true
		}
	}
	return false
}

func memberMatchesQuery(m domain.Member, query string) bool {
	needle := strings.ToLower(query)
	if strings.Contains(strings.ToLower(m.FullName()), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(m.Email), needle) {
		return true
	}
	for _, org := range m.Organizations {
		if strings.Contains(strings.ToLower(org), needle) {
			return true
		}
	}
	for _, org := range m.CommonOrganizations {
		if strings.Contains(strings.ToLower(org), needle) {
			return true
		}
	}
	return false
}

func orgMatchesQuery(org domain.Organization, query string) bool {
	needle := strings.ToLower(query)
	return strings.Contains(strings.ToLower(org.Name), needle) ||
		strings.Contains(strings.ToLower(org.Location), needle)
}
