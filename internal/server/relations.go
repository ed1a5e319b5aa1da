package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
)

func (s *Server) GetOverview(c *gin.Context) {
	resp, err := s.relationsSvc.Overview(c.Request.Context(), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) PostRefresh(c *gin.Context) {
	if err := s.relationsSvc.Refresh(c.Request.Context(), actorFrom(c)); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListPartnerships(c *gin.Context) {
	status, err := parseStatus(c.Query("status"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	page, err := parsePage(c.Query("page"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.relationsSvc.ListPartnerships(c.Request.Context(), actorFrom(c), status, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ProposePartnership(c *gin.Context) {
	var req domain.ProposePartnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "malformed request body"))
		return
	}

	created, err := s.relationsSvc.ProposePartnership(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) AcceptPartnership(c *gin.Context) {
	s.partnershipAction(c, s.relationsSvc.AcceptPartnership)
}

func (s *Server) RejectPartnership(c *gin.Context) {
	s.partnershipAction(c, s.relationsSvc.RejectPartnership)
}

func (s *Server) CancelPartnership(c *gin.Context) {
	s.partnershipAction(c, s.relationsSvc.CancelPartnership)
}

func (s *Server) partnershipAction(c *gin.Context, action func(ctx context.Context, actor domain.Actor, id int64) error) {
	id, err := parseIDParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := action(c.Request.Context(), actorFrom(c), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListBranchRequests(c *gin.Context) {
	items, err := s.relationsSvc.ListBranchRequests(c.Request.Context(), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) RequestBranch(c *gin.Context) {
	var req domain.RequestBranchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "malformed request body"))
		return
	}

	created, err := s.relationsSvc.RequestBranch(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ConfirmBranch(c *gin.Context) {
	s.branchAction(c, s.relationsSvc.ConfirmBranch)
}

func (s *Server) RejectBranch(c *gin.Context) {
	s.branchAction(c, s.relationsSvc.RejectBranch)
}

func (s *Server) CancelBranch(c *gin.Context) {
	s.branchAction(c, s.relationsSvc.CancelBranch)
}

func (s *Server) branchAction(c *gin.Context, action func(ctx context.Context, actor domain.Actor, id int64) error) {
	id, err := parseIDParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if err := action(c.Request.Context(), actorFrom(c), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) ListSubOrganizations(c *gin.Context) {
	resp, err := s.relationsSvc.ListSubOrganizations(c.Request.Context(), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListMembershipRequests(c *gin.Context) {
	items, err := s.relationsSvc.ListMembershipRequests(c.Request.Context(), actorFrom(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (s *Server) JoinOrganization(c *gin.Context) {
	kind, err := parseOrgKind(c.Param("kind"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	id, err := parseIDParam(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	created, err := s.relationsSvc.Join(c.Request.Context(), actorFrom(c), domain.OrgRef{ID: id, Kind: kind})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) ListNetworkMembers(c *gin.Context) {
	filter, err := s.memberFilterFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	members, err := s.relationsSvc.NetworkMembers(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	page, err := parsePage(c.Query("page"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	pageItems, perPage := s.paginate(members, page, c.Query("per_page"))

	c.JSON(http.StatusOK, gin.H{
		"items":       pageItems,
		"total_count": len(members),
		"page":        page,
		"per_page":    perPage,
	})
}

func (s *Server) SearchOrganizations(c *gin.Context) {
	page, err := parsePage(c.Query("page"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	filter, err := s.memberFilterFromQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.relationsSvc.SearchOrganizations(c.Request.Context(), actorFrom(c), c.Query("q"), page, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetFilterCatalog serves the filter vocabulary the dashboard builds its
// search form from. The catalog is hot-reloaded from configuration.
func (s *Server) GetFilterCatalog(c *gin.Context) {
	catalog := s.catalog.Get()
	c.JSON(http.StatusOK, gin.H{
		"availability_days": catalog.AvailabilityDays,
		"default_page_size": catalog.DefaultPageSize,
		"max_page_size":     catalog.MaxPageSize,
	})
}

func (s *Server) memberFilterFromQuery(c *gin.Context) (domain.MemberFilter, error) {
	internship, err := parseOptionalBool(c.Query("internship"))
	if err != nil {
		return domain.MemberFilter{}, err
	}
	workshop, err := parseOptionalBool(c.Query("workshop"))
	if err != nil {
		return domain.MemberFilter{}, err
	}

	catalog := s.catalog.Get()
	availability := make([]string, 0)
	for _, raw := range c.QueryArray("availability") {
		for _, day := range strings.Split(raw, ",") {
			day = strings.ToLower(strings.TrimSpace(day))
			if day == "" {
				continue
			}
			if !catalog.KnownAvailability(day) {
				return domain.MemberFilter{}, newValidationError("availability", "invalid_availability", "unknown availability value")
			}
			availability = append(availability, day)
		}
	}

	return domain.MemberFilter{
		Skill:            strings.TrimSpace(c.Query("skill")),
		Availability:     availability,
		Organization:     strings.TrimSpace(c.Query("organization")),
		OffersInternship: internship,
		OffersWorkshop:   workshop,
		Query:            strings.TrimSpace(c.Query("q")),
	}, nil
}

// paginate slices an in-memory member list using the catalog page policy.
func (s *Server) paginate(members []domain.Member, page int, perPageRaw string) ([]domain.Member, int) {
	catalog := s.catalog.Get()
	perPage := catalog.DefaultPageSize
	if trimmed := strings.TrimSpace(perPageRaw); trimmed != "" {
		if parsed, err := parsePage(trimmed); err == nil {
			perPage = parsed
		}
	}
	if perPage > catalog.MaxPageSize {
		perPage = catalog.MaxPageSize
	}

	start := (page - 1) * perPage
	if start >= len(members) {
		return []domain.Member{}, perPage
	}
	end := start + perPage
	if end > len(members) {
		end = len(members)
	}
	return members[start:end], perPage
}
