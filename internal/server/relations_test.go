package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/orgmesh/orgmesh/internal/config"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService scripts the orchestrator per test. Unset handlers return zero
// values so tests only wire what they assert on.
type stubService struct {
	refresh            func(ctx context.Context, actor domain.Actor) error
	overview           func(ctx context.Context, actor domain.Actor) (*domain.OverviewResponse, error)
	proposePartnership func(ctx context.Context, actor domain.Actor, req domain.ProposePartnershipRequest) (*domain.Partnership, error)
	acceptPartnership  func(ctx context.Context, actor domain.Actor, id int64) error
	join               func(ctx context.Context, actor domain.Actor, org domain.OrgRef) (*domain.MembershipRequest, error)
	networkMembers     func(ctx context.Context, actor domain.Actor, filter domain.MemberFilter) ([]domain.Member, error)
}

func (s *stubService) Refresh(ctx context.Context, actor domain.Actor) error {
	if s.refresh != nil {
		return s.refresh(ctx, actor)
	}
	return nil
}

func (s *stubService) Overview(ctx context.Context, actor domain.Actor) (*domain.OverviewResponse, error) {
	if s.overview != nil {
		return s.overview(ctx, actor)
	}
	return &domain.OverviewResponse{}, nil
}

func (s *stubService) ListPartnerships(context.Context, domain.Actor, domain.Status, int) (*domain.PartnershipListResponse, error) {
	return &domain.PartnershipListResponse{Items: []domain.ClassifiedPartnership{}}, nil
}

func (s *stubService) ProposePartnership(ctx context.Context, actor domain.Actor, req domain.ProposePartnershipRequest) (*domain.Partnership, error) {
	if s.proposePartnership != nil {
		return s.proposePartnership(ctx, actor, req)
	}
	return &domain.Partnership{}, nil
}

func (s *stubService) AcceptPartnership(ctx context.Context, actor domain.Actor, id int64) error {
	if s.acceptPartnership != nil {
		return s.acceptPartnership(ctx, actor, id)
	}
	return nil
}

func (s *stubService) RejectPartnership(context.Context, domain.Actor, int64) error { return nil }
func (s *stubService) CancelPartnership(context.Context, domain.Actor, int64) error { return nil }

func (s *stubService) ListBranchRequests(context.Context, domain.Actor) ([]domain.ClassifiedBranchRequest, error) {
	return []domain.ClassifiedBranchRequest{}, nil
}

func (s *stubService) RequestBranch(context.Context, domain.Actor, domain.RequestBranchRequest) (*domain.BranchRequest, error) {
	return &domain.BranchRequest{}, nil
}

func (s *stubService) ConfirmBranch(context.Context, domain.Actor, int64) error { return nil }
func (s *stubService) RejectBranch(context.Context, domain.Actor, int64) error  { return nil }
func (s *stubService) CancelBranch(context.Context, domain.Actor, int64) error  { return nil }

func (s *stubService) ListSubOrganizations(context.Context, domain.Actor) (*domain.SubOrganizationsResponse, error) {
	return &domain.SubOrganizationsResponse{Items: []domain.Organization{}}, nil
}

func (s *stubService) ListMembershipRequests(context.Context, domain.Actor) ([]domain.MembershipRequest, error) {
	return []domain.MembershipRequest{}, nil
}

func (s *stubService) Join(ctx context.Context, actor domain.Actor, org domain.OrgRef) (*domain.MembershipRequest, error) {
	if s.join != nil {
		return s.join(ctx, actor, org)
	}
	return &domain.MembershipRequest{}, nil
}

func (s *stubService) NetworkMembers(ctx context.Context, actor domain.Actor, filter domain.MemberFilter) ([]domain.Member, error) {
	if s.networkMembers != nil {
		return s.networkMembers(ctx, actor, filter)
	}
	return []domain.Member{}, nil
}

func (s *stubService) SearchOrganizations(context.Context, domain.Actor, string, int, domain.MemberFilter) (*domain.SearchResponse, error) {
	return &domain.SearchResponse{Items: []domain.CandidateOrganization{}}, nil
}

func newTestServer(t *testing.T, stub *stubService) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	holder, err := config.NewCatalogHolder()
	require.NoError(t, err)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	srv := &Server{
		engine:       r,
		catalog:      holder,
		relationsSvc: stub,
	}
	srv.registerAPIRoutes()
	return srv
}

func perform(srv *Server, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func orgHeaders() map[string]string {
	return map[string]string{
		HeaderOrgID:   "1",
		HeaderOrgKind: "school",
		HeaderUserID:  "7",
	}
}

func TestActorContextParsesHeaders(t *testing.T) {
	var seen domain.Actor
	stub := &stubService{
		overview: func(_ context.Context, actor domain.Actor) (*domain.OverviewResponse, error) {
			seen = actor
			return &domain.OverviewResponse{}, nil
		},
	}
	srv := newTestServer(t, stub)

	w := perform(srv, http.MethodGet, "/api/overview", "", orgHeaders())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.Actor{OrgID: 1, OrgKind: domain.OrgKindSchool, UserID: 7}, seen)
}

func TestActorContextToleratesMalformedHeaders(t *testing.T) {
	var seen domain.Actor
	stub := &stubService{
		overview: func(_ context.Context, actor domain.Actor) (*domain.OverviewResponse, error) {
			seen = actor
			return nil, domain.ErrInvalidActor
		},
	}
	srv := newTestServer(t, stub)

	w := perform(srv, http.MethodGet, "/api/overview", "", map[string]string{
		HeaderOrgID:   "not-a-number",
		HeaderOrgKind: "school",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, domain.Actor{}, seen)
}

func TestAcceptPartnershipRoute(t *testing.T) {
	t.Run("non-numeric id is a validation error", func(t *testing.T) {
		srv := newTestServer(t, &stubService{})
		w := perform(srv, http.MethodPost, "/api/partnerships/abc/accept", "", orgHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp errorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "validation_error", resp.Error.Type)
	})

	t.Run("role mismatch maps to forbidden", func(t *testing.T) {
		stub := &stubService{
			acceptPartnership: func(context.Context, domain.Actor, int64) error {
				return domain.ErrNotRecipient
			},
		}
		srv := newTestServer(t, stub)
		w := perform(srv, http.MethodPost, "/api/partnerships/5/accept", "", orgHeaders())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("success is no content", func(t *testing.T) {
		var gotID int64
		stub := &stubService{
			acceptPartnership: func(_ context.Context, _ domain.Actor, id int64) error {
				gotID = id
				return nil
			},
		}
		srv := newTestServer(t, stub)
		w := perform(srv, http.MethodPost, "/api/partnerships/5/accept", "", orgHeaders())
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, int64(5), gotID)
	})
}

func TestProposePartnershipRoute(t *testing.T) {
	t.Run("duplicate maps to conflict", func(t *testing.T) {
		stub := &stubService{
			proposePartnership: func(context.Context, domain.Actor, domain.ProposePartnershipRequest) (*domain.Partnership, error) {
				return nil, domain.ErrDuplicatePartnership
			},
		}
		srv := newTestServer(t, stub)
		w := perform(srv, http.MethodPost, "/api/partnerships", `{"partner": {"id": 2, "kind": "school"}}`, orgHeaders())
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("created returns 201", func(t *testing.T) {
		stub := &stubService{
			proposePartnership: func(_ context.Context, _ domain.Actor, req domain.ProposePartnershipRequest) (*domain.Partnership, error) {
				return &domain.Partnership{ID: 77, Status: domain.StatusPending, Initiator: domain.OrgRef{ID: 1, Kind: domain.OrgKindSchool}}, nil
			},
		}
		srv := newTestServer(t, stub)
		w := perform(srv, http.MethodPost, "/api/partnerships", `{"partner": {"id": 2, "kind": "school"}, "share_members": true}`, orgHeaders())
		assert.Equal(t, http.StatusCreated, w.Code)

		var created domain.Partnership
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
		assert.Equal(t, int64(77), created.ID)
	})

	t.Run("malformed body is a validation error", func(t *testing.T) {
		srv := newTestServer(t, &stubService{})
		w := perform(srv, http.MethodPost, "/api/partnerships", `{"partner":`, orgHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestJoinOrganizationRoute(t *testing.T) {
	var gotOrg domain.OrgRef
	stub := &stubService{
		join: func(_ context.Context, _ domain.Actor, org domain.OrgRef) (*domain.MembershipRequest, error) {
			gotOrg = org
			return &domain.MembershipRequest{ID: 1, Org: org, Status: domain.StatusPending}, nil
		},
	}
	srv := newTestServer(t, stub)

	w := perform(srv, http.MethodPost, "/api/organizations/schools/5/join", "", orgHeaders())
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, domain.OrgRef{ID: 5, Kind: domain.OrgKindSchool}, gotOrg)

	w = perform(srv, http.MethodPost, "/api/organizations/charity/5/join", "", orgHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNetworkMembersRoute(t *testing.T) {
	members := []domain.Member{
		{ID: 1, FirstName: "Ada"},
		{ID: 2, FirstName: "Ben"},
		{ID: 3, FirstName: "Cyd"},
	}

	t.Run("availability splits on commas and is validated", func(t *testing.T) {
		var gotFilter domain.MemberFilter
		stub := &stubService{
			networkMembers: func(_ context.Context, _ domain.Actor, filter domain.MemberFilter) ([]domain.Member, error) {
				gotFilter = filter
				return members, nil
			},
		}
		srv := newTestServer(t, stub)

		w := perform(srv, http.MethodGet, "/api/network/members?availability=monday,Other&skill=go", "", orgHeaders())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"monday", "other"}, gotFilter.Availability)
		assert.Equal(t, "go", gotFilter.Skill)
	})

	t.Run("unknown availability is rejected", func(t *testing.T) {
		srv := newTestServer(t, &stubService{})
		w := perform(srv, http.MethodGet, "/api/network/members?availability=someday", "", orgHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pagination slices the member list", func(t *testing.T) {
		stub := &stubService{
			networkMembers: func(context.Context, domain.Actor, domain.MemberFilter) ([]domain.Member, error) {
				return members, nil
			},
		}
		srv := newTestServer(t, stub)

		w := perform(srv, http.MethodGet, "/api/network/members?page=2&per_page=2", "", orgHeaders())
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Items      []domain.Member `json:"items"`
			TotalCount int             `json:"total_count"`
			Page       int             `json:"page"`
			PerPage    int             `json:"per_page"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.TotalCount)
		assert.Equal(t, 2, resp.Page)
		assert.Equal(t, 2, resp.PerPage)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "Cyd", resp.Items[0].FirstName)
	})

	t.Run("per_page is clamped to the catalog maximum", func(t *testing.T) {
		stub := &stubService{
			networkMembers: func(context.Context, domain.Actor, domain.MemberFilter) ([]domain.Member, error) {
				return members, nil
			},
		}
		srv := newTestServer(t, stub)

		w := perform(srv, http.MethodGet, "/api/network/members?per_page=9999", "", orgHeaders())
		assert.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			PerPage int `json:"per_page"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 100, resp.PerPage)
	})
}

func TestGetFilterCatalogRoute(t *testing.T) {
	srv := newTestServer(t, &stubService{})
	w := perform(srv, http.MethodGet, "/api/network/filters", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AvailabilityDays []string `json:"availability_days"`
		DefaultPageSize  int      `json:"default_page_size"`
		MaxPageSize      int      `json:"max_page_size"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.AvailabilityDays, "other")
	assert.Equal(t, 25, resp.DefaultPageSize)
	assert.Equal(t, 100, resp.MaxPageSize)
}

func TestRefreshRouteMapsRemoteFailure(t *testing.T) {
	stub := &stubService{
		refresh: func(context.Context, domain.Actor) error {
			return &domain.RemoteError{StatusCode: http.StatusBadGateway, Message: "upstream down"}
		},
	}
	srv := newTestServer(t, stub)

	w := perform(srv, http.MethodPost, "/api/refresh", "", orgHeaders())
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "remote_unavailable", resp.Error.Type)
}
