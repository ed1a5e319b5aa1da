package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/orgmesh/orgmesh/internal/config"
	"github.com/orgmesh/orgmesh/internal/observability/metrics"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) (domain.Remote, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	remote := New(config.Config{
		RemoteBaseURL:  srv.URL,
		RemoteTimeout:  5 * time.Second,
		RemotePageSize: 50,
	}, nil, zaptest.NewLogger(t))
	return remote, srv
}

var schoolA = domain.OrgRef{ID: 1, Kind: domain.OrgKindSchool}

func TestListPartnershipsDecodesLoosePayloads(t *testing.T) {
	var gotQuery string
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/school/1/partnerships", r.URL.Path)
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "42",
				"status": "accepted",
				"initiator_id": 1,
				"initiator_kind": "School",
				"members": [
					{"org_id": "1", "org_kind": "school", "role": "SPONSOR"},
					{"org_id": 2, "org_kind": "school", "role": "beneficiary"}
				],
				"share_members": "1",
				"created_at": "2026-02-01 09:30:00"
			}],
			"meta": {"total_count": 7, "total_pages": 3}
		}`))
	}))

	partnerships, meta, err := remote.ListPartnerships(context.Background(), schoolA, domain.StatusConfirmed, 2)
	require.NoError(t, err)
	require.Len(t, partnerships, 1)

	p := partnerships[0]
	assert.Equal(t, int64(42), p.ID)
	assert.Equal(t, domain.StatusConfirmed, p.Status)
	assert.Equal(t, schoolA, p.Initiator)
	assert.Equal(t, domain.PartnerRoleSponsor, p.Members[0].Role)
	assert.True(t, p.ShareMembers)
	assert.Equal(t, time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC), p.CreatedAt)

	// Remote meta is authoritative over the local slice length.
	assert.Equal(t, 7, meta.ResolveCount(len(partnerships)))
	assert.Equal(t, 3, meta.TotalPages)

	assert.Contains(t, gotQuery, "status=confirmed")
	assert.Contains(t, gotQuery, "page=2")
	assert.Contains(t, gotQuery, "per_page=50")
}

func TestForbiddenSurfacesVerbatimMessage(t *testing.T) {
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"message": "Only the school administrator may accept partnerships"}}`))
	}))

	err := remote.AcceptPartnership(context.Background(), schoolA, 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientPrivilege)

	var remoteErr *domain.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusForbidden, remoteErr.StatusCode)
	assert.Equal(t, "Only the school administrator may accept partnerships", remoteErr.Message)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnprocessableEntity, domain.ErrInvalidRequest},
		{http.StatusInternalServerError, domain.ErrRemoteUnavailable},
	}
	for _, tc := range cases {
		remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message": "nope"}`))
		}))
		err := remote.DeletePartnership(context.Background(), schoolA, 1)
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
	}
}

func TestTransportFailureIsRemoteUnavailable(t *testing.T) {
	remote, srv := newTestClient(t, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, _, err := remote.ListPartnerships(context.Background(), schoolA, "", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
	assert.False(t, errors.As(err, new(*domain.RemoteError)))
}

func TestSearchOrganizationsMergesKindBuckets(t *testing.T) {
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/search", r.URL.Path)
		assert.Equal(t, "river", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"schools": [{"id": 1, "name": "Riverside School", "status": "active"}],
			"companies": [{"id": "2", "name": "Riverside Robotics"}],
			"meta": {"total_count": 2, "total_pages": 1}
		}`))
	}))

	orgs, meta, err := remote.SearchOrganizations(context.Background(), "river", 1)
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, domain.OrgKindSchool, orgs[0].Kind)
	assert.Equal(t, domain.OrgKindCompany, orgs[1].Kind)
	assert.Equal(t, 2, meta.TotalCount)
}

func TestListMembershipRequestsFallsBackToBucketKind(t *testing.T) {
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/7/membership-requests", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"schools": [{"id": 10, "user_id": 7, "org_id": 1, "status": "pending"}],
			"companies": [{"id": 11, "user_id": "7", "org_id": "3", "status": "declined"}]
		}`))
	}))

	requests, err := remote.ListMembershipRequests(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, domain.OrgKindSchool, requests[0].Org.Kind)
	assert.Equal(t, domain.OrgKindCompany, requests[1].Org.Kind)
	assert.Equal(t, domain.StatusRejected, requests[1].Status)
}

func TestJoinSchoolSendsUserID(t *testing.T) {
	var body map[string]any
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/schools/5/join", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 99, "user_id": 7, "org_id": 5, "status": "pending"}`))
	}))

	created, err := remote.JoinSchool(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Equal(t, float64(7), body["user_id"])
	assert.Equal(t, int64(99), created.ID)
	assert.Equal(t, domain.OrgRef{ID: 5, Kind: domain.OrgKindSchool}, created.Org)
}

func TestGetNetworkMembersDecodesNamedSkillObjects(t *testing.T) {
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/school/1/network-members", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("share_members"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{
				"id": "8",
				"first_name": "Ada",
				"skills": [{"name": "Mathematics"}, {"name": ""}],
				"availability": ["monday", "other"],
				"take_trainee": "yes"
			}]
		}`))
	}))

	members, err := remote.GetNetworkMembers(context.Background(), schoolA, true)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, int64(8), members[0].ID)
	assert.Equal(t, []string{"Mathematics"}, members[0].Skills)
	assert.Equal(t, []string{"monday", "other"}, members[0].Availability)
	assert.True(t, members[0].TakeTrainee)
}

func TestRemoteRequestsAreCounted(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := metrics.New(metrics.Config{ServiceName: "orgmesh"}, provider)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	t.Cleanup(srv.Close)

	remote := New(config.Config{
		RemoteBaseURL: srv.URL,
		RemoteTimeout: 5 * time.Second,
	}, m, zaptest.NewLogger(t))

	_, err = remote.ListBranchRequests(context.Background(), schoolA)
	require.NoError(t, err)
	require.Error(t, remote.DeletePartnership(context.Background(), schoolA, 1))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, entry := range scope.Metrics {
			if entry.Name != "orgmesh_remote_requests_total" {
				continue
			}
			sum, ok := entry.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				operation, _ := dp.Attributes.Value("operation")
				outcome, _ := dp.Attributes.Value("outcome")
				counts[operation.AsString()+"/"+outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), counts["list_branch_requests/ok"])
	assert.Equal(t, int64(1), counts["delete_partnership/remote_error"])
}

func TestListSubOrganizationsParentFlag(t *testing.T) {
	remote, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations/school/1/sub-organizations", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": [{"id": 4, "name": "Branch Campus"}],
			"is_parent": "1"
		}`))
	}))

	subOrgs, isParent, err := remote.ListSubOrganizations(context.Background(), schoolA)
	require.NoError(t, err)
	assert.True(t, isParent)
	require.Len(t, subOrgs, 1)
	// Kind is inherited from the parent when the payload omits it.
	assert.Equal(t, domain.OrgKindSchool, subOrgs[0].Kind)
}
