// Package client is the HTTP adapter for the remote relationship service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/orgmesh/orgmesh/internal/config"
	"github.com/orgmesh/orgmesh/internal/observability/metrics"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
	"go.uber.org/zap"
)

type Client struct {
	baseURL  string
	pageSize int
	http     *http.Client
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// New builds the remote adapter from configuration.
func New(cfg config.Config, m *metrics.Metrics, log *zap.Logger) domain.Remote {
	return &Client{
		baseURL:  strings.TrimRight(cfg.RemoteBaseURL, "/"),
		pageSize: cfg.RemotePageSize,
		http:     &http.Client{Timeout: cfg.RemoteTimeout},
		metrics:  m,
		log:      log,
	}
}

func orgPath(org domain.OrgRef, suffix string) string {
	return fmt.Sprintf("/organizations/%s/%d%s", org.Kind, org.ID, suffix)
}

func (c *Client) ListPartnerships(ctx context.Context, org domain.OrgRef, status domain.Status, page int) ([]domain.Partnership, domain.ListMeta, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", string(status))
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if c.pageSize > 0 {
		query.Set("per_page", strconv.Itoa(c.pageSize))
	}

	var resp struct {
		Data []rawPartnership `json:"data"`
		Meta rawMeta          `json:"meta"`
	}
	if err := c.do(ctx, "list_partnerships", http.MethodGet, orgPath(org, "/partnerships"), query, nil, &resp); err != nil {
		return nil, domain.ListMeta{}, err
	}

	out := make([]domain.Partnership, 0, len(resp.Data))
	for _, raw := range resp.Data {
		out = append(out, raw.toDomain())
	}
	return out, resp.Meta.toDomain(), nil
}

func (c *Client) CreatePartnership(ctx context.Context, org domain.OrgRef, payload domain.CreatePartnershipPayload) (*domain.Partnership, error) {
	body := map[string]any{
		"partner_id":    payload.Partner.ID,
		"partner_kind":  payload.Partner.Kind,
		"own_role":      payload.OwnRole,
		"partner_role":  payload.PartnerRole,
		"share_members": payload.ShareMembers,
		"description":   payload.Description,
	}

	var raw rawPartnership
	if err := c.do(ctx, "create_partnership", http.MethodPost, orgPath(org, "/partnerships"), nil, body, &raw); err != nil {
		return nil, err
	}
	created := raw.toDomain()
	return &created, nil
}

func (c *Client) AcceptPartnership(ctx context.Context, org domain.OrgRef, partnershipID int64) error {
	return c.do(ctx, "accept_partnership", http.MethodPost, orgPath(org, fmt.Sprintf("/partnerships/%d/accept", partnershipID)), nil, nil, nil)
}

func (c *Client) RejectPartnership(ctx context.Context, org domain.OrgRef, partnershipID int64) error {
	return c.do(ctx, "reject_partnership", http.MethodPost, orgPath(org, fmt.Sprintf("/partnerships/%d/reject", partnershipID)), nil, nil, nil)
}

func (c *Client) DeletePartnership(ctx context.Context, org domain.OrgRef, partnershipID int64) error {
	return c.do(ctx, "delete_partnership", http.MethodDelete, orgPath(org, fmt.Sprintf("/partnerships/%d", partnershipID)), nil, nil, nil)
}

func (c *Client) ListBranchRequests(ctx context.Context, org domain.OrgRef) ([]domain.BranchRequest, error) {
	var resp struct {
		Data []rawBranchRequest `json:"data"`
	}
	if err := c.do(ctx, "list_branch_requests", http.MethodGet, orgPath(org, "/branch-requests"), nil, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.BranchRequest, 0, len(resp.Data))
	for _, raw := range resp.Data {
		out = append(out, raw.toDomain())
	}
	return out, nil
}

func (c *Client) CreateBranchRequest(ctx context.Context, org domain.OrgRef, payload domain.CreateBranchPayload) (*domain.BranchRequest, error) {
	body := map[string]any{
		"parent_org_id": payload.ParentOrgID,
		"message":       payload.Message,
	}

	var raw rawBranchRequest
	if err := c.do(ctx, "create_branch_request", http.MethodPost, orgPath(org, "/branch-requests"), nil, body, &raw); err != nil {
		return nil, err
	}
	created := raw.toDomain()
	return &created, nil
}

func (c *Client) ConfirmBranchRequest(ctx context.Context, org domain.OrgRef, requestID int64) error {
	return c.do(ctx, "confirm_branch_request", http.MethodPost, orgPath(org, fmt.Sprintf("/branch-requests/%d/confirm", requestID)), nil, nil, nil)
}

func (c *Client) RejectBranchRequest(ctx context.Context, org domain.OrgRef, requestID int64) error {
	return c.do(ctx, "reject_branch_request", http.MethodPost, orgPath(org, fmt.Sprintf("/branch-requests/%d/reject", requestID)), nil, nil, nil)
}

func (c *Client) DeleteBranchRequest(ctx context.Context, org domain.OrgRef, requestID int64) error {
	return c.do(ctx, "delete_branch_request", http.MethodDelete, orgPath(org, fmt.Sprintf("/branch-requests/%d", requestID)), nil, nil, nil)
}

func (c *Client) ListSubOrganizations(ctx context.Context, org domain.OrgRef) ([]domain.Organization, bool, error) {
	var resp struct {
		Data     []rawOrg `json:"data"`
		IsParent flexBool `json:"is_parent"`
	}
	if err := c.do(ctx, "list_sub_organizations", http.MethodGet, orgPath(org, "/sub-organizations"), nil, nil, &resp); err != nil {
		return nil, false, err
	}

	out := make([]domain.Organization, 0, len(resp.Data))
	for _, raw := range resp.Data {
		out = append(out, raw.toDomain(org.Kind))
	}
	return out, bool(resp.IsParent), nil
}

func (c *Client) ListMembershipRequests(ctx context.Context, userID int64) ([]domain.MembershipRequest, error) {
	var resp struct {
		Schools   []rawMembershipRequest `json:"schools"`
		Companies []rawMembershipRequest `json:"companies"`
	}
	path := fmt.Sprintf("/users/%d/membership-requests", userID)
	if err := c.do(ctx, "list_membership_requests", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.MembershipRequest, 0, len(resp.Schools)+len(resp.Companies))
	for _, raw := range resp.Schools {
		out = append(out, raw.toDomain(domain.OrgKindSchool))
	}
	for _, raw := range resp.Companies {
		out = append(out, raw.toDomain(domain.OrgKindCompany))
	}
	return out, nil
}

func (c *Client) JoinSchool(ctx context.Context, userID int64, orgID int64) (*domain.MembershipRequest, error) {
	return c.join(ctx, fmt.Sprintf("/schools/%d/join", orgID), userID, domain.OrgKindSchool)
}

func (c *Client) JoinCompany(ctx context.Context, userID int64, orgID int64) (*domain.MembershipRequest, error) {
	return c.join(ctx, fmt.Sprintf("/companies/%d/join", orgID), userID, domain.OrgKindCompany)
}

func (c *Client) join(ctx context.Context, path string, userID int64, kind domain.OrgKind) (*domain.MembershipRequest, error) {
	body := map[string]any{"user_id": userID}

	var raw rawMembershipRequest
	if err := c.do(ctx, "join_organization", http.MethodPost, path, nil, body, &raw); err != nil {
		return nil, err
	}
	created := raw.toDomain(kind)
	return &created, nil
}

func (c *Client) GetNetworkMembers(ctx context.Context, org domain.OrgRef, shareMembers bool) ([]domain.Member, error) {
	query := url.Values{}
	query.Set("share_members", strconv.FormatBool(shareMembers))

	var resp struct {
		Data []rawMember `json:"data"`
	}
	if err := c.do(ctx, "get_network_members", http.MethodGet, orgPath(org, "/network-members"), query, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Member, 0, len(resp.Data))
	for _, raw := range resp.Data {
		out = append(out, raw.toDomain())
	}
	return out, nil
}

func (c *Client) GetUserNetworkMembers(ctx context.Context, userID int64) ([]domain.Member, error) {
	var resp struct {
		Data []rawMember `json:"data"`
	}
	path := fmt.Sprintf("/users/%d/network-members", userID)
	if err := c.do(ctx, "get_user_network_members", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Member, 0, len(resp.Data))
	for _, raw := range resp.Data {
		out = append(out, raw.toDomain())
	}
	return out, nil
}

func (c *Client) SearchOrganizations(ctx context.Context, query string, page int) ([]domain.Organization, domain.ListMeta, error) {
	params := url.Values{}
	params.Set("q", query)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if c.pageSize > 0 {
		params.Set("per_page", strconv.Itoa(c.pageSize))
	}

	var resp struct {
		Schools   []rawOrg `json:"schools"`
		Companies []rawOrg `json:"companies"`
		Meta      rawMeta  `json:"meta"`
	}
	if err := c.do(ctx, "search_organizations", http.MethodGet, "/organizations/search", params, nil, &resp); err != nil {
		return nil, domain.ListMeta{}, err
	}

	out := make([]domain.Organization, 0, len(resp.Schools)+len(resp.Companies))
	for _, raw := range resp.Schools {
		out = append(out, raw.toDomain(domain.OrgKindSchool))
	}
	for _, raw := range resp.Companies {
		out = append(out, raw.toDomain(domain.OrgKindCompany))
	}
	return out, resp.Meta.toDomain(), nil
}

type remoteErrorResponse struct {
	Message string `json:"message"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordRemoteRequest(ctx, operation, "transport_error")
		return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var remoteErr remoteErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&remoteErr)
		message := strings.TrimSpace(remoteErr.Message)
		if message == "" {
			message = strings.TrimSpace(remoteErr.Error.Message)
		}
		c.log.Warn("remote request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		c.metrics.RecordRemoteRequest(ctx, operation, "remote_error")
		return &domain.RemoteError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.metrics.RecordRemoteRequest(ctx, operation, "decode_error")
			return fmt.Errorf("%w: decoding response: %v", domain.ErrRemoteUnavailable, err)
		}
	}
	c.metrics.RecordRemoteRequest(ctx, operation, "ok")
	return nil
}
