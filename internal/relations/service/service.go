// Package service orchestrates the relationship workflows. Every mutation
// runs the same ordered pipeline: validate against the cached snapshot, call
// the remote service, refetch the affected slices, recompute the derived
// views. A failed step leaves the cached state untouched.
package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/orgmesh/orgmesh/internal/observability/logger"
	"github.com/orgmesh/orgmesh/internal/observability/metrics"
	"github.com/orgmesh/orgmesh/internal/relations/classify"
	"github.com/orgmesh/orgmesh/internal/relations/domain"
	"github.com/orgmesh/orgmesh/internal/relations/repository"
	"github.com/orgmesh/orgmesh/internal/relations/search"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type service struct {
	remote  domain.Remote
	store   *repository.Store
	metrics *metrics.Metrics
	node    *snowflake.Node
	log     *zap.Logger
}

// New builds the workflow orchestrator.
func New(
	remote domain.Remote,
	store *repository.Store,
	m *metrics.Metrics,
	node *snowflake.Node,
	log *zap.Logger,
) domain.Service {
	return &service{
		remote:  remote,
		store:   store,
		metrics: m,
		node:    node,
		log:     log,
	}
}

// Refresh refetches every snapshot slice for the actor and recomputes the
// derived overview. Independent slices are fetched concurrently; member
// sources depend on the fetched partnerships and branches and go second.
func (s *service) Refresh(ctx context.Context, actor domain.Actor) error {
	if !actor.HasOrg() && !actor.HasUser() {
		return domain.ErrInvalidActor
	}

	refreshID := s.node.Generate()
	log := logger.WithContext(ctx, s.log).With(zap.String("refresh_id", refreshID.String()))

	var (
		partnerships []domain.Partnership
		meta         domain.ListMeta
		branches     []domain.BranchRequest
		subOrgs      []domain.Organization
		isParent     bool
		memberships  []domain.MembershipRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	if actor.HasOrg() {
		ref := actor.OrgRef()
		g.Go(func() error {
			var err error
			partnerships, meta, err = s.remote.ListPartnerships(gctx, ref, "", 0)
			return err
		})
		g.Go(func() error {
			var err error
			branches, err = s.remote.ListBranchRequests(gctx, ref)
			return err
		})
		g.Go(func() error {
			var err error
			subOrgs, isParent, err = s.remote.ListSubOrganizations(gctx, ref)
			return err
		})
	}
	if actor.HasUser() {
		g.Go(func() error {
			var err error
			memberships, err = s.remote.ListMembershipRequests(gctx, actor.UserID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("snapshot refresh failed", zap.Error(err))
		return err
	}

	sources, err := s.fetchMemberSources(ctx, actor, partnerships, branches)
	if err != nil {
		log.Warn("member source refresh failed", zap.Error(err))
		return err
	}

	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.Partnerships = partnerships
		snap.PartnershipMeta = meta
		snap.BranchRequests = branches
		snap.SubOrganizations = subOrgs
		snap.IsParent = isParent
		snap.MembershipRequests = memberships
		snap.MemberSources = sources
	})
	s.metrics.RecordSnapshotRefresh(ctx, "all")

	log.Debug("snapshot refreshed",
		zap.Int("partnerships", len(partnerships)),
		zap.Int("branch_requests", len(branches)),
		zap.Int("sub_organizations", len(subOrgs)),
		zap.Int("membership_requests", len(memberships)),
		zap.Int("member_sources", len(sources)),
	)
	return nil
}

// fetchMemberSources pulls the member list of every organization the actor
// can see into. Source order is the merge order: the actor's own roster
// first, then confirmed share-members partners, then confirmed branches
// under the actor, then the user's personal network.
func (s *service) fetchMemberSources(ctx context.Context, actor domain.Actor, partnerships []domain.Partnership, branches []domain.BranchRequest) ([]domain.MemberSource, error) {
	type origin struct {
		ref          domain.OrgRef
		shareMembers bool
		personal     bool
	}

	origins := make([]origin, 0, len(partnerships)+len(branches)+2)
	if actor.HasOrg() {
		ref := actor.OrgRef()
		origins = append(origins, origin{ref: ref})

		for _, p := range partnerships {
			if p.Status != domain.StatusConfirmed || !p.ShareMembers {
				continue
			}
			other, ok := p.OtherSide(ref)
			if !ok {
				continue
			}
			origins = append(origins, origin{ref: other, shareMembers: true})
		}
		for _, b := range branches {
			if b.Status != domain.StatusConfirmed || !b.ParentOrg.OrgRef.Equal(ref) {
				continue
			}
			origins = append(origins, origin{ref: b.ChildOrg.OrgRef})
		}
	}
	if actor.HasUser() {
		origins = append(origins, origin{personal: true})
	}

	sources := make([]domain.MemberSource, len(origins))
	g, gctx := errgroup.WithContext(ctx)
	for i, o := range origins {
		g.Go(func() error {
			var (
				members []domain.Member
				err     error
			)
			if o.personal {
				members, err = s.remote.GetUserNetworkMembers(gctx, actor.UserID)
			} else {
				members, err = s.remote.GetNetworkMembers(gctx, o.ref, o.shareMembers)
			}
			if err != nil {
				return err
			}
			sources[i] = domain.MemberSource{Origin: o.ref, Members: members}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

func (s *service) Overview(ctx context.Context, actor domain.Actor) (*domain.OverviewResponse, error) {
	if err := s.ensureDerived(ctx, actor); err != nil {
		return nil, err
	}
	overview, _ := s.store.Overview(actor)
	snap := s.store.Snapshot(actor)
	return &domain.OverviewResponse{Overview: overview, FetchedAt: snap.FetchedAt}, nil
}

// ensureDerived performs an initial refresh for actors that have never been
// seen before. Subsequent reads serve the cached derivation.
func (s *service) ensureDerived(ctx context.Context, actor domain.Actor) error {
	if !actor.HasOrg() && !actor.HasUser() {
		return domain.ErrInvalidActor
	}
	if _, ok := s.store.Overview(actor); ok {
		return nil
	}
	return s.Refresh(ctx, actor)
}

func (s *service) ListPartnerships(ctx context.Context, actor domain.Actor, status domain.Status, page int) (*domain.PartnershipListResponse, error) {
	if !actor.HasOrg() {
		return nil, domain.ErrInvalidActor
	}

	partnerships, meta, err := s.remote.ListPartnerships(ctx, actor.OrgRef(), status, page)
	if err != nil {
		return nil, err
	}
	if status == "" && page <= 1 {
		s.store.Replace(actor, func(snap *domain.Snapshot) {
			snap.Partnerships = partnerships
			snap.PartnershipMeta = meta
		})
		s.metrics.RecordSnapshotRefresh(ctx, "partnerships")
	}

	items := make([]domain.ClassifiedPartnership, 0, len(partnerships))
	for _, p := range partnerships {
		items = append(items, domain.ClassifiedPartnership{
			Partnership:    p,
			Classification: classify.Partnership(p, actor),
		})
	}
	return &domain.PartnershipListResponse{
		Items:      items,
		TotalCount: meta.ResolveCount(len(partnerships)),
		TotalPages: meta.TotalPages,
	}, nil
}

func (s *service) ProposePartnership(ctx context.Context, actor domain.Actor, req domain.ProposePartnershipRequest) (*domain.Partnership, error) {
	const action = "propose_partnership"

	if !actor.HasOrg() {
		return nil, domain.ErrInvalidActor
	}
	if req.Partner.IsZero() {
		return nil, s.reject(ctx, action, domain.ErrInvalidOrganization)
	}
	ref := actor.OrgRef()
	if req.Partner.Equal(ref) {
		return nil, s.reject(ctx, action, domain.ErrSelfRelation)
	}
	if err := s.ensureDerived(ctx, actor); err != nil {
		return nil, err
	}
	if s.store.Snapshot(actor).HasPartnershipWith(ref, req.Partner) {
		return nil, s.reject(ctx, action, domain.ErrDuplicatePartnership)
	}

	ownRole, partnerRole, err := resolveRoles(req.OwnRole, req.PartnerRole)
	if err != nil {
		return nil, s.reject(ctx, action, err)
	}

	created, err := s.remote.CreatePartnership(ctx, ref, domain.CreatePartnershipPayload{
		Partner:      req.Partner,
		OwnRole:      ownRole,
		PartnerRole:  partnerRole,
		ShareMembers: req.ShareMembers,
		Description:  req.Description,
	})
	if err != nil {
		s.metrics.RecordRelationMutation(ctx, action, "error")
		return nil, err
	}

	if err := s.refreshPartnershipState(ctx, actor); err != nil {
		return nil, err
	}
	s.recordMutation(ctx, actor, action, created.ID)
	return created, nil
}

func (s *service) AcceptPartnership(ctx context.Context, actor domain.Actor, partnershipID int64) error {
	return s.mutatePartnership(ctx, actor, partnershipID, "accept_partnership", domain.RoleRecipient, s.remote.AcceptPartnership)
}

func (s *service) RejectPartnership(ctx context.Context, actor domain.Actor, partnershipID int64) error {
	return s.mutatePartnership(ctx, actor, partnershipID, "reject_partnership", domain.RoleRecipient, s.remote.RejectPartnership)
}

func (s *service) CancelPartnership(ctx context.Context, actor domain.Actor, partnershipID int64) error {
	return s.mutatePartnership(ctx, actor, partnershipID, "cancel_partnership", domain.RoleInitiator, s.remote.DeletePartnership)
}

func (s *service) mutatePartnership(ctx context.Context, actor domain.Actor, id int64, action string, required domain.Role, call func(context.Context, domain.OrgRef, int64) error) error {
	if !actor.HasOrg() {
		return domain.ErrInvalidActor
	}
	if err := s.ensureDerived(ctx, actor); err != nil {
		return err
	}

	p, ok := s.store.Snapshot(actor).FindPartnership(id)
	if !ok {
		// The target may have been created elsewhere since the last fetch.
		if err := s.refreshPartnershipState(ctx, actor); err != nil {
			return err
		}
		if p, ok = s.store.Snapshot(actor).FindPartnership(id); !ok {
			return s.reject(ctx, action, domain.ErrNotFound)
		}
	}

	cls := classify.Partnership(p, actor)
	if cls.Role != required {
		if required == domain.RoleRecipient {
			return s.reject(ctx, action, domain.ErrNotRecipient)
		}
		return s.reject(ctx, action, domain.ErrNotInitiator)
	}
	if p.Status != domain.StatusPending {
		return s.reject(ctx, action, domain.ErrNotPending)
	}

	if err := call(ctx, actor.OrgRef(), id); err != nil {
		s.metrics.RecordRelationMutation(ctx, action, "error")
		return err
	}
	if err := s.refreshPartnershipState(ctx, actor); err != nil {
		return err
	}
	s.recordMutation(ctx, actor, action, id)
	return nil
}

func (s *service) ListBranchRequests(ctx context.Context, actor domain.Actor) ([]domain.ClassifiedBranchRequest, error) {
	if !actor.HasOrg() {
		return nil, domain.ErrInvalidActor
	}

	branches, err := s.remote.ListBranchRequests(ctx, actor.OrgRef())
	if err != nil {
		return nil, err
	}
	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.BranchRequests = branches
	})
	s.metrics.RecordSnapshotRefresh(ctx, "branch_requests")

	items := make([]domain.ClassifiedBranchRequest, 0, len(branches))
	for _, b := range branches {
		items = append(items, domain.ClassifiedBranchRequest{
			BranchRequest:  b,
			Classification: classify.Branch(b, actor),
		})
	}
	return items, nil
}

func (s *service) RequestBranch(ctx context.Context, actor domain.Actor, req domain.RequestBranchRequest) (*domain.BranchRequest, error) {
	const action = "request_branch"

	if !actor.HasOrg() {
		return nil, domain.ErrInvalidActor
	}
	if req.ParentOrgID == 0 {
		return nil, s.reject(ctx, action, domain.ErrInvalidOrganization)
	}
	ref := actor.OrgRef()
	if req.ParentOrgID == ref.ID {
		return nil, s.reject(ctx, action, domain.ErrSelfRelation)
	}
	if err := s.ensureDerived(ctx, actor); err != nil {
		return nil, err
	}
	if s.store.Snapshot(actor).HasChildBranch(ref) {
		return nil, s.reject(ctx, action, domain.ErrAlreadyChild)
	}

	created, err := s.remote.CreateBranchRequest(ctx, ref, domain.CreateBranchPayload{
		ParentOrgID: req.ParentOrgID,
		Message:     req.Message,
	})
	if err != nil {
		s.metrics.RecordRelationMutation(ctx, action, "error")
		return nil, err
	}
	if created.CrossKind() {
		// The remote must never persist a cross-kind pair; treat it as a
		// remote contract violation rather than surfacing the record.
		s.metrics.RecordRelationMutation(ctx, action, "error")
		return nil, fmt.Errorf("%w: remote returned cross-kind branch %d", domain.ErrCrossKindBranch, created.ID)
	}

	if err := s.refreshBranchState(ctx, actor); err != nil {
		return nil, err
	}
	s.recordMutation(ctx, actor, action, created.ID)
	return created, nil
}

func (s *service) ConfirmBranch(ctx context.Context, actor domain.Actor, requestID int64) error {
	return s.mutateBranch(ctx, actor, requestID, "confirm_branch", domain.RoleRecipient, s.remote.ConfirmBranchRequest)
}

func (s *service) RejectBranch(ctx context.Context, actor domain.Actor, requestID int64) error {
	return s.mutateBranch(ctx, actor, requestID, "reject_branch", domain.RoleRecipient, s.remote.RejectBranchRequest)
}

func (s *service) CancelBranch(ctx context.Context, actor domain.Actor, requestID int64) error {
	return s.mutateBranch(ctx, actor, requestID, "cancel_branch", domain.RoleInitiator, s.remote.DeleteBranchRequest)
}

func (s *service) mutateBranch(ctx context.Context, actor domain.Actor, id int64, action string, required domain.Role, call func(context.Context, domain.OrgRef, int64) error) error {
	if !actor.HasOrg() {
		return domain.ErrInvalidActor
	}
	if err := s.ensureDerived(ctx, actor); err != nil {
		return err
	}

	b, ok := s.store.Snapshot(actor).FindBranchRequest(id)
	if !ok {
		if err := s.refreshBranchState(ctx, actor); err != nil {
			return err
		}
		if b, ok = s.store.Snapshot(actor).FindBranchRequest(id); !ok {
			return s.reject(ctx, action, domain.ErrNotFound)
		}
	}

	cls := classify.Branch(b, actor)
	if cls.Role != required {
		if required == domain.RoleRecipient {
			return s.reject(ctx, action, domain.ErrNotRecipient)
		}
		return s.reject(ctx, action, domain.ErrNotInitiator)
	}
	if b.Status != domain.StatusPending {
		return s.reject(ctx, action, domain.ErrNotPending)
	}

	if err := call(ctx, actor.OrgRef(), id); err != nil {
		s.metrics.RecordRelationMutation(ctx, action, "error")
		return err
	}
	if err := s.refreshBranchState(ctx, actor); err != nil {
		return err
	}
	s.recordMutation(ctx, actor, action, id)
	return nil
}

func (s *service) ListSubOrganizations(ctx context.Context, actor domain.Actor) (*domain.SubOrganizationsResponse, error) {
	if !actor.HasOrg() {
		return nil, domain.ErrInvalidActor
	}

	subOrgs, isParent, err := s.remote.ListSubOrganizations(ctx, actor.OrgRef())
	if err != nil {
		return nil, err
	}
	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.SubOrganizations = subOrgs
		snap.IsParent = isParent
	})
	s.metrics.RecordSnapshotRefresh(ctx, "sub_organizations")

	return &domain.SubOrganizationsResponse{Items: subOrgs, IsParent: isParent}, nil
}

func (s *service) ListMembershipRequests(ctx context.Context, actor domain.Actor) ([]domain.MembershipRequest, error) {
	if !actor.HasUser() {
		return nil, domain.ErrInvalidActor
	}

	requests, err := s.remote.ListMembershipRequests(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.MembershipRequests = requests
	})
	s.metrics.RecordSnapshotRefresh(ctx, "membership_requests")
	return requests, nil
}

func (s *service) Join(ctx context.Context, actor domain.Actor, org domain.OrgRef) (*domain.MembershipRequest, error) {
	const action = "join"

	if !actor.HasUser() {
		return nil, domain.ErrInvalidActor
	}
	if org.IsZero() {
		return nil, s.reject(ctx, action, domain.ErrInvalidOrganization)
	}
	if err := s.ensureDerived(ctx, actor); err != nil {
		return nil, err
	}
	if s.store.Snapshot(actor).HasMembershipRequest(actor.UserID, org) {
		return nil, s.reject(ctx, action, domain.ErrDuplicateMembership)
	}

	var (
		created *domain.MembershipRequest
		err     error
	)
	switch org.Kind {
	case domain.OrgKindSchool:
		created, err = s.remote.JoinSchool(ctx, actor.UserID, org.ID)
	case domain.OrgKindCompany:
		created, err = s.remote.JoinCompany(ctx, actor.UserID, org.ID)
	}
	if err != nil {
		s.metrics.RecordRelationMutation(ctx, action, "error")
		return nil, err
	}

	requests, err := s.remote.ListMembershipRequests(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.MembershipRequests = requests
	})
	s.metrics.RecordSnapshotRefresh(ctx, "membership_requests")
	s.recordMutation(ctx, actor, action, created.ID)
	return created, nil
}

func (s *service) NetworkMembers(ctx context.Context, actor domain.Actor, filter domain.MemberFilter) ([]domain.Member, error) {
	if err := s.ensureDerived(ctx, actor); err != nil {
		return nil, err
	}
	overview, _ := s.store.Overview(actor)

	s.metrics.RecordMemberQuery(ctx, !filter.Empty())
	return search.Members(overview.NetworkMembers, filter), nil
}

func (s *service) SearchOrganizations(ctx context.Context, actor domain.Actor, query string, page int, filter domain.MemberFilter) (*domain.SearchResponse, error) {
	orgs, meta, err := s.remote.SearchOrganizations(ctx, query, page)
	if err != nil {
		return nil, err
	}
	orgs = search.Organizations(orgs, filter)

	var snap domain.Snapshot
	if actor.HasOrg() || actor.HasUser() {
		if err := s.ensureDerived(ctx, actor); err != nil {
			return nil, err
		}
		snap = s.store.Snapshot(actor)
	}

	items := make([]domain.CandidateOrganization, 0, len(orgs))
	for _, org := range orgs {
		items = append(items, domain.CandidateOrganization{
			Organization:    org,
			EligibleActions: classify.CatalogActions(org, actor, snap),
		})
	}
	return &domain.SearchResponse{
		Items:      items,
		TotalCount: meta.ResolveCount(len(items)),
		TotalPages: meta.TotalPages,
	}, nil
}

// refreshPartnershipState refetches partnerships plus the member sources a
// share-members partnership may have opened or closed, then recomputes.
func (s *service) refreshPartnershipState(ctx context.Context, actor domain.Actor) error {
	partnerships, meta, err := s.remote.ListPartnerships(ctx, actor.OrgRef(), "", 0)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot(actor)
	sources, err := s.fetchMemberSources(ctx, actor, partnerships, snap.BranchRequests)
	if err != nil {
		return err
	}
	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.Partnerships = partnerships
		snap.PartnershipMeta = meta
		snap.MemberSources = sources
	})
	s.metrics.RecordSnapshotRefresh(ctx, "partnerships")
	return nil
}

// refreshBranchState refetches branch requests, the sub-organization roster,
// and the member sources confirmed branches contribute, then recomputes.
func (s *service) refreshBranchState(ctx context.Context, actor domain.Actor) error {
	ref := actor.OrgRef()
	branches, err := s.remote.ListBranchRequests(ctx, ref)
	if err != nil {
		return err
	}
	subOrgs, isParent, err := s.remote.ListSubOrganizations(ctx, ref)
	if err != nil {
		return err
	}
	snap := s.store.Snapshot(actor)
	sources, err := s.fetchMemberSources(ctx, actor, snap.Partnerships, branches)
	if err != nil {
		return err
	}
	s.store.Replace(actor, func(snap *domain.Snapshot) {
		snap.BranchRequests = branches
		snap.SubOrganizations = subOrgs
		snap.IsParent = isParent
		snap.MemberSources = sources
	})
	s.metrics.RecordSnapshotRefresh(ctx, "branch_requests")
	return nil
}

func (s *service) reject(ctx context.Context, action string, err error) error {
	s.metrics.RecordRelationMutation(ctx, action, "rejected")
	return err
}

func (s *service) recordMutation(ctx context.Context, actor domain.Actor, action string, entityID int64) {
	s.metrics.RecordRelationMutation(ctx, action, "ok")
	logger.WithContext(ctx, s.log).Info("relation mutation applied",
		zap.String("action", action),
		zap.Int64("entity_id", entityID),
		zap.String("mutation_id", s.node.Generate().String()),
		zap.Int64("actor_org_id", actor.OrgID),
		zap.String("actor_org_kind", string(actor.OrgKind)),
		zap.Int64("actor_user_id", actor.UserID),
	)
}

func resolveRoles(own, partner domain.PartnerRole) (domain.PartnerRole, domain.PartnerRole, error) {
	if own == "" {
		own = domain.PartnerRoleSponsor
	}
	if partner == "" {
		partner = domain.PartnerRoleBeneficiary
	}
	if !validRole(own) || !validRole(partner) {
		return "", "", domain.ErrInvalidRequest
	}
	return own, partner, nil
}

func validRole(r domain.PartnerRole) bool {
	return r == domain.PartnerRoleSponsor || r == domain.PartnerRoleBeneficiary
}
