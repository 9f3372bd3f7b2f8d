package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

// ruleTypeRole marks an organization access rule that restricts the org's
// non-global documents to holders of the role named in RuleValue.
const ruleTypeRole = "role"

// AccessResolver turns a user id into the read-only security context that
// scopes every retrieval query, and re-checks individual documents against
// it.
type AccessResolver struct {
	identity ports.IdentityStore
	docs     ports.DocumentStore
	clock    ports.Clock
	logger   *slog.Logger
}

func NewAccessResolver(identity ports.IdentityStore, docs ports.DocumentStore, clock ports.Clock, logger *slog.Logger) *AccessResolver {
	return &AccessResolver{identity: identity, docs: docs, clock: clock, logger: logger}
}

func (r *AccessResolver) BuildAccessDomain(ctx context.Context, userID string) (*domain.AccessDomain, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("build access domain: %w", domain.ErrInvalidInput)
	}

	orgs, err := r.identity.UserOrganizations(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user organizations: %w", err)
	}

	roles, err := r.identity.UserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user roles: %w", err)
	}

	grants, err := r.identity.UserDocumentGrants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user document grants: %w", err)
	}

	var rules map[string]domain.AccessRule
	if len(orgs) > 0 {
		rules, err = r.identity.OrganizationAccessRules(ctx, orgs)
		if err != nil {
			return nil, fmt.Errorf("load organization access rules: %w", err)
		}
	}

	ad := &domain.AccessDomain{
		UserID:                  userID,
		IncludeGlobalData:       true,
		OrganizationIDs:         orgs,
		Roles:                   roles,
		AllowedDocumentIDs:      grants,
		OrganizationAccessRules: rules,
		CreatedAt:               r.clock.Now(),
	}

	r.logger.Debug("access domain built",
		slog.String("user_id", userID),
		slog.Int("organizations", len(orgs)),
		slog.Int("document_grants", len(grants)))

	return ad, nil
}

// CanAccessDocument answers whether one user may read one document. The
// check is a short-circuit OR over global visibility, a direct grant, and
// organization membership (role-gated when the org carries a role rule).
func (r *AccessResolver) CanAccessDocument(ctx context.Context, userID, documentID string) (bool, error) {
	ad, err := r.BuildAccessDomain(ctx, userID)
	if err != nil {
		return false, err
	}

	doc, err := r.docs.GetDocument(ctx, documentID)
	if err != nil {
		return false, fmt.Errorf("load document for access check: %w", err)
	}

	return r.permits(ad, doc.IsGlobal, doc.ID, doc.OrganizationID), nil
}

// FilterResultByAccess re-checks merged search results against the access
// domain. The store already pushes the access predicate into SQL; this is
// the defense-in-depth pass over whatever came back. Denials are logged and
// dropped, never surfaced as errors.
func (r *AccessResolver) FilterResultByAccess(ad *domain.AccessDomain, results []domain.SearchResult) []domain.SearchResult {
	if ad == nil {
		return results
	}

	out := results[:0:0]
	for _, res := range results {
		if r.permits(ad, res.IsGlobal, res.DocumentID, res.OrganizationID) {
			out = append(out, res)
			continue
		}
		r.logger.Warn("dropping result outside access domain",
			slog.String("user_id", ad.UserID),
			slog.String("document_id", res.DocumentID),
			slog.String("organization_id", res.OrganizationID))
	}
	return out
}

func (r *AccessResolver) permits(ad *domain.AccessDomain, isGlobal bool, documentID, organizationID string) bool {
	if isGlobal {
		return true
	}
	for _, id := range ad.AllowedDocumentIDs {
		if id == documentID {
			return true
		}
	}
	if organizationID == "" {
		return false
	}

	member := false
	for _, org := range ad.OrganizationIDs {
		if org == organizationID {
			member = true
			break
		}
	}
	if !member {
		return false
	}

	rule, ok := ad.OrganizationAccessRules[organizationID]
	if !ok || rule.RuleType != ruleTypeRole {
		return true
	}
	for _, role := range ad.Roles {
		if strings.EqualFold(role, rule.RuleValue) {
			return true
		}
	}
	return false
}
