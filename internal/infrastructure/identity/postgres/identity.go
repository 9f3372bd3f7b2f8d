package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/insightbase/insightbase/internal/core/domain"
	"github.com/insightbase/insightbase/internal/core/ports"
)

// IdentityStore reads the membership and grant tables the access resolver
// builds its security context from.
type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS user_organizations (
	user_id TEXT NOT NULL,
	organization_id TEXT NOT NULL,
	PRIMARY KEY (user_id, organization_id)
);

CREATE TABLE IF NOT EXISTS user_roles (
	user_id TEXT NOT NULL,
	role TEXT NOT NULL,
	PRIMARY KEY (user_id, role)
);

CREATE TABLE IF NOT EXISTS organization_access_rules (
	organization_id TEXT PRIMARY KEY,
	rule_type TEXT NOT NULL,
	rule_value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS document_grants (
	user_id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	PRIMARY KEY (user_id, document_id)
);
`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute identity schema ddl: %w", err)
	}
	return nil
}

func (s *IdentityStore) UserOrganizations(ctx context.Context, userID string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT organization_id FROM user_organizations WHERE user_id = $1`, userID)
}

func (s *IdentityStore) UserRoles(ctx context.Context, userID string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
}

func (s *IdentityStore) UserDocumentGrants(ctx context.Context, userID string) ([]string, error) {
	return s.queryStrings(ctx, `SELECT document_id FROM document_grants WHERE user_id = $1`, userID)
}

func (s *IdentityStore) OrganizationAccessRules(ctx context.Context, orgIDs []string) (map[string]domain.AccessRule, error) {
	if len(orgIDs) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT organization_id, rule_type, rule_value
FROM organization_access_rules
WHERE organization_id = ANY($1)
`, pq.Array(orgIDs))
	if err != nil {
		return nil, fmt.Errorf("query organization access rules: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.AccessRule)
	for rows.Next() {
		var rule domain.AccessRule
		if err := rows.Scan(&rule.OrganizationID, &rule.RuleType, &rule.RuleValue); err != nil {
			return nil, fmt.Errorf("scan access rule: %w", err)
		}
		out[rule.OrganizationID] = rule
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate access rules: %w", err)
	}
	return out, nil
}

func (s *IdentityStore) queryStrings(ctx context.Context, query, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("identity query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan identity row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity rows: %w", err)
	}
	return out, nil
}

var _ ports.IdentityStore = (*IdentityStore)(nil)
