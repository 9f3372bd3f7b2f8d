package domain

import "time"

// AccessRule is an organization-level access policy entry.
type AccessRule struct {
	OrganizationID string `json:"organization_id"`
	RuleType       string `json:"rule_type"`
	RuleValue      string `json:"rule_value"`
}

// AccessDomain is the per-user security context consumed by retrieval.
// Built once per request, read-only afterwards.
type AccessDomain struct {
	UserID                  string                `json:"user_id"`
	IncludeGlobalData       bool                  `json:"include_global_data"`
	OrganizationIDs         []string              `json:"organization_ids,omitempty"`
	Roles                   []string              `json:"roles,omitempty"`
	AllowedDocumentIDs      []string              `json:"allowed_document_ids,omitempty"`
	OrganizationAccessRules map[string]AccessRule `json:"organization_access_rules,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
}
