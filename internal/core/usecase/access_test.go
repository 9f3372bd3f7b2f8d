package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/insightbase/insightbase/internal/core/domain"
)

func TestBuildAccessDomainCollectsFacts(t *testing.T) {
	identity := &identityFake{
		orgs:   []string{"org-1", "org-2"},
		roles:  []string{"lawyer"},
		grants: []string{"doc-9"},
		rules: map[string]domain.AccessRule{
			"org-1": {OrganizationID: "org-1", RuleType: "visibility", RuleValue: "internal"},
		},
	}
	r := NewAccessResolver(identity, newDocumentStoreFake(), testClock(), nopLogger())

	ad, err := r.BuildAccessDomain(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("build access domain: %v", err)
	}

	if !ad.IncludeGlobalData {
		t.Fatalf("global data must be readable by default")
	}
	if len(ad.OrganizationIDs) != 2 || len(ad.Roles) != 1 || len(ad.AllowedDocumentIDs) != 1 {
		t.Fatalf("unexpected access facts: %+v", ad)
	}
	if _, ok := ad.OrganizationAccessRules["org-1"]; !ok {
		t.Fatalf("organization rules not loaded")
	}
	if !ad.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected creation time %v", ad.CreatedAt)
	}
}

func TestBuildAccessDomainRejectsBlankUser(t *testing.T) {
	r := NewAccessResolver(&identityFake{}, newDocumentStoreFake(), testClock(), nopLogger())

	_, err := r.BuildAccessDomain(context.Background(), "  ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBuildAccessDomainPropagatesStoreErrors(t *testing.T) {
	r := NewAccessResolver(&identityFake{err: errors.New("db down")}, newDocumentStoreFake(), testClock(), nopLogger())

	_, err := r.BuildAccessDomain(context.Background(), "user-1")
	if err == nil {
		t.Fatalf("expected error from identity store")
	}
}

func TestCanAccessDocumentShortCircuits(t *testing.T) {
	docs := newDocumentStoreFake()
	docs.docs["doc-global"] = &domain.Document{ID: "doc-global", IsGlobal: true, OrganizationID: "org-9"}
	docs.docs["doc-granted"] = &domain.Document{ID: "doc-granted", OrganizationID: "org-9"}
	docs.docs["doc-org"] = &domain.Document{ID: "doc-org", OrganizationID: "org-1"}
	docs.docs["doc-foreign"] = &domain.Document{ID: "doc-foreign", OrganizationID: "org-9"}

	identity := &identityFake{
		orgs:   []string{"org-1"},
		grants: []string{"doc-granted"},
	}
	r := NewAccessResolver(identity, docs, testClock(), nopLogger())

	cases := []struct {
		documentID string
		want       bool
	}{
		{"doc-global", true},
		{"doc-granted", true},
		{"doc-org", true},
		{"doc-foreign", false},
	}
	for _, tc := range cases {
		got, err := r.CanAccessDocument(context.Background(), "user-1", tc.documentID)
		if err != nil {
			t.Fatalf("can access %s: %v", tc.documentID, err)
		}
		if got != tc.want {
			t.Fatalf("access to %s: got %v, want %v", tc.documentID, got, tc.want)
		}
	}
}

func TestCanAccessDocumentHonorsRoleRule(t *testing.T) {
	docs := newDocumentStoreFake()
	docs.docs["doc-gated"] = &domain.Document{ID: "doc-gated", OrganizationID: "org-1"}

	identity := &identityFake{
		orgs:  []string{"org-1"},
		roles: []string{"paralegal"},
		rules: map[string]domain.AccessRule{
			"org-1": {OrganizationID: "org-1", RuleType: "role", RuleValue: "lawyer"},
		},
	}
	r := NewAccessResolver(identity, docs, testClock(), nopLogger())

	ok, err := r.CanAccessDocument(context.Background(), "user-1", "doc-gated")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if ok {
		t.Fatalf("role-gated document must be denied without the role")
	}

	identity.roles = []string{"lawyer"}
	ok, err = r.CanAccessDocument(context.Background(), "user-1", "doc-gated")
	if err != nil {
		t.Fatalf("can access: %v", err)
	}
	if !ok {
		t.Fatalf("role holder must be allowed")
	}
}

func TestCanAccessDocumentMapsMissingDocument(t *testing.T) {
	r := NewAccessResolver(&identityFake{}, newDocumentStoreFake(), testClock(), nopLogger())

	_, err := r.CanAccessDocument(context.Background(), "user-1", "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFilterResultByAccessDropsDenials(t *testing.T) {
	r := NewAccessResolver(&identityFake{}, newDocumentStoreFake(), testClock(), nopLogger())

	ad := &domain.AccessDomain{
		UserID:             "user-1",
		IncludeGlobalData:  true,
		OrganizationIDs:    []string{"org-1"},
		AllowedDocumentIDs: []string{"doc-granted"},
	}
	results := []domain.SearchResult{
		{DocumentID: "doc-global", ChunkID: "g-1", IsGlobal: true},
		{DocumentID: "doc-granted", ChunkID: "d-1"},
		{DocumentID: "doc-org", ChunkID: "o-1", OrganizationID: "org-1"},
		{DocumentID: "doc-foreign", ChunkID: "f-1", OrganizationID: "org-9"},
	}

	kept := r.FilterResultByAccess(ad, results)
	if len(kept) != 3 {
		t.Fatalf("expected the foreign result to be dropped, got %v", kept)
	}
	for _, res := range kept {
		if res.DocumentID == "doc-foreign" {
			t.Fatalf("denied result survived: %+v", res)
		}
	}
}
