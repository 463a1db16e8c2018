package engagement

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewEngagement_IdentityPerVariant(t *testing.T) {
	tests := []struct {
		src  Source
		id   string
		kind SourceKind
	}{
		{ApplicationSource{ApplicationID: 5, ProjectID: 2}, "application:5", SourceApplication},
		{QuoteSource{RequestID: 8, ProjectID: 3}, "quote:8", SourceQuote},
		{PackageSource{OrderID: 11, PackageID: 4}, "package:11", SourcePackage},
	}

	for _, tt := range tests {
		e := NewEngagement(tt.src, ProjectRef(1), 100, 200, RoleClient)
		if e.ID != tt.id {
			t.Errorf("ID = %q, expected %q", e.ID, tt.id)
		}
		if e.SourceKind != tt.kind {
			t.Errorf("SourceKind = %q, expected %q", e.SourceKind, tt.kind)
		}
	}
}

func TestNewEngagement_Counterparty(t *testing.T) {
	src := PackageSource{OrderID: 1}

	asClient := NewEngagement(src, PackageOrderRef(1), 100, 200, RoleClient)
	if asClient.CounterpartyID != 200 {
		t.Errorf("client view counterparty = %d, expected 200", asClient.CounterpartyID)
	}

	asArtist := NewEngagement(src, PackageOrderRef(1), 100, 200, RoleArtist)
	if asArtist.CounterpartyID != 100 {
		t.Errorf("artist view counterparty = %d, expected 100", asArtist.CounterpartyID)
	}
}

func TestEngagement_JSONCarriesVariantPayload(t *testing.T) {
	e := NewEngagement(QuoteSource{RequestID: 8, QuoteID: 2, DeliveryDays: 10}, ProjectRef(3), 1, 2, RoleClient)
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	for _, part := range []string{`"source_kind":"quote"`, `"request_id":8`, `"delivery_days":10`, `"kind":"project"`} {
		if !strings.Contains(s, part) {
			t.Errorf("json %s should contain %s", s, part)
		}
	}
}

func TestParseRef(t *testing.T) {
	ref, err := ParseRef("package-order", "12")
	if err != nil {
		t.Fatalf("ParseRef error: %v", err)
	}
	if ref != PackageOrderRef(12) {
		t.Errorf("ref = %v", ref)
	}
	if ref.Kind.Kind() != KindPackageOrder {
		t.Errorf("kind = %s", ref.Kind.Kind())
	}

	ref, err = ParseRef("project", "3")
	if err != nil || ref != ProjectRef(3) {
		t.Errorf("ParseRef(project, 3) = %v, %v", ref, err)
	}

	for _, bad := range [][2]string{{"project", "0"}, {"project", "x"}, {"invoice", "1"}} {
		if _, err := ParseRef(bad[0], bad[1]); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ParseRef(%q, %q) should fail with invalid input, got %v", bad[0], bad[1], err)
		}
	}
}

func TestRequireRole(t *testing.T) {
	if err := RequireRole(Client(1), RoleClient, KindProject, 0); err != nil {
		t.Errorf("client should pass client role check: %v", err)
	}
	if err := RequireRole(Artist(1), RoleClient, KindProject, 0); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("artist should fail client role check, got %v", err)
	}
	if err := RequireRole(Actor{Role: RoleClient}, RoleClient, KindProject, 0); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous actor should fail, got %v", err)
	}
}
