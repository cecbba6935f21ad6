package service

import (
	"testing"

	"workorder-service/internal/model"
)

func newClientInput() ClientInput {
	geo := model.NewGeoPoint(-71.5, -33.0)
	return ClientInput{
		Email:         " Billing@Beta.test ",
		CompanyName:   "  beta   grid ",
		ContactPerson: "Bea Contact",
		Phone:         "555-0101 22",
		Address:       "2 Side St",
		GeoLocation:   &geo,
	}
}

func TestCreateClientNormalizesInput(t *testing.T) {
	f := newFixture(t)

	client, err := f.clients.Create(f.ctx, f.supervisor, newClientInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if client.Email != "billing@beta.test" {
		t.Fatalf("email = %q", client.Email)
	}
	if client.CompanyName != "BETA GRID" {
		t.Fatalf("company = %q", client.CompanyName)
	}
	if client.Phone != "555010122" {
		t.Fatalf("phone = %q", client.Phone)
	}

	found, err := f.clients.GetByEmail(f.ctx, f.admin, "BILLING@beta.test")
	if err != nil || found.ID != client.ID {
		t.Fatalf("GetByEmail = %v, %v", found, err)
	}
	if got := f.auditEntries(model.AuditModelClient); len(got) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(got))
	}
}

func TestCreateClientRejectsBadInput(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name      string
		principal model.Principal
		mutate    func(*ClientInput)
		kind      error
	}{
		{"technician", f.technician, func(*ClientInput) {}, ErrForbidden},
		{"bad email", f.supervisor, func(in *ClientInput) { in.Email = "not-an-email" }, ErrValidation},
		{"short company", f.supervisor, func(in *ClientInput) { in.CompanyName = "ab" }, ErrValidation},
		{"missing contact", f.supervisor, func(in *ClientInput) { in.ContactPerson = "" }, ErrValidation},
		{"missing location", f.supervisor, func(in *ClientInput) { in.GeoLocation = nil }, ErrValidation},
		{"latitude out of range", f.supervisor, func(in *ClientInput) {
			geo := model.NewGeoPoint(10, 95)
			in.GeoLocation = &geo
		}, ErrValidation},
		{"duplicate email", f.supervisor, func(in *ClientInput) { in.Email = "OPS@acme.test" }, ErrDuplicateKey},
		{"duplicate company", f.supervisor, func(in *ClientInput) { in.CompanyName = "acme  power" }, ErrDuplicateKey},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := newClientInput()
			tc.mutate(&in)
			_, err := f.clients.Create(f.ctx, tc.principal, in)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestUpdateClient(t *testing.T) {
	f := newFixture(t)
	id := f.client.ID.String()

	updated, err := f.clients.Update(f.ctx, f.supervisor, id, UpdateClientInput{Phone: ptr("555 0199")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Phone != "5550199" {
		t.Fatalf("phone = %q", updated.Phone)
	}

	_, err = f.clients.Update(f.ctx, f.supervisor, id, UpdateClientInput{Email: ptr(" OPS@ACME.TEST")})
	expectKind(t, err, ErrNoChanges)

	moved := model.NewGeoPoint(-70.7, -33.5)
	updated, err = f.clients.Update(f.ctx, f.admin, id, UpdateClientInput{GeoLocation: &moved})
	if err != nil {
		t.Fatalf("move client: %v", err)
	}
	if !updated.GeoLocation.Data().Equal(moved) {
		t.Fatalf("location not updated")
	}

	_, err = f.clients.Update(f.ctx, f.supervisor, id, UpdateClientInput{Email: ptr("broken")})
	expectKind(t, err, ErrValidation)

	_, err = f.clients.Update(f.ctx, f.technician, id, UpdateClientInput{Phone: ptr("1")})
	expectKind(t, err, ErrForbidden)
}

func TestDeleteReferencedClient(t *testing.T) {
	f := newFixture(t)
	f.createScheduled(f.technician, 2, 1)

	err := f.clients.Delete(f.ctx, f.supervisor, f.client.ID.String())
	expectKind(t, err, ErrReferentialIntegrity)

	spare, err := f.clients.Create(f.ctx, f.supervisor, newClientInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.clients.Delete(f.ctx, f.supervisor, spare.ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = f.clients.Get(f.ctx, f.supervisor, spare.ID.String())
	expectKind(t, err, ErrNotFound)
}

func TestSearchClients(t *testing.T) {
	f := newFixture(t)

	found, err := f.clients.Search(f.ctx, f.supervisor, "acme")
	if err != nil || len(found) != 1 {
		t.Fatalf("Search = %d, %v", len(found), err)
	}
	if none, _ := f.clients.Search(f.ctx, f.supervisor, "zzz"); len(none) != 0 {
		t.Fatalf("unexpected matches %d", len(none))
	}
	_, err = f.clients.Search(f.ctx, f.supervisor, "")
	expectKind(t, err, ErrValidation)

	_, err = f.clients.List(f.ctx, f.technician)
	expectKind(t, err, ErrForbidden)
}
