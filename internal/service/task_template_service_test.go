package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"workorder-service/internal/model"
	"workorder-service/internal/repository"
	"workorder-service/internal/repository/memory"
)

func TestCreateTemplateAppendsOrdering(t *testing.T) {
	f := newFixture(t)

	tpl, err := f.templates.Create(f.ctx, f.admin, CreateTaskTemplateInput{
		ServiceType:       string(model.ServiceTypeInspection),
		Description:       " Verify grounding ",
		SuggestedEvidence: "Photo of clamp",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if tpl.Ordering != 4 || tpl.Description != "Verify grounding" {
		t.Fatalf("unexpected template %+v", tpl)
	}

	other, err := f.templates.Create(f.ctx, f.admin, CreateTaskTemplateInput{
		ServiceType: string(model.ServiceTypeMaintenance),
		Description: "Clean filters",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if other.Ordering != 1 {
		t.Fatalf("first template of a type should be ordering 1, got %d", other.Ordering)
	}

	_, err = f.templates.Create(f.ctx, f.supervisor, CreateTaskTemplateInput{
		ServiceType: string(model.ServiceTypeMaintenance),
		Description: "x",
	})
	expectKind(t, err, ErrForbidden)

	_, err = f.templates.Create(f.ctx, f.admin, CreateTaskTemplateInput{ServiceType: "Repair", Description: "x"})
	expectKind(t, err, ErrValidation)

	if got := f.auditEntries(model.AuditModelTaskTemplate); len(got) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(got))
	}
}

func TestUpdateTemplate(t *testing.T) {
	f := newFixture(t)
	templates, err := f.templates.List(f.ctx, f.technician, string(model.ServiceTypeInspection))
	if err != nil || len(templates) != 3 {
		t.Fatalf("List = %d, %v", len(templates), err)
	}
	id := templates[0].ID.String()

	updated, err := f.templates.Update(f.ctx, f.admin, id, UpdateTaskTemplateInput{
		Description: ptr("Inspect breaker panel"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Description != "Inspect breaker panel" {
		t.Fatalf("description = %q", updated.Description)
	}

	cases := []struct {
		name      string
		principal model.Principal
		input     UpdateTaskTemplateInput
		kind      error
	}{
		{"unchanged", f.admin, UpdateTaskTemplateInput{Description: ptr("Inspect breaker panel")}, ErrNoChanges},
		{"service type", f.admin, UpdateTaskTemplateInput{ServiceType: ptr(string(model.ServiceTypeMaintenance))}, ErrValidation},
		{"ordering", f.admin, UpdateTaskTemplateInput{Ordering: ptr(7)}, ErrValidation},
		{"supervisor", f.supervisor, UpdateTaskTemplateInput{Description: ptr("x")}, ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.templates.Update(f.ctx, tc.principal, id, tc.input)
			expectKind(t, err, tc.kind)
		})
	}
}

func TestDeleteTemplate(t *testing.T) {
	f := newFixture(t)
	templates, _ := f.templates.List(f.ctx, f.admin, "")
	id := templates[0].ID.String()

	if err := f.templates.Delete(f.ctx, f.admin, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err := f.templates.Get(f.ctx, f.admin, id)
	expectKind(t, err, ErrNotFound)

	expectKind(t, f.templates.Delete(f.ctx, f.admin, id), ErrNotFound)
}

func TestGroupedByServiceType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.templates.Create(f.ctx, f.admin, CreateTaskTemplateInput{
		ServiceType: string(model.ServiceTypeInstallation),
		Description: "Mount enclosure",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	groups, err := f.templates.GroupedByServiceType(f.ctx, f.supervisor)
	if err != nil {
		t.Fatalf("GroupedByServiceType: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].ServiceType != model.ServiceTypeInspection || groups[1].ServiceType != model.ServiceTypeInstallation {
		t.Fatalf("groups out of order: %s, %s", groups[0].ServiceType, groups[1].ServiceType)
	}
	for i, item := range groups[0].Tasks {
		if item.Ordering != i+1 {
			t.Fatalf("item %d ordering %d", i, item.Ordering)
		}
	}
}

func TestSearchTemplates(t *testing.T) {
	f := newFixture(t)

	found, err := f.templates.Search(f.ctx, f.technician, "METER")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(found) != 1 || found[0].Description != "Photograph meter" {
		t.Fatalf("unexpected results %+v", found)
	}

	_, err = f.templates.Search(f.ctx, f.technician, "  ")
	expectKind(t, err, ErrValidation)
}

const catalogYAML = `templates:
  Maintenance:
    - description: Replace filter
      suggestedEvidence: Photo of old filter
    - description: Lubricate bearings
  Inspection:
    - description: Visual check
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	return path
}

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	path := writeCatalog(t, catalogYAML)

	store := memory.NewStore()
	svc := NewTaskTemplateService(memoryStores(store), zerolog.Nop())

	created, err := svc.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatalf("SeedFromFile: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	if top, _ := store.Templates().MaxOrdering(ctx, model.ServiceTypeMaintenance); top != 2 {
		t.Fatalf("maintenance ordering = %d, want 2", top)
	}

	modelName := model.AuditModelTaskTemplate
	entries, err := store.AuditLogs().List(ctx, repository.AuditLogFilter{Model: &modelName})
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 3 || entries[0].User != systemActor {
		t.Fatalf("seed audit = %+v", entries)
	}

	// a populated table is left alone
	created, err = svc.SeedFromFile(ctx, path)
	if err != nil || created != 0 {
		t.Fatalf("second seed = %d, %v", created, err)
	}
}

func TestSeedFromFileRejectsUnknownServiceType(t *testing.T) {
	path := writeCatalog(t, "templates:\n  Repair:\n    - description: x\n")

	svc := NewTaskTemplateService(memoryStores(memory.NewStore()), zerolog.Nop())
	_, err := svc.SeedFromFile(context.Background(), path)
	expectKind(t, err, ErrValidation)
}
