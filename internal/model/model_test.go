package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestFormatWorkOrderNumber(t *testing.T) {
	cases := []struct {
		seq, year int
		want      string
	}{
		{1, 2025, "0001-2025"},
		{42, 2026, "0042-2026"},
		{9999, 2025, "9999-2025"},
	}
	for _, tc := range cases {
		if got := FormatWorkOrderNumber(tc.seq, tc.year); got != tc.want {
			t.Fatalf("FormatWorkOrderNumber(%d, %d) = %q, want %q", tc.seq, tc.year, got, tc.want)
		}
	}
}

func TestWorkOrderInterval(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	wo := &WorkOrder{ScheduledDate: &start, EstimatedDuration: 1.5}

	gotStart, gotEnd, ok := wo.Interval()
	if !ok {
		t.Fatalf("expected interval")
	}
	if !gotStart.Equal(start) || !gotEnd.Equal(start.Add(90*time.Minute)) {
		t.Fatalf("unexpected interval %s - %s", gotStart, gotEnd)
	}

	if _, _, ok := (&WorkOrder{}).Interval(); ok {
		t.Fatalf("expected no interval without scheduled date")
	}
}

func TestWorkOrderIsSchedulable(t *testing.T) {
	tech := uuid.New()
	date := time.Now()

	if (&WorkOrder{EstimatedDuration: 1, ScheduledDate: &date}).IsSchedulable() {
		t.Fatalf("missing technician must not be schedulable")
	}
	if (&WorkOrder{EstimatedDuration: 1, AssignedTechnicianID: &tech}).IsSchedulable() {
		t.Fatalf("missing date must not be schedulable")
	}
	if !(&WorkOrder{EstimatedDuration: 1, AssignedTechnicianID: &tech, ScheduledDate: &date}).IsSchedulable() {
		t.Fatalf("expected schedulable")
	}
}

func TestTaskEvidenceRejectedNeedsObservation(t *testing.T) {
	evidence := &TaskEvidence{Status: EvidenceStatusRejected}
	if err := evidence.Validate(); !errors.Is(err, ErrSupervisorObservationRequired) {
		t.Fatalf("expected ErrSupervisorObservationRequired, got %v", err)
	}

	note := "blurry photo"
	evidence.SupervisorObservation = &note
	if err := evidence.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeoPointValidate(t *testing.T) {
	if err := NewGeoPoint(-58.3, -34.6).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (GeoPoint{Type: "Polygon", Coordinates: []float64{0, 0}}).Validate(); err == nil {
		t.Fatalf("expected type error")
	}
	if err := (GeoPoint{Type: GeoTypePoint, Coordinates: []float64{0}}).Validate(); err == nil {
		t.Fatalf("expected coordinates error")
	}
	if err := NewGeoPoint(200, 0).Validate(); err == nil {
		t.Fatalf("expected longitude error")
	}
}

func TestAuditEntryIsDetachedFromCaller(t *testing.T) {
	changes := map[string]any{"workOrderStatus": FieldChange{Old: "Assigned", New: "In Progress"}}
	entry := NewAuditEntry("user-1", AuditActionUpdate, AuditModelWorkOrder, "wo-1", changes, time.Now())

	changes["workOrderStatus"] = "tampered"

	raw := entry.Changes()
	raw[0] = 'X'

	var decoded map[string]FieldChange
	if err := json.Unmarshal(entry.Changes(), &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["workOrderStatus"].New != "In Progress" {
		t.Fatalf("entry changed after construction: %+v", decoded)
	}

	id := entry.DocumentID()
	*id = "other"
	if *entry.DocumentID() != "wo-1" {
		t.Fatalf("document id mutated through getter")
	}

	row := entry.Row()
	if row.User != "user-1" || row.Action != AuditActionUpdate || row.Model != AuditModelWorkOrder {
		t.Fatalf("unexpected row %+v", row)
	}
}

func TestAuditEntryWithoutDocument(t *testing.T) {
	entry := NewAuditEntry("user-1", AuditActionLogin, AuditModelUser, "", nil, time.Now())
	if entry.DocumentID() != nil {
		t.Fatalf("expected nil document id")
	}
}
