package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"workorder-service/internal/model"
)

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneGeo(j datatypes.JSONType[model.GeoPoint]) datatypes.JSONType[model.GeoPoint] {
	p := j.Data()
	coords := append([]float64(nil), p.Coordinates...)
	return datatypes.NewJSONType(model.GeoPoint{Type: p.Type, Coordinates: coords})
}

func cloneWorkOrder(w model.WorkOrder) model.WorkOrder {
	w.ScheduledDate = cloneTime(w.ScheduledDate)
	w.AssignedTechnicianID = cloneUUID(w.AssignedTechnicianID)
	w.ReasonRejection = cloneString(w.ReasonRejection)
	w.Location = cloneGeo(w.Location)
	return w
}

func cloneTask(t model.WorkOrderTask) model.WorkOrderTask {
	t.TechnicianID = cloneUUID(t.TechnicianID)
	t.ObservationByReject = cloneString(t.ObservationByReject)
	t.UpdateDate = cloneTime(t.UpdateDate)
	return t
}

func cloneEvidence(e model.TaskEvidence) model.TaskEvidence {
	e.SupervisorObservation = cloneString(e.SupervisorObservation)
	return e
}

func cloneClient(c model.Client) model.Client {
	c.GeoLocation = cloneGeo(c.GeoLocation)
	return c
}

func cloneUser(u model.User) model.User {
	u.DeletionCause = cloneString(u.DeletionCause)
	u.ConfirmationToken = cloneString(u.ConfirmationToken)
	u.ConfirmationExpiresAt = cloneTime(u.ConfirmationExpiresAt)
	u.LoginToken = cloneString(u.LoginToken)
	u.LoginAttempts = nil
	return u
}
