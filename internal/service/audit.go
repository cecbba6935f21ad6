package service

import (
	"context"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"workorder-service/internal/model"
)

const systemActor = "system"

// auditRecorder writes entries after the business change has committed. A
// failed append is logged and never undoes the operation.
type auditRecorder struct {
	sink AuditSink
	log  zerolog.Logger
	now  func() time.Time
}

func (a auditRecorder) record(ctx context.Context, actor string, action model.AuditAction, modelName, documentID string, changes any) {
	if a.sink == nil {
		return
	}
	entry := model.NewAuditEntry(actor, action, modelName, documentID, changes, a.now().UTC())
	if err := a.sink.Append(ctx, entry); err != nil {
		a.log.Warn().
			Err(err).
			Str("action", string(action)).
			Str("model", modelName).
			Str("document_id", documentID).
			Msg("failed to append audit log")
	}
}

func principalActor(p model.Principal) string {
	return p.UserID.String()
}

// changeSet collects field-level differences for UPDATE audit entries.
type changeSet map[string]model.FieldChange

func (c changeSet) track(field string, before, after any) {
	o, n := plainValue(before), plainValue(after)
	if reflect.DeepEqual(o, n) {
		return
	}
	c[field] = model.FieldChange{Old: o, New: n}
}

func (c changeSet) empty() bool {
	return len(c) == 0
}

// plainValue dereferences pointers and strips time zones and monotonic
// readings so equal instants compare equal.
func plainValue(v any) any {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		v = rv.Elem().Interface()
	}
	if t, ok := v.(time.Time); ok {
		return t.UTC().Round(0)
	}
	return v
}
