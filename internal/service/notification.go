package service

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/google/uuid"
)

const (
	EventWorkOrderAssigned = "workorder.assigned"
	EventUserConfirmation  = "user.confirmation"
)

type Recipient struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

// Notification is a rendered message ready for delivery.
type Notification struct {
	Event      string            `json:"event"`
	Recipient  Recipient         `json:"recipient"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	EntityType string            `json:"entityType"`
	EntityID   string            `json:"entityId"`
	Data       map[string]string `json:"data,omitempty"`
}

var notificationTemplates = template.Must(template.New("notifications").Parse(`
{{define "workorder.assigned.subject"}}Work order {{.Number}} assigned to you{{end}}
{{define "workorder.assigned.body"}}Hello {{.Name}},

You have been assigned work order {{.Number}} ({{.ServiceType}}).
Client: {{.Client}}
Address: {{.Address}}
Contact: {{.ContactPerson}} {{.Phone}}
Scheduled: {{.Scheduled}} for {{.Duration}} h

{{.Description}}
{{end}}
{{define "user.confirmation.subject"}}Confirm your work order account{{end}}
{{define "user.confirmation.body"}}Hello {{.Name}},

An account with role {{.Role}} was created for {{.Email}}.
Confirm it and choose a password before {{.Expires}}:

{{.Link}}
{{end}}
`))

func renderNotification(event string, recipient Recipient, entityType, entityID string, data map[string]string) (Notification, error) {
	vars := make(map[string]string, len(data)+1)
	for k, v := range data {
		vars[k] = v
	}
	vars["Name"] = recipient.Name

	subject, err := execute(event+".subject", vars)
	if err != nil {
		return Notification{}, err
	}
	body, err := execute(event+".body", vars)
	if err != nil {
		return Notification{}, err
	}

	return Notification{
		Event:      event,
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
	}, nil
}

func execute(name string, vars map[string]string) (string, error) {
	var buf bytes.Buffer
	if err := notificationTemplates.ExecuteTemplate(&buf, name, vars); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
