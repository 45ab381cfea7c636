// Package eventlogger records domain events asynchronously so request
// handlers never wait on the audit trail.
package eventlogger

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	TypeUserRegistered     = "user.registered"
	TypeUserLoggedIn       = "user.logged_in"
	TypeCredentialsUpdated = "user.credentials_updated"
	TypeProjectCreated     = "project.created"
	TypeProjectDeleted     = "project.deleted"
	TypeMemberLinked       = "member.linked"
	TypeExpenseSaved       = "expense.saved"
	TypeSettlementRecorded = "settlement.recorded"
	TypeSubEventSaved      = "subevent.saved"
)

type Event struct {
	ID          uuid.UUID         `json:"id"`
	Type        string            `json:"event_type"`
	ProjectCode string            `json:"project_code,omitempty"`
	Actor       string            `json:"actor,omitempty"`
	Data        map[string]string `json:"event_data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithProject(code string) EventOption {
	return func(e *Event) {
		e.ProjectCode = code
	}
}

func WithActor(actor string) EventOption {
	return func(e *Event) {
		e.Actor = actor
	}
}

func WithData(data map[string]string) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func New(eventType string, opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

type EventLogger interface {
	Save(ctx context.Context, e Event) error
	ListByProject(ctx context.Context, code string) ([]Event, error)
}
