package audit

import "time"

// Event is one row of the append-only audit trail.
//
// Events never carry call content (title, transcript or analysis text); CallID and
// field names in Metadata are enough to reconstruct who touched what.
type Event struct {
	ID   string    `json:"id" db:"id"`
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event.
	ActorUserID string `json:"actor_user_id" db:"actor_user_id"`

	CallID  string `json:"call_id,omitempty" db:"call_id"`
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is empty or a JSON document, e.g. {"fields":["title"]}.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeCallCreated    EventType = "call_created"
	EventTypeCallUpdated    EventType = "call_updated"
	EventTypeCallDeleted    EventType = "call_deleted"
	EventTypeAnalysisFailed EventType = "analysis_failed"
	EventTypeUserSignedUp   EventType = "user_signed_up"
)

func (t EventType) IsKnown() bool {
	switch t {
	case EventTypeCallCreated, EventTypeCallUpdated, EventTypeCallDeleted,
		EventTypeAnalysisFailed, EventTypeUserSignedUp:
		return true
	}
	return false
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// Filter narrows List. Empty fields match everything.
type Filter struct {
	ActorUserID string
	CallID      string
	Limit       int
}

func (f Filter) matches(e Event) bool {
	if f.ActorUserID != "" && e.ActorUserID != f.ActorUserID {
		return false
	}
	if f.CallID != "" && e.CallID != f.CallID {
		return false
	}
	return true
}
