package models

// Event types published to the event stream.
const (
	EventUserRegistered = "user.registered"
	EventTodoCreated    = "todo.created"
	EventTodoUpdated    = "todo.updated"
	EventTodoDeleted    = "todo.deleted"
)

// Event is a domain event describing a completed state change.
type Event struct {
	EventID   string `json:"eventId"`          // EventID is a unique identifier for the event.
	Type      string `json:"type"`             // Type is one of the Event* constants.
	UserID    int64  `json:"userId"`           // UserID is the user who caused the change.
	TodoID    int64  `json:"todoId,omitempty"` // TodoID is set for todo events.
	Timestamp int64  `json:"timestamp"`        // Timestamp is the Unix time (seconds) of the change.
}
