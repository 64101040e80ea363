package relay

import "time"

// EventType tags an outbound relay event.
type EventType string

const (
	EventConnection EventType = "connection"
	EventError      EventType = "error"
	EventEcho       EventType = "echo"

	// Progress events. Each known pipeline stage maps to its own type;
	// unrecognized stages fall back to EventAgentProgress.
	EventAgentProgress              EventType = "agent_progress"
	EventTicketEvaluationProgress   EventType = "ticket_evaluation_progress"
	EventDirectoryAssistantProgress EventType = "directory_assistant_evaluation_progress"

	// Terminal events, exactly one per evaluation.
	EventEvaluationComplete EventType = "ticket_evaluation_complete"
	EventEvaluationError    EventType = "ticket_evaluation_error"
)

// Event is the serializable unit delivered to a client. It carries enough
// context for the client to reconstruct evaluation progress without asking
// the server for anything else.
type Event struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message"`
	TicketID  int64     `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, message string, ticketID int64) Event {
	return Event{
		Type:      typ,
		Message:   message,
		TicketID:  ticketID,
		Timestamp: time.Now().UTC(),
	}
}
