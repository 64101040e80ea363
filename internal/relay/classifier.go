package relay

import (
	"sort"

	"github.com/ticket-relay/backend/internal/pipeline"
)

// defaultStages maps known pipeline stage names to their progress event
// type. The supervisor runs the evaluation itself, so it shares the
// ticket_evaluation type.
var defaultStages = map[string]EventType{
	"ticket_evaluation":   EventTicketEvaluationProgress,
	"supervisor":          EventTicketEvaluationProgress,
	"directory_assistant": EventDirectoryAssistantProgress,
}

// Classifier converts raw pipeline chunks into relay events. It is pure:
// the same chunk always yields the same events.
type Classifier struct {
	stages map[string]EventType
}

// NewClassifier builds a classifier from the default stage table merged
// with any configured overrides (stage name -> event type string).
func NewClassifier(overrides map[string]string) *Classifier {
	stages := make(map[string]EventType, len(defaultStages)+len(overrides))
	for name, typ := range defaultStages {
		stages[name] = typ
	}
	for name, typ := range overrides {
		stages[name] = EventType(typ)
	}
	return &Classifier{stages: stages}
}

// eventType resolves a stage name, falling back to the generic progress
// type so new pipeline stages degrade gracefully instead of vanishing.
func (cl *Classifier) eventType(stage string) EventType {
	if typ, ok := cl.stages[stage]; ok {
		return typ
	}
	return EventAgentProgress
}

// Classify emits one progress event per final-output message in the chunk,
// preserving message order within each stage. Tool invocations and
// empty-bodied messages are dropped: clients see narrative progress, not
// tool plumbing. Stages within a chunk are processed in sorted name order
// so output is deterministic.
func (cl *Classifier) Classify(chunk pipeline.Chunk, ticketID int64) []Event {
	if len(chunk) == 0 {
		return nil
	}

	stages := make([]string, 0, len(chunk))
	for stage := range chunk {
		stages = append(stages, stage)
	}
	sort.Strings(stages)

	var events []Event
	for _, stage := range stages {
		typ := cl.eventType(stage)
		for _, msg := range chunk[stage] {
			if msg.Kind != pipeline.KindFinal || msg.Body == "" {
				continue
			}
			events = append(events, NewEvent(typ, msg.Body, ticketID))
		}
	}
	return events
}
