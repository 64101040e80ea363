package pipeline

import (
	"fmt"

	"github.com/ticket-relay/backend/internal/ticket"
)

const promptTemplate = `Evaluate the following ticket for feasibility against the current codebase and team structure.

Title: %s

Description:
%s

Acceptance Criteria:
%s

Report your analysis incrementally as you work through the ticket.`

// BuildPrompt renders the task prompt for one ticket. Identical ticket
// content always yields an identical prompt.
func BuildPrompt(t ticket.Ticket) string {
	return fmt.Sprintf(promptTemplate, t.Title, t.Description, t.AcceptanceCriteria)
}
