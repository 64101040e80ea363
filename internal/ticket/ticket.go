package ticket

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when no ticket exists with the
// requested id.
var ErrNotFound = errors.New("ticket not found")

// Ticket is the work item under evaluation. Once an evaluation starts the
// relay treats the ticket as a read-only snapshot.
type Ticket struct {
	ID                 int64     `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	AcceptanceCriteria string    `json:"acceptance_criteria"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Store persists tickets. The relay only ever reads through Get; Create is
// used by the CRUD surface and by mock seeding.
type Store interface {
	Create(ctx context.Context, t Ticket) (Ticket, error)
	Get(ctx context.Context, id int64) (Ticket, error)
}
