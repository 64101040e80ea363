package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/ticket-relay/backend/internal/pipeline"
	"github.com/ticket-relay/backend/internal/ticket"
)

// Orchestrator wires the registry, classifier, session store, ticket store
// and agent pipeline into one evaluation flow. It guarantees exactly one
// terminal event per evaluation, even when the pipeline yields no chunks.
type Orchestrator struct {
	registry   *Registry
	tickets    ticket.Store
	pipe       pipeline.Pipeline
	sessions   *SessionStore
	classifier *Classifier
	timeout    time.Duration
}

func NewOrchestrator(registry *Registry, tickets ticket.Store, pipe pipeline.Pipeline, sessions *SessionStore, classifier *Classifier, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Orchestrator{
		registry:   registry,
		tickets:    tickets,
		pipe:       pipe,
		sessions:   sessions,
		classifier: classifier,
		timeout:    timeout,
	}
}

// Evaluate runs one ticket evaluation against the given connection,
// delivering classified events in pipeline order. It returns the error that
// ended the evaluation, after the corresponding event has been sent.
func (o *Orchestrator) Evaluate(ctx context.Context, connID ConnID, ticketID int64) error {
	if _, err := o.sessions.Begin(connID, ticketID); err != nil {
		// The existing session is unaffected; only the offending request
		// is rejected.
		o.registry.SendTo(connID, NewEvent(EventError, "an evaluation is already in progress on this connection", ticketID))
		return err
	}

	tk, err := o.tickets.Get(ctx, ticketID)
	if err != nil {
		o.sessions.Transition(connID, StateErrored)
		msg := "ticket not found"
		if !errors.Is(err, ticket.ErrNotFound) {
			log.Printf("ticket lookup %d: %v", ticketID, err)
			msg = "ticket lookup failed"
		}
		o.registry.SendTo(connID, NewEvent(EventError, msg, ticketID))
		o.sessions.Transition(connID, StateClosed)
		o.registry.Unregister(connID)
		return err
	}

	o.sessions.Transition(connID, StateConnected)
	connected := NewEvent(EventConnection, fmt.Sprintf("Connected. Evaluating ticket #%d: %s", tk.ID, tk.Title), tk.ID)
	if err := o.registry.SendTo(connID, connected); err != nil {
		o.teardown(connID)
		return err
	}

	o.sessions.Transition(connID, StateEvaluating)

	// The pipeline has no cancel hook of its own; the deadline is the only
	// bound on a run nobody is listening to anymore.
	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	stream, err := o.pipe.Invoke(runCtx, pipeline.BuildPrompt(tk))
	if err != nil {
		return o.fault(connID, tk, err)
	}

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return o.complete(connID, tk)
		}
		if err != nil {
			return o.fault(connID, tk, err)
		}

		for _, ev := range o.classifier.Classify(chunk, tk.ID) {
			if err := o.registry.SendTo(connID, ev); err != nil {
				// Client gone mid-stream. Stop delivering; the pipeline is
				// allowed to run out its deadline unobserved.
				o.teardown(connID)
				return err
			}
		}
	}
}

// complete emits the terminal success event and closes the connection from
// the server side.
func (o *Orchestrator) complete(connID ConnID, tk ticket.Ticket) error {
	o.sessions.Transition(connID, StateComplete)
	ev := NewEvent(EventEvaluationComplete, fmt.Sprintf("Evaluation of %q complete", tk.Title), tk.ID)
	err := o.registry.SendTo(connID, ev)
	o.sessions.Transition(connID, StateClosed)
	o.registry.Unregister(connID)
	return err
}

// fault emits the terminal error event. The connection stays open so the
// client can observe the error; it moves to Closed on disconnect.
func (o *Orchestrator) fault(connID ConnID, tk ticket.Ticket, cause error) error {
	log.Printf("pipeline fault for ticket %d: %v", tk.ID, cause)
	o.sessions.Transition(connID, StateErrored)
	ev := NewEvent(EventEvaluationError, fmt.Sprintf("evaluation failed: %v", cause), tk.ID)
	if err := o.registry.SendTo(connID, ev); err != nil {
		o.teardown(connID)
	}
	return cause
}

// teardown handles a connection lost mid-evaluation.
func (o *Orchestrator) teardown(connID ConnID) {
	o.sessions.Close(connID)
	o.registry.Unregister(connID)
}
