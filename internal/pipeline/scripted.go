package pipeline

import (
	"context"
	"io"
	"time"
)

// Scripted is a Pipeline that replays a fixed sequence of chunks. It backs
// mock mode and tests: the script controls exactly what the stream yields,
// including an optional terminal fault after the last chunk.
type Scripted struct {
	Chunks []Chunk
	Err    error         // returned after the chunks; nil means clean exhaustion
	Delay  time.Duration // pause before each chunk, 0 for none
}

func (s *Scripted) Invoke(ctx context.Context, _ string) (Stream, error) {
	return &scriptedStream{ctx: ctx, chunks: s.Chunks, err: s.Err, delay: s.Delay}, nil
}

type scriptedStream struct {
	ctx    context.Context
	chunks []Chunk
	err    error
	delay  time.Duration
	pos    int
}

func (s *scriptedStream) Next() (Chunk, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-s.ctx.Done():
			return nil, s.ctx.Err()
		}
	} else if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}

	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

// DemoScript is the chunk sequence replayed for every evaluation in mock
// mode. It mirrors a typical supervisor run: narrative progress from the
// evaluation stage interleaved with tool chatter from the directory
// assistant.
func DemoScript() []Chunk {
	return []Chunk{
		{"ticket_evaluation": {
			{Kind: KindFinal, Body: "Reading the ticket and identifying the affected components."},
		}},
		{"directory_assistant": {
			{Kind: KindTool, Body: `list_teams()`},
		}},
		{"directory_assistant": {
			{Kind: KindFinal, Body: "The Backend Engineering team owns the affected services."},
		}},
		{"ticket_evaluation": {
			{Kind: KindFinal, Body: "The acceptance criteria are testable; scoping the change to two services."},
		}},
		{"ticket_evaluation": {
			{Kind: KindFinal, Body: "Evaluation finished: the ticket is feasible as written."},
		}},
	}
}
