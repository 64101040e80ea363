package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
)

func mustInvoke(t *testing.T, p Pipeline, ctx context.Context) Stream {
	t.Helper()
	stream, err := p.Invoke(ctx, "prompt")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	return stream
}

func TestScripted_ReplaysChunksInOrder(t *testing.T) {
	chunks := []Chunk{
		{"ticket_evaluation": {{Kind: KindFinal, Body: "first"}}},
		{"directory_assistant": {{Kind: KindTool, Body: "second"}}},
	}
	stream := mustInvoke(t, &Scripted{Chunks: chunks}, context.Background())

	for i, want := range chunks {
		chunk, err := stream.Next()
		if err != nil {
			t.Fatalf("Next[%d]: %v", i, err)
		}
		for stage, msgs := range want {
			got, ok := chunk[stage]
			if !ok {
				t.Fatalf("chunk[%d] missing stage %q", i, stage)
			}
			if len(got) != len(msgs) || got[0].Body != msgs[0].Body {
				t.Errorf("chunk[%d][%s] = %+v, want %+v", i, stage, got, msgs)
			}
		}
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after exhaustion, got %v", err)
	}
}

func TestScripted_TerminalFault(t *testing.T) {
	fault := errors.New("model unavailable")
	stream := mustInvoke(t, &Scripted{
		Chunks: []Chunk{{"ticket_evaluation": {{Kind: KindFinal, Body: "partial"}}}},
		Err:    fault,
	}, context.Background())

	if _, err := stream.Next(); err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if _, err := stream.Next(); !errors.Is(err, fault) {
		t.Fatalf("expected scripted fault, got %v", err)
	}
}

func TestScripted_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stream := mustInvoke(t, &Scripted{
		Chunks: []Chunk{{"ticket_evaluation": {{Kind: KindFinal, Body: "never seen"}}}},
	}, ctx)

	if _, err := stream.Next(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDemoScript_OnlyTaggedMessages(t *testing.T) {
	for i, chunk := range DemoScript() {
		if len(chunk) == 0 {
			t.Errorf("chunk[%d] is empty", i)
		}
		for stage, msgs := range chunk {
			for j, msg := range msgs {
				if msg.Body == "" {
					t.Errorf("chunk[%d][%s][%d] has empty body", i, stage, j)
				}
			}
		}
	}
}
