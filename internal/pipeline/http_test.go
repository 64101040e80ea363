package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPPipeline_StreamsChunks(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotPrompt = req.Prompt

		lines := []string{
			`{"ticket_evaluation":[{"kind":"final","body":"Step 1"}]}`,
			``,
			`{"directory_assistant":[{"kind":"tool","body":"list_teams()"}]}`,
		}
		w.Write([]byte(strings.Join(lines, "\n") + "\n"))
	}))
	defer srv.Close()

	p := &HTTPPipeline{URL: srv.URL}
	stream, err := p.Invoke(context.Background(), "evaluate ticket 7")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if gotPrompt != "evaluate ticket 7" {
		t.Errorf("upstream saw prompt %q", gotPrompt)
	}

	first, err := stream.Next()
	if err != nil {
		t.Fatalf("Next[0]: %v", err)
	}
	msgs := first["ticket_evaluation"]
	if len(msgs) != 1 || msgs[0].Kind != KindFinal || msgs[0].Body != "Step 1" {
		t.Fatalf("first chunk = %+v", first)
	}

	// Blank lines are skipped.
	second, err := stream.Next()
	if err != nil {
		t.Fatalf("Next[1]: %v", err)
	}
	if msgs := second["directory_assistant"]; len(msgs) != 1 || msgs[0].Kind != KindTool {
		t.Fatalf("second chunk = %+v", second)
	}

	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	// Reading past the end stays EOF.
	if _, err := stream.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on repeat read, got %v", err)
	}
}

func TestHTTPPipeline_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "pipeline down", http.StatusBadGateway)
	}))
	defer srv.Close()

	p := &HTTPPipeline{URL: srv.URL}
	if _, err := p.Invoke(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for non-200 upstream response")
	}
}

func TestHTTPPipeline_MalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not json\n"))
	}))
	defer srv.Close()

	p := &HTTPPipeline{URL: srv.URL}
	stream, err := p.Invoke(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if _, err := stream.Next(); err == nil || errors.Is(err, io.EOF) {
		t.Fatalf("expected decode fault, got %v", err)
	}
}

func TestKind_JSON(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{`"final"`, KindFinal},
		{`"tool"`, KindTool},
		{`"other"`, KindOther},
		{`"something_new"`, KindOther}, // unknown kinds degrade to other
	}

	for _, tt := range tests {
		var k Kind
		if err := json.Unmarshal([]byte(tt.in), &k); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if k != tt.want {
			t.Errorf("unmarshal %s = %v, want %v", tt.in, k, tt.want)
		}
	}

	data, err := json.Marshal(KindFinal)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"final"` {
		t.Errorf("marshal = %s, want \"final\"", data)
	}
}
