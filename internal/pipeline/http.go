package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxChunkBytes bounds a single NDJSON line from the upstream pipeline.
const maxChunkBytes = 1 << 20

// HTTPPipeline drives a remote agent pipeline over HTTP. Invoke POSTs the
// task prompt and the upstream service streams back newline-delimited JSON,
// one chunk per line. The request context bounds the whole run: cancelling
// it aborts the response body mid-stream.
type HTTPPipeline struct {
	URL    string
	Client *http.Client // nil means http.DefaultClient
}

type invokeRequest struct {
	Prompt string `json:"prompt"`
}

func (p *HTTPPipeline) Invoke(ctx context.Context, prompt string) (Stream, error) {
	body, err := json.Marshal(invokeRequest{Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encode invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke pipeline: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("invoke pipeline: upstream returned %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxChunkBytes)
	return &httpStream{body: resp.Body, scanner: scanner}, nil
}

type httpStream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
}

func (s *httpStream) Next() (Chunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			s.close()
			return nil, fmt.Errorf("decode chunk: %w", err)
		}
		return chunk, nil
	}

	s.close()
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pipeline stream: %w", err)
	}
	return nil, io.EOF
}

func (s *httpStream) close() {
	if !s.done {
		s.done = true
		s.body.Close()
	}
}
