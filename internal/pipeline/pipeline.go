package pipeline

import (
	"context"
	"encoding/json"
)

// Kind classifies a single message within a pipeline chunk. The producing
// layer tags each message explicitly so downstream consumers never have to
// inspect message structure to decide what it is.
type Kind int

const (
	KindOther Kind = iota // bookkeeping, state echoes, anything unclassified
	KindFinal             // natural-language output from the reasoning stage
	KindTool              // tool invocation record
)

var kindNames = map[Kind]string{
	KindOther: "other",
	KindFinal: "final",
	KindTool:  "tool",
}

var kindFromName = map[string]Kind{
	"other": KindOther,
	"final": KindFinal,
	"tool":  KindTool,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "other"
}

func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if v, ok := kindFromName[s]; ok {
		*k = v
	} else {
		*k = KindOther
	}
	return nil
}

// Message is one tagged unit of output within a chunk.
type Message struct {
	Kind Kind   `json:"kind"`
	Body string `json:"body"`
}

// Chunk is one unit of pipeline output: each key is the name of the stage
// that produced the messages under it. A chunk typically carries a single
// stage, but the format allows several.
type Chunk map[string][]Message

// Stream is a lazy, ordered, non-restartable sequence of chunks. Next
// returns io.EOF when the pipeline has run to completion, or any other
// error when it faults; after either, the stream must not be read again.
type Stream interface {
	Next() (Chunk, error)
}

// Pipeline abstracts the multi-stage agent pipeline. Invoke starts one
// evaluation run for the given task prompt. The context bounds the whole
// run; implementations should stop producing once it is cancelled.
type Pipeline interface {
	Invoke(ctx context.Context, prompt string) (Stream, error)
}
