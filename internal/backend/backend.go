// Package backend talks to the text generation service. Every backend exposes
// its reply as a lazy, single-pass Stream of text chunks.
package backend

import (
	"context"
	"errors"
)

var (
	// ErrTransport covers everything that stops the reply from arriving:
	// connection failures, non-2xx statuses, broken bodies, remote errors.
	ErrTransport = errors.New("backend transport")
	// ErrProtocol marks a single undecodable payload line. Streams skip such
	// lines and keep going.
	ErrProtocol = errors.New("backend protocol")
)

// Request carries the prompt and the sampling knobs.
type Request struct {
	Prompt      string
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Stream yields chunks in emission order. It is finite and cannot be
// restarted; Close may be called at any point to stop consuming.
type Stream interface {
	Next() bool
	Chunk() string
	Err() error
	Close() error
}

type Backend interface {
	Generate(ctx context.Context, req Request) (Stream, error)
}
