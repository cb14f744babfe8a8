package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
)

const DefaultOllamaURL = "http://localhost:11434/api/generate"

// Ollama streams from an /api/generate style endpoint that answers with
// newline-delimited JSON objects.
type Ollama struct {
	URL        string
	Model      string
	HTTPClient *http.Client
}

func NewOllama(url, model string, client *http.Client) *Ollama {
	if url == "" {
		url = DefaultOllamaURL
	}
	if client == nil {
		// no overall timeout: a long reply streams for as long as it takes
		client = &http.Client{}
	}
	return &Ollama{URL: url, Model: model, HTTPClient: client}
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateLine struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
	Error    string  `json:"error"`
}

func (o *Ollama) Generate(ctx context.Context, req Request) (Stream, error) {
	body, err := json.Marshal(generateRequest{
		Model:  o.Model,
		Prompt: req.Prompt,
		Stream: true,
		Options: generateOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			MaxTokens:   req.MaxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status=%d body=%s", ErrTransport, resp.StatusCode, bytes.TrimSpace(b))
	}

	return newLineStream(resp.Body), nil
}

// lineStream decodes one JSON object per line. Lines that fail to decode or
// carry no "response" are skipped, remote "error" lines included. Lines have
// no length cap.
type lineStream struct {
	body    io.ReadCloser
	r       *bufio.Reader
	chunk   string
	err     error
	done    bool
	skipped int
}

func newLineStream(body io.ReadCloser) *lineStream {
	return &lineStream{body: body, r: bufio.NewReaderSize(body, 64*1024)}
}

func (s *lineStream) Next() bool {
	for !s.done {
		raw, rerr := s.r.ReadBytes('\n')
		if line := bytes.TrimSpace(raw); len(line) > 0 {
			if s.decode(line) {
				return true
			}
		}
		if rerr != nil {
			if rerr != io.EOF {
				s.err = fmt.Errorf("%w: read stream: %v", ErrTransport, rerr)
			}
			s.done = true
		}
	}
	return false
}

// decode reports whether line produced a chunk.
func (s *lineStream) decode(line []byte) bool {
	var l generateLine
	if err := json.Unmarshal(line, &l); err != nil {
		s.skipped++
		log.Debug("Skipping backend line", "err", fmt.Errorf("%w: %v", ErrProtocol, err))
		return false
	}
	if l.Error != "" {
		log.Warn("Backend reported an error, skipping line", "err", l.Error)
	}
	if l.Response == nil {
		s.done = l.Done
		return false
	}

	s.chunk = *l.Response
	s.done = l.Done
	return true
}

func (s *lineStream) Chunk() string { return s.chunk }

func (s *lineStream) Err() error { return s.err }

func (s *lineStream) Close() error {
	s.done = true
	if s.skipped > 0 {
		log.Debug("Backend stream closed", "skipped_lines", s.skipped)
	}
	return s.body.Close()
}
