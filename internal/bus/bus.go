// Package bus publishes conversation events as JSON over a websocket.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

var ErrBus = errors.New("event bus")

type Kind string

const (
	KindState    Kind = "state"
	KindHeard    Kind = "heard"
	KindSentence Kind = "sentence"
	KindReply    Kind = "reply"
)

type Event struct {
	ID      string    `json:"id"`
	Turn    string    `json:"turn,omitempty"`
	From    string    `json:"from"`
	Kind    Kind      `json:"kind"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// NewTurn returns an id grouping the events of one exchange.
func NewTurn() string { return uuid.NewString() }

type Bus struct {
	mu   sync.Mutex
	conn *ws.Conn
	url  string
	from string
}

func Dial(ctx context.Context, url, from string) (*Bus, error) {
	b := &Bus{url: url, from: from}
	if err := b.dial(ctx); err != nil {
		return nil, err
	}
	log.Info("Connected to bus", "url", url)
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	conn, _, err := ws.DefaultDialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrBus, b.url, err)
	}
	b.conn = conn
	return nil
}

// Publish stamps e and writes it. A connection closed by the peer is redialed
// once before giving up.
func (b *Bus) Publish(e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.From == "" {
		e.From = b.from
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBus, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	log.Debug("Write bus", "msg", string(payload))
	err = b.conn.WriteMessage(ws.TextMessage, payload)
	if err == nil {
		return nil
	}
	if !IsClosed(err) && !errors.Is(err, ws.ErrCloseSent) {
		return fmt.Errorf("%w: write: %v", ErrBus, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if derr := b.dial(ctx); derr != nil {
		return derr
	}
	if err := b.conn.WriteMessage(ws.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: write: %v", ErrBus, err)
	}
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.conn.WriteMessage(ws.CloseMessage, ws.FormatCloseMessage(ws.CloseNormalClosure, ""))
	return b.conn.Close()
}

func IsClosed(err error) bool {
	return ws.IsCloseError(err,
		ws.CloseNormalClosure,
		ws.CloseGoingAway,
		ws.CloseAbnormalClosure)
}
