package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	ws "github.com/gorilla/websocket"
)

func TestPublish_StampsAndDelivers(t *testing.T) {
	got := make(chan Event, 1)
	up := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Errorf("read: %v", err)
			return
		}
		var e Event
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Errorf("decode: %v", err)
		}
		got <- e
	}))
	defer srv.Close()

	b, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), "hark")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer b.Close()

	turn := NewTurn()
	if err := b.Publish(Event{Turn: turn, Kind: KindHeard, Content: "hey mistral"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	e := <-got
	if e.Turn != turn || e.Kind != KindHeard || e.Content != "hey mistral" || e.From != "hark" {
		t.Fatalf("unexpected event %+v", e)
	}
	if e.ID == "" || e.Time.IsZero() {
		t.Fatalf("event must be stamped: %+v", e)
	}
}

func TestDial_Failure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), "hark"); err == nil {
		t.Fatalf("expected dial failure on a non-websocket endpoint")
	}
}
