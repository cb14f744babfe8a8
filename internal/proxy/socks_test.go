package proxy

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient_Direct(t *testing.T) {
	c, err := NewClient("", 10*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if c.Transport != nil || c.Timeout != 10*time.Second {
		t.Fatalf("expected a plain client with timeout, got %+v", c)
	}
}

func TestNewClient_Socks(t *testing.T) {
	c, err := NewClient("127.0.0.1:1080", 0)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Fatalf("expected a socks transport, got %T", c.Transport)
	}
	if c.Timeout != 0 {
		t.Fatalf("streaming clients must not time out, got %v", c.Timeout)
	}
}
