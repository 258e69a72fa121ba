package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/miniheartx/heartx/pkg/session"
)

func newTestClient(t *testing.T, h http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, Options{Timeout: timeout})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestTranslateSuccess(t *testing.T) {
	var got Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/translate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmd_1","command":"nmap -p 22 10.0.0.0/24","output":["22/tcp open ssh"],"type":"success","timestamp":"12:00:00"}`))
	}, time.Second)

	reply, err := c.Translate(context.Background(), Request{Input: "scan ssh", Mode: session.ModeAttack})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got.Input != "scan ssh" || got.Mode != session.ModeAttack {
		t.Fatalf("server saw %+v", got)
	}
	if reply.Command != "nmap -p 22 10.0.0.0/24" || reply.Type != session.Success {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if len(reply.Output) != 1 || reply.Output[0] != "22/tcp open ssh" {
		t.Fatalf("unexpected output %v", reply.Output)
	}
}

func TestTranslateDefaultsMode(t *testing.T) {
	var got Request
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"command":"x","output":[],"type":"info"}`))
	}, time.Second)

	if _, err := c.Translate(context.Background(), Request{Input: "x"}); err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got.Mode != session.ModeMatrix {
		t.Fatalf("mode = %q, want matrix", got.Mode)
	}
}

func TestTranslateNon2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}, time.Second)

	_, err := c.Translate(context.Background(), Request{Input: "scan ports"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("expected StatusError 502, got %v", err)
	}
	if !strings.Contains(err.Error(), "upstream exploded") {
		t.Fatalf("error should carry body, got %v", err)
	}
}

func TestTranslateMalformedReplies(t *testing.T) {
	bodies := map[string]string{
		"not json":        `<html>oops</html>`,
		"missing command": `{"output":["a"],"type":"success"}`,
		"bad type":        `{"command":"ls","output":["a"],"type":"warning"}`,
		"missing output":  `{"command":"ls","type":"info"}`,
		"output shape":    `{"command":"ls","output":"a","type":"info"}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}, time.Second)
			_, err := c.Translate(context.Background(), Request{Input: "x"})
			if !errors.Is(err, ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", err)
			}
			if !errors.Is(err, ErrMalformedReply) {
				t.Fatalf("expected ErrMalformedReply, got %v", err)
			}
		})
	}
}

func TestTranslateTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	_, err := c.Translate(context.Background(), Request{Input: "scan ports"})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not enforced, took %v", elapsed)
	}
}

func TestTranslateConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(url, Options{Timeout: time.Second})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Translate(context.Background(), Request{Input: "x"}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewClientValidatesURL(t *testing.T) {
	if _, err := NewClient("", Options{}); err == nil {
		t.Fatal("expected error for empty url")
	}
	if _, err := NewClient("localhost:8000", Options{}); err == nil {
		t.Fatal("expected error for url without scheme")
	}
	c, err := NewClient("http://127.0.0.1:8000/", Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.BaseURL() != "http://127.0.0.1:8000" {
		t.Fatalf("BaseURL = %q", c.BaseURL())
	}
}
