package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSRemote_FlushesBufferAndReceivesResults(t *testing.T) {
	received := make(chan []Chunk, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.CloseNow()
		ctx := r.Context()

		var got []Chunk
		for range 3 {
			var ch Chunk
			if err := wsjson.Read(ctx, c, &ch); err != nil {
				return
			}
			got = append(got, ch)
		}
		received <- got

		if err := wsjson.Write(ctx, c, RemoteResult{Quality: 81, Breathiness: 0.4, Roughness: 0.1, Strain: 0.2}); err != nil {
			return
		}
		// Hold the connection until the client leaves.
		_, _, _ = c.Read(ctx)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := NewOutbound(10, 10)
	out.Send(ctx, chunk(1))
	out.Send(ctx, chunk(2))

	results := make(chan RemoteResult, 1)
	remote, err := NewWSRemote(WSRemoteConfig{
		URL:      wsURL(srv),
		Outbound: out,
		OnResult: func(r RemoteResult) {
			select {
			case results <- r:
			default:
			}
		},
		ReconnectBase: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWSRemote: %v", err)
	}

	runErr := make(chan error, 1)
	go func() { runErr <- remote.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !out.Connected() {
		if time.Now().After(deadline) {
			t.Fatal("remote never connected")
		}
		time.Sleep(5 * time.Millisecond)
	}
	out.Send(ctx, chunk(3))

	select {
	case got := <-received:
		for i, ch := range got {
			if ch.SampleRate != i+1 {
				t.Errorf("chunk %d has tag %d, want %d", i, ch.SampleRate, i+1)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not receive chunks")
	}

	select {
	case res := <-results:
		if res.Quality != 81 || res.Breathiness != 0.4 {
			t.Errorf("result = %+v", res)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no result received")
	}

	if out.Buffered() != 0 {
		t.Errorf("Buffered() = %d after flush, want 0", out.Buffered())
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Errorf("Run returned %v, want nil on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWSRemote_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	out := NewOutbound(10, 10)
	remote, err := NewWSRemote(WSRemoteConfig{
		URL:           url,
		Outbound:      out,
		ReconnectBase: time.Millisecond,
		ReconnectMax:  2 * time.Millisecond,
		MaxRetries:    3,
	})
	if err != nil {
		t.Fatalf("NewWSRemote: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := remote.Run(ctx); err == nil {
		t.Fatal("expected error after max retries")
	}

	reconnecting := 0
	for _, ev := range out.Events() {
		if ev.Type == EventReconnecting {
			reconnecting++
		}
	}
	if reconnecting != 2 {
		t.Errorf("reconnecting events = %d, want 2", reconnecting)
	}
}

func TestNewWSRemote_Validation(t *testing.T) {
	if _, err := NewWSRemote(WSRemoteConfig{Outbound: NewOutbound(1, 1)}); err == nil {
		t.Error("expected error for empty URL")
	}
	if _, err := NewWSRemote(WSRemoteConfig{URL: "ws://localhost:1"}); err == nil {
		t.Error("expected error for missing outbound")
	}
}
