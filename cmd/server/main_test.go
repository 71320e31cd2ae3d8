package main

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"
)

func TestShutdownEndsOpenStreams(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	finished := make(chan struct{})
	stream := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
		close(finished)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	server := newServer(ln.Addr().String(), stream, base)
	server.RegisterOnShutdown(cancel)
	go server.Serve(ln)

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
		if err != nil {
			return
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never started")
	}

	ctx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := server.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v, want open streams to end", err)
	}

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Error("stream handler still running after shutdown")
	}
}
