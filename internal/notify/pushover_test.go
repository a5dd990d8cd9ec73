package notify

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/catalog"
	"subwaypulse/internal/dashboard"
)

type fakeSender struct {
	mu     sync.Mutex
	titles []string
	err    error
	block  chan struct{}
}

func (f *fakeSender) Send(title, _ string, _ int) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	return f.err
}

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func board(degraded bool, alerts ...arrivals.Alert) dashboard.Board {
	return dashboard.Board{
		Station:  catalog.Station{ID: "127", Name: "Times Sq - 42 St"},
		Degraded: degraded,
		Alerts:   alerts,
	}
}

func TestNotifier_DegradedTransitions(t *testing.T) {
	f := &fakeSender{}
	n := New(f, testLogger)

	n.BoardCommitted(board(false))
	n.BoardCommitted(board(true))
	n.BoardCommitted(board(true))
	n.BoardCommitted(board(false))
	n.Close()

	if len(f.titles) != 2 {
		t.Fatalf("sent %v, want offline then online", f.titles)
	}
	if !strings.Contains(f.titles[0], "offline") || !strings.Contains(f.titles[1], "online") {
		t.Errorf("titles = %v", f.titles)
	}
}

func TestNotifier_NewAlertsOnce(t *testing.T) {
	f := &fakeSender{}
	n := New(f, testLogger)

	delay := arrivals.Alert{ID: "d1", Lines: []catalog.LineID{"1", "2"}, Description: "Delays on the 1 and 2"}
	sentinel := arrivals.Alert{ID: "s1", Lines: []catalog.LineID{"3"}, Description: "3 train service is active."}
	offline := arrivals.Alert{ID: "off", Headline: "Offline Mode", Informational: true}

	n.BoardCommitted(board(false, delay, sentinel))
	n.BoardCommitted(board(false, delay, offline))
	n.Close()

	if len(f.titles) != 1 || f.titles[0] != "Service alert: 1, 2" {
		t.Errorf("titles = %v", f.titles)
	}
}

func TestNotifier_SendErrorIsLogged(t *testing.T) {
	f := &fakeSender{err: errors.New("boom")}
	n := New(f, testLogger)
	n.BoardCommitted(board(true))
	n.Close()
	if len(f.titles) != 1 {
		t.Errorf("sent = %v", f.titles)
	}
}

func TestNotifier_SlowSenderDoesNotBlock(t *testing.T) {
	f := &fakeSender{block: make(chan struct{})}
	n := New(f, testLogger)

	returned := make(chan struct{})
	go func() {
		n.BoardCommitted(board(true))
		n.BoardCommitted(board(false))
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("BoardCommitted blocked on a slow sender")
	}

	close(f.block)
	n.Close()
	if len(f.titles) != 2 {
		t.Errorf("sent = %v, want both messages after Close", f.titles)
	}
	n.BoardCommitted(board(true))
	n.Close()
}
