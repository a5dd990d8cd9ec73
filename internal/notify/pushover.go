// Package notify pushes board transitions to a phone via Pushover.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gregdel/pushover"

	"subwaypulse/internal/arrivals"
	"subwaypulse/internal/dashboard"
)

const (
	PriorityNormal = 0
	PriorityHigh   = 1
)

// Sender delivers a single message.
type Sender interface {
	Send(title, message string, priority int) error
}

type pushoverSender struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
	logger    *slog.Logger
}

// NewPushover returns a Sender backed by the Pushover API.
func NewPushover(token, userKey string, logger *slog.Logger) Sender {
	return &pushoverSender{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
		logger:    logger,
	}
}

func (p *pushoverSender) Send(title, message string, priority int) error {
	msg := pushover.NewMessageWithTitle(message, title)
	msg.Priority = priority

	resp, err := p.app.SendMessage(msg, p.recipient)
	if err != nil {
		return fmt.Errorf("sending pushover notification: %w", err)
	}
	p.logger.Debug("notification sent", "title", title, "status", resp.Status, "request_id", resp.ID)
	return nil
}

// queueSize bounds the messages waiting for delivery.
const queueSize = 32

// Notifier watches committed boards and reports offline transitions and new
// disruption alerts. It implements dashboard.Observer. Messages are delivered
// by a background worker so a slow Pushover call never holds up a refresh.
type Notifier struct {
	sender Sender
	logger *slog.Logger
	queue  chan message
	done   chan struct{}

	mu       sync.Mutex
	closed   bool
	degraded bool
	seen     map[string]bool
}

// New creates a Notifier and starts its delivery worker. Call Close to stop it.
func New(sender Sender, logger *slog.Logger) *Notifier {
	n := &Notifier{
		sender: sender,
		logger: logger,
		queue:  make(chan message, queueSize),
		done:   make(chan struct{}),
		seen:   make(map[string]bool),
	}
	go n.deliver()
	return n
}

func (n *Notifier) deliver() {
	defer close(n.done)
	for m := range n.queue {
		if err := n.sender.Send(m.title, m.body, m.priority); err != nil {
			n.logger.Warn("notification failed", "title", m.title, "error", err)
		}
	}
}

// Close stops accepting boards and waits for queued messages to be sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()
	<-n.done
}

// BoardCommitted compares b with the previous commit and queues messages. It
// never blocks; when the queue is full the message is dropped and logged.
func (n *Notifier) BoardCommitted(b dashboard.Board) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	var msgs []message
	if b.Degraded != n.degraded {
		n.degraded = b.Degraded
		msgs = append(msgs, degradedMessage(b))
	}
	for _, a := range b.Alerts {
		if a.Informational || arrivals.IsSentinel(a) || a.ID == "" || n.seen[a.ID] {
			continue
		}
		n.seen[a.ID] = true
		msgs = append(msgs, alertMessage(b, a))
	}

	for _, m := range msgs {
		select {
		case n.queue <- m:
		default:
			n.logger.Warn("notification queue full, dropping", "title", m.title)
		}
	}
}

type message struct {
	title    string
	body     string
	priority int
}

func degradedMessage(b dashboard.Board) message {
	if b.Degraded {
		return message{
			title:    "SubwayPulse offline",
			body:     fmt.Sprintf("Live data unavailable at %s. Showing estimated arrivals.", b.Station.Name),
			priority: PriorityHigh,
		}
	}
	return message{
		title: "SubwayPulse back online",
		body:  fmt.Sprintf("Live arrivals restored at %s.", b.Station.Name),
	}
}

func alertMessage(b dashboard.Board, a arrivals.Alert) message {
	lines := make([]string, len(a.Lines))
	for i, l := range a.Lines {
		lines[i] = string(l)
	}
	title := "Service alert: " + strings.Join(lines, ", ")
	body := a.Description
	if a.Headline != "" && a.Headline != a.Description {
		body = a.Headline + "\n" + a.Description
	}
	return message{title: title, body: fmt.Sprintf("%s\n(%s)", body, b.Station.Name), priority: PriorityHigh}
}
